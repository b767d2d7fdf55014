package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgo/server/internal/module/payment/provider"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(h *paymentHarness, userID uuid.UUID) *gin.Engine {
	router := gin.New()

	handler := NewHandler(h.svc)
	api := router.Group("/api/v1")
	handler.RegisterPublicRoutes(api)

	authed := api.Group("")
	authed.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
		}
	})
	handler.RegisterRoutes(authed)

	return router
}

func TestHandler_Checkout(t *testing.T) {
	userID := uuid.New()
	o := pendingOrder(userID)
	h := newPaymentHarness(o)
	router := newTestRouter(h, userID)

	body, err := json.Marshal(CheckoutRequest{OrderID: o.ID, Provider: "stripe"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pay provider.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pay))
	assert.Equal(t, "stripe", pay.Provider)
	assert.Equal(t, o.OrderNo, pay.OrderNo)
	assert.Equal(t, "pi_123_secret", pay.ClientSecret)
}

func TestHandler_Checkout_Unauthorized(t *testing.T) {
	h := newPaymentHarness()
	router := newTestRouter(h, uuid.Nil)

	body, _ := json.Marshal(CheckoutRequest{OrderID: uuid.New()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_Checkout_MissingOrder(t *testing.T) {
	userID := uuid.New()
	h := newPaymentHarness()
	router := newTestRouter(h, userID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Notify_ReturnsProviderAck(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.alipay.result = &provider.NotifyResult{
		EventID:   "2026082512000001",
		OrderNo:   o.OrderNo,
		Amount:    999,
		Succeeded: true,
		Ack:       "success",
	}
	router := newTestRouter(h, uuid.Nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/alipay/notify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
	assert.Len(t, h.recorded.events, 1)
}

func TestHandler_Notify_RejectedSignature(t *testing.T) {
	h := newPaymentHarness()
	h.stripe.notifyErr = assert.AnError
	router := newTestRouter(h, uuid.Nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/stripe/notify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Notify_SubscriberFailureReturns500(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.recorded.err = assert.AnError
	h.stripe.result = &provider.NotifyResult{
		EventID:   "evt_1",
		OrderNo:   o.OrderNo,
		Amount:    999,
		Succeeded: true,
		Ack:       "ok",
	}
	router := newTestRouter(h, uuid.Nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/stripe/notify", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
