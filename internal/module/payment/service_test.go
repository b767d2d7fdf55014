package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidgo/server/internal/infra/events"
	"github.com/vidgo/server/internal/module/order"
	"github.com/vidgo/server/internal/module/payment/provider"
	apperrors "github.com/vidgo/server/internal/shared/errors"
)

type fakeProvider struct {
	name      string
	payment   *provider.Payment
	payErr    error
	result    *provider.NotifyResult
	notifyErr error
	created   []*order.Order
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CreatePayment(_ context.Context, o *order.Order) (*provider.Payment, error) {
	f.created = append(f.created, o)
	if f.payErr != nil {
		return nil, f.payErr
	}
	pay := *f.payment
	return &pay, nil
}

func (f *fakeProvider) HandleNotify(_ context.Context, _ *http.Request) (*provider.NotifyResult, error) {
	if f.notifyErr != nil {
		return nil, f.notifyErr
	}
	result := *f.result
	return &result, nil
}

type fakeOrders struct {
	byID map[uuid.UUID]*order.Order
	byNo map[string]*order.Order
}

func newFakeOrders(orders ...*order.Order) *fakeOrders {
	f := &fakeOrders{
		byID: make(map[uuid.UUID]*order.Order),
		byNo: make(map[string]*order.Order),
	}
	for _, o := range orders {
		f.byID[o.ID] = o
		f.byNo[o.OrderNo] = o
	}
	return f
}

func (f *fakeOrders) Get(_ context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	o, ok := f.byID[orderID]
	if !ok || o.UserID != userID {
		return nil, apperrors.NotFound("order")
	}
	return o, nil
}

func (f *fakeOrders) GetByOrderNo(_ context.Context, orderNo string) (*order.Order, error) {
	o, ok := f.byNo[orderNo]
	if !ok {
		return nil, apperrors.NotFound("order")
	}
	return o, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*WebhookEvent
	hasErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*WebhookEvent)}
}

func (f *fakeEventRepo) HasEvent(_ context.Context, providerName, eventID string) (bool, error) {
	if f.hasErr != nil {
		return false, f.hasErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.events[providerName+":"+eventID]
	return ok, nil
}

func (f *fakeEventRepo) RecordEvent(_ context.Context, event *WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := event.Provider + ":" + event.EventID
	if _, ok := f.events[key]; ok {
		return nil
	}
	f.events[key] = event
	return nil
}

func (f *fakeEventRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type recordingHandler struct {
	types  []string
	events []events.Event
	err    error
}

func (h *recordingHandler) Handles() []string { return h.types }

func (h *recordingHandler) Handle(_ context.Context, e events.Event) error {
	h.events = append(h.events, e)
	return h.err
}

type paymentHarness struct {
	svc      *Service
	repo     *fakeEventRepo
	stripe   *fakeProvider
	alipay   *fakeProvider
	recorded *recordingHandler
}

func newPaymentHarness(orders ...*order.Order) *paymentHarness {
	stripe := &fakeProvider{
		name: "stripe",
		payment: &provider.Payment{
			Provider:     "stripe",
			IntentID:     "pi_123",
			ClientSecret: "pi_123_secret",
			Amount:       999,
			Currency:     "usd",
		},
	}
	alipay := &fakeProvider{
		name: "alipay",
		payment: &provider.Payment{
			Provider: "alipay",
			PayURL:   "https://openapi.alipay.com/gateway.do?x=1",
			Amount:   7000,
			Currency: "cny",
		},
	}

	recorded := &recordingHandler{types: []string{events.PaymentSucceededType, events.PaymentFailedType}}
	bus := events.NewBus(zap.NewNop())
	bus.Register(recorded)

	repo := newFakeEventRepo()
	svc := NewService(ServiceConfig{
		Repo:      repo,
		Orders:    newFakeOrders(orders...),
		Providers: []provider.Provider{stripe, alipay},
		Bus:       bus,
	})

	return &paymentHarness{svc: svc, repo: repo, stripe: stripe, alipay: alipay, recorded: recorded}
}

func pendingOrder(userID uuid.UUID) *order.Order {
	return &order.Order{
		ID:           uuid.New(),
		OrderNo:      "VG20260825120000ABC123",
		UserID:       userID,
		PackID:       "pack_standard",
		Credits:      1200,
		BonusCredits: 100,
		Currency:     order.CurrencyUSD,
		Subtotal:     999,
		Total:        999,
		Status:       order.StatusPending,
		ExpiresAt:    time.Now().Add(30 * time.Minute),
	}
}

func notifyRequest() *http.Request {
	return httptest.NewRequest(http.MethodPost, "/payments/notify", nil)
}

func TestService_Checkout(t *testing.T) {
	userID := uuid.New()
	o := pendingOrder(userID)
	h := newPaymentHarness(o)

	pay, err := h.svc.Checkout(context.Background(), userID, o.ID, "stripe")
	require.NoError(t, err)

	assert.Equal(t, "stripe", pay.Provider)
	assert.Equal(t, o.OrderNo, pay.OrderNo)
	assert.Equal(t, "pi_123_secret", pay.ClientSecret)
	require.Len(t, h.stripe.created, 1)
	assert.Equal(t, o.OrderNo, h.stripe.created[0].OrderNo)
}

func TestService_Checkout_DefaultsProviderByCurrency(t *testing.T) {
	userID := uuid.New()
	usd := pendingOrder(userID)
	cny := pendingOrder(userID)
	cny.ID = uuid.New()
	cny.OrderNo = "VG20260825120001XYZ789"
	cny.Currency = order.CurrencyCNY
	cny.Subtotal = 7000
	cny.Total = 7000

	h := newPaymentHarness(usd, cny)

	_, err := h.svc.Checkout(context.Background(), userID, usd.ID, "")
	require.NoError(t, err)
	assert.Len(t, h.stripe.created, 1)

	pay, err := h.svc.Checkout(context.Background(), userID, cny.ID, "")
	require.NoError(t, err)
	assert.Len(t, h.alipay.created, 1)
	assert.NotEmpty(t, pay.PayURL)
}

func TestService_Checkout_NotPending(t *testing.T) {
	userID := uuid.New()
	o := pendingOrder(userID)
	o.Status = order.StatusPaid
	h := newPaymentHarness(o)

	_, err := h.svc.Checkout(context.Background(), userID, o.ID, "stripe")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, h.stripe.created)
}

func TestService_Checkout_ExpiredWindow(t *testing.T) {
	userID := uuid.New()
	o := pendingOrder(userID)
	o.ExpiresAt = time.Now().Add(-time.Minute)
	h := newPaymentHarness(o)

	_, err := h.svc.Checkout(context.Background(), userID, o.ID, "stripe")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestService_Checkout_UnknownProvider(t *testing.T) {
	userID := uuid.New()
	o := pendingOrder(userID)
	h := newPaymentHarness(o)

	_, err := h.svc.Checkout(context.Background(), userID, o.ID, "paypal")
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestService_Checkout_OtherUsersOrder(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)

	_, err := h.svc.Checkout(context.Background(), uuid.New(), o.ID, "stripe")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestService_Checkout_ProviderFailure(t *testing.T) {
	userID := uuid.New()
	o := pendingOrder(userID)
	h := newPaymentHarness(o)
	h.stripe.payErr = assert.AnError

	_, err := h.svc.Checkout(context.Background(), userID, o.ID, "stripe")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, http.StatusBadGateway, apperrors.GetStatusCode(err))
}

func TestService_HandleNotify_Success(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.stripe.result = &provider.NotifyResult{
		EventID:   "evt_1",
		OrderNo:   o.OrderNo,
		TradeNo:   "pi_123",
		Amount:    999,
		Succeeded: true,
		Ack:       "ok",
	}

	ack, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", ack)

	require.Len(t, h.recorded.events, 1)
	evt, ok := h.recorded.events[0].(*events.PaymentSucceededEvent)
	require.True(t, ok)
	assert.Equal(t, o.ID, evt.OrderID)
	assert.Equal(t, o.UserID, evt.UserID)
	assert.Equal(t, o.OrderNo, evt.OrderNo)
	assert.Equal(t, "pi_123", evt.TradeNo)
	assert.Equal(t, int64(1200), evt.Credits)
	assert.Equal(t, int64(100), evt.BonusCredits)

	assert.Equal(t, 1, h.repo.count())
}

func TestService_HandleNotify_DuplicateAcked(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.stripe.result = &provider.NotifyResult{
		EventID:   "evt_1",
		OrderNo:   o.OrderNo,
		Amount:    999,
		Succeeded: true,
		Ack:       "ok",
	}

	_, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	require.NoError(t, err)

	ack, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", ack)

	assert.Len(t, h.recorded.events, 1, "redelivery must not publish again")
}

func TestService_HandleNotify_InvalidRejected(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.stripe.notifyErr = assert.AnError

	_, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Empty(t, h.recorded.events)
}

func TestService_HandleNotify_UnknownProvider(t *testing.T) {
	h := newPaymentHarness()

	_, err := h.svc.HandleNotify(context.Background(), "paypal", notifyRequest())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestService_HandleNotify_NoOrderAcked(t *testing.T) {
	h := newPaymentHarness()
	h.stripe.result = &provider.NotifyResult{EventID: "evt_other", Ack: "ok"}

	ack, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", ack)
	assert.Empty(t, h.recorded.events)
	assert.Equal(t, 0, h.repo.count())
}

func TestService_HandleNotify_AmountMismatch(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.stripe.result = &provider.NotifyResult{
		EventID:   "evt_1",
		OrderNo:   o.OrderNo,
		Amount:    5,
		Succeeded: true,
		Ack:       "ok",
	}

	_, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Empty(t, h.recorded.events)
	assert.Equal(t, 0, h.repo.count())
}

func TestService_HandleNotify_SubscriberFailureNotAcked(t *testing.T) {
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

	_, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	// The event stays unrecorded so the redelivery gets processed again.
	assert.Equal(t, 0, h.repo.count())
}

func TestService_HandleNotify_FailurePublishesFailedEvent(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.alipay.result = &provider.NotifyResult{
		EventID:        "2026082512000001",
		OrderNo:        o.OrderNo,
		FailureCode:    "trade_closed",
		FailureMessage: "trade closed before payment completed",
		Ack:            "success",
	}

	ack, err := h.svc.HandleNotify(context.Background(), "alipay", notifyRequest())
	require.NoError(t, err)
	assert.Equal(t, "success", ack)

	require.Len(t, h.recorded.events, 1)
	evt, ok := h.recorded.events[0].(*events.PaymentFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "alipay", evt.Provider)
	assert.Equal(t, "trade_closed", evt.FailureCode)
}

func TestService_HandleNotify_DedupCheckFailureStillProcesses(t *testing.T) {
	o := pendingOrder(uuid.New())
	h := newPaymentHarness(o)
	h.repo.hasErr = assert.AnError
	h.stripe.result = &provider.NotifyResult{
		EventID:   "evt_1",
		OrderNo:   o.OrderNo,
		Amount:    999,
		Succeeded: true,
		Ack:       "ok",
	}

	ack, err := h.svc.HandleNotify(context.Background(), "stripe", notifyRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", ack)
	assert.Len(t, h.recorded.events, 1)
}
