package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers authenticated payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/checkout", h.Checkout)
	}
}

// RegisterPublicRoutes registers provider-facing webhook routes. These
// are authenticated by signature, not by session.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/payments/:provider/notify", h.Notify)
}

// Checkout godoc
//
//	@Summary		Start checkout
//	@Description	Create a provider payment for one of the caller's pending orders
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CheckoutRequest	true	"Checkout request"
//	@Success		200		{object}	provider.Payment
//	@Failure		400		{object}	map[string]interface{}
//	@Failure		401		{object}	map[string]interface{}
//	@Failure		409		{object}	map[string]interface{}
//	@Router			/payments/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	pay, err := h.service.Checkout(c.Request.Context(), userID, req.OrderID, req.Provider)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pay)
}

// Notify godoc
//
//	@Summary		Payment notification
//	@Description	Receive an asynchronous payment notification from a provider
//	@Tags			payments
//	@Produce		plain
//	@Param			provider	path		string	true	"Provider name"
//	@Success		200			{string}	string	"provider-specific acknowledgement"
//	@Failure		400			{object}	map[string]interface{}
//	@Router			/payments/{provider}/notify [post]
func (h *Handler) Notify(c *gin.Context) {
	ack, err := h.service.HandleNotify(c.Request.Context(), c.Param("provider"), c.Request)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.String(http.StatusOK, ack)
}

func getUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
