package order

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	service *Service
}

// NewHandler creates a new order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers order routes that need no authentication.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/orders/packs", h.ListPacks)
}

// RegisterRoutes registers authenticated order routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
	}
}

// ListPacks godoc
//
//	@Summary		List credit packs
//	@Description	Get the purchasable credit-pack catalog
//	@Tags			orders
//	@Produce		json
//	@Success		200	{object}	PackListResponse
//	@Router			/orders/packs [get]
func (h *Handler) ListPacks(c *gin.Context) {
	response.OK(c, PackListResponse{Packs: h.service.Packs()})
}

// Create godoc
//
//	@Summary		Create order
//	@Description	Create a pending order for a credit pack, optionally applying a discount promo code
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateOrderRequest	true	"Order request"
//	@Success		201		{object}	OrderResponse
//	@Failure		400		{object}	map[string]interface{}
//	@Failure		401		{object}	map[string]interface{}
//	@Router			/orders [post]
func (h *Handler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	order, err := h.service.Create(c.Request.Context(), userID, req.PackID, req.Currency, req.PromoCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, order.ToResponse())
}

// List godoc
//
//	@Summary		List orders
//	@Description	List the caller's orders, newest first
//	@Tags			orders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	OrderListResponse
//	@Failure		401			{object}	map[string]interface{}
//	@Router			/orders [get]
func (h *Handler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	orders, total, err := h.service.ListMine(c.Request.Context(), userID, p)
	if err != nil {
		response.Error(c, err)
		return
	}

	responses := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		responses[i] = o.ToResponse()
	}
	response.OK(c, OrderListResponse{
		Orders:     responses,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(total),
	})
}

// Get godoc
//
//	@Summary		Get order
//	@Description	Get one of the caller's orders by id
//	@Tags			orders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Order ID"
//	@Success		200	{object}	OrderResponse
//	@Failure		404	{object}	map[string]interface{}
//	@Router			/orders/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.BadRequest("invalid order id"))
		return
	}

	order, err := h.service.Get(c.Request.Context(), userID, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, order.ToResponse())
}

func getUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
