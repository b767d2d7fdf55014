package promotion

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
)

// Handler handles HTTP requests for promotions.
type Handler struct {
	service *Service
}

// NewHandler creates a new promotion handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers authenticated promotion routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	promotions := r.Group("/promotions")
	{
		promotions.GET("/:code", h.Validate)
		promotions.POST("/redeem", h.Redeem)
	}
}

// RegisterAdminRoutes registers admin promotion routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/promotions", h.Create)
}

// Validate godoc
//
//	@Summary		Validate promo code
//	@Description	Check whether a promo code is currently redeemable
//	@Tags			promotions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			code	path		string	true	"Promo code"
//	@Success		200		{object}	CodeResponse
//	@Failure		404		{object}	map[string]interface{}
//	@Failure		422		{object}	map[string]interface{}
//	@Router			/promotions/{code} [get]
func (h *Handler) Validate(c *gin.Context) {
	promo, err := h.service.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, promo.ToResponse())
}

// Redeem godoc
//
//	@Summary		Redeem promo code
//	@Description	Redeem a bonus-credits promo code for the caller
//	@Tags			promotions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		RedeemRequest	true	"Redeem request"
//	@Success		200		{object}	RedeemResponse
//	@Failure		400		{object}	map[string]interface{}
//	@Failure		422		{object}	map[string]interface{}
//	@Router			/promotions/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	promo, err := h.service.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, RedeemResponse{Code: promo.Code, CreditsGranted: promo.CreditsAmount})
}

// Create godoc
//
//	@Summary		Create promo code
//	@Description	Adds a promo code (admin)
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateCodeRequest	true	"Promo code"
//	@Success		201		{object}	PromoCode
//	@Failure		400		{object}	map[string]interface{}
//	@Router			/admin/promotions [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	promo, err := h.service.CreateCode(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, promo)
}

func getUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
