package credit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Handler handles HTTP requests for credits.
type Handler struct {
	service *Service
}

// NewHandler creates a new credit handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the credit routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	credits := r.Group("/credits")
	{
		credits.GET("/balance", h.GetBalance)
		credits.GET("/transactions", h.ListTransactions)
	}
}

// RegisterAdminRoutes registers operator-facing credit routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/credits/grant", h.Grant)
}

// GetBalance returns the current user's credit balance.
//
//	@Summary		Get credit balance
//	@Description	Get the current user's credit balance split by bucket
//	@Tags			Credit
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	BalanceResponse
//	@Failure		401	{object}	map[string]interface{}
//	@Router			/credits/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	bal, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bal.ToResponse())
}

// ListTransactions returns the current user's credit ledger.
//
//	@Summary		List credit transactions
//	@Description	Get the current user's credit ledger entries, newest first
//	@Tags			Credit
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	TransactionListResponse
//	@Failure		401			{object}	map[string]interface{}
//	@Router			/credits/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
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

	entries, total, err := h.service.Transactions(c.Request.Context(), userID, p)
	if err != nil {
		response.Error(c, err)
		return
	}

	responses := make([]*TransactionResponse, len(entries))
	for i, entry := range entries {
		responses[i] = entry.ToResponse()
	}
	response.OK(c, TransactionListResponse{
		Transactions: responses,
		Total:        total,
		Page:         p.Page,
		PageSize:     p.PageSize,
		TotalPages:   p.TotalPages(total),
	})
}

// Grant credits a user's bucket.
//
//	@Summary		Grant credits
//	@Description	Grant credits into one bucket of a user's balance
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		GrantRequest	true	"Grant request"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]interface{}
//	@Router			/admin/credits/grant [post]
func (h *Handler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual_grant"
	}
	if err := h.service.Grant(c.Request.Context(), req.UserID, Bucket(req.Bucket), req.Amount, reason); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"granted": req.Amount, "bucket": req.Bucket})
}

func getUserID(c *gin.Context) uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}
