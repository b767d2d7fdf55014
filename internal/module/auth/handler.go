package auth

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
)

// Handler exposes the dev-token endpoint. The app registers it only when
// `auth.dev_tokens` is enabled; production tokens come from the account
// service.
type Handler struct {
	manager *Manager
}

// NewHandler creates a new auth handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes registers the dev-token route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/dev-token", h.DevToken)
}

// DevTokenRequest asks for a development token.
type DevTokenRequest struct {
	UserID string `json:"user_id" binding:"omitempty,uuid"`
	Tier   string `json:"tier" binding:"omitempty,oneof=starter pro enterprise"`
}

// DevTokenResponse carries a signed development token.
type DevTokenResponse struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DevToken godoc
//
//	@Summary		Issue dev token
//	@Description	Sign a development token for local testing; disabled in production
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DevTokenRequest	false	"Token request"
//	@Success		200		{object}	DevTokenResponse
//	@Failure		400		{object}	map[string]interface{}
//	@Router			/auth/dev-token [post]
func (h *Handler) DevToken(c *gin.Context) {
	// An empty body is fine: every field has a default.
	var req DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	userID := uuid.New()
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			response.Error(c, apperrors.BadRequest("invalid user id"))
			return
		}
		userID = parsed
	}
	tier := req.Tier
	if tier == "" {
		tier = DefaultTier
	}

	token, expiresAt, err := h.manager.Generate(userID, tier)
	if err != nil {
		response.Error(c, apperrors.Internal("generating token failed", err))
		return
	}

	response.OK(c, DevTokenResponse{
		Token:     token,
		UserID:    userID,
		Tier:      tier,
		ExpiresAt: expiresAt,
	})
}
