package quota

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
)

// Handler handles HTTP requests for quota.
type Handler struct {
	service *Service
}

// NewHandler creates a new quota handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the quota routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/quota", h.GetUsage)
}

// GetUsage returns the current user's daily quota consumption.
//
//	@Summary		Get quota usage
//	@Description	Get today's generation quota consumption for the current user
//	@Tags			Quota
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	Usage
//	@Failure		401	{object}	map[string]interface{}
//	@Router			/quota [get]
func (h *Handler) GetUsage(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	usage, err := h.service.Usage(c.Request.Context(), userID, getUserTier(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, usage)
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

func getUserTier(c *gin.Context) string {
	tierVal, exists := c.Get("user_tier")
	if !exists {
		return ""
	}
	tier, _ := tierVal.(string)
	return tier
}
