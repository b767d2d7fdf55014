package session

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
)

// Handler handles HTTP requests for sessions.
type Handler struct {
	tracker *Tracker
}

// NewHandler creates a new session handler.
func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	session := r.Group("/session")
	{
		session.POST("/heartbeat", h.Heartbeat)
		session.GET("/active", h.ActiveCount)
	}
}

// Heartbeat godoc
//
//	@Summary		Session heartbeat
//	@Description	Marks the caller active without issuing another API call
//	@Tags			sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Failure		401	{object}	map[string]interface{}
//	@Router			/session/heartbeat [post]
func (h *Handler) Heartbeat(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	h.tracker.Heartbeat(c.Request.Context(), userID)
	response.OK(c, gin.H{"active": true})
}

// ActiveCount godoc
//
//	@Summary		Active sessions
//	@Description	Get the number of users active within the session window
//	@Tags			sessions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Router			/session/active [get]
func (h *Handler) ActiveCount(c *gin.Context) {
	count, err := h.tracker.ActiveCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"active": count})
}

func getUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
