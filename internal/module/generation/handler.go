package generation

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidgo/server/internal/module/generation/routing"
	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Handler handles HTTP requests for generation.
type Handler struct {
	service *Service
}

// NewHandler creates a new generation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	generations := r.Group("/generations")
	{
		generations.POST("", h.Create)
		generations.GET("", h.List)
		generations.GET("/:id", h.Get)
	}
	r.POST("/moderations", h.Moderate)
	r.GET("/avatars", h.ListAvatars)
}

// RegisterAdminRoutes registers operator-facing provider routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	{
		providers.GET("/health", h.ProviderHealth)
		providers.POST("/:name/refresh", h.RefreshProvider)
	}
}

// Create runs a generation task.
//
//	@Summary		Create generation
//	@Description	Run a generation task through the routed provider, optionally in the background
//	@Tags			Generation
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateGenerationRequest	true	"Generation request"
//	@Success		200		{object}	GenerationResponse
//	@Success		202		{object}	GenerationResponse
//	@Failure		400		{object}	map[string]interface{}
//	@Failure		402		{object}	map[string]interface{}
//	@Failure		422		{object}	map[string]interface{}
//	@Failure		429		{object}	map[string]interface{}
//	@Failure		502		{object}	map[string]interface{}
//	@Router			/generations [post]
func (h *Handler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	var req CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	if req.Async {
		rec, err := h.service.GenerateAsync(c.Request.Context(), userID, getUserTier(c), &req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, rec.ToResponse())
		return
	}

	rec, err := h.service.Generate(c.Request.Context(), userID, getUserTier(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec.ToResponse())
}

// List returns the current user's generation records.
//
//	@Summary		List generations
//	@Description	Get the current user's generation records, newest first
//	@Tags			Generation
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int	false	"Page number"
//	@Param			page_size	query		int	false	"Page size"
//	@Success		200			{object}	GenerationListResponse
//	@Failure		401			{object}	map[string]interface{}
//	@Router			/generations [get]
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

	records, total, err := h.service.List(c.Request.Context(), userID, p)
	if err != nil {
		response.Error(c, err)
		return
	}

	responses := make([]*GenerationResponse, len(records))
	for i, rec := range records {
		responses[i] = rec.ToResponse()
	}
	response.OK(c, GenerationListResponse{
		Generations: responses,
		Total:       total,
		Page:        p.Page,
		PageSize:    p.PageSize,
		TotalPages:  p.TotalPages(total),
	})
}

// Get returns one generation record.
//
//	@Summary		Get generation
//	@Description	Get a generation record by ID
//	@Tags			Generation
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Generation ID"
//	@Success		200	{object}	GenerationResponse
//	@Failure		404	{object}	map[string]interface{}
//	@Router			/generations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Error(c, apperrors.Unauthorized(""))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.BadRequest("invalid generation id"))
		return
	}

	rec, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec.ToResponse())
}

// Moderate runs a standalone moderation check on a text prompt.
//
//	@Summary		Moderate prompt
//	@Description	Check a text prompt against the moderation provider
//	@Tags			Generation
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		ModerationRequest	true	"Moderation request"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]interface{}
//	@Failure		502		{object}	map[string]interface{}
//	@Router			/moderations [post]
func (h *Handler) Moderate(c *gin.Context) {
	var req ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	verdict, err := h.service.Moderate(c.Request.Context(), req.Prompt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, verdict)
}

// ListAvatars returns the talking-avatar character catalog.
//
//	@Summary		List avatars
//	@Description	Get the avatar catalog, optionally narrowed to Asian-looking characters
//	@Tags			Generation
//	@Produce		json
//	@Security		BearerAuth
//	@Param			asian_only	query		bool	false	"Only Asian-looking avatars"
//	@Success		200			{object}	AvatarListResponse
//	@Failure		502			{object}	map[string]interface{}
//	@Router			/avatars [get]
func (h *Handler) ListAvatars(c *gin.Context) {
	asianOnly := c.Query("asian_only") == "true"

	avatars, err := h.service.ListAvatars(c.Request.Context(), asianOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, AvatarListResponse{Avatars: avatars, Total: len(avatars)})
}

// ProviderHealth reports the cached health state of every provider.
//
//	@Summary		Provider health
//	@Description	Get the cached health snapshot of all generation providers
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ProviderHealthResponse
//	@Router			/admin/providers/health [get]
func (h *Handler) ProviderHealth(c *gin.Context) {
	snapshot := h.service.ProviderHealth()
	providers := make(map[string]routing.ProviderStatus, len(snapshot))
	for name, status := range snapshot {
		providers[string(name)] = status
	}
	response.OK(c, ProviderHealthResponse{Providers: providers})
}

// RefreshProvider forces a live health probe of one provider.
//
//	@Summary		Refresh provider health
//	@Description	Probe one provider now and return the refreshed state
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Provider name"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]interface{}
//	@Router			/admin/providers/{name}/refresh [post]
func (h *Handler) RefreshProvider(c *gin.Context) {
	name := c.Param("name")
	healthy, err := h.service.RefreshProvider(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"provider": name, "healthy": healthy})
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
