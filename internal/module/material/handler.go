package material

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/shared/response"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Handler handles material catalog HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new material handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public material routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	materials := r.Group("/materials")
	{
		materials.GET("", h.List)
		materials.GET("/:id", h.Get)
	}
}

// RegisterAdminRoutes registers admin material routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/materials", h.Create)
}

// List godoc
//
//	@Summary		List materials
//	@Description	Lists enabled catalog entries, optionally filtered by kind, task type or tag
//	@Tags			materials
//	@Produce		json
//	@Param			kind		query		string	false	"Material kind (style, effect, template, voice)"
//	@Param			task_type	query		string	false	"Task type the material applies to"
//	@Param			tag			query		string	false	"Tag filter"
//	@Param			page		query		int		false	"Page number"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	MaterialListResponse
//	@Failure		400			{object}	map[string]interface{}
//	@Router			/materials [get]
func (h *Handler) List(c *gin.Context) {
	var filter Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	materials, total, err := h.service.List(c.Request.Context(), filter, p)
	if err != nil {
		response.Error(c, err)
		return
	}

	responses := make([]*MaterialResponse, len(materials))
	for i, m := range materials {
		responses[i] = m.ToResponse()
	}
	response.OK(c, MaterialListResponse{
		Materials:  responses,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages(total),
	})
}

// Get godoc
//
//	@Summary		Get material
//	@Description	Returns a single catalog entry by id
//	@Tags			materials
//	@Produce		json
//	@Param			id	path		string	true	"Material ID"
//	@Success		200	{object}	MaterialResponse
//	@Failure		404	{object}	map[string]interface{}
//	@Router			/materials/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperrors.BadRequest("invalid material id"))
		return
	}

	m, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, m.ToResponse())
}

// Create godoc
//
//	@Summary		Create material
//	@Description	Adds a catalog entry (admin)
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateMaterialRequest	true	"Material"
//	@Success		201		{object}	MaterialResponse
//	@Failure		400		{object}	map[string]interface{}
//	@Router			/admin/materials [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.BadRequest(err.Error()))
		return
	}

	m, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, m.ToResponse())
}
