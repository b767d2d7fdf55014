package material

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateMaterialRequest represents a request to add a catalog entry.
type CreateMaterialRequest struct {
	Kind         string         `json:"kind" binding:"required"`
	Name         string         `json:"name" binding:"required"`
	Description  string         `json:"description"`
	TaskTypes    []string       `json:"task_types"`
	Tags         []string       `json:"tags"`
	PreviewURL   string         `json:"preview_url"`
	Payload      map[string]any `json:"payload"`
	DisplayOrder int            `json:"display_order"`
}

// MaterialResponse represents a catalog entry in API responses.
type MaterialResponse struct {
	ID           uuid.UUID       `json:"id"`
	Kind         Kind            `json:"kind"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	TaskTypes    []string        `json:"task_types,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	PreviewURL   string          `json:"preview_url,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	DisplayOrder int             `json:"display_order"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MaterialListResponse represents a paginated catalog listing.
type MaterialListResponse struct {
	Materials  []*MaterialResponse `json:"materials"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// ToResponse converts a Material to MaterialResponse.
func (m *Material) ToResponse() *MaterialResponse {
	return &MaterialResponse{
		ID:           m.ID,
		Kind:         m.Kind,
		Name:         m.Name,
		Description:  m.Description,
		TaskTypes:    m.TaskTypes,
		Tags:         m.Tags,
		PreviewURL:   m.PreviewURL,
		Payload:      json.RawMessage(m.Payload),
		DisplayOrder: m.DisplayOrder,
		CreatedAt:    m.CreatedAt,
	}
}
