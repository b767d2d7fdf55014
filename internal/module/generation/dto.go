package generation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vidgo/server/internal/module/generation/provider"
	"github.com/vidgo/server/internal/module/generation/routing"
)

// CreateGenerationRequest represents a request to run a generation task.
type CreateGenerationRequest struct {
	TaskType string         `json:"task_type" binding:"required"`
	Params   map[string]any `json:"params"`
	Async    bool           `json:"async"`
}

// ModerationRequest represents a standalone moderation check.
type ModerationRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GenerationResponse represents a generation record in API responses.
type GenerationResponse struct {
	ID             uuid.UUID       `json:"id"`
	TaskType       string          `json:"task_type"`
	Status         Status          `json:"status"`
	Success        bool            `json:"success"`
	Params         json.RawMessage `json:"params,omitempty"`
	Output         json.RawMessage `json:"output,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	UsedBackup     bool            `json:"used_backup,omitempty"`
	BackupProvider string          `json:"backup_provider,omitempty"`
	VendorTaskID   string          `json:"vendor_task_id,omitempty"`
	CreditsSpent   int64           `json:"credits_spent,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// GenerationListResponse represents a paginated list of generation records.
type GenerationListResponse struct {
	Generations []*GenerationResponse `json:"generations"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
	TotalPages  int                   `json:"total_pages"`
}

// AvatarListResponse represents the avatar catalog.
type AvatarListResponse struct {
	Avatars []provider.Avatar `json:"avatars"`
	Total   int               `json:"total"`
}

// ProviderHealthResponse reports cached provider health keyed by provider name.
type ProviderHealthResponse struct {
	Providers map[string]routing.ProviderStatus `json:"providers"`
}

// ToResponse converts a Record to GenerationResponse.
func (r *Record) ToResponse() *GenerationResponse {
	return &GenerationResponse{
		ID:             r.ID,
		TaskType:       r.TaskType,
		Status:         r.Status,
		Success:        r.Status == StatusCompleted,
		Params:         json.RawMessage(r.Params),
		Output:         json.RawMessage(r.Output),
		Provider:       r.Provider,
		UsedBackup:     r.UsedBackup,
		BackupProvider: r.BackupProvider,
		VendorTaskID:   r.VendorTaskID,
		CreditsSpent:   r.CreditsSpent,
		Error:          r.Error,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}
}
