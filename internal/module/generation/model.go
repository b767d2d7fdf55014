package generation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status tracks a generation record through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRejected   Status = "rejected"
)

// Record persists one generation call: what was asked, which provider
// served it, what came back, and what it cost.
type Record struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	TaskType       string         `json:"task_type" gorm:"not null;index"`
	Status         Status         `json:"status" gorm:"not null;default:pending;index"`
	Params         datatypes.JSON `json:"params,omitempty"`
	Output         datatypes.JSON `json:"output,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	UsedBackup     bool           `json:"used_backup" gorm:"default:false"`
	BackupProvider string         `json:"backup_provider,omitempty"`
	VendorTaskID   string         `json:"vendor_task_id,omitempty"`
	CreditsSpent   int64          `json:"credits_spent" gorm:"default:0"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// TableName returns the database table name.
func (Record) TableName() string {
	return "generation_records"
}

// IsTerminal reports whether the record has reached a final state.
func (r *Record) IsTerminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	}
	return false
}
