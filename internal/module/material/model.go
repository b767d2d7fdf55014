package material

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Kind classifies a catalog entry.
type Kind string

const (
	KindStyle    Kind = "style"
	KindEffect   Kind = "effect"
	KindTemplate Kind = "template"
	KindVoice    Kind = "voice"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStyle, KindEffect, KindTemplate, KindVoice:
		return true
	}
	return false
}

// Material is a reusable catalog asset that generation requests reference:
// visual styles, video effects, prompt templates and avatar voices.
type Material struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind         Kind           `json:"kind" gorm:"type:varchar(32);index;not null"`
	Name         string         `json:"name" gorm:"type:varchar(128);not null"`
	Description  string         `json:"description" gorm:"type:text"`
	TaskTypes    pq.StringArray `json:"task_types" gorm:"type:text[]"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[]"`
	PreviewURL   string         `json:"preview_url" gorm:"type:varchar(512)"`
	Payload      datatypes.JSON `json:"payload"`
	Enabled      bool           `json:"enabled" gorm:"default:true;index"`
	DisplayOrder int            `json:"display_order" gorm:"default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName returns the table name for Material.
func (Material) TableName() string {
	return "materials"
}
