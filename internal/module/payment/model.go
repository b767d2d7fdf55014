package payment

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent records a processed provider notification so redeliveries
// can be acknowledged without replaying them. Providers retry until they
// see a success response, so the same event can arrive many times.
type WebhookEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Provider  string    `gorm:"uniqueIndex:idx_provider_event;not null"`
	EventID   string    `gorm:"uniqueIndex:idx_provider_event;not null"`
	OrderNo   string    `gorm:"index"`
	Succeeded bool
	CreatedAt time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "payment_webhook_events"
}
