package payment

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines webhook event persistence operations.
type Repository interface {
	HasEvent(ctx context.Context, provider, eventID string) (bool, error)
	RecordEvent(ctx context.Context, event *WebhookEvent) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// HasEvent reports whether this provider event was already processed.
func (r *repository) HasEvent(ctx context.Context, provider, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return count > 0, nil
}

// RecordEvent stores a processed notification. Concurrent redeliveries can
// race past HasEvent, so the insert swallows the unique conflict.
func (r *repository) RecordEvent(ctx context.Context, event *WebhookEvent) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
		DoNothing: true,
	}).Create(event).Error
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}
