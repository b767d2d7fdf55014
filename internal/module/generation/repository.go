package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Repository defines the interface for generation record access.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Record, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new generation repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *Record) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create generation record: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, record *Record) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("update generation record: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Record, error) {
	var record Record
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("generation record")
		}
		return nil, fmt.Errorf("get generation record: %w", err)
	}
	return &record, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Record, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&Record{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count generation records: %w", err)
	}

	var records []*Record
	err := query.
		Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list generation records: %w", err)
	}
	return records, total, nil
}
