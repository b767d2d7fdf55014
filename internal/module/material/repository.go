package material

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Filter narrows material listings.
type Filter struct {
	Kind     string `form:"kind"`
	TaskType string `form:"task_type"`
	Tag      string `form:"tag"`
}

// Repository defines material persistence operations.
type Repository interface {
	Create(ctx context.Context, m *Material) error
	GetByID(ctx context.Context, id uuid.UUID) (*Material, error)
	List(ctx context.Context, filter Filter, p *pagination.Pagination) ([]*Material, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new material repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts a material.
func (r *repository) Create(ctx context.Context, m *Material) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// GetByID returns one material by ID.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Material, error) {
	var m Material
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("material")
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

// List returns enabled materials matching the filter, ordered for display.
func (r *repository) List(ctx context.Context, filter Filter, p *pagination.Pagination) ([]*Material, int64, error) {
	var (
		materials []*Material
		total     int64
	)

	query := r.db.WithContext(ctx).Model(&Material{}).Where("enabled = ?", true)
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.TaskType != "" {
		query = query.Where("? = ANY(task_types)", filter.TaskType)
	}
	if filter.Tag != "" {
		query = query.Where("? = ANY(tags)", filter.Tag)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count materials: %w", err)
	}

	err := query.
		Order("display_order ASC, created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&materials).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list materials: %w", err)
	}
	return materials, total, nil
}
