package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Repository defines order persistence operations.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Order, int64, error)
	Update(ctx context.Context, order *Order) error
	// UpdateLocked loads the order by number under a row lock and applies fn
	// inside a transaction. fn returning an error rolls everything back.
	UpdateLocked(ctx context.Context, orderNo string, fn func(o *Order) error) (*Order, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]*Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *repository) GetByOrderNo(ctx context.Context, orderNo string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "order_no = ?", orderNo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order")
		}
		return nil, fmt.Errorf("get order by no: %w", err)
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Order, int64, error) {
	var (
		orders []*Order
		total  int64
	)

	query := r.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *repository) Update(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (r *repository) UpdateLocked(ctx context.Context, orderNo string, fn func(o *Order) error) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "order_no = ?", orderNo).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("order")
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if err := fn(&order); err != nil {
			return err
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListExpiredPending(ctx context.Context, now time.Time) ([]*Order, error) {
	var orders []*Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", StatusPending, now).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list expired pending orders: %w", err)
	}
	return orders, nil
}
