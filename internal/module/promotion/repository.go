package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/vidgo/server/internal/shared/errors"
)

// Repository defines promotion persistence operations.
type Repository interface {
	Create(ctx context.Context, code *PromoCode) error
	GetByCode(ctx context.Context, code string) (*PromoCode, error)
	// Redeem locks the code row, re-validates it, enforces the per-user
	// limit, bumps the redemption counter and records the redemption, all
	// in one transaction.
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*PromoCode, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new promotion repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, code *PromoCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("create promo code: %w", err)
	}
	return nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	var promo PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("promo code")
		}
		return nil, fmt.Errorf("get promo code: %w", err)
	}
	return &promo, nil
}

func (r *repository) Redeem(ctx context.Context, userID uuid.UUID, code string) (*PromoCode, error) {
	var promo PromoCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The code row lock serializes concurrent redemptions, which makes
		// the counter bump and the per-user count check race-safe.
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&promo).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("promo code")
			}
			return fmt.Errorf("lock promo code: %w", err)
		}

		if err := promo.ValidateAt(time.Now()); err != nil {
			return err
		}

		var userCount int64
		err = tx.Model(&Redemption{}).
			Where("code_id = ? AND user_id = ?", promo.ID, userID).
			Count(&userCount).Error
		if err != nil {
			return fmt.Errorf("count redemptions: %w", err)
		}
		if userCount >= promo.PerUserLimit {
			return apperrors.ValidationError("promo code already redeemed")
		}

		if err := tx.Create(&Redemption{CodeID: promo.ID, UserID: userID}).Error; err != nil {
			return fmt.Errorf("create redemption: %w", err)
		}

		promo.RedeemedCount++
		if err := tx.Save(&promo).Error; err != nil {
			return fmt.Errorf("update promo code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &promo, nil
}
