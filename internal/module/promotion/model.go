package promotion

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/vidgo/server/internal/shared/errors"
)

// Kind determines what redeeming a promo code yields.
type Kind string

const (
	// KindBonusCredits grants credits into the bonus bucket on redemption.
	KindBonusCredits Kind = "bonus_credits"

	// KindPercentDiscount discounts an order total at checkout.
	KindPercentDiscount Kind = "percent_discount"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBonusCredits, KindPercentDiscount:
		return true
	default:
		return false
	}
}

// PromoCode represents a redeemable promotion code.
type PromoCode struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code            string     `json:"code" gorm:"type:varchar(64);uniqueIndex;not null"`
	Kind            Kind       `json:"kind" gorm:"type:varchar(32);not null"`
	CreditsAmount   int64      `json:"credits_amount,omitempty"`
	DiscountPercent int64      `json:"discount_percent,omitempty"`
	MaxRedemptions  int64      `json:"max_redemptions,omitempty"` // 0 = unlimited
	RedeemedCount   int64      `json:"redeemed_count"`
	PerUserLimit    int64      `json:"per_user_limit" gorm:"default:1"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	Active          bool       `json:"active" gorm:"default:true"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (PromoCode) TableName() string {
	return "promo_codes"
}

// ValidateAt checks whether the code is redeemable at the given time.
func (p *PromoCode) ValidateAt(now time.Time) error {
	if !p.Active {
		return apperrors.ValidationError("promo code is not active")
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return apperrors.ValidationError("promo code is not valid yet")
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return apperrors.ValidationError("promo code has expired")
	}
	if p.MaxRedemptions > 0 && p.RedeemedCount >= p.MaxRedemptions {
		return apperrors.ValidationError("promo code has been fully redeemed")
	}
	return nil
}

// Redemption records one user redeeming one code.
type Redemption struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodeID    uuid.UUID `json:"code_id" gorm:"type:uuid;not null;index:idx_code_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_code_user"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Redemption) TableName() string {
	return "promo_redemptions"
}
