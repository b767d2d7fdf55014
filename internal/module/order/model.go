package order

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the status of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

// Supported currencies.
const (
	CurrencyUSD = "usd"
	CurrencyCNY = "cny"
)

// Order represents a credit-pack purchase order.
type Order struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderNo         string     `json:"order_no" gorm:"uniqueIndex;not null"`
	UserID          uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	PackID          string     `json:"pack_id" gorm:"type:varchar(64);not null"`
	Credits         int64      `json:"credits"`
	BonusCredits    int64      `json:"bonus_credits"`
	Currency        string     `json:"currency" gorm:"type:varchar(8);default:usd"`
	Subtotal        int64      `json:"subtotal"` // cents
	Discount        int64      `json:"discount"` // cents
	Total           int64      `json:"total"`    // cents
	PromoCode       string     `json:"promo_code,omitempty" gorm:"type:varchar(64)"`
	Status          Status     `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`
	Provider        string     `json:"provider,omitempty" gorm:"type:varchar(32)"`
	ProviderTradeNo string     `json:"-" gorm:"type:varchar(128)"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// IsPending returns true if the order is awaiting payment.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// IsPaid returns true if the order has been paid.
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}

// IsExpired returns true if the payment window has passed.
func (o *Order) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
