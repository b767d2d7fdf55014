package order

import (
	"time"

	"github.com/google/uuid"
)

// CreateOrderRequest represents a request to create a credit-pack order.
type CreateOrderRequest struct {
	PackID    string `json:"pack_id" binding:"required"`
	Currency  string `json:"currency"`
	PromoCode string `json:"promo_code"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID           uuid.UUID  `json:"id"`
	OrderNo      string     `json:"order_no"`
	PackID       string     `json:"pack_id"`
	Credits      int64      `json:"credits"`
	BonusCredits int64      `json:"bonus_credits,omitempty"`
	Currency     string     `json:"currency"`
	Subtotal     int64      `json:"subtotal"`
	Discount     int64      `json:"discount,omitempty"`
	Total        int64      `json:"total"`
	PromoCode    string     `json:"promo_code,omitempty"`
	Status       Status     `json:"status"`
	Provider     string     `json:"provider,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ToResponse converts an Order to OrderResponse.
func (o *Order) ToResponse() *OrderResponse {
	return &OrderResponse{
		ID:           o.ID,
		OrderNo:      o.OrderNo,
		PackID:       o.PackID,
		Credits:      o.Credits,
		BonusCredits: o.BonusCredits,
		Currency:     o.Currency,
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		Total:        o.Total,
		PromoCode:    o.PromoCode,
		Status:       o.Status,
		Provider:     o.Provider,
		PaidAt:       o.PaidAt,
		ExpiresAt:    o.ExpiresAt,
		CreatedAt:    o.CreatedAt,
	}
}

// OrderListResponse represents a paginated list of orders.
type OrderListResponse struct {
	Orders     []*OrderResponse `json:"orders"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// PackListResponse represents the credit-pack catalog.
type PackListResponse struct {
	Packs []CreditPack `json:"packs"`
}
