package promotion

import "time"

// CreateCodeRequest represents a request to add a promo code.
type CreateCodeRequest struct {
	Code            string     `json:"code" binding:"required"`
	Kind            string     `json:"kind" binding:"required"`
	CreditsAmount   int64      `json:"credits_amount"`
	DiscountPercent int64      `json:"discount_percent"`
	MaxRedemptions  int64      `json:"max_redemptions"`
	PerUserLimit    int64      `json:"per_user_limit"`
	ValidFrom       *time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until"`
}

// RedeemRequest represents a request to redeem a promo code.
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// CodeResponse represents a promo code in API responses. Redemption
// counters stay internal.
type CodeResponse struct {
	Code            string     `json:"code"`
	Kind            Kind       `json:"kind"`
	CreditsAmount   int64      `json:"credits_amount,omitempty"`
	DiscountPercent int64      `json:"discount_percent,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

// RedeemResponse represents the result of redeeming a bonus-credits code.
type RedeemResponse struct {
	Code           string `json:"code"`
	CreditsGranted int64  `json:"credits_granted"`
}

// ToResponse converts a PromoCode to CodeResponse.
func (p *PromoCode) ToResponse() *CodeResponse {
	return &CodeResponse{
		Code:            p.Code,
		Kind:            p.Kind,
		CreditsAmount:   p.CreditsAmount,
		DiscountPercent: p.DiscountPercent,
		ValidUntil:      p.ValidUntil,
	}
}
