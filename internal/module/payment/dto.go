package payment

import "github.com/google/uuid"

// CheckoutRequest asks for a provider payment for a pending order. An
// empty provider picks a default by order currency.
type CheckoutRequest struct {
	OrderID  uuid.UUID `json:"order_id" binding:"required"`
	Provider string    `json:"provider" binding:"omitempty,oneof=stripe alipay"`
}
