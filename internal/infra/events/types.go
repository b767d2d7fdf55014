package events

import "github.com/google/uuid"

// Payment event type constants.
const (
	PaymentSucceededType = "PaymentSucceeded"
	PaymentFailedType    = "PaymentFailed"
)

// PaymentSucceededEvent is emitted when a payment provider confirms a
// credit-pack payment. Subscribers mark the order paid and grant credits.
type PaymentSucceededEvent struct {
	BaseEvent

	// OrderID is the ID of the paid order.
	OrderID uuid.UUID `json:"order_id"`

	// OrderNo is the human-facing order number carried in provider metadata.
	OrderNo string `json:"order_no"`

	// UserID is the ID of the user who made the payment.
	UserID uuid.UUID `json:"user_id"`

	// Amount is the payment amount in smallest currency unit (cents).
	Amount int64 `json:"amount"`

	// Currency is the ISO currency code (e.g., "usd", "cny").
	Currency string `json:"currency"`

	// Provider is the payment provider name (e.g., "stripe", "alipay").
	Provider string `json:"provider"`

	// TradeNo is the provider-side transaction identifier.
	TradeNo string `json:"trade_no"`

	// Credits is the purchased credits amount for the pack.
	Credits int64 `json:"credits"`

	// BonusCredits is the bonus credits granted with the pack.
	BonusCredits int64 `json:"bonus_credits,omitempty"`
}

// NewPaymentSucceededEvent creates a new PaymentSucceededEvent.
func NewPaymentSucceededEvent(
	orderID, userID uuid.UUID,
	orderNo string,
	amount int64,
	currency, provider, tradeNo string,
	credits, bonusCredits int64,
) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseEvent:    NewBaseEvent(PaymentSucceededType, orderID, "Order"),
		OrderID:      orderID,
		OrderNo:      orderNo,
		UserID:       userID,
		Amount:       amount,
		Currency:     currency,
		Provider:     provider,
		TradeNo:      tradeNo,
		Credits:      credits,
		BonusCredits: bonusCredits,
	}
}

// PaymentFailedEvent is emitted when a payment attempt fails.
type PaymentFailedEvent struct {
	BaseEvent

	// OrderID is the ID of the order the payment was for.
	OrderID uuid.UUID `json:"order_id"`

	// OrderNo is the human-facing order number.
	OrderNo string `json:"order_no"`

	// UserID is the ID of the user.
	UserID uuid.UUID `json:"user_id"`

	// Provider is the payment provider name.
	Provider string `json:"provider"`

	// FailureCode is the error code from the payment provider.
	FailureCode string `json:"failure_code,omitempty"`

	// FailureMessage is a human-readable error message.
	FailureMessage string `json:"failure_message,omitempty"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent.
func NewPaymentFailedEvent(
	orderID, userID uuid.UUID,
	orderNo, provider, failureCode, failureMessage string,
) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent:      NewBaseEvent(PaymentFailedType, orderID, "Order"),
		OrderID:        orderID,
		OrderNo:        orderNo,
		UserID:         userID,
		Provider:       provider,
		FailureCode:    failureCode,
		FailureMessage: failureMessage,
	}
}
