package provider

import (
	"context"
	"net/http"

	"github.com/vidgo/server/internal/module/order"
)

// Payment carries what a client needs to complete a checkout. Stripe
// fills the intent fields, Alipay fills the redirect URL.
type Payment struct {
	Provider     string `json:"provider"`
	OrderNo      string `json:"order_no"`
	IntentID     string `json:"intent_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	PayURL       string `json:"pay_url,omitempty"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// NotifyResult is a verified webhook outcome. An empty OrderNo means the
// notification was valid but carries nothing to process; the Ack is still
// returned so the provider stops redelivering.
type NotifyResult struct {
	// EventID is the provider-unique notification ID used for dedup.
	EventID string

	// OrderNo is our order number carried through provider metadata.
	OrderNo string

	// TradeNo is the provider-side transaction identifier.
	TradeNo string

	// Amount is the paid amount in cents.
	Amount int64

	// Succeeded reports whether the payment completed.
	Succeeded bool

	FailureCode    string
	FailureMessage string

	// Ack is the response body the provider expects on acknowledgement.
	Ack string
}

// Provider is a payment provider capable of creating checkouts and
// verifying asynchronous payment notifications.
type Provider interface {
	// Name returns the provider name used in routes and order records.
	Name() string

	// CreatePayment starts a checkout for a pending order.
	CreatePayment(ctx context.Context, o *order.Order) (*Payment, error)

	// HandleNotify verifies and parses a webhook request. It must reject
	// requests with invalid signatures.
	HandleNotify(ctx context.Context, r *http.Request) (*NotifyResult, error)
}
