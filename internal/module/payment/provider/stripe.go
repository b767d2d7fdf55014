package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/vidgo/server/internal/module/order"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// Stripe implements Provider using Stripe PaymentIntents.
type Stripe struct {
	webhookSecret string
}

// NewStripe creates a new Stripe provider.
func NewStripe(cfg StripeConfig) *Stripe {
	stripe.Key = cfg.APIKey
	return &Stripe{webhookSecret: cfg.WebhookSecret}
}

// Name returns the provider name.
func (s *Stripe) Name() string {
	return "stripe"
}

// CreatePayment creates a PaymentIntent carrying the order number in its
// metadata so the webhook can find the order again.
func (s *Stripe) CreatePayment(ctx context.Context, o *order.Order) (*Payment, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(o.Total),
		Currency: stripe.String(o.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.Metadata = map[string]string{
		"order_no": o.OrderNo,
		"user_id":  o.UserID.String(),
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Payment{
		Provider:     s.Name(),
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// HandleNotify verifies the webhook signature and maps payment_intent
// events. Other event types are acknowledged and skipped.
func (s *Stripe) HandleNotify(ctx context.Context, r *http.Request) (*NotifyResult, error) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook body: %w", err)
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		pi, err := unmarshalIntent(&event)
		if err != nil {
			return nil, err
		}
		return &NotifyResult{
			EventID:   event.ID,
			OrderNo:   pi.Metadata["order_no"],
			TradeNo:   pi.ID,
			Amount:    pi.Amount,
			Succeeded: true,
			Ack:       "ok",
		}, nil

	case "payment_intent.payment_failed":
		pi, err := unmarshalIntent(&event)
		if err != nil {
			return nil, err
		}
		result := &NotifyResult{
			EventID: event.ID,
			OrderNo: pi.Metadata["order_no"],
			TradeNo: pi.ID,
			Ack:     "ok",
		}
		if pi.LastPaymentError != nil {
			result.FailureCode = string(pi.LastPaymentError.Code)
			result.FailureMessage = pi.LastPaymentError.Msg
		}
		return result, nil

	default:
		return &NotifyResult{EventID: event.ID, Ack: "ok"}, nil
	}
}

func unmarshalIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("unmarshal payment intent: %w", err)
	}
	return &pi, nil
}
