package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidgo/server/internal/infra/events"
)

// PaymentHandler moves orders through their payment transitions when the
// payment module publishes webhook outcomes.
type PaymentHandler struct {
	svc    *Service
	logger *zap.Logger
}

// NewPaymentHandler creates a new order payment event handler.
func NewPaymentHandler(svc *Service, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{svc: svc, logger: logger.Named("order-events")}
}

// Handles returns the event types this handler processes.
func (h *PaymentHandler) Handles() []string {
	return []string{events.PaymentSucceededType, events.PaymentFailedType}
}

// Handle processes payment events.
func (h *PaymentHandler) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.PaymentSucceededEvent:
		if _, err := h.svc.MarkPaid(ctx, e.OrderNo, e.Provider, e.TradeNo); err != nil {
			return fmt.Errorf("mark order %s paid: %w", e.OrderNo, err)
		}
		return nil
	case *events.PaymentFailedEvent:
		reason := e.FailureMessage
		if reason == "" {
			reason = e.FailureCode
		}
		if err := h.svc.MarkFailed(ctx, e.OrderNo, e.Provider, reason); err != nil {
			return fmt.Errorf("mark order %s failed: %w", e.OrderNo, err)
		}
		return nil
	default:
		h.logger.Warn("unhandled event type", zap.String("event_type", event.EventType()))
		return nil
	}
}

// Compile-time check that PaymentHandler implements events.Handler.
var _ events.Handler = (*PaymentHandler)(nil)
