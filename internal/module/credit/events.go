package credit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidgo/server/internal/infra/events"
)

// PaymentHandler grants pack credits when a payment provider confirms an
// order.
type PaymentHandler struct {
	svc    *Service
	logger *zap.Logger
}

// NewPaymentHandler creates a new payment event handler.
func NewPaymentHandler(svc *Service, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{svc: svc, logger: logger.Named("credit-events")}
}

// Handles returns the event types this handler processes.
func (h *PaymentHandler) Handles() []string {
	return []string{events.PaymentSucceededType}
}

// Handle grants the paid order's credits.
func (h *PaymentHandler) Handle(ctx context.Context, event events.Event) error {
	pe, ok := event.(*events.PaymentSucceededEvent)
	if !ok {
		return nil
	}

	if err := h.svc.GrantPackCredits(ctx, pe.UserID, pe.OrderNo, pe.Credits, pe.BonusCredits); err != nil {
		return fmt.Errorf("grant pack credits for order %s: %w", pe.OrderNo, err)
	}

	h.logger.Info("pack credits granted",
		zap.String("order_no", pe.OrderNo),
		zap.String("user_id", pe.UserID.String()),
		zap.Int64("credits", pe.Credits),
		zap.Int64("bonus_credits", pe.BonusCredits),
	)
	return nil
}
