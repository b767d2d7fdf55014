package payment

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidgo/server/internal/infra/events"
	"github.com/vidgo/server/internal/module/order"
	"github.com/vidgo/server/internal/module/payment/provider"
	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/metrics"
)

// OrderReader is the slice of the order service the payment flow needs.
type OrderReader interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*order.Order, error)
}

// Publisher dispatches payment events to their subscribers and reports
// the first failure. Implemented by the event bus.
type Publisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

// Service implements payment operations.
type Service struct {
	repo      Repository
	orders    OrderReader
	providers map[string]provider.Provider
	bus       Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// ServiceConfig carries the payment service dependencies.
type ServiceConfig struct {
	Repo      Repository
	Orders    OrderReader
	Providers []provider.Provider
	Bus       Publisher
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// NewService creates a new payment service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := make(map[string]provider.Provider, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers[p.Name()] = p
	}
	return &Service{
		repo:      cfg.Repo,
		orders:    cfg.Orders,
		providers: providers,
		bus:       cfg.Bus,
		logger:    logger.Named("payment"),
		metrics:   cfg.Metrics,
	}
}

// Checkout creates a provider payment for one of the user's pending
// orders. An empty provider name picks a default by order currency.
func (s *Service) Checkout(ctx context.Context, userID, orderID uuid.UUID, providerName string) (*provider.Payment, error) {
	o, err := s.orders.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.IsPending() {
		return nil, apperrors.Conflict("order is not awaiting payment")
	}
	if o.IsExpired() {
		return nil, apperrors.Conflict("order payment window has expired")
	}

	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		name = defaultProvider(o.Currency)
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, apperrors.BadRequest("unknown payment provider")
	}

	pay, err := p.CreatePayment(ctx, o)
	if err != nil {
		s.logger.Error("creating provider payment failed",
			zap.String("provider", name),
			zap.String("order_no", o.OrderNo),
			zap.Error(err))
		return nil, apperrors.Upstream("creating payment failed", err)
	}
	pay.OrderNo = o.OrderNo

	s.metrics.RecordPaymentEvent(name, "checkout")
	s.logger.Info("checkout created",
		zap.String("provider", name),
		zap.String("order_no", o.OrderNo),
		zap.Int64("amount", o.Total),
		zap.String("currency", o.Currency))
	return pay, nil
}

// HandleNotify processes an async provider notification and returns the
// response body the provider expects. Any returned error must surface as
// a non-2xx response so the provider redelivers.
func (s *Service) HandleNotify(ctx context.Context, providerName string, r *http.Request) (string, error) {
	p, ok := s.providers[providerName]
	if !ok {
		return "", apperrors.NotFound("payment provider")
	}

	result, err := p.HandleNotify(ctx, r)
	if err != nil {
		s.metrics.RecordPaymentEvent(providerName, "rejected")
		s.logger.Warn("rejected payment notification",
			zap.String("provider", providerName),
			zap.Error(err))
		return "", apperrors.BadRequest("invalid payment notification")
	}

	if result.OrderNo == "" {
		s.logger.Debug("notification carries no order, acknowledged",
			zap.String("provider", providerName),
			zap.String("event_id", result.EventID))
		return result.Ack, nil
	}

	if result.EventID != "" {
		seen, err := s.repo.HasEvent(ctx, providerName, result.EventID)
		if err != nil {
			// Better to process twice than miss; subscribers are idempotent.
			s.logger.Warn("webhook dedup check failed", zap.Error(err))
		} else if seen {
			s.metrics.RecordPaymentEvent(providerName, "duplicate")
			return result.Ack, nil
		}
	}

	o, err := s.orders.GetByOrderNo(ctx, result.OrderNo)
	if err != nil {
		s.logger.Error("notification for unknown order",
			zap.String("provider", providerName),
			zap.String("order_no", result.OrderNo),
			zap.Error(err))
		return "", err
	}

	if result.Succeeded {
		if result.Amount > 0 && result.Amount != o.Total {
			s.logger.Error("notification amount mismatch",
				zap.String("provider", providerName),
				zap.String("order_no", o.OrderNo),
				zap.Int64("expected", o.Total),
				zap.Int64("got", result.Amount))
			return "", apperrors.BadRequest("payment amount mismatch")
		}
		evt := events.NewPaymentSucceededEvent(
			o.ID, o.UserID, o.OrderNo,
			result.Amount, o.Currency, providerName, result.TradeNo,
			o.Credits, o.BonusCredits)
		if err := s.bus.PublishSync(ctx, evt); err != nil {
			return "", apperrors.Internal("processing payment failed", err)
		}
	} else {
		evt := events.NewPaymentFailedEvent(
			o.ID, o.UserID, o.OrderNo, providerName,
			result.FailureCode, result.FailureMessage)
		if err := s.bus.PublishSync(ctx, evt); err != nil {
			return "", apperrors.Internal("processing payment failure failed", err)
		}
	}

	if result.EventID != "" {
		if err := s.repo.RecordEvent(ctx, &WebhookEvent{
			Provider:  providerName,
			EventID:   result.EventID,
			OrderNo:   result.OrderNo,
			Succeeded: result.Succeeded,
		}); err != nil {
			s.logger.Warn("recording webhook event failed", zap.Error(err))
		}
	}

	return result.Ack, nil
}

// defaultProvider picks the provider users of a currency most likely
// expect.
func defaultProvider(currency string) string {
	if currency == order.CurrencyCNY {
		return "alipay"
	}
	return "stripe"
}
