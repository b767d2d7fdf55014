package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/metrics"
	"github.com/vidgo/server/internal/utils/pagination"
	"github.com/vidgo/server/internal/utils/random"
)

const defaultExpiry = 30 * time.Minute

// Discounter redeems a percent-discount promo code against an order
// subtotal and returns the discount in cents. Implemented by the
// promotion service.
type Discounter interface {
	RedeemDiscount(ctx context.Context, userID uuid.UUID, code string, subtotal int64) (int64, error)
}

// Service implements order operations.
type Service struct {
	repo       Repository
	discounter Discounter
	sm         *StateMachine
	expiry     time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// ServiceConfig carries the order service dependencies.
type ServiceConfig struct {
	Repo       Repository
	Discounter Discounter // optional, nil rejects promo codes
	Expiry     time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NewService creates a new order service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Expiry <= 0 {
		cfg.Expiry = defaultExpiry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       cfg.Repo,
		discounter: cfg.Discounter,
		sm:         NewStateMachine(),
		expiry:     cfg.Expiry,
		logger:     logger.Named("order"),
		metrics:    cfg.Metrics,
	}
}

// Packs returns the purchasable credit-pack catalog.
func (s *Service) Packs() []CreditPack {
	return Packs()
}

// Create creates a pending order for a credit pack. A promo code, when
// given, must be a percent-discount code and is redeemed here.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, packID, currency, promoCode string) (*Order, error) {
	pack, ok := PackByID(packID)
	if !ok {
		return nil, apperrors.BadRequest("unknown credit pack")
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = CurrencyUSD
	}
	subtotal, ok := pack.Price(currency)
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("unsupported currency %q", currency))
	}

	var discount int64
	if promoCode != "" {
		if s.discounter == nil {
			return nil, apperrors.BadRequest("promo codes are not enabled")
		}
		d, err := s.discounter.RedeemDiscount(ctx, userID, promoCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount = d
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	now := time.Now()
	order := &Order{
		ID:           uuid.New(),
		OrderNo:      generateOrderNo(now),
		UserID:       userID,
		PackID:       pack.ID,
		Credits:      pack.Credits,
		BonusCredits: pack.BonusCredits,
		Currency:     currency,
		Subtotal:     subtotal,
		Discount:     discount,
		Total:        total,
		PromoCode:    promoCode,
		Status:       StatusPending,
		ExpiresAt:    now.Add(s.expiry),
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, apperrors.Internal("creating order failed", err)
	}

	s.logger.Info("order created",
		zap.String("order_no", order.OrderNo),
		zap.String("user_id", userID.String()),
		zap.String("pack_id", pack.ID),
		zap.Int64("total", total),
		zap.String("currency", currency))
	return order, nil
}

// Get returns one of the user's orders.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order")
	}
	return order, nil
}

// GetByOrderNo returns an order by its order number.
func (s *Service) GetByOrderNo(ctx context.Context, orderNo string) (*Order, error) {
	return s.repo.GetByOrderNo(ctx, orderNo)
}

// ListMine returns the user's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Order, int64, error) {
	return s.repo.ListByUser(ctx, userID, p)
}

// MarkPaid marks an order paid. Idempotent: an already-paid order is a
// no-op. Failed and expired orders still transition to paid because the
// provider confirmed the charge.
func (s *Service) MarkPaid(ctx context.Context, orderNo, provider, tradeNo string) (*Order, error) {
	order, err := s.repo.UpdateLocked(ctx, orderNo, func(o *Order) error {
		if o.IsPaid() {
			return nil
		}
		if err := s.sm.Transition(o, StatusPaid); err != nil {
			return err
		}
		now := time.Now()
		o.Provider = provider
		o.ProviderTradeNo = tradeNo
		o.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentEvent(provider, "succeeded")
	s.logger.Info("order paid",
		zap.String("order_no", orderNo),
		zap.String("provider", provider),
		zap.String("trade_no", tradeNo))
	return order, nil
}

// MarkFailed flips a pending order to failed. Paid, expired and already
// failed orders are untouched.
func (s *Service) MarkFailed(ctx context.Context, orderNo, provider, reason string) error {
	_, err := s.repo.UpdateLocked(ctx, orderNo, func(o *Order) error {
		if !o.IsPending() {
			return nil
		}
		return s.sm.Transition(o, StatusFailed)
	})
	if err != nil {
		return err
	}

	s.metrics.RecordPaymentEvent(provider, "failed")
	s.logger.Info("order failed",
		zap.String("order_no", orderNo),
		zap.String("provider", provider),
		zap.String("reason", reason))
	return nil
}

// ExpirePending expires pending orders whose payment window has passed.
// Runs on a schedule from the app.
func (s *Service) ExpirePending(ctx context.Context) error {
	orders, err := s.repo.ListExpiredPending(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, o := range orders {
		if err := s.sm.Transition(o, StatusExpired); err != nil {
			s.logger.Error("failed to expire order", zap.Error(err), zap.String("order_no", o.OrderNo))
			continue
		}
		if err := s.repo.Update(ctx, o); err != nil {
			s.logger.Error("failed to update expired order", zap.Error(err), zap.String("order_no", o.OrderNo))
			continue
		}
		s.logger.Info("order expired", zap.String("order_no", o.OrderNo))
	}
	return nil
}

func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("VG%s%s", now.Format("20060102150405"), random.UpperAlphaNum(6))
}
