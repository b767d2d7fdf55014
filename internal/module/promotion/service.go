package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/vidgo/server/internal/shared/errors"
)

// BonusGranter grants credits into the bonus bucket. Implemented by the
// credit service.
type BonusGranter interface {
	GrantBonus(ctx context.Context, userID uuid.UUID, amount int64, reason string) error
}

// Service implements promotion operations.
type Service struct {
	repo    Repository
	credits BonusGranter
	logger  *zap.Logger
}

// NewService creates a new promotion service.
func NewService(repo Repository, credits BonusGranter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		credits: credits,
		logger:  logger.Named("promotion"),
	}
}

// CreateCode adds a promo code.
func (s *Service) CreateCode(ctx context.Context, req *CreateCodeRequest) (*PromoCode, error) {
	kind := Kind(req.Kind)
	if !kind.Valid() {
		return nil, apperrors.BadRequest("unknown promo code kind")
	}
	switch kind {
	case KindBonusCredits:
		if req.CreditsAmount <= 0 {
			return nil, apperrors.BadRequest("credits_amount must be positive")
		}
	case KindPercentDiscount:
		if req.DiscountPercent <= 0 || req.DiscountPercent > 100 {
			return nil, apperrors.BadRequest("discount_percent must be between 1 and 100")
		}
	}

	perUser := req.PerUserLimit
	if perUser <= 0 {
		perUser = 1
	}
	promo := &PromoCode{
		ID:              uuid.New(),
		Code:            normalizeCode(req.Code),
		Kind:            kind,
		CreditsAmount:   req.CreditsAmount,
		DiscountPercent: req.DiscountPercent,
		MaxRedemptions:  req.MaxRedemptions,
		PerUserLimit:    perUser,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		Active:          true,
	}
	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, err
	}

	s.logger.Info("promo code created",
		zap.String("code", promo.Code),
		zap.String("kind", string(promo.Kind)))
	return promo, nil
}

// Validate checks a code without redeeming it.
func (s *Service) Validate(ctx context.Context, code string) (*PromoCode, error) {
	promo, err := s.repo.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := promo.ValidateAt(time.Now()); err != nil {
		return nil, err
	}
	return promo, nil
}

// Redeem redeems a bonus-credits code for the user and grants the
// credits. Discount codes are redeemed at checkout, not here.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, code string) (*PromoCode, error) {
	normalized := normalizeCode(code)

	promo, err := s.repo.GetByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if promo.Kind != KindBonusCredits {
		return nil, apperrors.BadRequest("discount codes apply at checkout")
	}

	promo, err = s.repo.Redeem(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}

	if err := s.credits.GrantBonus(ctx, userID, promo.CreditsAmount, "promo:"+promo.Code); err != nil {
		// The redemption row is already committed at this point.
		s.logger.Error("promo redeemed but grant failed",
			zap.Error(err),
			zap.String("code", promo.Code),
			zap.String("user_id", userID.String()))
		return nil, apperrors.Internal("granting promo credits failed", err)
	}

	s.logger.Info("promo code redeemed",
		zap.String("code", promo.Code),
		zap.String("user_id", userID.String()),
		zap.Int64("credits", promo.CreditsAmount))
	return promo, nil
}

// RedeemDiscount redeems a percent-discount code against an order
// subtotal and returns the discount in cents. Satisfies order.Discounter.
func (s *Service) RedeemDiscount(ctx context.Context, userID uuid.UUID, code string, subtotal int64) (int64, error) {
	normalized := normalizeCode(code)

	promo, err := s.repo.GetByCode(ctx, normalized)
	if err != nil {
		return 0, err
	}
	if promo.Kind != KindPercentDiscount {
		return 0, apperrors.BadRequest("promo code is not a discount code")
	}

	promo, err = s.repo.Redeem(ctx, userID, normalized)
	if err != nil {
		return 0, err
	}

	discount := subtotal * promo.DiscountPercent / 100
	s.logger.Info("discount code redeemed",
		zap.String("code", promo.Code),
		zap.String("user_id", userID.String()),
		zap.Int64("discount", discount))
	return discount, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
