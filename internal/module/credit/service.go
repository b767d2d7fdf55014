package credit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/metrics"
	"github.com/vidgo/server/internal/utils/pagination"
)

// Service implements credit operations.
type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a new credit service.
func NewService(repo Repository, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		logger:  logger.Named("credit"),
		metrics: m,
	}
}

// Balance returns the user's per-bucket balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Deduct spends amount from the user's buckets in priority order.
func (s *Service) Deduct(ctx context.Context, userID uuid.UUID, amount int64, reason string) error {
	if amount <= 0 {
		return apperrors.BadRequest("amount must be positive")
	}

	entry, err := s.repo.Deduct(ctx, userID, amount, reason)
	if err != nil {
		return err
	}

	s.logger.Info("credits deducted",
		zap.String("user_id", userID.String()),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
		zap.Int64("bonus", entry.Bonus),
		zap.Int64("subscription", entry.Subscription),
		zap.Int64("purchased", entry.Purchased),
	)
	return nil
}

// Refund returns amount to the user. Refunds land in the bonus bucket so
// they are spent first on the next call.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int64, reason string) error {
	if amount <= 0 {
		return apperrors.BadRequest("amount must be positive")
	}

	if _, err := s.repo.Grant(ctx, userID, BucketBonus, amount, TransactionRefund, reason); err != nil {
		return err
	}

	s.logger.Info("credits refunded",
		zap.String("user_id", userID.String()),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
	)
	return nil
}

// Grant credits amount into the given bucket.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, bucket Bucket, amount int64, reason string) error {
	if amount <= 0 {
		return apperrors.BadRequest("amount must be positive")
	}
	if !bucket.Valid() {
		return apperrors.BadRequest("unknown credit bucket")
	}

	if _, err := s.repo.Grant(ctx, userID, bucket, amount, TransactionGrant, reason); err != nil {
		return err
	}

	s.metrics.RecordCreditsGranted(string(bucket), amount)
	s.logger.Info("credits granted",
		zap.String("user_id", userID.String()),
		zap.String("bucket", string(bucket)),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
	)
	return nil
}

// GrantBonus grants amount into the bonus bucket. Promo redemptions land
// here so they are spent before paid credits.
func (s *Service) GrantBonus(ctx context.Context, userID uuid.UUID, amount int64, reason string) error {
	return s.Grant(ctx, userID, BucketBonus, amount, reason)
}

// GrantPackCredits grants an order's purchased and bonus credits exactly
// once per order number. Payment webhooks redeliver, so the order-derived
// reason doubles as the idempotency key.
func (s *Service) GrantPackCredits(ctx context.Context, userID uuid.UUID, orderNo string, credits, bonus int64) error {
	if credits > 0 {
		if err := s.grantOnce(ctx, userID, BucketPurchased, credits, "order:"+orderNo); err != nil {
			return err
		}
	}
	if bonus > 0 {
		if err := s.grantOnce(ctx, userID, BucketBonus, bonus, "order_bonus:"+orderNo); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) grantOnce(ctx context.Context, userID uuid.UUID, bucket Bucket, amount int64, reason string) error {
	exists, err := s.repo.HasGrant(ctx, userID, reason)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("credits already granted, skipping",
			zap.String("user_id", userID.String()),
			zap.String("reason", reason))
		return nil
	}
	return s.Grant(ctx, userID, bucket, amount, reason)
}

// Transactions returns the user's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, userID, p)
}
