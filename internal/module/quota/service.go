package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/metrics"
)

// DefaultTier is the cap applied when a tier is missing from the table.
const DefaultTier = "starter"

// Service enforces per-user daily generation caps backed by Redis.
// Counters live under quota:gen:<user>:<YYYYMMDD> and expire at the next
// UTC midnight. A cap of -1 means unlimited.
type Service struct {
	redis   redis.UniversalClient
	daily   map[string]int64
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a new quota service. daily maps user tier to daily
// generation cap.
func NewService(rdb redis.UniversalClient, daily map[string]int64, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		redis:   rdb,
		daily:   daily,
		logger:  logger.Named("quota"),
		metrics: m,
	}
}

// Allow consumes one unit of today's quota. The check fails open: a Redis
// error never blocks generation, only an observed over-limit count does.
func (s *Service) Allow(ctx context.Context, userID uuid.UUID, tier string) error {
	limit := s.limitFor(tier)
	if limit < 0 || s.redis == nil {
		return nil
	}

	now := time.Now().UTC()
	key := dailyKey(userID, now)
	used, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn("redis error, allowing request", zap.Error(err))
		return nil
	}
	if used == 1 {
		s.redis.Expire(ctx, key, untilMidnightUTC(now))
	}

	if used > limit {
		s.metrics.RecordQuotaRejected(tier)
		return apperrors.QuotaExceeded(fmt.Sprintf("daily generation quota of %d reached", limit))
	}
	return nil
}

// Usage reports today's consumption for the user. Rejected attempts bump
// the raw counter, so the reported figure is capped at the limit.
func (s *Service) Usage(ctx context.Context, userID uuid.UUID, tier string) (*Usage, error) {
	now := time.Now().UTC()
	limit := s.limitFor(tier)

	var used int64
	if s.redis != nil {
		var err error
		used, err = s.redis.Get(ctx, dailyKey(userID, now)).Int64()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("get quota counter: %w", err)
		}
	}

	if limit >= 0 && used > limit {
		used = limit
	}
	usage := &Usage{
		Used:     used,
		Limit:    limit,
		ResetsAt: now.Truncate(24 * time.Hour).Add(24 * time.Hour),
	}
	if limit >= 0 {
		usage.Remaining = limit - used
	} else {
		usage.Remaining = -1
	}
	return usage, nil
}

// limitFor resolves the tier's daily cap, falling back to the starter cap
// and finally to unlimited when the table has no entry at all.
func (s *Service) limitFor(tier string) int64 {
	if limit, ok := s.daily[tier]; ok {
		return limit
	}
	if limit, ok := s.daily[DefaultTier]; ok {
		return limit
	}
	return -1
}

// Usage is a user's quota consumption for the current UTC day.
type Usage struct {
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

func dailyKey(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("quota:gen:%s:%s", userID.String(), now.Format("20060102"))
}

func untilMidnightUTC(now time.Time) time.Duration {
	return now.Truncate(24 * time.Hour).Add(24 * time.Hour).Sub(now)
}
