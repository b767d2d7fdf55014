package session

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vidgo/server/internal/utils/metrics"
)

const (
	activeKey     = "sessions:active"
	defaultWindow = 5 * time.Minute
)

// Tracker keeps a rolling set of recently active users in a Redis sorted
// set scored by last-heartbeat unix time.
type Tracker struct {
	redis   redis.UniversalClient
	window  time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewTracker creates a new session tracker. window is how long a user
// counts as active after their last request.
func NewTracker(rdb redis.UniversalClient, window time.Duration, logger *zap.Logger, m *metrics.Metrics) *Tracker {
	if window <= 0 {
		window = defaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		redis:   rdb,
		window:  window,
		logger:  logger.Named("session"),
		metrics: m,
	}
}

// Heartbeat marks the user active now and trims entries older than the
// window. Best effort: a Redis error is logged, never surfaced to the
// request.
func (t *Tracker) Heartbeat(ctx context.Context, userID uuid.UUID) {
	if t.redis == nil {
		return
	}
	now := time.Now()
	cutoff := now.Add(-t.window).Unix()
	_, err := t.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, activeKey, redis.Z{
			Score:  float64(now.Unix()),
			Member: userID.String(),
		})
		p.ZRemRangeByScore(ctx, activeKey, "-inf", fmt.Sprintf("(%d", cutoff))
		return nil
	})
	if err != nil {
		t.logger.Warn("session heartbeat failed", zap.Error(err))
	}
}

// ActiveCount returns the number of users seen within the window.
func (t *Tracker) ActiveCount(ctx context.Context) (int64, error) {
	if t.redis == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-t.window).Unix()
	count, err := t.redis.ZCount(ctx, activeKey, fmt.Sprintf("%d", cutoff), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

// Prune drops entries older than the window and refreshes the active
// sessions gauge. Runs on a schedule from the app.
func (t *Tracker) Prune(ctx context.Context) error {
	if t.redis == nil {
		return nil
	}
	cutoff := time.Now().Add(-t.window).Unix()
	err := t.redis.ZRemRangeByScore(ctx, activeKey, "-inf", fmt.Sprintf("(%d", cutoff)).Err()
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}

	count, err := t.ActiveCount(ctx)
	if err != nil {
		return err
	}
	t.metrics.SetActiveSessions(count)
	return nil
}

// Middleware records a heartbeat for every authenticated request.
func Middleware(tracker *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v, ok := c.Get("user_id"); ok {
			if userID, ok := v.(uuid.UUID); ok && userID != uuid.Nil {
				tracker.Heartbeat(c.Request.Context(), userID)
			}
		}
		c.Next()
	}
}
