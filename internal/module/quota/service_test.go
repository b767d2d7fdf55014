package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyKey(t *testing.T) {
	userID := uuid.MustParse("4f9a1f40-0d0e-4c3a-9a3e-2f6a0a4dce11")
	now := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "quota:gen:4f9a1f40-0d0e-4c3a-9a3e-2f6a0a4dce11:20260825", dailyKey(userID, now))
}

func TestUntilMidnightUTC(t *testing.T) {
	now := time.Date(2026, 8, 25, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, untilMidnightUTC(now))

	startOfDay := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 24*time.Hour, untilMidnightUTC(startOfDay))
}

func TestLimitFor(t *testing.T) {
	svc := NewService(nil, map[string]int64{
		"starter":    20,
		"pro":        200,
		"enterprise": -1,
	}, nil, nil)

	assert.Equal(t, int64(20), svc.limitFor("starter"))
	assert.Equal(t, int64(200), svc.limitFor("pro"))
	assert.Equal(t, int64(-1), svc.limitFor("enterprise"))
	// Unknown tiers fall back to the starter cap.
	assert.Equal(t, int64(20), svc.limitFor("trial"))
	assert.Equal(t, int64(20), svc.limitFor(""))
}

func TestLimitFor_EmptyTable(t *testing.T) {
	svc := NewService(nil, nil, nil, nil)
	assert.Equal(t, int64(-1), svc.limitFor("starter"))
}

func TestAllow_UnlimitedTierSkipsRedis(t *testing.T) {
	// nil client: the unlimited path must return before touching Redis.
	svc := NewService(nil, map[string]int64{"enterprise": -1}, nil, nil)

	err := svc.Allow(context.Background(), uuid.New(), "enterprise")
	assert.NoError(t, err)
}

func TestAllow_FailsOpenOnRedisError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewService(rdb, map[string]int64{"starter": 20}, nil, nil)

	err := svc.Allow(context.Background(), uuid.New(), "starter")
	assert.NoError(t, err)
}

func TestUsage_ErrorsOnRedisFailure(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewService(rdb, map[string]int64{"starter": 20}, nil, nil)

	_, err := svc.Usage(context.Background(), uuid.New(), "starter")
	require.Error(t, err)
}

func TestUsage_DegradesWithoutRedis(t *testing.T) {
	svc := NewService(nil, map[string]int64{"starter": 20}, nil, nil)

	usage, err := svc.Usage(context.Background(), uuid.New(), "starter")
	require.NoError(t, err)
	assert.Zero(t, usage.Used)
	assert.Equal(t, int64(20), usage.Limit)
	assert.Equal(t, int64(20), usage.Remaining)
}
