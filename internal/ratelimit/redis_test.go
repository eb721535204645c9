package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewLimiter(client), mr
}

func TestLimiterDeniesOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	const limit = 5
	window := time.Minute

	// Pin the clock so the test cannot straddle a window boundary.
	base := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	for i := 0; i < limit; i++ {
		decision := limiter.Check(ctx, "42", "/api/automations/run", limit, window)
		require.True(t, decision.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, limit-i-1, decision.Remaining)
	}

	// The (N+1)th request within the window must be denied.
	decision := limiter.Check(ctx, "42", "/api/automations/run", limit, window)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	window := time.Minute
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	require.True(t, limiter.Check(ctx, "42", "/api/metrics", 1, window).Allowed)
	require.False(t, limiter.Check(ctx, "42", "/api/metrics", 1, window).Allowed)

	// First request after the window elapses must be allowed again.
	limiter.now = func() time.Time { return base.Add(window) }
	mr.FastForward(window)

	assert.True(t, limiter.Check(ctx, "42", "/api/metrics", 1, window).Allowed)
}

func TestLimiterScopesByUserAndEndpoint(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	require.True(t, limiter.Check(ctx, "42", "/api/automations/run", 1, time.Minute).Allowed)
	require.False(t, limiter.Check(ctx, "42", "/api/automations/run", 1, time.Minute).Allowed)

	// A different user and a different endpoint have their own counters.
	assert.True(t, limiter.Check(ctx, "43", "/api/automations/run", 1, time.Minute).Allowed)
	assert.True(t, limiter.Check(ctx, "42", "/api/metrics", 1, time.Minute).Allowed)
}

func TestLimiterFailsOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	mr.Close()

	decision := limiter.Check(ctx, "42", "/api/automations/run", 5, time.Minute)
	assert.True(t, decision.Allowed)

	nilLimiter := NewLimiter(nil)
	assert.True(t, nilLimiter.Check(ctx, "42", "/api/automations/run", 5, time.Minute).Allowed)
}
