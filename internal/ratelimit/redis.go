package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/metrics"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Limiter enforces a fixed-window request quota per (user, endpoint) using
// an atomic Redis counter. The limiter itself failing is treated as
// "allow": availability is preferred over strict enforcement.
type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

// Check increments the counter for the current window and compares it
// against the limit. The window resets via key expiry on rollover.
func (l *Limiter) Check(ctx context.Context, userID string, endpoint string, limit int, window time.Duration) Decision {
	if l.rdb == nil {
		metrics.RateLimitDecisionsTotal.WithLabelValues("failopen").Inc()
		return Decision{Allowed: true, Remaining: limit}
	}

	bucket := l.now().Unix() / int64(window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%s:%d", userID, endpoint, bucket)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		logger.Log.Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing request")
		metrics.RateLimitDecisionsTotal.WithLabelValues("failopen").Inc()
		return Decision{Allowed: true, Remaining: limit}
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			logger.Log.Warn().Err(err).Str("key", key).Msg("failed to set rate limit expiry")
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if int(count) > limit {
		metrics.RateLimitDecisionsTotal.WithLabelValues("denied").Inc()
		return Decision{Allowed: false, Remaining: 0}
	}

	metrics.RateLimitDecisionsTotal.WithLabelValues("allowed").Inc()
	return Decision{Allowed: true, Remaining: remaining}
}
