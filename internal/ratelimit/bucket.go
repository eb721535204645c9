package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a per-process burst guard with linear refill. It is
// non-durable and non-authoritative; the Redis limiter is the durable one.
type TokenBucket struct {
	mu     sync.Mutex
	tokens float64
	size   float64
	rate   float64 // tokens per second
	last   time.Time

	now func() time.Time
}

func NewTokenBucket(size float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens: size,
		size:   size,
		rate:   refillRate,
		last:   time.Now(),
		now:    time.Now,
	}
}

// Allow consumes one token if available.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	b.tokens += elapsed * b.rate
	if b.tokens > b.size {
		b.tokens = b.size
	}

	if b.tokens < 1 {
		return false
	}

	b.tokens--
	return true
}
