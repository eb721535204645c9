package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/ratelimit"
	"github.com/stratosphere-bi/stratosphere/internal/types"
)

// RateLimitMiddleware guards an endpoint with the durable Redis limiter
// plus a per-process token bucket for local burst protection. Both fail
// open.
func RateLimitMiddleware(limiter *ratelimit.Limiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	bucket := ratelimit.NewTokenBucket(
		float64(cfg.Requests),
		float64(cfg.Requests)/window.Seconds(),
	)

	return func(ctx *gin.Context) {
		if !bucket.Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		userKey := ctx.ClientIP()
		if user, exists := ctx.Get(types.ContextUserKey); exists {
			if authed, ok := user.(AuthenticatedUser); ok {
				userKey = strconv.FormatUint(uint64(authed.ID), 10)
			}
		}

		decision := limiter.Check(ctx.Request.Context(), userKey, ctx.FullPath(), cfg.Requests, window)

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		ctx.Next()
	}
}
