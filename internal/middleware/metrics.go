package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stratosphere-bi/stratosphere/internal/metrics"
)

// MetricsMiddleware records request counts and latencies per route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		status := strconv.Itoa(ctx.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(ctx.Request.Method, endpoint, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(ctx.Request.Method, endpoint, status).Observe(time.Since(start).Seconds())
	}
}
