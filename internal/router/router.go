package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/handlers"
	"github.com/stratosphere-bi/stratosphere/internal/middleware"
	"github.com/stratosphere-bi/stratosphere/internal/ratelimit"
	"github.com/stratosphere-bi/stratosphere/internal/types"
	"github.com/stratosphere-bi/stratosphere/internal/ws"
)

func NewRouter(limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.MetricsMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimited := middleware.RateLimitMiddleware(limiter, config.App.RateLimit)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/notifications", middleware.AuthMiddleware(), ws.Stream)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", handlers.LogoutUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		rules := api.Group("/rules", middleware.AuthMiddleware())
		{
			rules.POST("", handlers.CreateRule)
			rules.GET("", handlers.ListRules)
			rules.PUT("/:rule_id", handlers.UpdateRule)
			rules.PATCH("/:rule_id/toggle", handlers.ToggleRule)
			rules.DELETE("/:rule_id", handlers.DeleteRule)
		}

		metrics := api.Group("/metrics", middleware.AuthMiddleware())
		{
			metrics.POST("", rateLimited, handlers.IngestMetrics)
			metrics.GET("", handlers.ListMetrics)
		}

		automations := api.Group("/automations", middleware.AuthMiddleware())
		{
			automations.POST("/run", rateLimited, handlers.RunAutomations)
			automations.GET("/logs", handlers.ListAutomationLogs)
		}

		notifications := api.Group("/notifications", middleware.AuthMiddleware())
		{
			notifications.GET("", handlers.ListNotifications)
			notifications.PATCH("/:notification_id/read", handlers.MarkNotificationRead)
			notifications.POST("/read-all", handlers.MarkAllNotificationsRead)
		}

		anomalies := api.Group("/anomalies", middleware.AuthMiddleware())
		{
			anomalies.POST("/scan", rateLimited, handlers.ScanAnomalies)
		}
	}

	return r
}
