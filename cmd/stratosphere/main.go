package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/auth"
	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/ratelimit"
	"github.com/stratosphere-bi/stratosphere/internal/router"
	"github.com/stratosphere-bi/stratosphere/internal/scheduler"
)

func main() {
	if err := config.Load(os.Getenv("CONFIG_FILE")); err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.Init(config.App.LogLevel, config.App.Env)

	if err := auth.InitJWTSecret(); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to initialize JWT secret")
	}

	if err := db.ConnectDatabase(config.App.DatabaseURL); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.MigrateDatabase(); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var rdb *redis.Client
	if config.App.RedisURL != "" {
		opts, err := redis.ParseURL(config.App.RedisURL)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
	} else {
		logger.Log.Warn().Msg("REDIS_URL not set, rate limiting will fail open")
	}

	limiter := ratelimit.NewLimiter(rdb)

	scheduler.Initialize()
	defer scheduler.Shutdown()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		scheduler.Shutdown()
		os.Exit(0)
	}()

	r := router.NewRouter(limiter)

	if err := r.Run(":" + config.App.Port); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to start server")
	}
}
