package scheduler

import (
	"context"
	"time"

	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/engine"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
)

// Scheduler runs the automation sweep on an interval and the log retention
// purge once a day.
type Scheduler struct {
	sweepInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler(sweepInterval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sweepInterval: sweepInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the sweep and retention loops with an immediate first run
func (s *Scheduler) Start() {
	logger.Log.Info().Dur("interval", s.sweepInterval).Msg("starting scheduler")

	go s.runSweeps()
	go s.runRetention()
}

// Stop gracefully shuts down both loops
func (s *Scheduler) Stop() {
	logger.Log.Info().Msg("stopping scheduler")
	s.cancel()
}

func (s *Scheduler) runSweeps() {
	s.sweep()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Scheduler) sweep() {
	results, err := engine.RunSweep(s.ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("automation sweep failed")
		return
	}

	triggered := 0
	for _, r := range results {
		if r.Triggered {
			triggered++
		}
	}

	logger.Log.Info().Int("processed", len(results)).Int("triggered", triggered).Msg("scheduled sweep complete")
}

func (s *Scheduler) runRetention() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			purged, err := engine.PurgeLogs(s.ctx, config.App.RetentionDays)
			if err != nil {
				logger.Log.Error().Err(err).Msg("log retention purge failed")
				continue
			}
			logger.Log.Info().Int64("purged", purged).Msg("log retention purge complete")
		}
	}
}

// Global scheduler instance
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler
func Initialize() {
	interval := time.Duration(config.App.AutomationInterval) * time.Second
	globalScheduler = NewScheduler(interval)
	globalScheduler.Start()
}

// Shutdown stops the global scheduler
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}
