package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratosphere_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stratosphere_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Automation sweep metrics
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stratosphere_automation_sweeps_total",
			Help: "Total number of automation sweeps executed",
		},
	)

	RulesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratosphere_rules_evaluated_total",
			Help: "Total number of rule evaluations by outcome",
		},
		[]string{"outcome"}, // triggered, passed, error
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stratosphere_automation_sweep_duration_seconds",
			Help:    "Duration of a full automation sweep in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratosphere_notifications_total",
			Help: "Total number of notification dispatch attempts",
		},
		[]string{"channel", "status"}, // channel: email, slack, in_app; status: sent, failed
	)

	// Rate limiter metrics
	RateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratosphere_rate_limit_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"decision"}, // allowed, denied, failopen
	)
)
