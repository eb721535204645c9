package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/dispatch"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/metrics"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/types"
)

// RuleResult is the per-rule outcome reported to the sweep caller.
type RuleResult struct {
	RuleID    uint    `json:"rule_id"`
	Triggered bool    `json:"triggered"`
	Value     float64 `json:"value"`
	Error     string  `json:"error,omitempty"`
}

// Per-rule cap on datastore fetch and dispatch time so one slow external
// call cannot stall the whole sweep indefinitely.
const ruleTimeout = 30 * time.Second

// RunSweep evaluates every enabled rule once, across all users, in the
// order the datastore returns them. A failure to load the rule list aborts
// the batch; everything after that is recovered per rule.
func RunSweep(ctx context.Context) ([]RuleResult, error) {
	start := time.Now()
	metrics.SweepsTotal.Inc()

	var rules []models.AutomationRule
	if err := db.DB.WithContext(ctx).Where("enabled = ?", true).Find(&rules).Error; err != nil {
		return nil, err
	}

	results := make([]RuleResult, 0, len(rules))

	for _, rule := range rules {
		results = append(results, evaluateRule(ctx, rule))
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	logger.Log.Info().Int("processed", len(results)).Dur("took", time.Since(start)).Msg("automation sweep finished")

	return results, nil
}

func evaluateRule(parent context.Context, rule models.AutomationRule) RuleResult {
	ctx, cancel := context.WithTimeout(parent, ruleTimeout)
	defer cancel()

	result := RuleResult{RuleID: rule.ID}

	var cond types.RuleCondition
	if err := json.Unmarshal(rule.Condition, &cond); err != nil {
		logger.Log.Error().Err(err).Uint("rule_id", rule.ID).Msg("invalid rule condition")
		metrics.RulesEvaluatedTotal.WithLabelValues("error").Inc()
		result.Error = "invalid rule condition"
		return result
	}

	records, err := fetchWindow(ctx, rule.UserID, cond)
	if err != nil {
		logger.Log.Error().Err(err).Uint("rule_id", rule.ID).Msg("failed to fetch metric records")
		metrics.RulesEvaluatedTotal.WithLabelValues("error").Inc()
		result.Error = "failed to fetch metric records"
		return result
	}

	eval := Evaluate(cond, records)
	result.Value = eval.CurrentValue
	result.Triggered = eval.Triggered

	if !eval.Triggered {
		metrics.RulesEvaluatedTotal.WithLabelValues("passed").Inc()
		return result
	}

	metrics.RulesEvaluatedTotal.WithLabelValues("triggered").Inc()

	dispatch.Dispatch(ctx, dispatch.Event{
		Rule:        rule,
		Condition:   cond,
		Value:       eval.CurrentValue,
		TriggeredAt: time.Now(),
	})

	return result
}

// fetchWindow loads the most recent records the condition needs: one for
// latest-value mode, otherwise the aggregation window.
func fetchWindow(ctx context.Context, userID uint, cond types.RuleCondition) ([]models.MetricRecord, error) {
	window := 1

	if cond.Aggregation != types.AggNone && cond.Aggregation != "none" {
		window = cond.Limit
		if window <= 0 {
			window = types.DefaultWindow
		}
	}

	var records []models.MetricRecord
	err := db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date_recorded DESC").
		Limit(window).
		Find(&records).Error

	return records, err
}
