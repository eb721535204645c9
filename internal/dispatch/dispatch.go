package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/metrics"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/types"
	"github.com/stratosphere-bi/stratosphere/internal/ws"
)

// Event describes one triggered rule evaluation handed to the dispatcher.
type Event struct {
	Rule        models.AutomationRule
	Condition   types.RuleCondition
	Value       float64
	TriggeredAt time.Time
}

// Dispatch runs the fixed sequence log -> last_triggered update -> notify
// for a triggered rule. Each step is attempted independently and a later
// failure never rolls back an earlier write, so a rule may log "triggered"
// even if its notification ultimately failed.
func Dispatch(ctx context.Context, ev Event) {
	message := ev.Message()

	writeLog(ctx, ev, message)
	updateLastTriggered(ctx, ev)
	notify(ctx, ev, message)
}

// Message renders the human-readable trigger summary used for logs and
// notifications.
func (ev Event) Message() string {
	return fmt.Sprintf("Automation rule %q triggered: %s %s %s (current value %s)",
		ev.Rule.Name,
		ev.Condition.Metric,
		ev.Condition.Operator,
		formatNumber(ev.Condition.Threshold),
		formatNumber(ev.Value),
	)
}

func writeLog(ctx context.Context, ev Event, message string) {
	entry := models.AutomationLog{
		RuleID:       ev.Rule.ID,
		UserID:       ev.Rule.UserID,
		Status:       "success",
		CurrentValue: ev.Value,
		Threshold:    ev.Condition.Threshold,
		Matched:      true,
		ActionResult: ev.Rule.ActionType,
		Message:      message,
	}

	if err := db.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Log.Error().Err(err).Uint("rule_id", ev.Rule.ID).Msg("failed to write automation log")
	}
}

func updateLastTriggered(ctx context.Context, ev Event) {
	err := db.DB.WithContext(ctx).
		Model(&models.AutomationRule{}).
		Where("id = ?", ev.Rule.ID).
		Update("last_triggered", ev.TriggeredAt).Error

	if err != nil {
		logger.Log.Error().Err(err).Uint("rule_id", ev.Rule.ID).Msg("failed to update last_triggered")
	}
}

func notify(ctx context.Context, ev Event, message string) {
	var cfg types.ActionConfig
	if len(ev.Rule.ActionConfig) > 0 {
		if err := json.Unmarshal(ev.Rule.ActionConfig, &cfg); err != nil {
			logger.Log.Error().Err(err).Uint("rule_id", ev.Rule.ID).Msg("invalid action config, falling back to in-app")
		}
	}

	switch ev.Rule.ActionType {
	case types.ActionEmail:
		if err := sendEmail(ctx, ev, cfg); err != nil {
			logger.Log.Error().Err(err).Uint("rule_id", ev.Rule.ID).Msg("email dispatch failed")
			metrics.NotificationsTotal.WithLabelValues(types.ActionEmail, "failed").Inc()

			// The user should not be left uninformed; degrade to an
			// in-app notification describing the failure.
			createNotification(ctx, ev.Rule.UserID, models.Notification{
				Title:   fmt.Sprintf("Email delivery failed for rule %q", ev.Rule.Name),
				Message: message,
				Type:    "error",
			})
			return
		}
		metrics.NotificationsTotal.WithLabelValues(types.ActionEmail, "sent").Inc()

	case types.ActionSlack:
		if cfg.WebhookURL == "" {
			return
		}
		if err := sendWebhook(ctx, cfg.WebhookURL, message); err != nil {
			logger.Log.Error().Err(err).Uint("rule_id", ev.Rule.ID).Msg("webhook dispatch failed")
			metrics.NotificationsTotal.WithLabelValues(types.ActionSlack, "failed").Inc()
			return
		}
		metrics.NotificationsTotal.WithLabelValues(types.ActionSlack, "sent").Inc()

	default: // in_app and anything unrecognized
		createNotification(ctx, ev.Rule.UserID, models.Notification{
			Title:   fmt.Sprintf("Rule %q triggered", ev.Rule.Name),
			Message: message,
			Type:    "automation",
		})
	}
}

func createNotification(ctx context.Context, userID uint, notification models.Notification) {
	notification.UserID = userID

	if err := db.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		logger.Log.Error().Err(err).Uint("user_id", userID).Msg("failed to create notification")
		metrics.NotificationsTotal.WithLabelValues(types.ActionInApp, "failed").Inc()
		return
	}

	metrics.NotificationsTotal.WithLabelValues(types.ActionInApp, "sent").Inc()
	ws.BroadcastNotification(userID)
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
