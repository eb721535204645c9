package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/engine"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/utils"
)

type RunAutomationsResponse struct {
	Success   bool                `json:"success"`
	Processed int                 `json:"processed"`
	Results   []engine.RuleResult `json:"results"`
}

// RunAutomations sweeps all enabled rules on demand. Per-rule failures are
// reported inside the results array; only a failure to load the rule list
// is a 500.
func RunAutomations(ctx *gin.Context) {
	results, err := engine.RunSweep(ctx.Request.Context())

	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to load automation rules")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load automation rules"})
		return
	}

	ctx.JSON(http.StatusOK, RunAutomationsResponse{
		Success:   true,
		Processed: len(results),
		Results:   results,
	})
}

type AutomationLogSummary struct {
	ID           uint    `json:"id"`
	RuleID       uint    `json:"rule_id"`
	Status       string  `json:"status"`
	CurrentValue float64 `json:"current_value"`
	Threshold    float64 `json:"threshold"`
	Matched      bool    `json:"matched"`
	ActionResult string  `json:"action_result"`
	Message      string  `json:"message"`
	CreatedAt    string  `json:"created_at"`
}

func ListAutomationLogs(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit := 50
	if limitStr := ctx.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 500 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	var logs []models.AutomationLog
	if err := db.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve logs"})
		return
	}

	summaries := make([]AutomationLogSummary, 0, len(logs))
	for _, entry := range logs {
		summaries = append(summaries, AutomationLogSummary{
			ID:           entry.ID,
			RuleID:       entry.RuleID,
			Status:       entry.Status,
			CurrentValue: entry.CurrentValue,
			Threshold:    entry.Threshold,
			Matched:      entry.Matched,
			ActionResult: entry.ActionResult,
			Message:      entry.Message,
			CreatedAt:    entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}
