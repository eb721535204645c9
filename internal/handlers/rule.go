package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/types"
	"github.com/stratosphere-bi/stratosphere/internal/utils"
	"gorm.io/gorm"
)

type CreateRuleRequest struct {
	Name         string              `json:"name" binding:"required"`
	Condition    types.RuleCondition `json:"condition" binding:"required"`
	ActionType   string              `json:"action_type" binding:"required"`
	ActionConfig types.ActionConfig  `json:"action_config"`
	Enabled      *bool               `json:"enabled"`
}

type RuleSummary struct {
	ID            uint                `json:"id"`
	Name          string              `json:"name"`
	Enabled       bool                `json:"enabled"`
	Condition     types.RuleCondition `json:"condition"`
	ActionType    string              `json:"action_type"`
	ActionConfig  types.ActionConfig  `json:"action_config"`
	LastTriggered interface{}         `json:"last_triggered"`
}

// validateRule enforces the closed operator/aggregation/channel sets at
// write time, so the evaluator never sees a rule it cannot interpret.
func validateRule(req CreateRuleRequest) string {
	if req.Condition.Metric == "" {
		return "Condition metric is required"
	}
	if !types.ValidOperator(req.Condition.Operator) {
		return "Operator must be one of >, <, =, >=, <="
	}
	if !types.ValidAggregation(req.Condition.Aggregation) {
		return "Aggregation must be one of sum, avg, min, max, count"
	}
	if req.Condition.Limit < 0 {
		return "Record limit cannot be negative"
	}

	if trend := req.Condition.Trend; trend != nil {
		if trend.Direction != "up" && trend.Direction != "down" {
			return "Trend direction must be up or down"
		}
		if trend.PercentMin <= 0 {
			return "Trend percent threshold must be positive"
		}
	}

	if anomaly := req.Condition.Anomaly; anomaly != nil && anomaly.StdDevMultiplier <= 0 {
		return "Anomaly stddev multiplier must be positive"
	}

	switch req.ActionType {
	case types.ActionEmail:
		if req.ActionConfig.To == "" {
			return "Email action requires a destination address"
		}
	case types.ActionSlack:
		if req.ActionConfig.WebhookURL == "" {
			return "Slack action requires a webhook URL"
		}
	case types.ActionInApp:
	default:
		return "Action type must be one of email, slack, in_app"
	}

	return ""
}

func CreateRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateRuleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg := validateRule(req); msg != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	conditionJSON, err := json.Marshal(req.Condition)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid condition format"})
		return
	}

	actionConfigJSON, err := json.Marshal(req.ActionConfig)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action config format"})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := models.AutomationRule{
		UserID:       userID,
		Name:         req.Name,
		Enabled:      enabled,
		Condition:    conditionJSON,
		ActionType:   req.ActionType,
		ActionConfig: actionConfigJSON,
	}

	if err := db.DB.Create(&rule).Error; err != nil {
		logger.Log.Error().Err(err).Msg("failed to create rule")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Rule created successfully", "rule_id": rule.ID})
}

func ListRules(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var rules []models.AutomationRule
	if err := db.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&rules).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rules"})
		return
	}

	summaries := make([]RuleSummary, 0, len(rules))
	for _, rule := range rules {
		summaries = append(summaries, buildRuleSummary(rule))
	}

	ctx.JSON(http.StatusOK, summaries)
}

func UpdateRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ruleID, err := utils.GetRuleID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req CreateRuleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg := validateRule(req); msg != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var rule models.AutomationRule

	if err := db.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rule"})
		}
		return
	}

	conditionJSON, err := json.Marshal(req.Condition)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid condition format"})
		return
	}

	actionConfigJSON, err := json.Marshal(req.ActionConfig)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action config format"})
		return
	}

	rule.Name = req.Name
	rule.Condition = conditionJSON
	rule.ActionType = req.ActionType
	rule.ActionConfig = actionConfigJSON
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := db.DB.Save(&rule).Error; err != nil {
		logger.Log.Error().Err(err).Uint("rule_id", rule.ID).Msg("failed to update rule")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rule"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Rule updated successfully", "rule_id": rule.ID})
}

func ToggleRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ruleID, err := utils.GetRuleID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rule models.AutomationRule

	if err := db.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		return
	}

	if err := db.DB.Model(&rule).Update("enabled", !rule.Enabled).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle rule"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"rule_id": rule.ID, "enabled": !rule.Enabled})
}

func DeleteRule(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ruleID, err := utils.GetRuleID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rule models.AutomationRule

	if err := db.DB.Where("id = ? AND user_id = ?", ruleID, userID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rule"})
		}
		return
	}

	if err := db.DB.Delete(&rule).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func buildRuleSummary(rule models.AutomationRule) RuleSummary {
	var cond types.RuleCondition
	_ = json.Unmarshal(rule.Condition, &cond)

	var actionConfig types.ActionConfig
	_ = json.Unmarshal(rule.ActionConfig, &actionConfig)

	summary := RuleSummary{
		ID:           rule.ID,
		Name:         rule.Name,
		Enabled:      rule.Enabled,
		Condition:    cond,
		ActionType:   rule.ActionType,
		ActionConfig: actionConfig,
	}

	if rule.LastTriggered != nil {
		summary.LastTriggered = rule.LastTriggered
	}

	return summary
}
