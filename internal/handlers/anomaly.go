package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/anomaly"
	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/insights"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/utils"
)

type ScanAnomaliesRequest struct {
	Metric      string `json:"metric" binding:"required"`
	Sensitivity string `json:"sensitivity"` // "low", "medium" (default), "high"
	Days        int    `json:"days"`        // lookback window, default 30
}

type ScanAnomaliesResponse struct {
	Metric    string            `json:"metric"`
	Points    int               `json:"points"`
	Anomalies []anomaly.Finding `json:"anomalies"`
	Narrative string            `json:"narrative,omitempty"`
}

func ScanAnomalies(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ScanAnomaliesRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	days := req.Days
	if days <= 0 {
		days = 30
	}

	sensitivity := anomaly.Sensitivity(req.Sensitivity)
	switch sensitivity {
	case anomaly.SensitivityLow, anomaly.SensitivityMedium, anomaly.SensitivityHigh, "":
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Sensitivity must be one of low, medium, high"})
		return
	}

	var records []models.MetricRecord
	if err := db.DB.Where("user_id = ? AND date_recorded > ?", userID, time.Now().AddDate(0, 0, -days)).
		Order("date_recorded ASC").
		Find(&records).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records"})
		return
	}

	series := make([]anomaly.Point, 0, len(records))
	for _, record := range records {
		var fields map[string]interface{}
		if err := json.Unmarshal(record.Fields, &fields); err != nil {
			continue
		}

		value, ok := fields[req.Metric].(float64)
		if !ok {
			continue
		}

		series = append(series, anomaly.Point{Date: record.DateRecorded, Value: value})
	}

	findings := anomaly.Detect(req.Metric, series, sensitivity)

	response := ScanAnomaliesResponse{
		Metric:    req.Metric,
		Points:    len(series),
		Anomalies: findings,
	}

	// Narration is best-effort; a failed LLM call degrades to the bare list.
	if config.App.OpenAIAPIKey != "" && len(findings) > 0 {
		narrator := insights.NewNarrator(config.App.OpenAIAPIKey, config.App.OpenAIModel)

		narrative, err := narrator.Narrate(ctx.Request.Context(), req.Metric, findings)
		if err != nil {
			logger.Log.Warn().Err(err).Str("metric", req.Metric).Msg("anomaly narration failed")
		} else {
			response.Narrative = narrative
		}
	}

	ctx.JSON(http.StatusOK, response)
}
