package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/logger"
	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/utils"
)

type MetricRecordInput struct {
	DateRecorded time.Time              `json:"date_recorded" binding:"required"`
	Fields       map[string]interface{} `json:"fields" binding:"required"`
}

type IngestMetricsRequest struct {
	Records []MetricRecordInput `json:"records" binding:"required,min=1"`
}

type MetricRecordSummary struct {
	ID           uint                   `json:"id"`
	BatchID      string                 `json:"batch_id"`
	DateRecorded time.Time              `json:"date_recorded"`
	Fields       map[string]interface{} `json:"fields"`
}

func IngestMetrics(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req IngestMetricsRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batchID := uuid.NewString()

	records := make([]models.MetricRecord, 0, len(req.Records))
	for _, input := range req.Records {
		fieldsJSON, err := json.Marshal(input.Fields)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fields format"})
			return
		}

		records = append(records, models.MetricRecord{
			UserID:       userID,
			BatchID:      batchID,
			Fields:       fieldsJSON,
			DateRecorded: input.DateRecorded,
		})
	}

	if err := db.DB.Create(&records).Error; err != nil {
		logger.Log.Error().Err(err).Str("batch_id", batchID).Msg("failed to insert metric records")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert records"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":  "Records ingested successfully",
		"batch_id": batchID,
		"inserted": len(records),
	})
}

func ListMetrics(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit := 100
	if limitStr := ctx.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 1000 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be between 1 and 1000"})
			return
		}
		limit = parsed
	}

	var records []models.MetricRecord
	if err := db.DB.Where("user_id = ?", userID).
		Order("date_recorded DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve records"})
		return
	}

	summaries := make([]MetricRecordSummary, 0, len(records))
	for _, record := range records {
		var fields map[string]interface{}
		if err := json.Unmarshal(record.Fields, &fields); err != nil {
			fields = make(map[string]interface{})
		}

		summaries = append(summaries, MetricRecordSummary{
			ID:           record.ID,
			BatchID:      record.BatchID,
			DateRecorded: record.DateRecorded,
			Fields:       fields,
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}
