package engine

import (
	"context"
	"time"

	"github.com/stratosphere-bi/stratosphere/db"
	"github.com/stratosphere-bi/stratosphere/internal/models"
)

// PurgeLogs hard-deletes automation logs older than the retention window
// and returns the number of rows removed. Logs are immutable otherwise.
func PurgeLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 90
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := db.DB.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&models.AutomationLog{})

	return result.RowsAffected, result.Error
}
