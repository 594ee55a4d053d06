package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"gorm.io/gorm"
)

var fallback = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// StartCleanup deletes system_logs older than retentionDays once a day until
// ctx is cancelled.
func StartCleanup(ctx context.Context, db *gorm.DB, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				purge(ctx, db, time.Now().AddDate(0, 0, -retentionDays))
			case <-ctx.Done():
				return
			}
		}
	}()
}

func purge(ctx context.Context, db *gorm.DB, cutoff time.Time) {
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Error("log cleanup failed", "action", "log_cleanup", "error", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
}
