package service

import (
	"context"
	"easyforms/forms-api/internal/model"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resendWindow is how long a resend request counts towards the daily limit
const resendWindow = 24 * time.Hour

// CleanupResendRequests deletes resend throttling records that no longer
// block or count against anyone.
func CleanupResendRequests(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	r := db.WithContext(ctx).
		Where("last_resend < ? AND (blocked_until IS NULL OR blocked_until < ?)", now.Add(-resendWindow), now).
		Delete(&model.ResendRequest{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to clean resend requests, %w", r.Error)
	}

	return r.RowsAffected, nil
}

func resendCleanupJob(db *gorm.DB) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := CleanupResendRequests(ctx, db, time.Now())
		if err != nil {
			zap.L().Error("Resend request cleanup failed", zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Debug("Cleaned up resend requests", zap.Int64("deleted", n))
		}
	}
}
