package service

import (
	"context"
	"easyforms/forms-api/internal/model"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CleanupAccounts deletes accounts that never verified their email before
// their ExpiresAt, together with everything they own. It returns the amount
// of deleted accounts.
func CleanupAccounts(ctx context.Context, db *gorm.DB, now time.Time) (int, error) {
	var ids []string

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Model(&model.User{}).
			Where("email_verified = ? AND expires_at IS NOT NULL AND expires_at < ?", false, now).
			Pluck("id", &ids).
			Error
		if err != nil {
			return fmt.Errorf("failed to query users to clean, %w", err)
		}

		if len(ids) == 0 {
			return nil
		}

		return DeleteUsers(tx, ids)
	})
	if err != nil {
		return 0, err
	}

	return len(ids), nil
}

// DeleteUsers removes users and all of their projects, forms, submissions
// and resend requests. It should run inside a transaction.
func DeleteUsers(tx *gorm.DB, ids []string) error {
	forms := tx.Model(&model.Form{}).Select("id").Where("author_id IN ?", ids)

	if err := tx.Where("form_id IN (?)", forms).Delete(&model.Submission{}).Error; err != nil {
		return fmt.Errorf("failed to delete submissions, %w", err)
	}

	if err := tx.Where("author_id IN ?", ids).Delete(&model.Form{}).Error; err != nil {
		return fmt.Errorf("failed to delete forms, %w", err)
	}

	if err := tx.Where("author_id IN ?", ids).Delete(&model.Project{}).Error; err != nil {
		return fmt.Errorf("failed to delete projects, %w", err)
	}

	if err := tx.Where("user_id IN ?", ids).Delete(&model.ResendRequest{}).Error; err != nil {
		return fmt.Errorf("failed to delete resend requests, %w", err)
	}

	if err := tx.Where("id IN ?", ids).Delete(&model.User{}).Error; err != nil {
		return fmt.Errorf("failed to delete users, %w", err)
	}

	return nil
}

func accountCleanupJob(db *gorm.DB) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := CleanupAccounts(ctx, db, time.Now())
		if err != nil {
			zap.L().Error("Account cleanup failed", zap.Error(err))
			return
		}

		zap.L().Debug("Account cleanup finished", zap.Int("deleted", n))
	}
}
