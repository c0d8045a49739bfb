package service

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewScheduler registers the periodic database cleanups on a cron
// scheduler. The caller starts and stops it.
func NewScheduler(schedule string, db *gorm.DB) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	if _, err := c.AddFunc(schedule, accountCleanupJob(db)); err != nil {
		return nil, fmt.Errorf("failed to schedule account cleanup, %w", err)
	}

	if _, err := c.AddFunc(schedule, resendCleanupJob(db)); err != nil {
		return nil, fmt.Errorf("failed to schedule resend request cleanup, %w", err)
	}

	zap.L().Debug("Cleanups scheduled", zap.String("schedule", schedule))

	return c, nil
}
