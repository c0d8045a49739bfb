// Package db opens the SQL database and the Redis connection
package db

import (
	"easyforms/forms-api/internal/model"
	"easyforms/forms-api/pkg/util"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// schemaVersion is recorded in the migrations table after AutoMigrate ran
const schemaVersion = "0001_initial_schema"

var models = []any{
	model.User{},
	model.Project{},
	model.Form{},
	model.Submission{},
	model.ResendRequest{},
	model.Migration{},
}

// New opens the database selected by driver ("postgres" or "sqlite") and
// migrates it.
func New(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() && !strings.Contains(dsn, ":memory:") {
			if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
			}
		}

		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle, %w", err)
		}

		// sqlite allows a single writer, and every :memory: connection is its own database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates all tables and records the schema version.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	m := model.Migration{Name: schemaVersion}

	r := db.Where("name = ?", m.Name).FirstOrCreate(&m)
	if r.Error != nil {
		return fmt.Errorf("failed to record migration, %w", r.Error)
	}

	if r.RowsAffected > 0 {
		zap.L().Info("Applied database migration", zap.String("name", m.Name))
	}

	return nil
}
