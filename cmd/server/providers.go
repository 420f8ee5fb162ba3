// File: cmd/server/providers.go
package main

import (
	"log"

	"operationcode_backend/internal/config"
	"operationcode_backend/internal/jobs"
	"operationcode_backend/internal/onboarding"
	"operationcode_backend/internal/platform/database"
	"operationcode_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDB opens the database, migrates it when DB_AUTO_MIGRATE is set and returns
// a cleanup that closes the pool and flushes the logger.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := user.AutoMigrate(db); err != nil {
			database.CloseGORMDB(db, logger)
			return nil, nil, err
		}
		logger.Info("Database migrated")
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db, logger)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	return db, cleanup, nil
}

func provideEnqueuer(backend jobs.Backend) jobs.Enqueuer { return backend }

func provideSweeper(backend jobs.Backend) jobs.DeadLetterSweeper { return backend }

func provideDispatcher(cfg *config.Config, mailer onboarding.Mailer, users onboarding.UserLookup, logger *zap.Logger) *onboarding.Dispatcher {
	return onboarding.NewDispatcher(onboarding.ConfigFrom(cfg), mailer, users, nil, logger)
}
