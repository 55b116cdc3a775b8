package main

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"storefront-bot/internal/config"
	"storefront-bot/internal/database"
	"storefront-bot/internal/database/migrations"
	"storefront-bot/internal/logger"
)

// prepareSchema brings the schema up to date. Postgres uses the versioned
// migrations; sqlite gets the tables created straight from the models.
func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, db *bun.DB, log *logger.Logger) error {
	if cfg.Driver == database.DriverPostgres {
		log.Info("MIGRATE", "Applying postgres migrations")
		if err := migrations.NewRunner(db.DB, log).MigrateUp(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		return nil
	}

	if err := database.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	log.LogDatabase("SCHEMA", "*", "sqlite tables ready")
	return nil
}
