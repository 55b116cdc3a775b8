// Command migrate applies or rolls back the postgres schema without
// starting the bot.
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"storefront-bot/internal/config"
	"storefront-bot/internal/database"
	"storefront-bot/internal/database/migrations"
	"storefront-bot/internal/logger"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if len(os.Args) != 2 || (os.Args[1] != "up" && os.Args[1] != "down") {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.Database.Driver != database.DriverPostgres {
		log.Fatal("MIGRATE", fmt.Sprintf("migrations target postgres, DB_DRIVER is %q", cfg.Database.Driver))
	}

	bunDB, err := database.OpenPostgres(cfg.Database)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	if err := database.Ping(context.Background(), bunDB, 5, 2*time.Second); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	runner := migrations.NewRunner(bunDB.DB, log)
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("MIGRATE", err.Error())
		}
	}()

	switch os.Args[1] {
	case "up":
		err = runner.MigrateUp()
	case "down":
		err = runner.MigrateDown()
	}
	if err != nil {
		log.Error("MIGRATE", err.Error())
		return
	}
	log.Info("MIGRATE", fmt.Sprintf("✅ migrate %s finished", os.Args[1]))
}
