package main

import (
	"context"
	"flag"
	"os"

	"github.com/cjdreamy/M-kumbusha/internal/config"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/services"
)

func main() {
	var command = flag.String("command", "up", "Migration command: up, status")
	flag.Parse()

	cfg := config.Load()
	if _, err := logger.New(cfg.Environment, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()

	ctx := context.Background()
	dbService, err := services.NewDatabaseService(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize database service: %v", err)
	}
	defer dbService.Close()

	switch *command {
	case "up":
		logger.Log.Info("Running migrations...")
		if err := dbService.RunMigrations(ctx); err != nil {
			logger.Log.Fatalf("Migration failed: %v", err)
		}
		logger.Log.Info("Migrations completed successfully")

	case "status":
		if err := dbService.MigrationStatus(ctx); err != nil {
			logger.Log.Fatalf("Failed to get migration status: %v", err)
		}

	default:
		logger.Log.Errorf("Unknown command: %s (available: up, status)", *command)
		os.Exit(1)
	}
}
