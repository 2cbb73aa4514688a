package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/cjdreamy/M-kumbusha/internal/config"
	"github.com/cjdreamy/M-kumbusha/internal/logger"
	"github.com/cjdreamy/M-kumbusha/internal/migrations"
)

// DatabaseService owns the Postgres connection pool and its migrator
type DatabaseService struct {
	DB       *sql.DB
	migrator *migrations.Migrator
}

func NewDatabaseService(ctx context.Context, cfg config.Config) (*DatabaseService, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Infof("Successfully connected to database: %s", cfg.DatabaseName)

	return &DatabaseService{
		DB:       db,
		migrator: migrations.NewMigrator(db, cfg.MigrationsDir),
	}, nil
}

func (d *DatabaseService) Close() error {
	return d.DB.Close()
}

// CheckConnection is used by the readiness check
func (d *DatabaseService) CheckConnection(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// RunMigrations applies all pending database migrations
func (d *DatabaseService) RunMigrations(ctx context.Context) error {
	return d.migrator.RunMigrations(ctx)
}

// MigrationStatus shows current migration status
func (d *DatabaseService) MigrationStatus(ctx context.Context) error {
	return d.migrator.Status(ctx)
}
