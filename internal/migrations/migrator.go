package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

type Migrator struct {
	DB            *sql.DB
	MigrationsDir string
}

type Migration struct {
	Version   string
	Name      string
	FilePath  string
	AppliedAt *time.Time
}

func NewMigrator(db *sql.DB, migrationsDir string) *Migrator {
	return &Migrator{
		DB:            db,
		MigrationsDir: migrationsDir,
	}
}

// CreateMigrationsTable creates the migrations tracking table
func (m *Migrator) CreateMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := m.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	logger.Log.Debug("Migrations table created/verified")
	return nil
}

// GetAppliedMigrations returns the applied migrations keyed by version
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[string]Migration, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]Migration)
	for rows.Next() {
		var migration Migration
		if err := rows.Scan(&migration.Version, &migration.Name, &migration.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		applied[migration.Version] = migration
	}
	return applied, rows.Err()
}

// GetPendingMigrations returns migrations that need to be applied, oldest first
func (m *Migrator) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	files, err := listMigrationFiles(m.MigrationsDir)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range files {
		if _, exists := applied[migration.Version]; !exists {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// listMigrationFiles reads dir for *.sql files sorted by version
func listMigrationFiles(dir string) ([]Migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		filename := filepath.Base(file)
		migrations = append(migrations, Migration{
			Version:  extractVersionFromFilename(filename),
			Name:     extractNameFromFilename(filename),
			FilePath: file,
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// RunMigrations applies all pending migrations
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if err := m.CreateMigrationsTable(ctx); err != nil {
		return err
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		logger.Log.Info("No pending migrations to apply")
		return nil
	}

	logger.Log.Infof("Applying %d migrations...", len(pending))
	for _, migration := range pending {
		if err := m.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		logger.Log.Infof("Applied migration: %s - %s", migration.Version, migration.Name)
	}

	logger.Log.Info("All migrations applied successfully")
	return nil
}

// applyMigration runs one file and records it in a single transaction
func (m *Migrator) applyMigration(ctx context.Context, migration Migration) error {
	content, err := os.ReadFile(migration.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		migration.Version, migration.Name,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// extractVersionFromFilename extracts version from filename like "001_initial_schema.sql"
func extractVersionFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, ".sql")
	if i := strings.Index(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}

// extractNameFromFilename extracts name from filename like "001_initial_schema.sql"
func extractNameFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, ".sql")
	if i := strings.Index(name, "_"); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}

// Status logs applied and pending migrations
func (m *Migrator) Status(ctx context.Context) error {
	if err := m.CreateMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return err
	}

	logger.Log.Infof("Migration status: %d applied, %d pending", len(applied), len(pending))

	versions := make([]string, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	for _, version := range versions {
		migration := applied[version]
		appliedAt := "unknown"
		if migration.AppliedAt != nil {
			appliedAt = migration.AppliedAt.Format("2006-01-02 15:04:05")
		}
		logger.Log.Infof("  applied %s - %s (%s)", migration.Version, migration.Name, appliedAt)
	}
	for _, migration := range pending {
		logger.Log.Infof("  pending %s - %s", migration.Version, migration.Name)
	}
	return nil
}
