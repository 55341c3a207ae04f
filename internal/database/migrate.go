// migrate.go handles database migration using golang-migrate.
//
// Migrations are SQL files embedded from migrations/. Each migration has an
// "up" (apply) and "down" (rollback) file. The migrate library tracks which
// migrations have been applied in a schema_migrations table.
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func (db *DB) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending database migrations.
func (db *DB) RunMigrations(log *zap.Logger) error {
	m, err := db.migrator()
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("📦 Database: no new migrations to apply")
	} else {
		version, dirty, _ := m.Version()
		log.Info("📦 Database: migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}

	return nil
}

// RollbackMigration reverts the most recent migration.
func (db *DB) RollbackMigration(log *zap.Logger) error {
	m, err := db.migrator()
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("📦 Database: all migrations rolled back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Info("📦 Database: rolled back", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
