package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	migrationsTable = "schema_migrations"

	versionItemsTable  = 1
	versionContentHash = 2
)

// RunMigrations brings the schema up to date and returns version info.
// Stores created before versioned migrations existed are baselined first;
// existing rows are never rewritten.
func RunMigrations(db *DB) (uint, bool, error) {
	baseline, err := legacyBaseline(db)
	if err != nil {
		return 0, false, err
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	// m.Close would close the shared *sql.DB through the driver.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if baseline > 0 {
		if err := m.Force(baseline); err != nil {
			return 0, false, fmt.Errorf("failed to baseline legacy store: %w", err)
		}
		slog.Info("Baselined unversioned store", "path", db.Path, "version", baseline)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// legacyBaseline returns the migration version an unversioned store
// already matches, or 0 when there is nothing to baseline.
func legacyBaseline(db *DB) (int, error) {
	hasItems, err := tableExists(db, "items")
	if err != nil || !hasItems {
		return 0, err
	}

	hasVersions, err := tableExists(db, migrationsTable)
	if err != nil || hasVersions {
		return 0, err
	}

	hasHash, err := columnExists(db, "items", "content_hash")
	if err != nil {
		return 0, err
	}
	if !hasHash {
		return versionItemsTable, nil
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_items_hash ON items(content_hash)`); err != nil {
		return 0, fmt.Errorf("failed to ensure fingerprint index: %w", err)
	}
	return versionContentHash, nil
}

func tableExists(db *DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", name, err)
	}
	return count > 0, nil
}

func columnExists(db *DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect column %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}
