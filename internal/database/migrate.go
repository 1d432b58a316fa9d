package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationDir maps a backend onto its dialect's migration set.
func migrationDir(backend Backend) string {
	switch backend {
	case BackendPostgres:
		return "migrations/postgres"
	case BackendMySQL:
		return "migrations/mysql"
	default:
		return "migrations/sqlite"
	}
}

// Migrate runs the leaderboard schema migrations.
//   - If targetVersion < 0, it migrates to the latest version.
//   - If targetVersion == 0, it rolls back all migrations.
//   - If targetVersion > 0, it migrates to the specified version.
//
// dsn must already be resolved (see ResolveDSN).
func Migrate(backend Backend, dsn string, targetVersion int) error {
	if _, err := ParseBackend(string(backend)); err != nil {
		return err
	}

	db, err := sql.Open(backend.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var driver migratedb.Driver
	switch backend {
	case BackendSQLite3:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case BackendSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case BackendMySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case BackendPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	migrationFS, err := fs.Sub(migrationsFS, migrationDir(backend))
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(backend), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state at version %d; fix manually or force the version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}

	if errors.Is(err, migrate.ErrNoChange) {
		slog.Debug("No migration needed", "backend", backend, "version", currentVersion)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to migrate %s database (target %d): %w", backend, targetVersion, err)
	}

	newVersion, _, _ := m.Version()
	slog.Info("Database migrated",
		"backend", backend,
		"from_version", currentVersion,
		"to_version", newVersion)

	return nil
}

// SchemaVersion reports the applied migration version; 0 when none ran.
func SchemaVersion(backend Backend, dsn string) (uint, bool, error) {
	db, err := sql.Open(backend.driverName(), dsn)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = db.Close() }()

	var version int64
	var dirty bool
	row := db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`)
	if err := row.Scan(&version, &dirty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return uint(version), dirty, nil
}
