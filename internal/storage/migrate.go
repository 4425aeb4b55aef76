package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies the pending migrations found under dir in fsys. connect
// binds the source to a database, by instance or by URL. It returns the
// resulting schema version.
func MigrateUp(fsys fs.FS, dir string, connect func(source.Driver) (*migrate.Migrate, error)) (uint, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("open migration source: %w", err)
	}
	m, err := connect(src)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// RunMigrations brings the report table of the SQLite file at dbPath up to
// date, using a connection of its own.
func RunMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	version, err := MigrateUp(migrationsFS, "migrations", func(src source.Driver) (*migrate.Migrate, error) {
		driver, err := sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", src, "sqlite", driver)
	})
	if err != nil {
		return err
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)
	return nil
}
