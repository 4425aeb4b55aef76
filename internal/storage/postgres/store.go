// Package postgres stores the report in a single-row Postgres table through
// a pgx pool. The schema is applied with golang-migrate on Open.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"famreport/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open migrates the schema and establishes a pgx pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RunMigrations applies the embedded schema. golang-migrate's pgx driver
// registers the pgx5 scheme, so postgres URLs are rewritten to it.
func RunMigrations(dsn string) error {
	_, err := storage.MigrateUp(migrationsFS, "migrations", func(src source.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	})
	return err
}

func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Load(ctx context.Context) (storage.Record, error) {
	var rec storage.Record
	err := s.pool.QueryRow(ctx,
		`select payload::text, version, exported_version, updated_at from report_store where id = 1`,
	).Scan(&rec.Payload, &rec.Version, &rec.ExportedVersion, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Record{}, storage.ErrNoReport
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("load report: %w", err)
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func (s *Store) Save(ctx context.Context, payload []byte) (storage.Record, error) {
	rec := storage.Record{Payload: payload}
	err := s.pool.QueryRow(ctx, `
		insert into report_store (id, payload, version, exported_version, updated_at)
		values (1, $1::jsonb, 1, 0, $2)
		on conflict (id) do update set
			payload = excluded.payload,
			version = report_store.version + 1,
			updated_at = excluded.updated_at
		returning version, exported_version, updated_at`,
		string(payload), time.Now().UTC(),
	).Scan(&rec.Version, &rec.ExportedVersion, &rec.UpdatedAt)
	if err != nil {
		return storage.Record{}, fmt.Errorf("save report: %w", err)
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `delete from report_store where id = 1`); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

func (s *Store) MarkExported(ctx context.Context, version int64) error {
	_, err := s.pool.Exec(ctx,
		`update report_store set exported_version = $1 where id = 1 and exported_version < $1`,
		version)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}
