package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the report in a single-row table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; the table has one row anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Load(ctx context.Context) (Record, error) {
	var (
		rec     Record
		payload string
		updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, version, exported_version, updated_at FROM report_store WHERE id = 1`,
	).Scan(&payload, &rec.Version, &rec.ExportedVersion, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoReport
	}
	if err != nil {
		return Record{}, fmt.Errorf("load report: %w", err)
	}
	rec.Payload = []byte(payload)
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return rec, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, payload []byte) (Record, error) {
	now := r.now().UTC()
	rec := Record{Payload: payload, UpdatedAt: now}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO report_store (id, payload, version, exported_version, updated_at)
		VALUES (1, ?, 1, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			version = report_store.version + 1,
			updated_at = excluded.updated_at
		RETURNING version, exported_version`,
		string(payload), now.UnixNano(),
	).Scan(&rec.Version, &rec.ExportedVersion)
	if err != nil {
		return Record{}, fmt.Errorf("save report: %w", err)
	}

	slog.DebugContext(ctx, "Report saved to SQLite",
		"version", rec.Version,
		"bytes", len(payload))
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM report_store WHERE id = 1`); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	slog.InfoContext(ctx, "Report deleted from SQLite")
	return nil
}

// MarkExported never moves the exported version backwards.
func (r *SQLiteRepository) MarkExported(ctx context.Context, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE report_store SET exported_version = ? WHERE id = 1 AND exported_version < ?`,
		version, version)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}
