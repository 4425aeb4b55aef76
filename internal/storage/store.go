package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNoReport is returned by Load when nothing has been saved yet.
var ErrNoReport = errors.New("no report stored")

// Record is the single stored report payload. Version increases by one on
// every save; ExportedVersion is the last version pushed to the export
// target.
type Record struct {
	Payload         []byte
	Version         int64
	ExportedVersion int64
	UpdatedAt       time.Time
}

// Stale reports whether the stored payload has not been exported yet.
func (r Record) Stale() bool {
	return r.Version > r.ExportedVersion
}

type ReportStore interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, payload []byte) (Record, error)
	Delete(ctx context.Context) error
	MarkExported(ctx context.Context, version int64) error
	Ping(ctx context.Context) error
	Close() error
}
