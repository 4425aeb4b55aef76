package backend

import (
	"context"
	"slices"

	"famreport/internal/services"
	"famreport/internal/storage"
)

// CleanupFunc releases what a backend opened.
type CleanupFunc func() error

// Result is an opened report store plus the optional publisher that
// announces each saved version.
type Result struct {
	Store     storage.ReportStore
	Publisher services.SavePublisher // nil when AMQP is not configured
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Memory specific; optional JSON payload to start from
	SeedFile string

	// Optional publisher
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}

// Durable reports whether saved versions survive a restart.
func (bt BackendType) Durable() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}
