// Package backend assembles the ledger store, taxonomy, event publisher and
// expense service from configuration.
package backend

import (
	"context"
	"time"

	"gastos/internal/cache"
	"gastos/internal/ledger"
	"gastos/internal/services"
	"gastos/internal/taxonomy"
)

// CleanupFunc releases what a factory opened.
type CleanupFunc func() error

// BackendResult is a ready expense service and the store behind it.
type BackendResult struct {
	Service  *services.ExpenseService
	Store    ledger.Store
	Taxonomy *taxonomy.Taxonomy
	Caches   *cache.Manager // long-running processes sweep it
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	OpenStore(ctx context.Context, config Config) (ledger.Store, error)
}

// Config holds what backend creation needs
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string

	// Events are optional; an empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	TaxonomyFile           string
	Payers                 []string
	SkewThreshold          float64
	ConcentrationThreshold float64
	// CacheTTL of zero disables the aggregate cache.
	CacheTTL time.Duration
}

// BackendType names a ledger store implementation
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
