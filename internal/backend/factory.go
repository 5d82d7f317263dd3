package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	"gastos/internal/cache"
	"gastos/internal/insights"
	"gastos/internal/ledger"
	"gastos/internal/ledger/memory"
	"gastos/internal/report"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/taxonomy"
)

const aggregateCacheSize = 64

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// OpenStore opens and migrates the configured ledger store.
func (f *DefaultFactory) OpenStore(_ context.Context, config Config) (ledger.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateBackend wires store, taxonomy, optional publisher and cache into an
// expense service. A broker that cannot be reached only disables events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	tx, err := taxonomy.LoadFile(config.TaxonomyFile)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	store, err := f.OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{services.WithRules(rulesFrom(config))}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(client))
		}
	}

	caches := cache.NewManager()
	if config.CacheTTL > 0 {
		aggCache := cache.NewLRUCache[report.Aggregate](aggregateCacheSize, config.CacheTTL)
		caches.Register(aggCache)
		opts = append(opts, services.WithAggregateCache(aggCache))
	}

	svc := services.NewExpenseService(store, tx, opts...)
	if err := svc.LoadCustomCategories(ctx); err != nil {
		return nil, errors.Join(err, svc.Close())
	}

	return &BackendResult{
		Service:  svc,
		Store:    store,
		Taxonomy: tx,
		Caches:   caches,
		Cleanup:  svc.Close,
	}, nil
}

func rulesFrom(config Config) insights.Rules {
	rules := insights.DefaultRules()
	if len(config.Payers) >= 2 {
		rules.Payers = config.Payers
	}
	if config.SkewThreshold > 0 {
		rules.SkewThreshold = config.SkewThreshold
	}
	if config.ConcentrationThreshold > 0 {
		rules.ConcentrationThreshold = config.ConcentrationThreshold
	}
	return rules
}
