package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eshop/internal/catalog"
	"github.com/vladislavdragonenkov/eshop/internal/domain"
	"github.com/vladislavdragonenkov/eshop/internal/storage/memory"
	"github.com/vladislavdragonenkov/eshop/internal/storage/postgres"
)

// runtimeDependencies — хранилища, выбранные драйвером из Config.
type runtimeDependencies struct {
	lineItems       domain.LineItemRepository
	orders          domain.OrderRepository
	catalog         domain.ProductCatalog
	users           domain.UserDirectory
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	// transactor задан только для postgres; memory работает через компенсацию.
	transactor domain.Transactor
	// store — подключение postgres, nil для memory.
	store *postgres.Store
}

// Close освобождает подключение к БД.
func (d *runtimeDependencies) Close() error {
	if d == nil || d.store == nil {
		return nil
	}
	return d.store.Close()
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	seed, err := loadSeed(cfg.CatalogSeedPath)
	if err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		cat := memory.NewCatalog()
		cat.Seed(seed)
		logger.WithFields(log.Fields{
			"driver":     StorageDriverMemory,
			"products":   len(seed.Products),
			"categories": len(seed.Categories),
			"users":      len(seed.Users),
		}).Info("storage initialized")
		return &runtimeDependencies{
			lineItems:       memory.NewLineItemRepository(),
			orders:          memory.NewOrderRepository(),
			catalog:         cat,
			users:           cat,
			outboxRepo:      memory.NewOutboxRepository(),
			idempotencyRepo: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		return initPostgres(ctx, cfg, seed, logger)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgres(ctx context.Context, cfg Config, seed domain.CatalogSeed, logger *log.Entry) (*runtimeDependencies, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	state, err := store.MigrationStatus(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migration status: %w", err)
	}
	if state.Pending > 0 {
		logger.WithField("pending", state.Pending).Warn("database schema has pending migrations")
	}

	cat := postgres.NewCatalogRepository(store)
	if err := cat.Seed(ctx, seed); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	logger.WithFields(log.Fields{
		"driver":         StorageDriverPostgres,
		"schema_version": state.Version,
		"products":       len(seed.Products),
	}).Info("storage initialized")

	return &runtimeDependencies{
		lineItems:       postgres.NewLineItemRepository(store),
		orders:          postgres.NewOrderRepository(store),
		catalog:         cat,
		users:           cat,
		outboxRepo:      postgres.NewOutboxRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		transactor:      store,
		store:           store,
	}, nil
}

func loadSeed(path string) (domain.CatalogSeed, error) {
	if path == "" {
		return domain.CatalogSeed{}, nil
	}
	seed, err := catalog.LoadSeed(path)
	if err != nil {
		return domain.CatalogSeed{}, fmt.Errorf("load catalog seed: %w", err)
	}
	return seed, nil
}
