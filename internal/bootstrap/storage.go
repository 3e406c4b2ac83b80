// Package bootstrap arma repositorios y casos de uso a partir de la configuración; lo comparten
// cmd/api, cmd/stock-sync y los tests de la API.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-pos/pkg/config"
)

// Storage repositorios fuera de transacción más el runner transaccional.
type Storage struct {
	TxRunner       ports.TxRunner
	Catalog        repository.CatalogRepository
	Tenants        repository.TenantRepository
	Movements      repository.StockMovementRepository
	Sales          repository.SalesRepository
	Stock          repository.LocationStockRepository
	Batches        repository.BatchRepository
	PurchaseOrders repository.PurchaseOrderRepository
	Audit          repository.AuditLogRepository
	Settings       repository.SettingsRepository
	Suppliers      repository.SupplierRepository

	closeFn func()
}

// Close libera el pool (no-op en memoria).
func (s *Storage) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// OpenStorage conecta a PostgreSQL, o usa el store en memoria si cfg.App.Storage == "memory".
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	switch cfg.App.Storage {
	case "memory":
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return MemoryStorage(memory.NewStore()), nil
	case "", "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		return PostgresStorage(pool, log), nil
	default:
		return nil, fmt.Errorf("APP_STORAGE desconocido: %q", cfg.App.Storage)
	}
}

// PostgresStorage repositorios sobre el pool.
func PostgresStorage(pool *pgxpool.Pool, log zerolog.Logger) *Storage {
	movements := postgres.NewStockMovementRepository(pool)
	return &Storage{
		TxRunner:       postgres.NewTxRunner(pool, log.With().Str("component", "tx").Logger()),
		Catalog:        postgres.NewCatalogRepository(pool),
		Tenants:        postgres.NewTenantRepository(pool),
		Movements:      movements,
		Sales:          movements,
		Stock:          postgres.NewLocationStockRepository(pool),
		Batches:        postgres.NewBatchRepository(pool),
		PurchaseOrders: postgres.NewPurchaseOrderRepository(pool),
		Audit:          postgres.NewAuditLogRepository(pool),
		Settings:       postgres.NewSettingsRepository(pool),
		Suppliers:      postgres.NewSupplierRepository(pool),
		closeFn:        pool.Close,
	}
}

// MemoryStorage repositorios sobre un store en memoria (demo y tests).
func MemoryStorage(s *memory.Store) *Storage {
	return &Storage{
		TxRunner:       s,
		Catalog:        s.Catalog(),
		Tenants:        s.Tenants(),
		Movements:      s.Movements(),
		Sales:          s.Sales(),
		Stock:          s.Stock(),
		Batches:        s.Batches(),
		PurchaseOrders: s.PurchaseOrders(),
		Audit:          s.Audit(),
		Settings:       s.Settings(),
		Suppliers:      s.Suppliers(),
	}
}
