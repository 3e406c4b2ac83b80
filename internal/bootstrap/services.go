package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/application/reorder"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/memory"
	infraredis "github.com/jhoicas/Inventario-pos/internal/infrastructure/redis"
	"github.com/jhoicas/Inventario-pos/pkg/config"
)

// Coordination locks por borrador y debounce de alertas. Con Redis sirven entre réplicas;
// en memoria solo dentro del proceso.
type Coordination struct {
	Locker    ports.Locker
	Debouncer ports.Debouncer
	closeFn   func()
}

// Close cierra el cliente Redis si lo hay.
func (c Coordination) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// MemoryCoordination locks y debounce en memoria.
func MemoryCoordination() Coordination {
	return Coordination{Locker: memory.NewLocker(), Debouncer: memory.NewDebouncer()}
}

// OpenCoordination usa Redis si REDIS_ADDR está definido.
func OpenCoordination(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (Coordination, error) {
	if !cfg.Enabled() {
		log.Warn().Msg("sin Redis: locks y debounce en memoria (una sola réplica)")
		return MemoryCoordination(), nil
	}
	rdb, err := infraredis.NewClient(ctx, cfg)
	if err != nil {
		return Coordination{}, fmt.Errorf("conexión a Redis: %w", err)
	}
	return Coordination{
		Locker:    infraredis.NewLocker(rdb, log),
		Debouncer: infraredis.NewDebouncer(rdb),
		closeFn:   func() { _ = rdb.Close() },
	}, nil
}

// Services casos de uso listos para el router y los comandos.
type Services struct {
	Ledger         *inventory.LedgerUseCase
	Stock          *inventory.StockUseCase
	Batches        *inventory.BatchUseCase
	Settings       *purchasing.SettingsUseCase
	Audit          *purchasing.AuditUseCase
	PurchaseOrders *purchasing.PurchaseOrderUseCase
	Planner        *reorder.Planner
	Detector       *reorder.Detector
	ReorderCheck   *reorder.CheckUseCase
	Dispatcher     *reorder.Dispatcher
}

// NewServices arma el grafo. El ledger publica los cambios de stock en el Dispatcher, que
// los entrega al Detector fuera de la transacción; Start/Shutdown del Dispatcher son del llamador.
func NewServices(st *Storage, coord Coordination, notifier ports.Notifier, cfg config.ReorderConfig, log zerolog.Logger) *Services {
	settings := purchasing.NewSettingsUseCase(st.Settings, cfg.FallbackCostRatio)
	audit := purchasing.NewAuditUseCase(st.Audit)

	ledger := inventory.NewLedgerUseCase(st.TxRunner, st.Catalog, st.Tenants, st.Movements,
		inventory.NopPublisher{}, notifier, log)
	stock := inventory.NewStockUseCase(st.TxRunner, st.Stock, st.Batches, st.Catalog, st.Tenants, ledger, log)
	batches := inventory.NewBatchUseCase(st.TxRunner, st.Batches, st.Catalog, st.Tenants, ledger, log)
	pos := purchasing.NewPurchaseOrderUseCase(st.TxRunner, st.PurchaseOrders, st.Tenants, st.Catalog,
		st.Suppliers, settings, ledger, batches, log)

	velocity := reorder.NewVelocityCalculator(st.Sales, cfg.VelocityWindow)
	planner := reorder.NewPlanner(st.TxRunner, st.Tenants, st.Catalog, st.Suppliers, st.PurchaseOrders,
		st.Audit, settings, velocity, coord.Locker, notifier, reorder.Config{
			LeadTimeDays:    cfg.LeadTimeDays,
			SafetyStockDays: cfg.SafetyStockDays,
			LockTTL:         cfg.LockTTL,
		}, log)
	detector := reorder.NewDetector(st.Catalog, st.Audit, settings, coord.Debouncer, notifier, planner,
		cfg.DebounceWindow, log)
	dispatcher := reorder.NewDispatcher(detector, reorder.DispatcherConfig{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.JobTimeout,
	}, log)
	ledger.SetPublisher(dispatcher)

	return &Services{
		Ledger:         ledger,
		Stock:          stock,
		Batches:        batches,
		Settings:       settings,
		Audit:          audit,
		PurchaseOrders: pos,
		Planner:        planner,
		Detector:       detector,
		ReorderCheck:   reorder.NewCheckUseCase(st.Catalog, st.Tenants, st.Audit, settings, planner, log),
		Dispatcher:     dispatcher,
	}
}
