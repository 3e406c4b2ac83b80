package inventory_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// lockTrace registra los SELECT FOR UPDATE en el orden en que se piden.
type lockTrace struct {
	mu    sync.Mutex
	calls []string
}

func (l *lockTrace) add(kind string, outletID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf("%s:%d", kind, outletID))
}

func (l *lockTrace) reset() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.calls
	l.calls = nil
	return out
}

type tracedStock struct {
	repository.LocationStockRepository
	trace *lockTrace
}

func (s tracedStock) GetForUpdate(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error) {
	s.trace.add("stock", outletID)
	return s.LocationStockRepository.GetForUpdate(ctx, tenantID, subject, outletID)
}

type tracedBatches struct {
	repository.BatchRepository
	trace *lockTrace
}

func (b tracedBatches) ListByStockForUpdate(ctx context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error) {
	b.trace.add("batches", outletID)
	return b.BatchRepository.ListByStockForUpdate(ctx, tenantID, variationID, outletID)
}

type tracedUoW struct {
	ports.UnitOfWork
	trace *lockTrace
}

func (u tracedUoW) Stock() repository.LocationStockRepository {
	return tracedStock{LocationStockRepository: u.UnitOfWork.Stock(), trace: u.trace}
}

func (u tracedUoW) Batches() repository.BatchRepository {
	return tracedBatches{BatchRepository: u.UnitOfWork.Batches(), trace: u.trace}
}

type tracedRunner struct {
	inner ports.TxRunner
	trace *lockTrace
}

func (r tracedRunner) Run(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	return r.inner.Run(ctx, func(uow ports.UnitOfWork) error {
		return fn(tracedUoW{UnitOfWork: uow, trace: r.trace})
	})
}

// assertStockBeforeBatches exige que en cada outlet la fila de stock se bloquee antes que sus lotes.
func assertStockBeforeBatches(t *testing.T, calls []string) {
	t.Helper()
	require.NotEmpty(t, calls)
	stockLocked := map[string]bool{}
	for _, c := range calls {
		kind, outlet, _ := strings.Cut(c, ":")
		switch kind {
		case "stock":
			stockLocked[outlet] = true
		case "batches":
			assert.True(t, stockLocked[outlet], "lotes del outlet %s bloqueados antes que su stock: %v", outlet, calls)
		}
	}
}

func TestLockOrder_StockRowBeforeBatches(t *testing.T) {
	f := newFixture(t)
	trace := &lockTrace{}
	runner := tracedRunner{inner: f.store, trace: trace}
	clock := func() time.Time { return testNow }
	log := zerolog.Nop()
	ledger := inventory.NewLedgerUseCase(runner, f.store.Catalog(), f.store.Tenants(), f.store.Movements(), nil, nil, log).WithClock(clock)
	stock := inventory.NewStockUseCase(runner, f.store.Stock(), f.store.Batches(), f.store.Catalog(), f.store.Tenants(), ledger, log).WithClock(clock)
	batches := inventory.NewBatchUseCase(runner, f.store.Batches(), f.store.Catalog(), f.store.Tenants(), ledger, log).WithClock(clock)
	ctx := context.Background()

	v := f.variation(f.product(0, "3"))
	subject := entity.VariationSubject(v.ID)
	f.batch(v, f.outlet.ID, "L-1", 10, 8)
	f.batch(v, f.outlet.ID, "L-2", 30, 8)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 20)

	t.Run("venta", func(t *testing.T) {
		_, err := ledger.Record(ctx, inventory.RecordInput{
			TenantID: f.tenant.ID, OutletID: f.outlet.ID, Subject: subject, Type: entity.MovementSale, Quantity: 2,
		})
		require.NoError(t, err)
		assertStockBeforeBatches(t, trace.reset())
	})

	t.Run("resync", func(t *testing.T) {
		_, err := stock.Resync(ctx, f.tenant.ID, subject, f.outlet.ID)
		require.NoError(t, err)
		assertStockBeforeBatches(t, trace.reset())
	})

	t.Run("consumo directo", func(t *testing.T) {
		_, err := batches.Consume(ctx, f.tenant.ID, v.ID, f.outlet.ID, 1)
		require.NoError(t, err)
		assertStockBeforeBatches(t, trace.reset())
	})

	t.Run("migración de lotes iniciales", func(t *testing.T) {
		loose := f.variation(f.product(0, "2"))
		f.store.SetStock(f.tenant.ID, entity.VariationSubject(loose.ID), loose.ProductID, f.outlet.ID, 5)
		rep, err := stock.MigrateInitialBatches(ctx, f.tenant.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Created)
		assertStockBeforeBatches(t, trace.reset())
	})

	t.Run("traspaso", func(t *testing.T) {
		_, err := ledger.Transfer(ctx, inventory.TransferInput{
			TenantID: f.tenant.ID, FromOutletID: f.outlet2.ID, ToOutletID: f.outlet.ID, Subject: subject, Quantity: 1,
		})
		require.Error(t, err, "el destino no tiene stock")
		trace.reset()

		_, err = ledger.Transfer(ctx, inventory.TransferInput{
			TenantID: f.tenant.ID, FromOutletID: f.outlet.ID, ToOutletID: f.outlet2.ID, Subject: subject, Quantity: 3,
		})
		require.NoError(t, err)
		calls := trace.reset()
		assertStockBeforeBatches(t, calls)
		// las dos filas de stock se bloquean primero y en orden de outlet
		low, high := f.outlet.ID, f.outlet2.ID
		if high < low {
			low, high = high, low
		}
		require.GreaterOrEqual(t, len(calls), 2)
		assert.Equal(t, []string{fmt.Sprintf("stock:%d", low), fmt.Sprintf("stock:%d", high)}, calls[:2])
	})
}
