package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/memory"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.StockChangedEvent
}

func (r *recordingPublisher) PublishStockChanged(evt inventory.StockChangedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) all() []inventory.StockChangedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inventory.StockChangedEvent(nil), r.events...)
}

type fixture struct {
	store   *memory.Store
	ledger  *inventory.LedgerUseCase
	stock   *inventory.StockUseCase
	batches *inventory.BatchUseCase
	events  *recordingPublisher

	tenant  entity.Tenant
	outlet  entity.Outlet
	outlet2 entity.Outlet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := memory.NewStore().WithClock(clock)
	events := &recordingPublisher{}
	log := zerolog.Nop()

	ledger := inventory.NewLedgerUseCase(store, store.Catalog(), store.Tenants(), store.Movements(), events, nil, log).
		WithClock(clock)
	f := &fixture{
		store:   store,
		ledger:  ledger,
		stock:   inventory.NewStockUseCase(store, store.Stock(), store.Batches(), store.Catalog(), store.Tenants(), ledger, log).WithClock(clock),
		batches: inventory.NewBatchUseCase(store, store.Batches(), store.Catalog(), store.Tenants(), ledger, log).WithClock(clock),
		events:  events,
	}
	f.tenant = store.AddTenant(entity.Tenant{Code: "CAFE", Name: "Café Central"})
	f.outlet = store.AddOutlet(entity.Outlet{TenantID: f.tenant.ID, Name: "Centro", IsActive: true})
	f.outlet2 = store.AddOutlet(entity.Outlet{TenantID: f.tenant.ID, Name: "Norte", IsActive: true})
	return f
}

func (f *fixture) product(threshold int64, cost string) entity.Product {
	return f.store.AddProduct(entity.Product{
		TenantID:          f.tenant.ID,
		SKU:               "CAF-250",
		Name:              "Café molido 250g",
		Price:             decimal.RequireFromString("12.00"),
		Cost:              decimal.RequireFromString(cost),
		LowStockThreshold: threshold,
		TrackInventory:    true,
	})
}

func (f *fixture) variation(p entity.Product) entity.Variation {
	return f.store.AddVariation(entity.Variation{
		TenantID:  f.tenant.ID,
		ProductID: p.ID,
		SKU:       p.SKU + "-L",
		Name:      "Leche entera 1L",
	})
}

func (f *fixture) batch(v entity.Variation, outletID int64, number string, expiryInDays int, qty int64) entity.Batch {
	return f.store.AddBatch(entity.Batch{
		TenantID:    f.tenant.ID,
		VariationID: v.ID,
		OutletID:    outletID,
		BatchNumber: number,
		ExpiryDate:  entity.DateOf(testNow).AddDate(0, 0, expiryInDays),
		Quantity:    qty,
	})
}

func (f *fixture) quantity(t *testing.T, subject entity.StockSubject, outletID int64) int64 {
	t.Helper()
	st, err := f.store.Stock().Get(context.Background(), f.tenant.ID, subject, outletID)
	require.NoError(t, err)
	return st.Quantity
}

func (f *fixture) record(t *testing.T, subject entity.StockSubject, typ entity.MovementType, qty int64) *entity.StockMovement {
	t.Helper()
	mov, err := f.ledger.Record(context.Background(), inventory.RecordInput{
		TenantID: f.tenant.ID,
		OutletID: f.outlet.ID,
		Subject:  subject,
		Type:     typ,
		Quantity: qty,
	})
	require.NoError(t, err)
	return mov
}
