package reorder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/application/reorder"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/memory"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) ofType(t entity.NotificationType) []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, n := range r.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// detectorPublisher entrega cada evento al detector en la misma goroutine.
type detectorPublisher struct {
	detector *reorder.Detector
	errs     []error
}

func (p *detectorPublisher) PublishStockChanged(evt inventory.StockChangedEvent) {
	if err := p.detector.Handle(context.Background(), evt); err != nil {
		p.errs = append(p.errs, err)
	}
}

type fixture struct {
	store    *memory.Store
	ledger   *inventory.LedgerUseCase
	settings *purchasing.SettingsUseCase
	planner  *reorder.Planner
	detector *reorder.Detector
	check    *reorder.CheckUseCase
	notifier *recordingNotifier
	pub      *detectorPublisher

	tenant   entity.Tenant
	outlet   entity.Outlet
	supplier entity.Supplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := memory.NewStore().WithClock(clock)
	log := zerolog.Nop()
	notifier := &recordingNotifier{}

	settings := purchasing.NewSettingsUseCase(store.Settings(), decimal.RequireFromString("0.6"))
	planner := reorder.NewPlanner(store, store.Tenants(), store.Catalog(), store.Suppliers(), store.PurchaseOrders(),
		store.Audit(), settings, reorder.NewVelocityCalculator(store.Sales(), 30), memory.NewLocker(), notifier,
		reorder.Config{LeadTimeDays: 7, SafetyStockDays: 7}, log).WithClock(clock)
	detector := reorder.NewDetector(store.Catalog(), store.Audit(), settings, memory.NewDebouncer(), notifier,
		planner, time.Hour, log)
	pub := &detectorPublisher{detector: detector}
	ledger := inventory.NewLedgerUseCase(store, store.Catalog(), store.Tenants(), store.Movements(), pub, nil, log).
		WithClock(clock)

	f := &fixture{
		store:    store,
		ledger:   ledger,
		settings: settings,
		planner:  planner,
		detector: detector,
		check:    reorder.NewCheckUseCase(store.Catalog(), store.Tenants(), store.Audit(), settings, planner, log),
		notifier: notifier,
		pub:      pub,
	}
	f.tenant = store.AddTenant(entity.Tenant{Code: "CAFE", Name: "Café Central"})
	f.outlet = store.AddOutlet(entity.Outlet{TenantID: f.tenant.ID, Name: "Centro", IsActive: true})
	f.supplier = store.AddSupplier(entity.Supplier{TenantID: f.tenant.ID, Name: "Tostadores del Sur", IsActive: true})
	return f
}

// product producto con inventario y umbral; stock inicial en el outlet.
func (f *fixture) product(threshold, stock int64) entity.Product {
	p := f.store.AddProduct(entity.Product{
		TenantID:          f.tenant.ID,
		SKU:               "CAF-500",
		Name:              "Café en grano 500g",
		Price:             decimal.RequireFromString("12.00"),
		LowStockThreshold: threshold,
		TrackInventory:    true,
	})
	f.store.SetStock(f.tenant.ID, entity.ProductSubject(p.ID), p.ID, f.outlet.ID, stock)
	return p
}

func (f *fixture) linkSupplier(p entity.Product, cost string) {
	c := decimal.RequireFromString(cost)
	f.store.AddProductSupplier(entity.ProductSupplier{
		TenantID:    f.tenant.ID,
		ProductID:   p.ID,
		SupplierID:  f.supplier.ID,
		UnitCost:    &c,
		IsPreferred: true,
		IsActive:    true,
	})
}

func (f *fixture) sell(t *testing.T, p entity.Product, qty int64) {
	t.Helper()
	_, err := f.ledger.Record(context.Background(), inventory.RecordInput{
		TenantID: f.tenant.ID,
		OutletID: f.outlet.ID,
		Subject:  entity.ProductSubject(p.ID),
		Type:     entity.MovementSale,
		Quantity: qty,
	})
	require.NoError(t, err)
	require.Empty(t, f.pub.errs)
}

func (f *fixture) orders(t *testing.T) []*entity.PurchaseOrder {
	t.Helper()
	pos, err := f.store.PurchaseOrders().List(context.Background(), repository.PurchaseOrderFilter{TenantID: f.tenant.ID})
	require.NoError(t, err)
	return pos
}

func (f *fixture) audits(t *testing.T, action entity.AuditAction) []*entity.AutoPOAuditLog {
	t.Helper()
	logs, err := f.store.Audit().List(context.Background(), repository.AuditFilter{TenantID: f.tenant.ID, Action: &action})
	require.NoError(t, err)
	return logs
}

func (f *fixture) plan(p entity.Product, stock int64) reorder.PlanResult {
	return f.planner.Plan(context.Background(), reorder.PlanRequest{
		TenantID: f.tenant.ID,
		OutletID: f.outlet.ID,
		Items: []reorder.LowStockItem{{
			Subject:      entity.ProductSubject(p.ID),
			CurrentStock: stock,
			Threshold:    p.LowStockThreshold,
		}},
		Source: "manual_check",
	})
}
