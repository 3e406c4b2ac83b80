package purchasing_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/memory"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	settings *purchasing.SettingsUseCase
	audit    *purchasing.AuditUseCase
	uc       *purchasing.PurchaseOrderUseCase

	tenant   entity.Tenant
	outlet   entity.Outlet
	supplier entity.Supplier
	product  entity.Product
	actor    *int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := memory.NewStore().WithClock(clock)
	log := zerolog.Nop()
	settings := purchasing.NewSettingsUseCase(store.Settings(), decimal.RequireFromString("0.6"))
	ledger := inventory.NewLedgerUseCase(store, store.Catalog(), store.Tenants(), store.Movements(), nil, nil, log).
		WithClock(clock)
	batches := inventory.NewBatchUseCase(store, store.Batches(), store.Catalog(), store.Tenants(), ledger, log).
		WithClock(clock)

	actor := int64(9)
	f := &fixture{
		store:    store,
		settings: settings,
		audit:    purchasing.NewAuditUseCase(store.Audit()),
		uc: purchasing.NewPurchaseOrderUseCase(store, store.PurchaseOrders(), store.Tenants(), store.Catalog(),
			store.Suppliers(), settings, ledger, batches, log),
		actor: &actor,
	}
	f.tenant = store.AddTenant(entity.Tenant{Code: "cafe", Name: "Café Central"})
	f.outlet = store.AddOutlet(entity.Outlet{TenantID: f.tenant.ID, Name: "Centro", IsActive: true})
	f.supplier = store.AddSupplier(entity.Supplier{TenantID: f.tenant.ID, Name: "Tostadores del Sur", IsActive: true})
	f.product = store.AddProduct(entity.Product{
		TenantID:       f.tenant.ID,
		SKU:            "CAF-1K",
		Name:           "Café en grano 1kg",
		Price:          decimal.RequireFromString("20"),
		Cost:           decimal.RequireFromString("5"),
		TrackInventory: true,
	})
	return f
}

func (f *fixture) draft(t *testing.T, supplierID *int64) *entity.PurchaseOrder {
	t.Helper()
	po, err := f.uc.Create(context.Background(), f.tenant.ID, f.outlet.ID, f.actor, dto.CreatePurchaseOrderRequest{SupplierID: supplierID})
	require.NoError(t, err)
	return po
}

func (f *fixture) addProduct(t *testing.T, poID int64, qty int64) *entity.PurchaseOrder {
	t.Helper()
	po, err := f.uc.AddItem(context.Background(), f.tenant.ID, poID, f.actor, dto.AddPurchaseOrderItemRequest{
		ProductID: &f.product.ID,
		Quantity:  qty,
	})
	require.NoError(t, err)
	return po
}

func (f *fixture) stock(t *testing.T, subject entity.StockSubject) int64 {
	t.Helper()
	st, err := f.store.Stock().Get(context.Background(), f.tenant.ID, subject, f.outlet.ID)
	require.NoError(t, err)
	return st.Quantity
}

func (f *fixture) approved(t *testing.T, qty int64) *entity.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	po := f.draft(t, &f.supplier.ID)
	f.addProduct(t, po.ID, qty)
	f.submit(t, po.ID)
	po, err := f.uc.Approve(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	return po
}

// submit marca la orden lista y la envía a aprobación.
func (f *fixture) submit(t *testing.T, poID int64) *entity.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	_, err := f.uc.MarkReady(ctx, f.tenant.ID, poID, f.actor)
	require.NoError(t, err)
	po, err := f.uc.Submit(ctx, f.tenant.ID, poID, f.actor)
	require.NoError(t, err)
	return po
}

func TestPurchaseOrder_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	po := f.draft(t, &f.supplier.ID)
	assert.Equal(t, entity.POStatusDraft, po.Status)
	assert.Equal(t, "CAFE-PO-0001", po.PONumber)

	po = f.addProduct(t, po.ID, 10)
	require.Len(t, po.Items, 1)
	assert.True(t, po.Items[0].UnitPrice.Equal(decimal.NewFromInt(5)), "sin precio usa el costo del producto")
	assert.True(t, po.Subtotal.Equal(decimal.NewFromInt(50)))

	po, err := f.uc.SetAdjustments(ctx, f.tenant.ID, po.ID, dto.AdjustmentsRequest{
		Tax:      decimal.RequireFromString("9.50"),
		Discount: decimal.RequireFromString("4.50"),
	})
	require.NoError(t, err)
	assert.True(t, po.Total.Equal(decimal.NewFromInt(55)))

	po, err = f.uc.MarkReady(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReadyToOrder, po.Status)

	po, err = f.uc.Submit(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusPending, po.Status)

	po, err = f.uc.Approve(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	po, err = f.uc.MarkOrdered(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusOrdered, po.Status)

	itemID := po.Items[0].ID
	po, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: itemID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusPartial, po.Status)
	assert.Equal(t, int64(4), f.stock(t, entity.ProductSubject(f.product.ID)))

	po, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: itemID, Quantity: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReceived, po.Status)
	assert.Equal(t, int64(10), f.stock(t, entity.ProductSubject(f.product.ID)))

	purchase := entity.MovementPurchase
	movs, err := f.store.Movements().List(ctx, repository.MovementFilter{TenantID: f.tenant.ID, Type: &purchase})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, po.PONumber, movs[0].Reference)

	_, err = f.uc.Cancel(ctx, f.tenant.ID, po.ID, f.actor)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	for _, action := range []entity.AuditAction{
		entity.AuditDraftCreated, entity.AuditItemAdded, entity.AuditReadyToOrder, entity.AuditPOSubmitted,
		entity.AuditPOApproved, entity.AuditPOOrdered,
	} {
		logs, err := f.audit.List(ctx, repository.AuditFilter{TenantID: f.tenant.ID, PurchaseOrderID: &po.ID, Action: &action})
		require.NoError(t, err)
		assert.Len(t, logs, 1, action)
	}
	received := entity.AuditPOReceived
	logs, err := f.audit.List(ctx, repository.AuditFilter{TenantID: f.tenant.ID, Action: &received})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestPurchaseOrder_WithoutSupplierNeedsOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	po := f.draft(t, nil)
	assert.Equal(t, entity.POStatusPendingSupplier, po.Status)
	po = f.addProduct(t, po.ID, 3)
	assert.Equal(t, entity.POStatusPendingSupplier, po.Status)

	_, err := f.uc.MarkReady(ctx, f.tenant.ID, po.ID, f.actor)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.Submit(ctx, f.tenant.ID, po.ID, f.actor)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	po, err = f.uc.AssignSupplier(ctx, f.tenant.ID, po.ID, f.actor, dto.AssignSupplierRequest{SupplierID: f.supplier.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusDraft, po.Status)

	_, err = f.uc.AssignSupplier(ctx, f.tenant.ID, po.ID, f.actor, dto.AssignSupplierRequest{SupplierID: 9999})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPurchaseOrder_LineSupplierCompletesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.draft(t, nil)
	po = f.addProduct(t, po.ID, 3)

	itemID := po.Items[0].ID
	po, err := f.uc.AssignSupplier(ctx, f.tenant.ID, po.ID, f.actor, dto.AssignSupplierRequest{SupplierID: f.supplier.ID, ItemID: &itemID})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusDraft, po.Status)
	assert.Nil(t, po.SupplierID)
	require.NotNil(t, po.Items[0].SupplierID)
}

func TestPurchaseOrder_OneOpenDraftPerSupplier(t *testing.T) {
	f := newFixture(t)
	f.draft(t, &f.supplier.ID)

	_, err := f.uc.Create(context.Background(), f.tenant.ID, f.outlet.ID, f.actor, dto.CreatePurchaseOrderRequest{SupplierID: &f.supplier.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPurchaseOrder_SupplierCostPreferred(t *testing.T) {
	f := newFixture(t)
	cost := decimal.RequireFromString("4.25")
	f.store.AddProductSupplier(entity.ProductSupplier{
		TenantID: f.tenant.ID, ProductID: f.product.ID, SupplierID: f.supplier.ID, UnitCost: &cost, IsActive: true,
	})
	po := f.draft(t, &f.supplier.ID)
	po = f.addProduct(t, po.ID, 2)
	assert.True(t, po.Items[0].UnitPrice.Equal(cost))
}

func TestPurchaseOrder_EditingRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.draft(t, &f.supplier.ID)
	po = f.addProduct(t, po.ID, 2)
	itemID := po.Items[0].ID

	po, err := f.uc.UpdateItemQuantity(ctx, f.tenant.ID, po.ID, itemID, f.actor, 8)
	require.NoError(t, err)
	assert.True(t, po.Subtotal.Equal(decimal.NewFromInt(40)))

	_, err = f.uc.AddItem(ctx, f.tenant.ID, po.ID, f.actor, dto.AddPurchaseOrderItemRequest{ProductID: &f.product.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = f.uc.SetAdjustments(ctx, f.tenant.ID, po.ID, dto.AdjustmentsRequest{Discount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.submit(t, po.ID)
	_, err = f.uc.UpdateItemQuantity(ctx, f.tenant.ID, po.ID, itemID, f.actor, 9)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.uc.RemoveItem(ctx, f.tenant.ID, po.ID, itemID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.uc.Get(ctx, f.tenant.ID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusPending, got.Status)
}

func TestPurchaseOrder_RemoveLastItemWithoutSupplier(t *testing.T) {
	f := newFixture(t)
	po := f.draft(t, nil)
	po = f.addProduct(t, po.ID, 2)

	po, err := f.uc.RemoveItem(context.Background(), f.tenant.ID, po.ID, po.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, po.Items)
	assert.True(t, po.Total.IsZero())
	assert.Equal(t, entity.POStatusPendingSupplier, po.Status)
}

func TestSubmit_MinimumOrderValueAndAutoApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.settings.Update(ctx, f.tenant.ID, dto.AutoPOSettingsRequest{
		AutoPOEnabled:          true,
		DefaultReorderQuantity: 10,
		AutoApprovePO:          true,
		MinimumOrderValue:      decimal.NewFromInt(100),
		GroupBySupplier:        true,
	})
	require.NoError(t, err)

	small := f.draft(t, &f.supplier.ID)
	f.addProduct(t, small.ID, 10) // 50 < 100
	_, err = f.uc.MarkReady(ctx, f.tenant.ID, small.ID, f.actor)
	require.NoError(t, err)
	_, err = f.uc.Submit(ctx, f.tenant.ID, small.ID, f.actor)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	got, err := f.uc.Get(ctx, f.tenant.ID, small.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReadyToOrder, got.Status)

	// ready_to_order ya no bloquea un borrador nuevo del mismo proveedor
	po := f.draft(t, &f.supplier.ID)
	f.addProduct(t, po.ID, 20)
	po = f.submit(t, po.ID)
	assert.Equal(t, entity.POStatusApproved, po.Status)
}

func TestSubmit_FromDraftRequiresReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.draft(t, &f.supplier.ID)
	f.addProduct(t, po.ID, 3)

	_, err := f.uc.Submit(ctx, f.tenant.ID, po.ID, f.actor)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	got, err := f.uc.Get(ctx, f.tenant.ID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusDraft, got.Status)

	po = f.submit(t, po.ID)
	assert.Equal(t, entity.POStatusPending, po.Status)
}

func TestReceive_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.draft(t, &f.supplier.ID)
	draft = f.addProduct(t, draft.ID, 5)
	_, err := f.uc.Receive(ctx, f.tenant.ID, draft.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: draft.Items[0].ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	f.submit(t, draft.ID)
	po, err := f.uc.Approve(ctx, f.tenant.ID, draft.ID, f.actor)
	require.NoError(t, err)

	_, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 6}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(0), f.stock(t, entity.ProductSubject(f.product.ID)))

	_, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// recibir directo desde approved completa la orden
	po, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReceived, po.Status)
}

func TestReceive_UpdatesWeightedAverageCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.SetStock(f.tenant.ID, entity.ProductSubject(f.product.ID), f.product.ID, f.outlet.ID, 10)

	po := f.draft(t, &f.supplier.ID)
	price := decimal.NewFromInt(15)
	po, err := f.uc.AddItem(ctx, f.tenant.ID, po.ID, f.actor, dto.AddPurchaseOrderItemRequest{
		ProductID: &f.product.ID, Quantity: 10, UnitPrice: &price,
	})
	require.NoError(t, err)
	f.submit(t, po.ID)
	po, err = f.uc.Approve(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)

	_, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 10}},
	})
	require.NoError(t, err)

	p, err := f.store.Catalog().GetProduct(ctx, f.tenant.ID, f.product.ID)
	require.NoError(t, err)
	// (10 * 5 + 10 * 15) / 20
	assert.True(t, p.Cost.Equal(decimal.NewFromInt(10)), "costo: %s", p.Cost)
	assert.Equal(t, int64(20), f.stock(t, entity.ProductSubject(f.product.ID)))
}

func TestReceive_CreatesBatchForVariation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.AddVariation(entity.Variation{TenantID: f.tenant.ID, ProductID: f.product.ID, SKU: "CAF-1K-D", Name: "Descafeinado"})

	po := f.draft(t, &f.supplier.ID)
	price := decimal.RequireFromString("6.40")
	po, err := f.uc.AddItem(ctx, f.tenant.ID, po.ID, f.actor, dto.AddPurchaseOrderItemRequest{
		VariationID: &v.ID, Quantity: 12, UnitPrice: &price,
	})
	require.NoError(t, err)
	f.submit(t, po.ID)
	po, err = f.uc.Approve(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)

	_, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 12, BatchNumber: "TOST-0310", ExpiryDate: "2026-09-10"}},
	})
	require.NoError(t, err)

	batches, err := f.store.Batches().ListByStock(ctx, f.tenant.ID, v.ID, f.outlet.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "TOST-0310", batches[0].BatchNumber)
	assert.Equal(t, int64(12), batches[0].Quantity)
	require.NotNil(t, batches[0].CostPrice)
	assert.True(t, batches[0].CostPrice.Equal(price))
	assert.Equal(t, int64(12), f.stock(t, entity.VariationSubject(v.ID)))

	_, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 1, BatchNumber: "X"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "lote sin vencimiento")
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.approved(t, 4)

	po, err := f.uc.Cancel(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusCancelled, po.Status)

	_, err = f.uc.Approve(ctx, f.tenant.ID, po.ID, f.actor)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// cancelada deja libre el borrador del proveedor
	f.draft(t, &f.supplier.ID)
}

func TestCancel_PartialKeepsReceivedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.approved(t, 4)
	po, err := f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, entity.POStatusPartial, po.Status)

	po, err = f.uc.Cancel(ctx, f.tenant.ID, po.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusCancelled, po.Status)
	assert.Equal(t, int64(1), po.Items[0].ReceivedQuantity)

	// lo recibido sigue en el ledger y en el stock
	purchase := entity.MovementPurchase
	movs, err := f.store.Movements().List(ctx, repository.MovementFilter{TenantID: f.tenant.ID, Type: &purchase})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, po.PONumber, movs[0].Reference)
	assert.Equal(t, int64(1), f.stock(t, entity.ProductSubject(f.product.ID)))

	_, err = f.uc.Receive(ctx, f.tenant.ID, po.ID, f.actor, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestList_FiltersAndValidatesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approved(t, 1)
	f.draft(t, nil)

	draft := entity.POStatusPendingSupplier
	pos, err := f.uc.List(ctx, repository.PurchaseOrderFilter{TenantID: f.tenant.ID, Status: &draft})
	require.NoError(t, err)
	assert.Len(t, pos, 1)

	all, err := f.uc.List(ctx, repository.PurchaseOrderFilter{TenantID: f.tenant.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bogus := entity.POStatus("shipped")
	_, err = f.uc.List(ctx, repository.PurchaseOrderFilter{TenantID: f.tenant.ID, Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Get(ctx, f.tenant.ID, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
