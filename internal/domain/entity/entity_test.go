package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/domain"
)

func i64(v int64) *int64 { return &v }

func TestStockSubject(t *testing.T) {
	s, ok := SubjectFromIDs(i64(1), i64(5))
	require.True(t, ok)
	assert.Equal(t, VariationSubject(5), s)
	s, ok = SubjectFromIDs(i64(1), nil)
	require.True(t, ok)
	assert.Equal(t, "product:1", s.Key())
	_, ok = SubjectFromIDs(nil, nil)
	assert.False(t, ok)

	r := ResolvedSubject{
		Product:   &Product{ID: 1, Name: "Café", LowStockThreshold: 10},
		Variation: &Variation{ID: 5, ProductID: 1, Name: "500g"},
	}
	assert.Equal(t, int64(10), r.Threshold(), "la variación sin umbral hereda el del producto")
	r.Variation.LowStockThreshold = 4
	assert.Equal(t, int64(4), r.Threshold())
	assert.Equal(t, "Café / 500g", r.Name())
	assert.Equal(t, int64(5), *r.VariationID())
}

func TestMovementDelta(t *testing.T) {
	m := &StockMovement{Type: MovementSale, Quantity: 3}
	assert.Equal(t, int64(-3), m.Delta())
	m = &StockMovement{Type: MovementAdjustment, Quantity: 3}
	assert.Equal(t, int64(3), m.Delta())
	m.Decrease = true
	assert.Equal(t, int64(-3), m.Delta())
	assert.False(t, MovementType("gift").Valid())
}

func TestLocationStockApplyClamps(t *testing.T) {
	ls := &LocationStock{Quantity: 2}
	assert.True(t, ls.Apply(-5))
	assert.Equal(t, int64(0), ls.Quantity)
	assert.False(t, ls.Apply(4))
	assert.Equal(t, int64(4), ls.Quantity)
}

func TestBatchExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)
	b := &Batch{ExpiryDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Quantity: 1}
	assert.False(t, b.IsExpired(now), "vence hoy: aún vendible")
	assert.True(t, b.Sellable(now))
	assert.True(t, b.IsExpired(now.AddDate(0, 0, 1)))
	assert.Equal(t, 3, (&Batch{ExpiryDate: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)}).DaysUntilExpiry(now))
}

func TestDateOf_UsesUTCCalendarDay(t *testing.T) {
	cot := time.FixedZone("COT", -5*3600)
	// 21:00 en Bogotá ya es el día siguiente en UTC
	local := time.Date(2026, 5, 1, 21, 0, 0, 0, cot)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), DateOf(local))
	assert.Equal(t, DateOf(local.UTC()), DateOf(local))

	b := &Batch{ExpiryDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Quantity: 1}
	assert.True(t, b.IsExpired(local), "el mismo instante vence igual en cualquier zona")
	assert.Equal(t, -1, b.DaysUntilExpiry(local))

	// una fecha de vencimiento con zona se normaliza al mismo día UTC
	tz := &Batch{ExpiryDate: time.Date(2026, 5, 3, 22, 0, 0, 0, cot), Quantity: 1}
	assert.Equal(t, 2, tz.DaysUntilExpiry(local))
}

func newPO() *PurchaseOrder {
	po := NewPurchaseOrder(1, 2, i64(9), time.Now())
	po.PONumber = "ACME-PO-0001"
	return po
}

func TestPurchaseOrder_TotalsInvariant(t *testing.T) {
	po := newPO()
	require.NoError(t, po.AddItem(&PurchaseOrderItem{ID: 1, ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("2.50")}))
	require.NoError(t, po.AddItem(&PurchaseOrderItem{ID: 2, ProductID: 2, VariationID: i64(7), Quantity: 2, UnitPrice: decimal.NewFromInt(4)}))
	require.NoError(t, po.SetAdjustments(decimal.NewFromInt(3), decimal.NewFromInt(1)))

	assert.Equal(t, "15.5", po.Subtotal.String())
	assert.Equal(t, "17.5", po.Total.String())

	_, err := po.UpdateItemQuantity(1, 10)
	require.NoError(t, err)
	assert.Equal(t, "33", po.Subtotal.String())
	assert.True(t, po.Total.Equal(po.Subtotal.Add(po.Tax).Sub(po.Discount)))

	require.NoError(t, po.RemoveItem(2))
	assert.Equal(t, "25", po.Subtotal.String())

	err = po.SetAdjustments(decimal.Zero, decimal.NewFromInt(1000))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.True(t, po.Discount.IsZero())
}

func TestPurchaseOrder_ItemUniquePerSubjectAndSupplier(t *testing.T) {
	po := newPO()
	require.NoError(t, po.AddItem(&PurchaseOrderItem{ProductID: 1, VariationID: i64(7), Quantity: 1}))
	err := po.AddItem(&PurchaseOrderItem{ProductID: 1, VariationID: i64(7), Quantity: 2})
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
	// otro proveedor en la línea: permitido
	require.NoError(t, po.AddItem(&PurchaseOrderItem{ProductID: 1, VariationID: i64(7), SupplierID: i64(3), Quantity: 2}))
	assert.Len(t, po.Items, 2)
	assert.True(t, errors.Is(po.AddItem(&PurchaseOrderItem{ProductID: 3, Quantity: 0}), domain.ErrInvalidInput))
}

func TestPurchaseOrder_PendingSupplierAndLifecycle(t *testing.T) {
	po := NewPurchaseOrder(1, 2, nil, time.Now())
	assert.Equal(t, POStatusPendingSupplier, po.Status)
	require.NoError(t, po.AddItem(&PurchaseOrderItem{ID: 1, ProductID: 1, Quantity: 4, UnitPrice: decimal.NewFromInt(5)}))
	assert.Equal(t, POStatusPendingSupplier, po.Status)
	assert.Error(t, po.Submit(decimal.Zero))

	require.NoError(t, po.AssignSupplier(9, i64(1)))
	assert.Equal(t, POStatusDraft, po.Status)

	err := po.Submit(decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "draft no se envía sin pasar por ready_to_order")
	assert.Equal(t, POStatusDraft, po.Status)
	require.NoError(t, po.MarkReady())
	assert.Equal(t, POStatusReadyToOrder, po.Status)

	err = po.Submit(decimal.NewFromInt(100))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "mínimo de orden")
	assert.Equal(t, POStatusReadyToOrder, po.Status)
	require.NoError(t, po.Submit(decimal.NewFromInt(20)))
	assert.Equal(t, POStatusPending, po.Status)
	assert.True(t, errors.Is(po.AddItem(&PurchaseOrderItem{ProductID: 2, Quantity: 1}), domain.ErrInvalidTransition))

	_, err = po.Receive(1, 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "pending no recibe")
	require.NoError(t, po.TransitionTo(POStatusApproved))
	require.NoError(t, po.TransitionTo(POStatusOrdered))

	_, err = po.Receive(1, 1)
	require.NoError(t, err)
	assert.Equal(t, POStatusPartial, po.Status)
	_, err = po.Receive(1, 9)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = po.Receive(1, 3)
	require.NoError(t, err)
	assert.Equal(t, POStatusReceived, po.Status)
	assert.True(t, errors.Is(po.TransitionTo(POStatusDraft), domain.ErrInvalidTransition))
	assert.True(t, errors.Is(po.Cancel(), domain.ErrInvalidTransition), "received es terminal")
}

func TestPurchaseOrder_CancelPartialKeepsReceived(t *testing.T) {
	po := NewPurchaseOrder(1, 2, i64(9), time.Now())
	require.NoError(t, po.AddItem(&PurchaseOrderItem{ID: 1, ProductID: 1, Quantity: 5, UnitPrice: decimal.NewFromInt(2)}))
	po.Status = POStatusOrdered
	_, err := po.Receive(1, 1)
	require.NoError(t, err)
	require.Equal(t, POStatusPartial, po.Status)

	require.NoError(t, po.Cancel())
	assert.Equal(t, POStatusCancelled, po.Status)
	assert.Equal(t, int64(1), po.Items[0].ReceivedQuantity)
	_, err = po.Receive(1, 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.True(t, errors.Is(po.Cancel(), domain.ErrInvalidTransition))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(POStatusDraft, POStatusReadyToOrder))
	assert.True(t, CanTransition(POStatusReadyToOrder, POStatusPending))
	assert.False(t, CanTransition(POStatusCancelled, POStatusDraft))
	assert.False(t, CanTransition(POStatusDraft, POStatusReceived))
	assert.False(t, CanTransition(POStatusDraft, POStatusPending))
	assert.True(t, CanTransition(POStatusPartial, POStatusCancelled))
}

func TestPermissionsForRole(t *testing.T) {
	assert.True(t, PermissionsForRole(RoleOwner).Has(PermManageSettings))
	assert.False(t, PermissionsForRole(RoleManager).Has(PermManageSettings))
	assert.True(t, PermissionsForRole(RoleManager).Has(PermApprovePurchaseOrders))
	assert.True(t, PermissionsForRole(RoleCashier).Has(PermRecordSale))
	assert.False(t, PermissionsForRole(RoleCashier).Has(PermAdjustStock))
	assert.True(t, PermissionsForRole(RoleStockClerk).Has(PermManageBatches))
	assert.False(t, PermissionsForRole("intruso").Has(PermViewInventory))
}
