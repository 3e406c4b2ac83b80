package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

func TestSale_ConsumesBatchesFEFO(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	subject := entity.VariationSubject(v.ID)
	late := f.batch(v, f.outlet.ID, "L-TARDE", 30, 10)
	early := f.batch(v, f.outlet.ID, "L-PRONTO", 3, 4)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 14)

	f.record(t, subject, entity.MovementSale, 6)

	q, err := f.batches.Quantities(context.Background(), f.tenant.ID, v.ID, f.outlet.ID)
	require.NoError(t, err)
	require.Len(t, q.Batches, 2)
	assert.Equal(t, early.ID, q.Batches[0].ID)
	assert.Equal(t, int64(0), q.Batches[0].Quantity)
	assert.Equal(t, late.ID, q.Batches[1].ID)
	assert.Equal(t, int64(8), q.Batches[1].Quantity)
	assert.Equal(t, int64(8), q.Sellable)
	assert.Equal(t, int64(8), f.quantity(t, subject, f.outlet.ID))
}

func TestSale_ExpiredBatchNotSellable(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	subject := entity.VariationSubject(v.ID)
	f.batch(v, f.outlet.ID, "L-VENCIDO", -1, 5)
	f.batch(v, f.outlet.ID, "L-HOY", 0, 2)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 2)

	_, err := f.ledger.Record(context.Background(), inventory.RecordInput{
		TenantID: f.tenant.ID, OutletID: f.outlet.ID, Subject: subject,
		Type: entity.MovementSale, Quantity: 3,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// el día del vencimiento todavía se vende
	f.record(t, subject, entity.MovementSale, 2)

	q, err := f.batches.Quantities(context.Background(), f.tenant.ID, v.ID, f.outlet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.Sellable)
	assert.Equal(t, int64(5), q.Total)
	assert.True(t, q.Batches[0].Expired)
}

func TestExpiryWriteOff_UsesExpiredBatches(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	subject := entity.VariationSubject(v.ID)
	f.batch(v, f.outlet.ID, "L-VENCIDO", -2, 5)
	f.batch(v, f.outlet.ID, "L-VIGENTE", 20, 3)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 3)

	f.record(t, subject, entity.MovementExpiry, 5)

	q, err := f.batches.Quantities(context.Background(), f.tenant.ID, v.ID, f.outlet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), q.Total)
	assert.Equal(t, int64(3), q.Sellable)
	assert.Equal(t, int64(3), f.quantity(t, subject, f.outlet.ID))
}

func TestIncrease_GoesToFreshestBatch(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	subject := entity.VariationSubject(v.ID)
	f.batch(v, f.outlet.ID, "L-1", 5, 1)
	fresh := f.batch(v, f.outlet.ID, "L-2", 60, 1)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 2)

	f.record(t, subject, entity.MovementReturn, 4)

	q, err := f.batches.Quantities(context.Background(), f.tenant.ID, v.ID, f.outlet.ID)
	require.NoError(t, err)
	require.Len(t, q.Batches, 2)
	assert.Equal(t, fresh.ID, q.Batches[1].ID)
	assert.Equal(t, int64(5), q.Batches[1].Quantity)
	assert.Equal(t, int64(6), f.quantity(t, subject, f.outlet.ID))
}

func TestReceive_CreatesBatchAndPurchase(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	cost := decimal.RequireFromString("2.50")

	b, mov, err := f.batches.Receive(context.Background(), inventory.ReceiveInput{
		TenantID: f.tenant.ID, OutletID: f.outlet.ID, VariationID: v.ID,
		BatchNumber: " LOT-77 ", ExpiryDate: testNow.AddDate(0, 2, 0), Quantity: 24, CostPrice: &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, "LOT-77", b.BatchNumber)
	assert.Equal(t, int64(24), b.Quantity)
	assert.Equal(t, entity.MovementPurchase, mov.Type)
	require.NotNil(t, mov.BatchID)
	assert.Equal(t, b.ID, *mov.BatchID)
	assert.Equal(t, int64(24), f.quantity(t, entity.VariationSubject(v.ID), f.outlet.ID))
}

func TestReceive_DuplicateBatchNumber(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	in := inventory.ReceiveInput{
		TenantID: f.tenant.ID, OutletID: f.outlet.ID, VariationID: v.ID,
		BatchNumber: "LOT-1", ExpiryDate: testNow.AddDate(0, 1, 0), Quantity: 5,
	}
	_, _, err := f.batches.Receive(context.Background(), in)
	require.NoError(t, err)

	_, _, err = f.batches.Receive(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, int64(5), f.quantity(t, entity.VariationSubject(v.ID), f.outlet.ID))

	// el mismo número en otro outlet es otro lote
	in.OutletID = f.outlet2.ID
	_, _, err = f.batches.Receive(context.Background(), in)
	assert.NoError(t, err)
}

func TestReceive_ConvertsLooseStockFirst(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	subject := entity.VariationSubject(v.ID)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 7)

	_, _, err := f.batches.Receive(context.Background(), inventory.ReceiveInput{
		TenantID: f.tenant.ID, OutletID: f.outlet.ID, VariationID: v.ID,
		BatchNumber: "LOT-NUEVO", ExpiryDate: testNow.AddDate(0, 0, 10), Quantity: 3,
	})
	require.NoError(t, err)

	q, err := f.batches.Quantities(context.Background(), f.tenant.ID, v.ID, f.outlet.ID)
	require.NoError(t, err)
	require.Len(t, q.Batches, 2)
	assert.Equal(t, "LOT-NUEVO", q.Batches[0].BatchNumber)
	assert.Contains(t, q.Batches[1].BatchNumber, "INIT-")
	assert.Equal(t, int64(7), q.Batches[1].Quantity)
	assert.Equal(t, int64(10), f.quantity(t, subject, f.outlet.ID))
}

func TestReceive_Validation(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	_, _, err := f.batches.Receive(context.Background(), inventory.ReceiveInput{
		TenantID: f.tenant.ID, OutletID: f.outlet.ID, VariationID: v.ID, Quantity: 1,
		ExpiryDate: testNow,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListExpiring(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	f.batch(v, f.outlet.ID, "L-3D", 3, 2)
	f.batch(v, f.outlet.ID, "L-90D", 90, 2)
	f.batch(v, f.outlet2.ID, "L-1D", 1, 2)

	all, err := f.batches.ListExpiring(context.Background(), f.tenant.ID, nil, 7)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "L-1D", all[0].BatchNumber)
	assert.Equal(t, 1, all[0].DaysUntilExpiry)

	outlet := f.outlet.ID
	one, err := f.batches.ListExpiring(context.Background(), f.tenant.ID, &outlet, 7)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "L-3D", one[0].BatchNumber)

	_, err = f.batches.ListExpiring(context.Background(), f.tenant.ID, nil, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResync_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	subject := entity.VariationSubject(v.ID)
	f.batch(v, f.outlet.ID, "L-1", 10, 6)
	f.batch(v, f.outlet.ID, "L-OLD", -3, 4)
	f.store.SetStock(f.tenant.ID, subject, v.ProductID, f.outlet.ID, 10)

	changed, err := f.stock.Resync(context.Background(), f.tenant.ID, subject, f.outlet.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(6), f.quantity(t, subject, f.outlet.ID))

	changed, err = f.stock.Resync(context.Background(), f.tenant.ID, subject, f.outlet.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Decreased())
}

func TestResync_LooseStockUntouched(t *testing.T) {
	f := newFixture(t)
	p := f.product(0, "0")
	subject := entity.ProductSubject(p.ID)
	f.store.SetStock(f.tenant.ID, subject, p.ID, f.outlet.ID, 9)

	changed, err := f.stock.Resync(context.Background(), f.tenant.ID, subject, f.outlet.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(9), f.quantity(t, subject, f.outlet.ID))
}

func TestResyncAll(t *testing.T) {
	f := newFixture(t)
	a := f.variation(f.product(0, "0"))
	b := f.variation(f.product(0, "0"))
	f.batch(a, f.outlet.ID, "A-1", 10, 5)
	f.batch(b, f.outlet2.ID, "B-1", 10, 3)
	f.store.SetStock(f.tenant.ID, entity.VariationSubject(a.ID), a.ProductID, f.outlet.ID, 5)

	out, err := f.stock.ResyncAll(context.Background(), f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 1, out.Changed)
	assert.Equal(t, int64(3), f.quantity(t, entity.VariationSubject(b.ID), f.outlet2.ID))
}

func TestMigrateInitialBatches_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	loose := f.variation(f.product(0, "4"))
	tracked := f.variation(f.product(0, "0"))
	f.store.SetStock(f.tenant.ID, entity.VariationSubject(loose.ID), loose.ProductID, f.outlet.ID, 12)
	f.batch(tracked, f.outlet.ID, "T-1", 10, 2)
	f.store.SetStock(f.tenant.ID, entity.VariationSubject(tracked.ID), tracked.ProductID, f.outlet.ID, 2)

	rep, err := f.stock.MigrateInitialBatches(context.Background(), f.tenant.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)

	q, err := f.batches.Quantities(context.Background(), f.tenant.ID, loose.ID, f.outlet.ID)
	require.NoError(t, err)
	require.Len(t, q.Batches, 1)
	assert.Equal(t, int64(12), q.Batches[0].Quantity)
	assert.Equal(t, 30, q.Batches[0].DaysUntilExpiry)
	require.NotNil(t, q.Batches[0].CostPrice)
	assert.True(t, q.Batches[0].CostPrice.Equal(decimal.NewFromInt(4)))

	rep, err = f.stock.MigrateInitialBatches(context.Background(), f.tenant.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Created)
	assert.Equal(t, int64(12), f.quantity(t, entity.VariationSubject(loose.ID), f.outlet.ID))
}

func TestConsume_ResyncsCache(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	f.batch(v, f.outlet.ID, "C-1", 5, 4)
	f.store.SetStock(f.tenant.ID, entity.VariationSubject(v.ID), v.ProductID, f.outlet.ID, 4)

	plan, err := f.batches.Consume(context.Background(), f.tenant.ID, v.ID, f.outlet.ID, 3)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, int64(3), plan[0].Quantity)
	assert.Equal(t, int64(1), f.quantity(t, entity.VariationSubject(v.ID), f.outlet.ID))

	_, err = f.batches.Consume(context.Background(), f.tenant.ID, v.ID, f.outlet.ID, 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestStockGet(t *testing.T) {
	f := newFixture(t)
	v := f.variation(f.product(0, "0"))
	f.batch(v, f.outlet.ID, "G-1", 5, 4)
	f.store.SetStock(f.tenant.ID, entity.VariationSubject(v.ID), v.ProductID, f.outlet.ID, 4)

	got, err := f.stock.Get(context.Background(), f.tenant.ID, entity.VariationSubject(v.ID), f.outlet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Quantity)
	assert.Equal(t, v.ProductID, got.ProductID)
	assert.True(t, got.BatchTracked)

	_, err = f.stock.Get(context.Background(), f.tenant.ID, entity.VariationSubject(9999), f.outlet.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
