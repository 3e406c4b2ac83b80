package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra con sus líneas. Replica las restricciones de la base:
// número único por tenant y un solo borrador abierto por (tenant, proveedor, outlet).
type PurchaseOrderRepo struct {
	s    *Store
	inTx bool
}

func (r *PurchaseOrderRepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	return r.s.write(r.inTx, func(d *data) error {
		for _, other := range d.orders {
			if other.TenantID == po.TenantID && other.PONumber == po.PONumber {
				return fmt.Errorf("orden %s: %w", po.PONumber, domain.ErrDuplicate)
			}
		}
		if err := checkOpenDraft(d, po, 0); err != nil {
			return err
		}
		po.ID = d.nextID()
		now := r.s.now()
		po.CreatedAt, po.UpdatedAt = now, now
		header := *po
		header.Items = nil
		d.orders[po.ID] = header
		for _, it := range po.Items {
			it.PurchaseOrderID = po.ID
			it.ID = d.nextID()
			d.orderItems[it.ID] = *it
		}
		return nil
	})
}

func (r *PurchaseOrderRepo) Update(_ context.Context, po *entity.PurchaseOrder) error {
	return r.s.write(r.inTx, func(d *data) error {
		if _, ok := d.orders[po.ID]; !ok {
			return fmt.Errorf("orden %d: %w", po.ID, domain.ErrNotFound)
		}
		if err := checkOpenDraft(d, po, po.ID); err != nil {
			return err
		}
		header := *po
		header.Items = nil
		header.UpdatedAt = r.s.now()
		d.orders[po.ID] = header
		return nil
	})
}

// checkOpenDraft índice único parcial de borradores abiertos.
func checkOpenDraft(d *data, po *entity.PurchaseOrder, self int64) error {
	if !po.Status.IsEditable() {
		return nil
	}
	for id, other := range d.orders {
		if id == self || other.TenantID != po.TenantID || other.OutletID != po.OutletID || !other.Status.IsEditable() {
			continue
		}
		if sameSupplier(other.SupplierID, po.SupplierID) {
			return fmt.Errorf("borrador abierto %s: %w", other.PONumber, domain.ErrConflict)
		}
	}
	return nil
}

func (r *PurchaseOrderRepo) GetByID(_ context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	r.s.read(r.inTx, func(d *data) {
		if po, ok := d.orders[poID]; ok && po.TenantID == tenantID {
			out = assemble(d, po)
		}
	})
	return out, nil
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error) {
	return r.GetByID(ctx, tenantID, poID)
}

func (r *PurchaseOrderRepo) FindOpenDraftForUpdate(_ context.Context, tenantID int64, supplierID *int64, outletID int64) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	r.s.read(r.inTx, func(d *data) {
		for _, po := range sortedOrders(d) {
			if po.TenantID == tenantID && po.OutletID == outletID && po.Status.IsEditable() && sameSupplier(po.SupplierID, supplierID) {
				out = assemble(d, po)
				return
			}
		}
	})
	return out, nil
}

func (r *PurchaseOrderRepo) FindInFlightLine(_ context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*repository.InFlightLine, error) {
	var out *repository.InFlightLine
	r.s.read(r.inTx, func(d *data) {
		for _, po := range sortedOrders(d) {
			if po.TenantID != tenantID || po.OutletID != outletID || !po.Status.IsOpen() || po.Status.IsEditable() {
				continue
			}
			for _, it := range itemsOf(d, po.ID) {
				if it.Subject() == subject {
					out = &repository.InFlightLine{
						PurchaseOrderID: po.ID,
						PONumber:        po.PONumber,
						Status:          po.Status,
						ItemID:          it.ID,
						Quantity:        it.Quantity,
					}
					return
				}
			}
		}
	})
	return out, nil
}

func (r *PurchaseOrderRepo) CreateItem(_ context.Context, it *entity.PurchaseOrderItem) error {
	return r.s.write(r.inTx, func(d *data) error {
		if _, ok := d.orders[it.PurchaseOrderID]; !ok {
			return fmt.Errorf("orden %d: %w", it.PurchaseOrderID, domain.ErrNotFound)
		}
		for _, other := range itemsOf(d, it.PurchaseOrderID) {
			if other.Subject() == it.Subject() && sameSupplier(other.SupplierID, it.SupplierID) {
				return fmt.Errorf("línea %s: %w", it.Subject(), domain.ErrDuplicate)
			}
		}
		it.ID = d.nextID()
		d.orderItems[it.ID] = *it
		return nil
	})
}

func (r *PurchaseOrderRepo) UpdateItem(_ context.Context, it *entity.PurchaseOrderItem) error {
	return r.s.write(r.inTx, func(d *data) error {
		if _, ok := d.orderItems[it.ID]; !ok {
			return fmt.Errorf("línea %d: %w", it.ID, domain.ErrNotFound)
		}
		d.orderItems[it.ID] = *it
		return nil
	})
}

func (r *PurchaseOrderRepo) DeleteItem(_ context.Context, poID, itemID int64) error {
	return r.s.write(r.inTx, func(d *data) error {
		it, ok := d.orderItems[itemID]
		if !ok || it.PurchaseOrderID != poID {
			return fmt.Errorf("línea %d: %w", itemID, domain.ErrNotFound)
		}
		delete(d.orderItems, itemID)
		return nil
	})
}

func (r *PurchaseOrderRepo) NextSequence(_ context.Context, tenantID int64) (int64, error) {
	var seq int64
	err := r.s.write(r.inTx, func(d *data) error {
		d.poSequences[tenantID]++
		seq = d.poSequences[tenantID]
		return nil
	})
	return seq, err
}

func (r *PurchaseOrderRepo) List(_ context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	var out []*entity.PurchaseOrder
	r.s.read(r.inTx, func(d *data) {
		orders := sortedOrders(d)
		for i := len(orders) - 1; i >= 0; i-- {
			po := orders[i]
			if po.TenantID != f.TenantID ||
				(f.OutletID != nil && po.OutletID != *f.OutletID) ||
				(f.SupplierID != nil && (po.SupplierID == nil || *po.SupplierID != *f.SupplierID)) ||
				(f.Status != nil && po.Status != *f.Status) ||
				(f.IsAutoGenerated != nil && po.IsAutoGenerated != *f.IsAutoGenerated) {
				continue
			}
			out = append(out, assemble(d, po))
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func sortedOrders(d *data) []entity.PurchaseOrder {
	out := make([]entity.PurchaseOrder, 0, len(d.orders))
	for _, po := range d.orders {
		out = append(out, po)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func itemsOf(d *data, poID int64) []*entity.PurchaseOrderItem {
	var out []*entity.PurchaseOrderItem
	for _, it := range d.orderItems {
		if it.PurchaseOrderID == poID {
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// assemble copia de la cabecera con copias de sus líneas.
func assemble(d *data, po entity.PurchaseOrder) *entity.PurchaseOrder {
	po.Items = itemsOf(d, po.ID)
	return &po
}

func sameSupplier(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
