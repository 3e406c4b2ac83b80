package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var (
	_ repository.CatalogRepository       = (*CatalogRepo)(nil)
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
	_ repository.SalesRepository         = (*MovementRepo)(nil)
	_ repository.LocationStockRepository = (*StockRepo)(nil)
	_ repository.BatchRepository         = (*BatchRepo)(nil)
	_ repository.SupplierRepository      = (*SupplierRepo)(nil)
	_ repository.TenantRepository        = (*TenantRepo)(nil)
	_ repository.SettingsRepository      = (*SettingsRepo)(nil)
	_ repository.AuditLogRepository      = (*AuditRepo)(nil)
)

// CatalogRepo productos y variaciones.
type CatalogRepo struct {
	s    *Store
	inTx bool
}

func (r *CatalogRepo) GetProduct(_ context.Context, tenantID, productID int64) (*entity.Product, error) {
	var out *entity.Product
	r.s.read(r.inTx, func(d *data) {
		if p, ok := d.products[productID]; ok && p.TenantID == tenantID {
			out = &p
		}
	})
	return out, nil
}

func (r *CatalogRepo) GetVariation(_ context.Context, tenantID, variationID int64) (*entity.Variation, error) {
	var out *entity.Variation
	r.s.read(r.inTx, func(d *data) {
		if v, ok := d.variations[variationID]; ok && v.TenantID == tenantID {
			out = &v
		}
	})
	return out, nil
}

func (r *CatalogRepo) UpdateProductCost(_ context.Context, tenantID, productID int64, cost decimal.Decimal) error {
	return r.s.write(r.inTx, func(d *data) error {
		p, ok := d.products[productID]
		if !ok || p.TenantID != tenantID {
			return fmt.Errorf("producto %d: %w", productID, domain.ErrNotFound)
		}
		p.Cost, p.UpdatedAt = cost, r.s.now()
		d.products[productID] = p
		return nil
	})
}

func (r *CatalogRepo) UpdateVariationCost(_ context.Context, tenantID, variationID int64, cost decimal.Decimal) error {
	return r.s.write(r.inTx, func(d *data) error {
		v, ok := d.variations[variationID]
		if !ok || v.TenantID != tenantID {
			return fmt.Errorf("variación %d: %w", variationID, domain.ErrNotFound)
		}
		v.Cost, v.UpdatedAt = cost, r.s.now()
		d.variations[variationID] = v
		return nil
	})
}

// ListLowStock recorre los productos con inventario controlado: las variaciones si las tiene, si no el producto.
func (r *CatalogRepo) ListLowStock(_ context.Context, tenantID, outletID int64) ([]repository.LowStockCandidate, error) {
	var out []repository.LowStockCandidate
	r.s.read(r.inTx, func(d *data) {
		byProduct := map[int64][]entity.Variation{}
		for _, v := range d.variations {
			if v.TenantID == tenantID {
				byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
			}
		}
		for _, p := range d.products {
			if p.TenantID != tenantID || !p.TrackInventory {
				continue
			}
			vars := byProduct[p.ID]
			if len(vars) == 0 {
				qty := d.stock[stockKey{tenantID, entity.ProductSubject(p.ID), outletID}].Quantity
				if domaininv.IsLowStock(qty, p.LowStockThreshold) {
					out = append(out, repository.LowStockCandidate{
						ProductID: p.ID, SKU: p.SKU, Name: p.Name, CurrentStock: qty, Threshold: p.LowStockThreshold,
					})
				}
				continue
			}
			for _, v := range vars {
				threshold := v.LowStockThreshold
				if threshold <= 0 {
					threshold = p.LowStockThreshold
				}
				qty := d.stock[stockKey{tenantID, entity.VariationSubject(v.ID), outletID}].Quantity
				if domaininv.IsLowStock(qty, threshold) {
					id := v.ID
					out = append(out, repository.LowStockCandidate{
						ProductID: p.ID, VariationID: &id, SKU: v.SKU, Name: p.Name + " " + v.Name,
						CurrentStock: qty, Threshold: threshold,
					})
				}
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return idOf(out[i].VariationID) < idOf(out[j].VariationID)
	})
	return out, nil
}

// MovementRepo ledger append-only. También responde las ventas para la velocidad de venta.
type MovementRepo struct {
	s    *Store
	inTx bool
}

func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.s.write(r.inTx, func(d *data) error {
		m.ID = d.nextID()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = r.s.now()
		}
		d.movements = append(d.movements, *m)
		return nil
	})
}

func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	r.s.read(r.inTx, func(d *data) {
		for i := len(d.movements) - 1; i >= 0; i-- {
			m := d.movements[i]
			if m.TenantID != f.TenantID ||
				(f.OutletID != nil && m.OutletID != *f.OutletID) ||
				(f.ProductID != nil && m.ProductID != *f.ProductID) ||
				(f.VariationID != nil && (m.VariationID == nil || *m.VariationID != *f.VariationID)) ||
				(f.Type != nil && m.Type != *f.Type) ||
				(f.Since != nil && m.CreatedAt.Before(*f.Since)) {
				continue
			}
			out = append(out, &m)
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

// SalesSince suma los movimientos de venta del sujeto desde since.
func (r *MovementRepo) SalesSince(_ context.Context, tenantID int64, subject entity.StockSubject, outletID *int64, since time.Time) (repository.SalesSummary, error) {
	var out repository.SalesSummary
	r.s.read(r.inTx, func(d *data) {
		for _, m := range d.movements {
			if m.TenantID != tenantID || m.Type != entity.MovementSale || m.Subject() != subject ||
				(outletID != nil && m.OutletID != *outletID) || m.CreatedAt.Before(since) {
				continue
			}
			out.Quantity += m.Quantity
			if out.LastSaleAt == nil || m.CreatedAt.After(*out.LastSaleAt) {
				at := m.CreatedAt
				out.LastSaleAt = &at
			}
		}
	})
	return out, nil
}

// StockRepo cache de stock por outlet.
type StockRepo struct {
	s    *Store
	inTx bool
}

func (r *StockRepo) Get(_ context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error) {
	var out entity.LocationStock
	r.s.read(r.inTx, func(d *data) {
		row, ok := d.stock[stockKey{tenantID, subject, outletID}]
		if ok {
			out = row
			return
		}
		out = entity.LocationStock{TenantID: tenantID, OutletID: outletID}
		if subject.IsVariation() {
			id := subject.ID
			out.VariationID = &id
			if v, ok := d.variations[subject.ID]; ok {
				out.ProductID = v.ProductID
			}
		} else {
			out.ProductID = subject.ID
		}
	})
	return &out, nil
}

// GetForUpdate igual que Get: la transacción ya tiene el store en exclusiva.
func (r *StockRepo) GetForUpdate(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error) {
	return r.Get(ctx, tenantID, subject, outletID)
}

func (r *StockRepo) Upsert(_ context.Context, s *entity.LocationStock) error {
	if s.Quantity < 0 {
		return domain.Invalid("quantity", "el stock no puede ser negativo")
	}
	return r.s.write(r.inTx, func(d *data) error {
		s.UpdatedAt = r.s.now()
		d.stock[stockKey{s.TenantID, s.Subject(), s.OutletID}] = *s
		return nil
	})
}

func (r *StockRepo) ListVariationStockWithoutBatches(_ context.Context, tenantID int64) ([]*entity.LocationStock, error) {
	var out []*entity.LocationStock
	r.s.read(r.inTx, func(d *data) {
		tracked := map[[2]int64]bool{}
		for _, b := range d.batches {
			if b.TenantID == tenantID {
				tracked[[2]int64{b.VariationID, b.OutletID}] = true
			}
		}
		for _, row := range d.stock {
			if row.TenantID != tenantID || row.VariationID == nil || row.Quantity <= 0 {
				continue
			}
			if tracked[[2]int64{*row.VariationID, row.OutletID}] {
				continue
			}
			out = append(out, &row)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if *out[i].VariationID != *out[j].VariationID {
			return *out[i].VariationID < *out[j].VariationID
		}
		return out[i].OutletID < out[j].OutletID
	})
	return out, nil
}

// BatchRepo lotes con vencimiento.
type BatchRepo struct {
	s    *Store
	inTx bool
}

func (r *BatchRepo) Create(_ context.Context, b *entity.Batch) error {
	return r.s.write(r.inTx, func(d *data) error {
		for _, other := range d.batches {
			if other.VariationID == b.VariationID && other.OutletID == b.OutletID && other.BatchNumber == b.BatchNumber {
				return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicate)
			}
		}
		b.ID = d.nextID()
		b.CreatedAt, b.UpdatedAt = r.s.now(), r.s.now()
		d.batches[b.ID] = *b
		return nil
	})
}

func (r *BatchRepo) GetByID(_ context.Context, tenantID, batchID int64) (*entity.Batch, error) {
	var out *entity.Batch
	r.s.read(r.inTx, func(d *data) {
		if b, ok := d.batches[batchID]; ok && b.TenantID == tenantID {
			out = &b
		}
	})
	return out, nil
}

func (r *BatchRepo) ListByStock(_ context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error) {
	var out []*entity.Batch
	r.s.read(r.inTx, func(d *data) {
		for _, b := range d.batches {
			if b.TenantID == tenantID && b.VariationID == variationID && b.OutletID == outletID {
				out = append(out, &b)
			}
		}
	})
	domaininv.SortFEFO(out)
	return out, nil
}

func (r *BatchRepo) ListByStockForUpdate(ctx context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error) {
	return r.ListByStock(ctx, tenantID, variationID, outletID)
}

func (r *BatchRepo) ListExpiring(_ context.Context, tenantID int64, outletID *int64, before time.Time) ([]*entity.Batch, error) {
	var out []*entity.Batch
	limit := entity.DateOf(before)
	r.s.read(r.inTx, func(d *data) {
		for _, b := range d.batches {
			if b.TenantID != tenantID || b.Quantity <= 0 || (outletID != nil && b.OutletID != *outletID) {
				continue
			}
			if entity.DateOf(b.ExpiryDate).After(limit) {
				continue
			}
			out = append(out, &b)
		}
	})
	domaininv.SortFEFO(out)
	return out, nil
}

func (r *BatchRepo) UpdateQuantity(_ context.Context, batchID, quantity int64) error {
	if quantity < 0 {
		return domain.Invalid("quantity", "el lote no puede quedar negativo")
	}
	return r.s.write(r.inTx, func(d *data) error {
		b, ok := d.batches[batchID]
		if !ok {
			return fmt.Errorf("lote %d: %w", batchID, domain.ErrNotFound)
		}
		b.Quantity, b.UpdatedAt = quantity, r.s.now()
		d.batches[batchID] = b
		return nil
	})
}

func (r *BatchRepo) ListTrackedKeys(_ context.Context, tenantID int64) ([]repository.StockKey, error) {
	var out []repository.StockKey
	r.s.read(r.inTx, func(d *data) {
		seen := map[[2]int64]bool{}
		for _, b := range d.batches {
			k := [2]int64{b.VariationID, b.OutletID}
			if b.TenantID != tenantID || seen[k] {
				continue
			}
			seen[k] = true
			vid := b.VariationID
			out = append(out, repository.StockKey{ProductID: d.variations[vid].ProductID, VariationID: &vid, OutletID: b.OutletID})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if *out[i].VariationID != *out[j].VariationID {
			return *out[i].VariationID < *out[j].VariationID
		}
		return out[i].OutletID < out[j].OutletID
	})
	return out, nil
}

// SupplierRepo proveedores y sus relaciones con productos.
type SupplierRepo struct {
	s *Store
}

func (r *SupplierRepo) GetSupplier(_ context.Context, tenantID, supplierID int64) (*entity.Supplier, error) {
	var out *entity.Supplier
	r.s.read(false, func(d *data) {
		if sp, ok := d.suppliers[supplierID]; ok && sp.TenantID == tenantID {
			out = &sp
		}
	})
	return out, nil
}

func (r *SupplierRepo) ListProductSuppliers(_ context.Context, tenantID, productID int64) ([]*entity.ProductSupplier, error) {
	var out []*entity.ProductSupplier
	r.s.read(false, func(d *data) {
		for _, ps := range d.productSuppliers {
			if ps.TenantID != tenantID || ps.ProductID != productID || !ps.IsActive {
				continue
			}
			if sp, ok := d.suppliers[ps.SupplierID]; !ok || !sp.IsActive {
				continue
			}
			out = append(out, &ps)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TenantRepo tenants y outlets.
type TenantRepo struct {
	s *Store
}

func (r *TenantRepo) GetTenant(_ context.Context, tenantID int64) (*entity.Tenant, error) {
	var out *entity.Tenant
	r.s.read(false, func(d *data) {
		if t, ok := d.tenants[tenantID]; ok {
			out = &t
		}
	})
	return out, nil
}

func (r *TenantRepo) GetOutlet(_ context.Context, tenantID, outletID int64) (*entity.Outlet, error) {
	var out *entity.Outlet
	r.s.read(false, func(d *data) {
		if o, ok := d.outlets[outletID]; ok && o.TenantID == tenantID {
			out = &o
		}
	})
	return out, nil
}

func (r *TenantRepo) ListTenantIDs(_ context.Context) ([]int64, error) {
	var out []int64
	r.s.read(false, func(d *data) {
		for id := range d.tenants {
			out = append(out, id)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SettingsRepo configuración de reposición por tenant.
type SettingsRepo struct {
	s *Store
}

func (r *SettingsRepo) Get(_ context.Context, tenantID int64) (*entity.AutoPurchaseOrderSettings, error) {
	var out *entity.AutoPurchaseOrderSettings
	r.s.read(false, func(d *data) {
		if st, ok := d.settings[tenantID]; ok {
			out = &st
		}
	})
	return out, nil
}

func (r *SettingsRepo) Upsert(_ context.Context, st *entity.AutoPurchaseOrderSettings) error {
	return r.s.write(false, func(d *data) error {
		st.UpdatedAt = r.s.now()
		d.settings[st.TenantID] = *st
		return nil
	})
}

// AuditRepo bitácora append-only.
type AuditRepo struct {
	s    *Store
	inTx bool
}

func (r *AuditRepo) Append(_ context.Context, l *entity.AutoPOAuditLog) error {
	return r.s.write(r.inTx, func(d *data) error {
		l.ID = d.nextID()
		if l.CreatedAt.IsZero() {
			l.CreatedAt = r.s.now()
		}
		d.audit = append(d.audit, *l)
		return nil
	})
}

func (r *AuditRepo) List(_ context.Context, f repository.AuditFilter) ([]*entity.AutoPOAuditLog, error) {
	var out []*entity.AutoPOAuditLog
	r.s.read(r.inTx, func(d *data) {
		for i := len(d.audit) - 1; i >= 0; i-- {
			l := d.audit[i]
			if l.TenantID != f.TenantID ||
				(f.PurchaseOrderID != nil && (l.PurchaseOrderID == nil || *l.PurchaseOrderID != *f.PurchaseOrderID)) ||
				(f.ProductID != nil && (l.ProductID == nil || *l.ProductID != *f.ProductID)) ||
				(f.VariationID != nil && (l.VariationID == nil || *l.VariationID != *f.VariationID)) ||
				(f.Action != nil && l.Action != *f.Action) {
				continue
			}
			out = append(out, &l)
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func idOf(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
