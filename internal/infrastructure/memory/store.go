// Package memory implementa todos los puertos de persistencia en memoria. Lo usan los tests de la
// capa de aplicación y el modo demo de cmd/api cuando no hay DATABASE_URL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ ports.TxRunner = (*Store)(nil)

type stockKey struct {
	tenantID int64
	subject  entity.StockSubject
	outletID int64
}

// data estado completo del store. Las entidades se guardan por valor para que snapshot() sea una copia.
type data struct {
	seq              int64
	tenants          map[int64]entity.Tenant
	outlets          map[int64]entity.Outlet
	products         map[int64]entity.Product
	variations       map[int64]entity.Variation
	suppliers        map[int64]entity.Supplier
	productSuppliers map[int64]entity.ProductSupplier
	stock            map[stockKey]entity.LocationStock
	batches          map[int64]entity.Batch
	movements        []entity.StockMovement
	orders           map[int64]entity.PurchaseOrder
	orderItems       map[int64]entity.PurchaseOrderItem
	poSequences      map[int64]int64
	audit            []entity.AutoPOAuditLog
	settings         map[int64]entity.AutoPurchaseOrderSettings
}

func newData() *data {
	return &data{
		tenants:          map[int64]entity.Tenant{},
		outlets:          map[int64]entity.Outlet{},
		products:         map[int64]entity.Product{},
		variations:       map[int64]entity.Variation{},
		suppliers:        map[int64]entity.Supplier{},
		productSuppliers: map[int64]entity.ProductSupplier{},
		stock:            map[stockKey]entity.LocationStock{},
		batches:          map[int64]entity.Batch{},
		orders:           map[int64]entity.PurchaseOrder{},
		orderItems:       map[int64]entity.PurchaseOrderItem{},
		poSequences:      map[int64]int64{},
		settings:         map[int64]entity.AutoPurchaseOrderSettings{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) snapshot() *data {
	return &data{
		seq:              d.seq,
		tenants:          copyMap(d.tenants),
		outlets:          copyMap(d.outlets),
		products:         copyMap(d.products),
		variations:       copyMap(d.variations),
		suppliers:        copyMap(d.suppliers),
		productSuppliers: copyMap(d.productSuppliers),
		stock:            copyMap(d.stock),
		batches:          copyMap(d.batches),
		movements:        append([]entity.StockMovement(nil), d.movements...),
		orders:           copyMap(d.orders),
		orderItems:       copyMap(d.orderItems),
		poSequences:      copyMap(d.poSequences),
		audit:            append([]entity.AutoPOAuditLog(nil), d.audit...),
		settings:         copyMap(d.settings),
	}
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

// Store base de datos en memoria. Las transacciones se serializan con txMu y trabajan sobre una
// copia (tx); el commit la publica y el rollback la descarta. Las lecturas fuera de transacción
// sólo ven datos confirmados. Las escrituras fuera de transacción también toman txMu.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data
	tx   *data
	now  func() time.Time
}

// NewStore store vacío.
func NewStore() *Store {
	return &Store{d: newData(), now: time.Now}
}

// WithClock reemplaza el reloj usado en created_at/updated_at (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) read(inTx bool, fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inTx {
		fn(s.tx)
		return
	}
	fn(s.d)
}

func (s *Store) write(inTx bool, fn func(d *data) error) error {
	if inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.tx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

// Run ejecuta fn en una transacción. Error o panic = rollback; los AfterCommit corren después de liberar el store.
func (s *Store) Run(ctx context.Context, fn func(uow ports.UnitOfWork) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	s.mu.Lock()
	s.tx = s.d.snapshot()
	s.mu.Unlock()

	uow := &unitOfWork{s: s}
	committed := false
	defer func() {
		s.mu.Lock()
		if committed {
			s.d = s.tx
		}
		s.tx = nil
		s.mu.Unlock()
		s.txMu.Unlock()
		if committed {
			for _, f := range uow.after {
				f()
			}
		}
	}()

	if err := fn(uow); err != nil {
		return err
	}
	committed = true
	return nil
}

type unitOfWork struct {
	s     *Store
	after []func()
}

func (u *unitOfWork) Catalog() repository.CatalogRepository { return &CatalogRepo{s: u.s, inTx: true} }
func (u *unitOfWork) Movements() repository.StockMovementRepository {
	return &MovementRepo{s: u.s, inTx: true}
}
func (u *unitOfWork) Stock() repository.LocationStockRepository { return &StockRepo{s: u.s, inTx: true} }
func (u *unitOfWork) Batches() repository.BatchRepository { return &BatchRepo{s: u.s, inTx: true} }
func (u *unitOfWork) PurchaseOrders() repository.PurchaseOrderRepository {
	return &PurchaseOrderRepo{s: u.s, inTx: true}
}
func (u *unitOfWork) Audit() repository.AuditLogRepository { return &AuditRepo{s: u.s, inTx: true} }
func (u *unitOfWork) AfterCommit(fn func()) { u.after = append(u.after, fn) }

// Repositorios fuera de transacción.

func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s} }
func (s *Store) PurchaseOrders() *PurchaseOrderRepo { return &PurchaseOrderRepo{s: s} }
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }
func (s *Store) Suppliers() *SupplierRepo { return &SupplierRepo{s: s} }
func (s *Store) Tenants() *TenantRepo { return &TenantRepo{s: s} }
func (s *Store) Settings() *SettingsRepo { return &SettingsRepo{s: s} }
func (s *Store) Sales() *MovementRepo { return &MovementRepo{s: s} }

// Datos de catálogo (seed de tests y modo demo). Asignan id si viene en 0.

// AddTenant registra un tenant.
func (s *Store) AddTenant(t entity.Tenant) entity.Tenant {
	_ = s.write(false, func(d *data) error {
		if t.ID == 0 {
			t.ID = d.nextID()
		}
		t.CreatedAt = s.now()
		d.tenants[t.ID] = t
		return nil
	})
	return t
}

// AddOutlet registra un outlet.
func (s *Store) AddOutlet(o entity.Outlet) entity.Outlet {
	_ = s.write(false, func(d *data) error {
		if o.ID == 0 {
			o.ID = d.nextID()
		}
		o.CreatedAt = s.now()
		d.outlets[o.ID] = o
		return nil
	})
	return o
}

// AddProduct registra un producto.
func (s *Store) AddProduct(p entity.Product) entity.Product {
	_ = s.write(false, func(d *data) error {
		if p.ID == 0 {
			p.ID = d.nextID()
		}
		p.CreatedAt, p.UpdatedAt = s.now(), s.now()
		d.products[p.ID] = p
		return nil
	})
	return p
}

// AddVariation registra una variación.
func (s *Store) AddVariation(v entity.Variation) entity.Variation {
	_ = s.write(false, func(d *data) error {
		if v.ID == 0 {
			v.ID = d.nextID()
		}
		v.CreatedAt, v.UpdatedAt = s.now(), s.now()
		d.variations[v.ID] = v
		return nil
	})
	return v
}

// AddSupplier registra un proveedor.
func (s *Store) AddSupplier(sp entity.Supplier) entity.Supplier {
	_ = s.write(false, func(d *data) error {
		if sp.ID == 0 {
			sp.ID = d.nextID()
		}
		sp.CreatedAt = s.now()
		d.suppliers[sp.ID] = sp
		return nil
	})
	return sp
}

// AddProductSupplier relaciona producto y proveedor.
func (s *Store) AddProductSupplier(ps entity.ProductSupplier) entity.ProductSupplier {
	_ = s.write(false, func(d *data) error {
		if ps.ID == 0 {
			ps.ID = d.nextID()
		}
		ps.CreatedAt = s.now()
		d.productSuppliers[ps.ID] = ps
		return nil
	})
	return ps
}

// SetStock fija la cantidad del cache sin pasar por el ledger (datos heredados).
func (s *Store) SetStock(tenantID int64, subject entity.StockSubject, productID, outletID, qty int64) {
	_ = s.write(false, func(d *data) error {
		row := entity.LocationStock{TenantID: tenantID, ProductID: productID, OutletID: outletID, Quantity: qty, UpdatedAt: s.now()}
		if subject.IsVariation() {
			id := subject.ID
			row.VariationID = &id
		}
		d.stock[stockKey{tenantID, subject, outletID}] = row
		return nil
	})
}

// AddBatch inserta un lote directamente (datos heredados, tests).
func (s *Store) AddBatch(b entity.Batch) entity.Batch {
	_ = s.write(false, func(d *data) error {
		if b.ID == 0 {
			b.ID = d.nextID()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = s.now()
		}
		b.UpdatedAt = s.now()
		d.batches[b.ID] = b
		return nil
	})
	return b
}
