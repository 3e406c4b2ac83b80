package repository

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// PurchaseOrderFilter filtros de listado de órdenes.
type PurchaseOrderFilter struct {
	TenantID        int64
	OutletID        *int64
	SupplierID      *int64
	Status          *entity.POStatus
	IsAutoGenerated *bool
	Limit           int
	Offset          int
}

// InFlightLine línea de una orden abierta que ya salió del borrador.
type InFlightLine struct {
	PurchaseOrderID int64
	PONumber        string
	Status          entity.POStatus
	ItemID          int64
	Quantity        int64
}

// PurchaseOrderRepository puerto de persistencia del agregado orden de compra.
// Los Get cargan las líneas y devuelven (nil, nil) si no existe.
type PurchaseOrderRepository interface {
	// Create inserta cabecera y líneas. domain.ErrDuplicate si el número ya existe,
	// domain.ErrConflict si ya hay un borrador abierto para (tenant, proveedor, outlet).
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	// Update guarda la cabecera (estado, totales, proveedor).
	Update(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error)
	// FindOpenDraftForUpdate borrador (draft o pending_supplier) del outlet para el proveedor (nil = sin proveedor).
	FindOpenDraftForUpdate(ctx context.Context, tenantID int64, supplierID *int64, outletID int64) (*entity.PurchaseOrder, error)
	// FindInFlightLine línea del sujeto en una orden abierta no editable del outlet.
	FindInFlightLine(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*InFlightLine, error)
	CreateItem(ctx context.Context, it *entity.PurchaseOrderItem) error
	UpdateItem(ctx context.Context, it *entity.PurchaseOrderItem) error
	DeleteItem(ctx context.Context, poID, itemID int64) error
	// NextSequence siguiente número de secuencia de órdenes del tenant.
	NextSequence(ctx context.Context, tenantID int64) (int64, error)
	List(ctx context.Context, f PurchaseOrderFilter) ([]*entity.PurchaseOrder, error)
}
