package repository

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// SupplierRepository puerto de proveedores y su relación con productos.
type SupplierRepository interface {
	GetSupplier(ctx context.Context, tenantID, supplierID int64) (*entity.Supplier, error)
	// ListProductSuppliers relaciones activas del producto con proveedores activos.
	ListProductSuppliers(ctx context.Context, tenantID, productID int64) ([]*entity.ProductSupplier, error)
}
