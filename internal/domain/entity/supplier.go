package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier proveedor de un tenant.
type Supplier struct {
	ID        int64
	TenantID  int64
	Name      string
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

// ProductSupplier relación producto-proveedor con sus parámetros de reposición.
type ProductSupplier struct {
	ID              int64
	TenantID        int64
	ProductID       int64
	SupplierID      int64
	ReorderQuantity int64
	ReorderPoint    int64 // 0 = usa low_stock_threshold del producto/variación
	UnitCost        *decimal.Decimal
	IsPreferred     bool
	IsActive        bool
	CreatedAt       time.Time
}
