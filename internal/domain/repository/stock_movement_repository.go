package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// MovementFilter filtros para listar el ledger.
type MovementFilter struct {
	TenantID    int64
	OutletID    *int64
	ProductID   *int64
	VariationID *int64
	Type        *entity.MovementType
	Since       *time.Time
	Limit       int
	Offset      int
}

// StockMovementRepository puerto del ledger de stock. Solo inserción y lectura: no hay Update ni Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, m *entity.StockMovement) error
	List(ctx context.Context, f MovementFilter) ([]*entity.StockMovement, error)
}

// SalesSummary ventas de un sujeto en una ventana.
type SalesSummary struct {
	Quantity   int64
	LastSaleAt *time.Time
}

// SalesRepository puerto de lectura de ventas para la velocidad de venta.
// outletID nil = todos los outlets del tenant.
type SalesRepository interface {
	SalesSince(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID *int64, since time.Time) (SalesSummary, error)
}
