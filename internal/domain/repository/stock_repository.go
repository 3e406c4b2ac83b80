package repository

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// LocationStockRepository puerto del cache de stock por outlet.
// Get y GetForUpdate devuelven una fila con Quantity 0 (sin error) si aún no existe.
type LocationStockRepository interface {
	Get(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error)
	Upsert(ctx context.Context, s *entity.LocationStock) error
	// ListVariationStockWithoutBatches filas de variaciones con cantidad > 0 que no tienen lotes.
	ListVariationStockWithoutBatches(ctx context.Context, tenantID int64) ([]*entity.LocationStock, error)
}
