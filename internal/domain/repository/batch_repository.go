package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// StockKey par (sujeto, outlet) con stock.
type StockKey struct {
	ProductID   int64
	VariationID *int64
	OutletID    int64
}

// BatchRepository puerto de persistencia de lotes.
type BatchRepository interface {
	// Create inserta el lote; domain.ErrDuplicate si (variación, outlet, número) ya existe.
	Create(ctx context.Context, b *entity.Batch) error
	GetByID(ctx context.Context, tenantID, batchID int64) (*entity.Batch, error)
	// ListByStock lotes de la variación en el outlet.
	ListByStock(ctx context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error)
	// ListByStockForUpdate igual que ListByStock pero bloquea las filas (SELECT FOR UPDATE).
	ListByStockForUpdate(ctx context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error)
	// ListExpiring lotes con unidades que vencen en o antes de before (incluye vencidos).
	ListExpiring(ctx context.Context, tenantID int64, outletID *int64, before time.Time) ([]*entity.Batch, error)
	UpdateQuantity(ctx context.Context, batchID, quantity int64) error
	// ListTrackedKeys pares (variación, outlet) con al menos un lote.
	ListTrackedKeys(ctx context.Context, tenantID int64) ([]StockKey, error)
}
