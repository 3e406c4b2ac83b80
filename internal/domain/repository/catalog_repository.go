package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// LowStockCandidate fila de la consulta de sujetos en o bajo su umbral en un outlet.
type LowStockCandidate struct {
	ProductID    int64
	VariationID  *int64
	SKU          string
	Name         string
	CurrentStock int64
	Threshold    int64
}

// CatalogRepository puerto de lectura del catálogo (productos y variaciones) y de su costo.
// Los Get devuelven (nil, nil) si no existe o pertenece a otro tenant.
type CatalogRepository interface {
	GetProduct(ctx context.Context, tenantID, productID int64) (*entity.Product, error)
	GetVariation(ctx context.Context, tenantID, variationID int64) (*entity.Variation, error)
	UpdateProductCost(ctx context.Context, tenantID, productID int64, cost decimal.Decimal) error
	UpdateVariationCost(ctx context.Context, tenantID, variationID int64, cost decimal.Decimal) error
	// ListLowStock sujetos con inventario controlado cuyo stock en el outlet está en o bajo el umbral.
	ListLowStock(ctx context.Context, tenantID, outletID int64) ([]LowStockCandidate, error)
}
