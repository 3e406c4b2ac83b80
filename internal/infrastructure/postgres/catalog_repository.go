package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo productos y variaciones sobre PostgreSQL (usable con pool o tx).
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador del catálogo. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetProduct obtiene un producto del tenant.
func (r *CatalogRepo) GetProduct(ctx context.Context, tenantID, productID int64) (*entity.Product, error) {
	query := `
		SELECT id, tenant_id, sku, name, price, cost, low_stock_threshold, track_inventory, created_at, updated_at
		FROM products WHERE id = $1 AND tenant_id = $2`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, productID, tenantID).Scan(
		&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Price, &p.Cost, &p.LowStockThreshold,
		&p.TrackInventory, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetVariation obtiene una variación del tenant.
func (r *CatalogRepo) GetVariation(ctx context.Context, tenantID, variationID int64) (*entity.Variation, error) {
	query := `
		SELECT id, tenant_id, product_id, sku, name, price, cost, low_stock_threshold, created_at, updated_at
		FROM variations WHERE id = $1 AND tenant_id = $2`
	var v entity.Variation
	err := r.q.QueryRow(ctx, query, variationID, tenantID).Scan(
		&v.ID, &v.TenantID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.Cost,
		&v.LowStockThreshold, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variation: %w", err)
	}
	return &v, nil
}

// UpdateProductCost actualiza solo el costo promedio del producto.
func (r *CatalogRepo) UpdateProductCost(ctx context.Context, tenantID, productID int64, cost decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE products SET cost = $3, updated_at = now() WHERE id = $1 AND tenant_id = $2`,
		productID, tenantID, cost,
	)
	if err != nil {
		return fmt.Errorf("update product cost: %w", err)
	}
	return nil
}

// UpdateVariationCost actualiza solo el costo promedio de la variación.
func (r *CatalogRepo) UpdateVariationCost(ctx context.Context, tenantID, variationID int64, cost decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE variations SET cost = $3, updated_at = now() WHERE id = $1 AND tenant_id = $2`,
		variationID, tenantID, cost,
	)
	if err != nil {
		return fmt.Errorf("update variation cost: %w", err)
	}
	return nil
}

// ListLowStock productos sin variaciones y variaciones cuyo stock en el outlet está en o bajo su umbral.
// Umbral 0 no dispara nada.
func (r *CatalogRepo) ListLowStock(ctx context.Context, tenantID, outletID int64) ([]repository.LowStockCandidate, error) {
	query := `
		WITH subjects AS (
			SELECT p.id AS product_id, NULL::bigint AS variation_id, p.sku, p.name,
			       p.low_stock_threshold AS threshold
			FROM products p
			WHERE p.tenant_id = $1 AND p.track_inventory
			  AND NOT EXISTS (SELECT 1 FROM variations v WHERE v.product_id = p.id)
			UNION ALL
			SELECT p.id, v.id, v.sku, p.name || ' ' || v.name,
			       CASE WHEN v.low_stock_threshold > 0 THEN v.low_stock_threshold ELSE p.low_stock_threshold END
			FROM variations v
			JOIN products p ON p.id = v.product_id
			WHERE p.tenant_id = $1 AND p.track_inventory
		)
		SELECT s.product_id, s.variation_id, s.sku, s.name, COALESCE(ls.quantity, 0), s.threshold
		FROM subjects s
		LEFT JOIN location_stock ls
		  ON ls.tenant_id = $1 AND ls.outlet_id = $2 AND ls.product_id = s.product_id
		 AND ls.variation_key = COALESCE(s.variation_id, 0)
		WHERE s.threshold > 0 AND COALESCE(ls.quantity, 0) <= s.threshold
		ORDER BY s.product_id, COALESCE(s.variation_id, 0)`
	rows, err := r.q.Query(ctx, query, tenantID, outletID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	var list []repository.LowStockCandidate
	for rows.Next() {
		var c repository.LowStockCandidate
		if err := rows.Scan(&c.ProductID, &c.VariationID, &c.SKU, &c.Name, &c.CurrentStock, &c.Threshold); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
