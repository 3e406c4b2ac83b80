package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.LocationStockRepository = (*LocationStockRepo)(nil)

// LocationStockRepo cache de stock por outlet sobre PostgreSQL (usable con pool o tx).
type LocationStockRepo struct {
	q Querier
}

// NewLocationStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewLocationStockRepository(q Querier) *LocationStockRepo {
	return &LocationStockRepo{q: q}
}

const selectLocationStock = `
	SELECT tenant_id, product_id, variation_id, outlet_id, quantity, updated_at
	FROM location_stock`

// subjectArgs filtro por sujeto: productos por product_id sin variación, variaciones por variation_id.
func subjectArgs(subject entity.StockSubject) (cond string, id int64) {
	if subject.IsVariation() {
		return "variation_id = $2", subject.ID
	}
	return "product_id = $2 AND variation_id IS NULL", subject.ID
}

// Get obtiene el stock actual del sujeto en el outlet.
func (r *LocationStockRepo) Get(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error) {
	return r.get(ctx, tenantID, subject, outletID, "")
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
// Si la fila no existe la crea en 0 antes de bloquearla: sin fila no hay lock y dos primeros
// movimientos concurrentes partirían ambos de 0.
func (r *LocationStockRepo) GetForUpdate(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*entity.LocationStock, error) {
	if err := r.ensureRow(ctx, tenantID, subject, outletID); err != nil {
		return nil, err
	}
	return r.get(ctx, tenantID, subject, outletID, " FOR UPDATE")
}

// ensureRow inserta la fila en 0 si falta. Un sujeto inexistente no inserta nada.
func (r *LocationStockRepo) ensureRow(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) error {
	source := `SELECT $1::BIGINT, p.id, NULL::BIGINT, $3::BIGINT, 0, now() FROM products p WHERE p.id = $2 AND p.tenant_id = $1`
	if subject.IsVariation() {
		source = `SELECT $1::BIGINT, v.product_id, v.id, $3::BIGINT, 0, now() FROM variations v WHERE v.id = $2 AND v.tenant_id = $1`
	}
	query := `
		INSERT INTO location_stock (tenant_id, product_id, variation_id, outlet_id, quantity, updated_at)
		` + source + `
		ON CONFLICT (tenant_id, product_id, variation_key, outlet_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, tenantID, subject.ID, outletID); err != nil {
		return fmt.Errorf("ensure location stock: %w", err)
	}
	return nil
}

func (r *LocationStockRepo) get(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64, lock string) (*entity.LocationStock, error) {
	cond, id := subjectArgs(subject)
	query := selectLocationStock + ` WHERE tenant_id = $1 AND ` + cond + ` AND outlet_id = $3` + lock
	var s entity.LocationStock
	err := r.q.QueryRow(ctx, query, tenantID, id, outletID).Scan(
		&s.TenantID, &s.ProductID, &s.VariationID, &s.OutletID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			empty := &entity.LocationStock{TenantID: tenantID, OutletID: outletID}
			if subject.IsVariation() {
				vid := subject.ID
				empty.VariationID = &vid
			} else {
				empty.ProductID = subject.ID
			}
			return empty, nil
		}
		return nil, fmt.Errorf("get location stock: %w", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza la cantidad del sujeto en el outlet. Una fila nueva de variación
// sin ProductID lo toma de la variación.
func (r *LocationStockRepo) Upsert(ctx context.Context, s *entity.LocationStock) error {
	query := `
		INSERT INTO location_stock (tenant_id, product_id, variation_id, outlet_id, quantity, updated_at)
		VALUES ($1, COALESCE(NULLIF($2, 0), (SELECT product_id FROM variations WHERE id = $3)), $3, $4, $5, now())
		ON CONFLICT (tenant_id, product_id, variation_key, outlet_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING product_id, updated_at`
	err := r.q.QueryRow(ctx, query, s.TenantID, s.ProductID, s.VariationID, s.OutletID, s.Quantity).Scan(&s.ProductID, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert location stock: %w", err)
	}
	return nil
}

// ListVariationStockWithoutBatches filas de variaciones con unidades y sin ningún lote en su outlet.
func (r *LocationStockRepo) ListVariationStockWithoutBatches(ctx context.Context, tenantID int64) ([]*entity.LocationStock, error) {
	query := selectLocationStock + ` ls
		WHERE ls.tenant_id = $1 AND ls.variation_id IS NOT NULL AND ls.quantity > 0
		  AND NOT EXISTS (
			SELECT 1 FROM batches b WHERE b.variation_id = ls.variation_id AND b.outlet_id = ls.outlet_id
		  )
		ORDER BY ls.variation_id, ls.outlet_id`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list stock without batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.LocationStock
	for rows.Next() {
		var s entity.LocationStock
		if err := rows.Scan(&s.TenantID, &s.ProductID, &s.VariationID, &s.OutletID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan location stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
