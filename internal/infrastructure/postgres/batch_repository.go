package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo lotes con vencimiento sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const selectBatch = `
	SELECT id, tenant_id, variation_id, outlet_id, batch_number, expiry_date, quantity, cost_price, created_at, updated_at
	FROM batches`

// orden FEFO: vence antes, luego el más antiguo.
const orderFEFO = ` ORDER BY expiry_date, created_at, id`

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	err := row.Scan(&b.ID, &b.TenantID, &b.VariationID, &b.OutletID, &b.BatchNumber, &b.ExpiryDate,
		&b.Quantity, &b.CostPrice, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ExpiryDate = entity.DateOf(b.ExpiryDate)
	return &b, nil
}

// Create inserta el lote. ON CONFLICT evita abortar la transacción ante un número repetido.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (tenant_id, variation_id, outlet_id, batch_number, expiry_date, quantity, cost_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (variation_id, outlet_id, batch_number) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		b.TenantID, b.VariationID, b.OutletID, b.BatchNumber, entity.DateOf(b.ExpiryDate), b.Quantity, b.CostPrice,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote del tenant.
func (r *BatchRepo) GetByID(ctx context.Context, tenantID, batchID int64) (*entity.Batch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, selectBatch+` WHERE id = $1 AND tenant_id = $2`, batchID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListByStock lotes de la variación en el outlet en orden FEFO.
func (r *BatchRepo) ListByStock(ctx context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error) {
	return r.list(ctx, selectBatch+` WHERE tenant_id = $1 AND variation_id = $2 AND outlet_id = $3`+orderFEFO,
		tenantID, variationID, outletID)
}

// ListByStockForUpdate igual que ListByStock bloqueando las filas.
func (r *BatchRepo) ListByStockForUpdate(ctx context.Context, tenantID, variationID, outletID int64) ([]*entity.Batch, error) {
	return r.list(ctx, selectBatch+` WHERE tenant_id = $1 AND variation_id = $2 AND outlet_id = $3`+orderFEFO+` FOR UPDATE`,
		tenantID, variationID, outletID)
}

// ListExpiring lotes con unidades que vencen en o antes de before.
func (r *BatchRepo) ListExpiring(ctx context.Context, tenantID int64, outletID *int64, before time.Time) ([]*entity.Batch, error) {
	return r.list(ctx, selectBatch+`
		WHERE tenant_id = $1 AND quantity > 0 AND expiry_date <= $2 AND ($3::bigint IS NULL OR outlet_id = $3)`+orderFEFO,
		tenantID, entity.DateOf(before), outletID)
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// UpdateQuantity fija las unidades restantes del lote.
func (r *BatchRepo) UpdateQuantity(ctx context.Context, batchID, quantity int64) error {
	if quantity < 0 {
		return domain.Invalid("quantity", "el lote no puede quedar negativo")
	}
	cmd, err := r.q.Exec(ctx, `UPDATE batches SET quantity = $2, updated_at = now() WHERE id = $1`, batchID, quantity)
	if err != nil {
		return fmt.Errorf("update batch quantity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("lote %d: %w", batchID, domain.ErrNotFound)
	}
	return nil
}

// ListTrackedKeys pares (variación, outlet) con al menos un lote.
func (r *BatchRepo) ListTrackedKeys(ctx context.Context, tenantID int64) ([]repository.StockKey, error) {
	query := `
		SELECT DISTINCT v.product_id, b.variation_id, b.outlet_id
		FROM batches b JOIN variations v ON v.id = b.variation_id
		WHERE b.tenant_id = $1
		ORDER BY b.variation_id, b.outlet_id`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tracked keys: %w", err)
	}
	defer rows.Close()
	var keys []repository.StockKey
	for rows.Next() {
		var k repository.StockKey
		if err := rows.Scan(&k.ProductID, &k.VariationID, &k.OutletID); err != nil {
			return nil, fmt.Errorf("scan tracked key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
