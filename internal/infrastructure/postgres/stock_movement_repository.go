package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var (
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
	_ repository.SalesRepository         = (*StockMovementRepo)(nil)
)

// StockMovementRepo ledger de stock sobre PostgreSQL (usable con pool o tx). La tabla tiene triggers
// que rechazan UPDATE y DELETE.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento del ledger.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (tenant_id, outlet_id, product_id, variation_id, type, quantity, decrease, batch_id,
			transaction_id, reference, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.TenantID, m.OutletID, m.ProductID, m.VariationID, m.Type, m.Quantity, m.Decrease, m.BatchID,
		m.TransactionID, m.Reference, m.Reason, m.CreatedBy, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		if isAppendOnlyViolation(err) {
			return fmt.Errorf("stock movement: %w", domain.ErrImmutable)
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// List lista movimientos del tenant, más recientes primero.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, tenant_id, outlet_id, product_id, variation_id, type, quantity, decrease, batch_id,
			transaction_id, reference, reason, created_by, created_at
		FROM stock_movements WHERE tenant_id = $1`)
	args := []any{f.TenantID}
	pos := 2
	add := func(cond string, v any) {
		fmt.Fprintf(&sb, " AND %s $%d", cond, pos)
		args = append(args, v)
		pos++
	}
	if f.OutletID != nil {
		add("outlet_id =", *f.OutletID)
	}
	if f.ProductID != nil {
		add("product_id =", *f.ProductID)
	}
	if f.VariationID != nil {
		add("variation_id =", *f.VariationID)
	}
	if f.Type != nil {
		add("type =", *f.Type)
	}
	if f.Since != nil {
		add("created_at >=", *f.Since)
	}
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitOr(f.Limit, 100), f.Offset)

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.OutletID, &m.ProductID, &m.VariationID, &m.Type, &m.Quantity, &m.Decrease,
			&m.BatchID, &m.TransactionID, &m.Reference, &m.Reason, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// SalesSince unidades vendidas del sujeto desde since y la fecha de la última venta.
func (r *StockMovementRepo) SalesSince(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID *int64, since time.Time) (repository.SalesSummary, error) {
	cond := "product_id = $2 AND variation_id IS NULL"
	if subject.IsVariation() {
		cond = "variation_id = $2"
	}
	query := `
		SELECT COALESCE(SUM(quantity), 0), MAX(created_at)
		FROM stock_movements
		WHERE tenant_id = $1 AND type = 'sale' AND ` + cond + ` AND created_at >= $3
		  AND ($4::bigint IS NULL OR outlet_id = $4)`
	var out repository.SalesSummary
	if err := r.q.QueryRow(ctx, query, tenantID, subject.ID, since, outletID).Scan(&out.Quantity, &out.LastSaleAt); err != nil {
		return repository.SalesSummary{}, fmt.Errorf("sales since: %w", err)
	}
	return out, nil
}
