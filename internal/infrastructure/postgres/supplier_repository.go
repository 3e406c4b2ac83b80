package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.SupplierRepository = (*SupplierRepo)(nil)

// SupplierRepo proveedores y relaciones producto-proveedor.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

func (r *SupplierRepo) GetSupplier(ctx context.Context, tenantID, supplierID int64) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(ctx,
		`SELECT id, tenant_id, name, email, is_active, created_at FROM suppliers WHERE id = $1 AND tenant_id = $2`,
		supplierID, tenantID,
	).Scan(&s.ID, &s.TenantID, &s.Name, &s.Email, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

func (r *SupplierRepo) ListProductSuppliers(ctx context.Context, tenantID, productID int64) ([]*entity.ProductSupplier, error) {
	query := `
		SELECT ps.id, ps.tenant_id, ps.product_id, ps.supplier_id, ps.reorder_quantity, ps.reorder_point,
			ps.unit_cost, ps.is_preferred, ps.is_active, ps.created_at
		FROM product_suppliers ps JOIN suppliers s ON s.id = ps.supplier_id
		WHERE ps.tenant_id = $1 AND ps.product_id = $2 AND ps.is_active AND s.is_active
		ORDER BY ps.id`
	rows, err := r.q.Query(ctx, query, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("list product suppliers: %w", err)
	}
	defer rows.Close()
	var list []*entity.ProductSupplier
	for rows.Next() {
		var ps entity.ProductSupplier
		if err := rows.Scan(&ps.ID, &ps.TenantID, &ps.ProductID, &ps.SupplierID, &ps.ReorderQuantity, &ps.ReorderPoint,
			&ps.UnitCost, &ps.IsPreferred, &ps.IsActive, &ps.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product supplier: %w", err)
		}
		list = append(list, &ps)
	}
	return list, rows.Err()
}
