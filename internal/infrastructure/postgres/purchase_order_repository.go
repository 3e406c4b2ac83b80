package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra y sus líneas sobre PostgreSQL (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const selectPO = `
	SELECT id, tenant_id, outlet_id, supplier_id, created_by, po_number, status, subtotal, tax, discount, total,
		order_date, expected_delivery_date, notes, is_auto_generated, created_at, updated_at
	FROM purchase_orders`

const selectPOItem = `
	SELECT id, purchase_order_id, product_id, variation_id, supplier_id, quantity, unit_price, total,
		received_quantity, stock_at_planning, created_at, updated_at
	FROM purchase_order_items`

func scanPO(row pgx.Row) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := row.Scan(&po.ID, &po.TenantID, &po.OutletID, &po.SupplierID, &po.CreatedBy, &po.PONumber, &po.Status,
		&po.Subtotal, &po.Tax, &po.Discount, &po.Total, &po.OrderDate, &po.ExpectedDeliveryDate, &po.Notes,
		&po.IsAutoGenerated, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// Create inserta cabecera y líneas. Con ON CONFLICT DO NOTHING un choque no aborta la transacción:
// si no vuelve fila se distingue borrador abierto (ErrConflict) de número repetido (ErrDuplicate).
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (tenant_id, outlet_id, supplier_id, created_by, po_number, status, subtotal, tax,
			discount, total, order_date, expected_delivery_date, notes, is_auto_generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		po.TenantID, po.OutletID, po.SupplierID, po.CreatedBy, po.PONumber, po.Status, po.Subtotal, po.Tax,
		po.Discount, po.Total, po.OrderDate, po.ExpectedDeliveryDate, po.Notes, po.IsAutoGenerated,
	).Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("create purchase order: %w", err)
		}
		if po.Status.IsEditable() {
			open, ferr := r.FindOpenDraftForUpdate(ctx, po.TenantID, po.SupplierID, po.OutletID)
			if ferr != nil {
				return ferr
			}
			if open != nil {
				return fmt.Errorf("borrador abierto %s: %w", open.PONumber, domain.ErrConflict)
			}
		}
		return fmt.Errorf("orden %s: %w", po.PONumber, domain.ErrDuplicate)
	}
	for _, it := range po.Items {
		it.PurchaseOrderID = po.ID
		if err := r.CreateItem(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// Update guarda la cabecera. Pasar a borrador un segundo borrador del mismo proveedor viola el índice parcial.
func (r *PurchaseOrderRepo) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders SET supplier_id = $3, status = $4, subtotal = $5, tax = $6, discount = $7, total = $8,
			expected_delivery_date = $9, notes = $10, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at`
	err := r.q.QueryRow(ctx, query,
		po.ID, po.TenantID, po.SupplierID, po.Status, po.Subtotal, po.Tax, po.Discount, po.Total,
		po.ExpectedDeliveryDate, po.Notes,
	).Scan(&po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("orden %d: %w", po.ID, domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("orden %s: %w", po.PONumber, domain.ErrConflict)
		}
		return fmt.Errorf("update purchase order: %w", err)
	}
	return nil
}

// GetByID orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, selectPO+` WHERE id = $1 AND tenant_id = $2`, poID, tenantID)
}

// GetForUpdate bloquea la cabecera (SELECT FOR UPDATE) y carga las líneas.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, selectPO+` WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, poID, tenantID)
}

// FindOpenDraftForUpdate borrador abierto del outlet para el proveedor (nil = sin proveedor).
func (r *PurchaseOrderRepo) FindOpenDraftForUpdate(ctx context.Context, tenantID int64, supplierID *int64, outletID int64) (*entity.PurchaseOrder, error) {
	return r.getOne(ctx, selectPO+`
		WHERE tenant_id = $1 AND outlet_id = $2 AND COALESCE(supplier_id, 0) = COALESCE($3::bigint, 0)
		  AND status IN ('draft', 'pending_supplier')
		ORDER BY id LIMIT 1 FOR UPDATE`, tenantID, outletID, supplierID)
}

func (r *PurchaseOrderRepo) getOne(ctx context.Context, query string, args ...any) (*entity.PurchaseOrder, error) {
	po, err := scanPO(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	items, err := r.listItems(ctx, []int64{po.ID})
	if err != nil {
		return nil, err
	}
	po.Items = items[po.ID]
	return po, nil
}

// FindInFlightLine línea del sujeto en una orden abierta que ya salió del borrador.
func (r *PurchaseOrderRepo) FindInFlightLine(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (*repository.InFlightLine, error) {
	cond := "i.product_id = $3 AND i.variation_id IS NULL"
	if subject.IsVariation() {
		cond = "i.variation_id = $3"
	}
	query := `
		SELECT po.id, po.po_number, po.status, i.id, i.quantity
		FROM purchase_order_items i JOIN purchase_orders po ON po.id = i.purchase_order_id
		WHERE po.tenant_id = $1 AND po.outlet_id = $2 AND ` + cond + `
		  AND po.status IN ('ready_to_order', 'pending', 'approved', 'ordered', 'partial')
		ORDER BY po.id LIMIT 1`
	var l repository.InFlightLine
	err := r.q.QueryRow(ctx, query, tenantID, outletID, subject.ID).Scan(
		&l.PurchaseOrderID, &l.PONumber, &l.Status, &l.ItemID, &l.Quantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find in-flight line: %w", err)
	}
	return &l, nil
}

// CreateItem inserta una línea. domain.ErrDuplicate si la orden ya tiene el sujeto con ese proveedor.
func (r *PurchaseOrderRepo) CreateItem(ctx context.Context, it *entity.PurchaseOrderItem) error {
	query := `
		INSERT INTO purchase_order_items (purchase_order_id, product_id, variation_id, supplier_id, quantity, unit_price,
			total, received_quantity, stock_at_planning, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		it.PurchaseOrderID, it.ProductID, it.VariationID, it.SupplierID, it.Quantity, it.UnitPrice,
		it.Total, it.ReceivedQuantity, it.StockAtPlanning,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("línea %s: %w", it.Subject(), domain.ErrDuplicate)
		}
		return fmt.Errorf("create purchase order item: %w", err)
	}
	return nil
}

// UpdateItem guarda cantidades, precio y proveedor de la línea.
func (r *PurchaseOrderRepo) UpdateItem(ctx context.Context, it *entity.PurchaseOrderItem) error {
	query := `
		UPDATE purchase_order_items SET supplier_id = $2, quantity = $3, unit_price = $4, total = $5,
			received_quantity = $6, stock_at_planning = $7, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		it.ID, it.SupplierID, it.Quantity, it.UnitPrice, it.Total, it.ReceivedQuantity, it.StockAtPlanning,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("línea %s: %w", it.Subject(), domain.ErrDuplicate)
		}
		return fmt.Errorf("update purchase order item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("línea %d: %w", it.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteItem quita una línea de la orden.
func (r *PurchaseOrderRepo) DeleteItem(ctx context.Context, poID, itemID int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM purchase_order_items WHERE id = $1 AND purchase_order_id = $2`, itemID, poID)
	if err != nil {
		return fmt.Errorf("delete purchase order item: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("línea %d: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

// NextSequence incrementa y devuelve la secuencia del tenant (upsert atómico).
func (r *PurchaseOrderRepo) NextSequence(ctx context.Context, tenantID int64) (int64, error) {
	query := `
		INSERT INTO po_sequences (tenant_id, last_value) VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET last_value = po_sequences.last_value + 1
		RETURNING last_value`
	var seq int64
	if err := r.q.QueryRow(ctx, query, tenantID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next po sequence: %w", err)
	}
	return seq, nil
}

// List órdenes del tenant, más recientes primero, con sus líneas.
func (r *PurchaseOrderRepo) List(ctx context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	var sb strings.Builder
	sb.WriteString(selectPO + ` WHERE tenant_id = $1`)
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
	if f.SupplierID != nil {
		add("supplier_id =", *f.SupplierID)
	}
	if f.Status != nil {
		add("status =", *f.Status)
	}
	if f.IsAutoGenerated != nil {
		add("is_auto_generated =", *f.IsAutoGenerated)
	}
	fmt.Fprintf(&sb, " ORDER BY id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitOr(f.Limit, 50), f.Offset)

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	var list []*entity.PurchaseOrder
	var ids []int64
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		list = append(list, po)
		ids = append(ids, po.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}
	items, err := r.listItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, po := range list {
		po.Items = items[po.ID]
	}
	return list, nil
}

func (r *PurchaseOrderRepo) listItems(ctx context.Context, poIDs []int64) (map[int64][]*entity.PurchaseOrderItem, error) {
	rows, err := r.q.Query(ctx, selectPOItem+` WHERE purchase_order_id = ANY($1) ORDER BY id`, poIDs)
	if err != nil {
		return nil, fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()
	out := make(map[int64][]*entity.PurchaseOrderItem, len(poIDs))
	for rows.Next() {
		var it entity.PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.VariationID, &it.SupplierID, &it.Quantity,
			&it.UnitPrice, &it.Total, &it.ReceivedQuantity, &it.StockAtPlanning, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		out[it.PurchaseOrderID] = append(out[it.PurchaseOrderID], &it)
	}
	return out, rows.Err()
}
