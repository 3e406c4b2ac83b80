package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo bitácora append-only de reposición automática (context en JSONB).
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

func (r *AuditLogRepo) Append(ctx context.Context, l *entity.AutoPOAuditLog) error {
	payload := []byte("{}")
	if len(l.Context) > 0 {
		var err error
		if payload, err = json.Marshal(l.Context); err != nil {
			return fmt.Errorf("marshal audit context: %w", err)
		}
	}
	query := `
		INSERT INTO auto_po_audit_logs (tenant_id, purchase_order_id, product_id, variation_id, supplier_id, action,
			description, context, triggered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10::timestamptz, now()))
		RETURNING id, created_at`
	var createdAt any
	if !l.CreatedAt.IsZero() {
		createdAt = l.CreatedAt
	}
	err := r.q.QueryRow(ctx, query, l.TenantID, l.PurchaseOrderID, l.ProductID, l.VariationID, l.SupplierID,
		l.Action, l.Description, payload, l.TriggeredBy, createdAt).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		if isAppendOnlyViolation(err) {
			return fmt.Errorf("audit log: %w", domain.ErrImmutable)
		}
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// List entradas del tenant, más recientes primero.
func (r *AuditLogRepo) List(ctx context.Context, f repository.AuditFilter) ([]*entity.AutoPOAuditLog, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, tenant_id, purchase_order_id, product_id, variation_id, supplier_id, action, description, context,
			triggered_by, created_at
		FROM auto_po_audit_logs WHERE tenant_id = $1`)
	args := []any{f.TenantID}
	pos := 2
	add := func(cond string, v any) {
		fmt.Fprintf(&sb, " AND %s $%d", cond, pos)
		args = append(args, v)
		pos++
	}
	if f.PurchaseOrderID != nil {
		add("purchase_order_id =", *f.PurchaseOrderID)
	}
	if f.ProductID != nil {
		add("product_id =", *f.ProductID)
	}
	if f.VariationID != nil {
		add("variation_id =", *f.VariationID)
	}
	if f.Action != nil {
		add("action =", *f.Action)
	}
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitOr(f.Limit, 100), f.Offset)

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	var list []*entity.AutoPOAuditLog
	for rows.Next() {
		var l entity.AutoPOAuditLog
		var raw []byte
		if err := rows.Scan(&l.ID, &l.TenantID, &l.PurchaseOrderID, &l.ProductID, &l.VariationID, &l.SupplierID,
			&l.Action, &l.Description, &raw, &l.TriggeredBy, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &l.Context); err != nil {
				return nil, fmt.Errorf("decode audit context: %w", err)
			}
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
