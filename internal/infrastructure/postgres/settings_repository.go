package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo configuración de reposición automática por tenant.
type SettingsRepo struct {
	q Querier
}

// NewSettingsRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSettingsRepository(q Querier) *SettingsRepo {
	return &SettingsRepo{q: q}
}

// Get devuelve (nil, nil) si el tenant nunca guardó su configuración.
func (r *SettingsRepo) Get(ctx context.Context, tenantID int64) (*entity.AutoPurchaseOrderSettings, error) {
	query := `
		SELECT tenant_id, auto_po_enabled, default_reorder_quantity, auto_approve_po, notify_on_auto_po,
			minimum_order_value, group_by_supplier, fallback_cost_ratio, updated_at
		FROM auto_purchase_order_settings WHERE tenant_id = $1`
	var s entity.AutoPurchaseOrderSettings
	err := r.q.QueryRow(ctx, query, tenantID).Scan(&s.TenantID, &s.AutoPOEnabled, &s.DefaultReorderQuantity,
		&s.AutoApprovePO, &s.NotifyOnAutoPO, &s.MinimumOrderValue, &s.GroupBySupplier, &s.FallbackCostRatio, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auto po settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *entity.AutoPurchaseOrderSettings) error {
	query := `
		INSERT INTO auto_purchase_order_settings (tenant_id, auto_po_enabled, default_reorder_quantity, auto_approve_po,
			notify_on_auto_po, minimum_order_value, group_by_supplier, fallback_cost_ratio, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			auto_po_enabled = EXCLUDED.auto_po_enabled,
			default_reorder_quantity = EXCLUDED.default_reorder_quantity,
			auto_approve_po = EXCLUDED.auto_approve_po,
			notify_on_auto_po = EXCLUDED.notify_on_auto_po,
			minimum_order_value = EXCLUDED.minimum_order_value,
			group_by_supplier = EXCLUDED.group_by_supplier,
			fallback_cost_ratio = EXCLUDED.fallback_cost_ratio,
			updated_at = now()
		RETURNING updated_at`
	err := r.q.QueryRow(ctx, query, s.TenantID, s.AutoPOEnabled, s.DefaultReorderQuantity, s.AutoApprovePO,
		s.NotifyOnAutoPO, s.MinimumOrderValue, s.GroupBySupplier, s.FallbackCostRatio).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert auto po settings: %w", err)
	}
	return nil
}
