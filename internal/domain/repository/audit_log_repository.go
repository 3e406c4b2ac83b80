package repository

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// AuditFilter filtros de la bitácora.
type AuditFilter struct {
	TenantID        int64
	PurchaseOrderID *int64
	ProductID       *int64
	VariationID     *int64
	Action          *entity.AuditAction
	Limit           int
	Offset          int
}

// AuditLogRepository puerto de la bitácora append-only de reposición automática.
type AuditLogRepository interface {
	Append(ctx context.Context, l *entity.AutoPOAuditLog) error
	List(ctx context.Context, f AuditFilter) ([]*entity.AutoPOAuditLog, error)
}
