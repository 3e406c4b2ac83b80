package purchasing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// AuditUseCase lectura de la bitácora de reposición. Las filas no se modifican ni se borran.
type AuditUseCase struct {
	repo repository.AuditLogRepository
}

// NewAuditUseCase construye el caso de uso.
func NewAuditUseCase(repo repository.AuditLogRepository) *AuditUseCase {
	return &AuditUseCase{repo: repo}
}

// List filas de la bitácora, más recientes primero.
func (uc *AuditUseCase) List(ctx context.Context, f repository.AuditFilter) ([]*entity.AutoPOAuditLog, error) {
	if f.TenantID <= 0 {
		return nil, domain.Invalid("tenant_id", "requerido")
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.repo.List(ctx, f)
}

// Update siempre ErrImmutable.
func (uc *AuditUseCase) Update(_ context.Context, _ int64, id int64) error {
	return fmt.Errorf("bitácora %d: %w", id, domain.ErrImmutable)
}

// Delete siempre ErrImmutable.
func (uc *AuditUseCase) Delete(_ context.Context, _ int64, id int64) error {
	return fmt.Errorf("bitácora %d: %w", id, domain.ErrImmutable)
}

// Entry construye una fila de bitácora para una orden.
func Entry(po *entity.PurchaseOrder, action entity.AuditAction, actorID *int64, description string, ctx map[string]any) *entity.AutoPOAuditLog {
	l := &entity.AutoPOAuditLog{
		TenantID:    po.TenantID,
		Action:      action,
		Description: description,
		Context:     ctx,
		TriggeredBy: actorID,
		SupplierID:  po.SupplierID,
	}
	if po.ID > 0 {
		id := po.ID
		l.PurchaseOrderID = &id
	}
	return l
}

// AppendBestEffort agrega la fila fuera de transacción; un fallo se registra y no se propaga.
func AppendBestEffort(ctx context.Context, repo repository.AuditLogRepository, log zerolog.Logger, l *entity.AutoPOAuditLog) {
	if err := repo.Append(ctx, l); err != nil {
		log.Error().Err(err).Str("action", string(l.Action)).Int64("tenant_id", l.TenantID).Msg("no se pudo escribir la bitácora")
	}
}

// ToAuditResponse convierte una fila al DTO.
func ToAuditResponse(l *entity.AutoPOAuditLog) dto.AuditLogResponse {
	return dto.AuditLogResponse{
		ID:              l.ID,
		PurchaseOrderID: l.PurchaseOrderID,
		ProductID:       l.ProductID,
		VariationID:     l.VariationID,
		SupplierID:      l.SupplierID,
		Action:          string(l.Action),
		Description:     l.Description,
		Context:         l.Context,
		TriggeredBy:     l.TriggeredBy,
		CreatedAt:       l.CreatedAt,
	}
}
