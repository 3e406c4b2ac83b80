package inventory

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// RecordFromRequest adapta el request HTTP al caso de uso Record(ctx, RecordInput).
func (uc *LedgerUseCase) RecordFromRequest(ctx context.Context, tenantID, outletID, userID int64, in dto.RecordMovementRequest) (*entity.StockMovement, error) {
	subject, ok := entity.SubjectFromIDs(in.ProductID, in.VariationID)
	if !ok {
		return nil, domain.Invalid("product_id", "product_id o variation_id requerido")
	}
	return uc.Record(ctx, RecordInput{
		TenantID:  tenantID,
		OutletID:  outletID,
		Subject:   subject,
		Type:      entity.MovementType(in.Type),
		Quantity:  in.Quantity,
		Decrease:  in.Decrease,
		BatchID:   in.BatchID,
		UnitCost:  in.UnitCost,
		Reference: in.Reference,
		Reason:    in.Reason,
		ActorID:   actor(userID),
	})
}

// SaleFromRequest adapta el request HTTP de una venta.
func (uc *LedgerUseCase) SaleFromRequest(ctx context.Context, tenantID, outletID, userID int64, in dto.SaleRequest) ([]*entity.StockMovement, error) {
	lines := make([]SaleLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		subject, ok := entity.SubjectFromIDs(l.ProductID, l.VariationID)
		if !ok {
			return nil, domain.Invalid("lines.product_id", "product_id o variation_id requerido")
		}
		lines = append(lines, SaleLine{Subject: subject, Quantity: l.Quantity, BatchID: l.BatchID})
	}
	return uc.RecordSale(ctx, SaleInput{
		TenantID:  tenantID,
		OutletID:  outletID,
		ActorID:   actor(userID),
		Reference: in.Reference,
		Lines:     lines,
	})
}

// TransferFromRequest adapta el request HTTP de un traslado.
func (uc *LedgerUseCase) TransferFromRequest(ctx context.Context, tenantID, fromOutletID, userID int64, in dto.TransferRequest) ([]*entity.StockMovement, error) {
	subject, ok := entity.SubjectFromIDs(in.ProductID, in.VariationID)
	if !ok {
		return nil, domain.Invalid("product_id", "product_id o variation_id requerido")
	}
	return uc.Transfer(ctx, TransferInput{
		TenantID:     tenantID,
		FromOutletID: fromOutletID,
		ToOutletID:   in.ToOutletID,
		Subject:      subject,
		Quantity:     in.Quantity,
		Reason:       in.Reason,
		ActorID:      actor(userID),
	})
}

// ToMovementResponse convierte una fila del ledger al DTO.
func ToMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID,
		OutletID:      m.OutletID,
		ProductID:     m.ProductID,
		VariationID:   m.VariationID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		Delta:         m.Delta(),
		BatchID:       m.BatchID,
		TransactionID: m.TransactionID,
		Reference:     m.Reference,
		Reason:        m.Reason,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}

func actor(userID int64) *int64 {
	if userID <= 0 {
		return nil
	}
	return &userID
}
