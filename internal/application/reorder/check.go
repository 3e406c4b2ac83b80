package reorder

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// CheckUseCase revisión manual de reposición de un outlet: planifica todo lo que está en o bajo
// su umbral y devuelve la lista de sugerencias priorizada.
type CheckUseCase struct {
	catalog  repository.CatalogRepository
	tenants  repository.TenantRepository
	audit    repository.AuditLogRepository
	settings *purchasing.SettingsUseCase
	planner  *Planner
	log      zerolog.Logger
}

// NewCheckUseCase construye el caso de uso.
func NewCheckUseCase(
	catalog repository.CatalogRepository,
	tenants repository.TenantRepository,
	audit repository.AuditLogRepository,
	settings *purchasing.SettingsUseCase,
	planner *Planner,
	log zerolog.Logger,
) *CheckUseCase {
	return &CheckUseCase{
		catalog:  catalog,
		tenants:  tenants,
		audit:    audit,
		settings: settings,
		planner:  planner,
		log:      log.With().Str("component", "reorder_check").Logger(),
	}
}

// Run revisa el outlet. Los fallos por sujeto vienen en la respuesta, no como error.
func (uc *CheckUseCase) Run(ctx context.Context, tenantID, outletID int64, actorID *int64) (dto.ReorderCheckResponse, error) {
	if _, err := inventory.CheckOutlet(ctx, uc.tenants, tenantID, outletID); err != nil {
		return dto.ReorderCheckResponse{}, err
	}
	candidates, err := uc.catalog.ListLowStock(ctx, tenantID, outletID)
	if err != nil {
		return dto.ReorderCheckResponse{}, fmt.Errorf("reorder check: %w", err)
	}
	purchasing.AppendBestEffort(ctx, uc.audit, uc.log, &entity.AutoPOAuditLog{
		TenantID:    tenantID,
		Action:      entity.AuditCheckTriggered,
		Description: fmt.Sprintf("Revisión manual: %d productos en o bajo su umbral", len(candidates)),
		Context:     map[string]any{"outlet_id": outletID, "candidates": len(candidates)},
		TriggeredBy: actorID,
	})

	resp := dto.ReorderCheckResponse{
		Checked:     len(candidates),
		Items:       []dto.PlannedItemDTO{},
		Suggestions: []dto.ReplenishmentSuggestionDTO{},
	}
	if len(candidates) == 0 {
		return resp, nil
	}

	items := make([]LowStockItem, 0, len(candidates))
	for _, c := range candidates {
		subject, ok := entity.SubjectFromIDs(&c.ProductID, c.VariationID)
		if !ok {
			continue
		}
		items = append(items, LowStockItem{Subject: subject, CurrentStock: c.CurrentStock, Threshold: c.Threshold})
	}

	suggestions, err := uc.Suggest(ctx, tenantID, outletID, items)
	if err != nil {
		return dto.ReorderCheckResponse{}, err
	}
	resp.Suggestions = suggestions

	result := uc.planner.Plan(ctx, PlanRequest{
		TenantID:    tenantID,
		OutletID:    outletID,
		Items:       items,
		TriggeredBy: actorID,
		Source:      "manual_check",
	})
	for _, it := range result.Items {
		resp.Items = append(resp.Items, ToPlannedItemDTO(it))
	}
	return resp, nil
}

// Suggest sugerencias de pedido sin tocar órdenes. Orden: primero lo agotado o más lejos de su umbral
// (proporcionalmente), luego mayor velocidad de venta y por último mayor déficit absoluto.
func (uc *CheckUseCase) Suggest(ctx context.Context, tenantID, outletID int64, items []LowStockItem) ([]dto.ReplenishmentSuggestionDTO, error) {
	settings, err := uc.settings.Effective(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReplenishmentSuggestionDTO, 0, len(items))
	for _, it := range items {
		est, err := uc.planner.estimate(ctx, tenantID, outletID, it, settings)
		if err != nil {
			uc.log.Warn().Err(err).Int64("tenant_id", tenantID).Str("subject", it.Subject.Key()).Msg("sin sugerencia")
			continue
		}
		s := dto.ReplenishmentSuggestionDTO{
			ProductID:          est.res.ProductID(),
			VariationID:        est.res.VariationID(),
			SKU:                est.res.SKU(),
			Name:               est.res.Name(),
			CurrentStock:       it.CurrentStock,
			Threshold:          est.threshold,
			Deficit:            domaininv.Deficit(it.CurrentStock, est.threshold),
			DailyVelocity:      est.velocity.PerDay,
			SuggestedOrderQty:  est.quantity,
			UnitCost:           est.unitCost,
			EstimatedOrderCost: decimal.NewFromInt(est.quantity).Mul(est.unitCost).Round(2),
		}
		if est.supplier != nil {
			id := est.supplier.SupplierID
			s.SupplierID = &id
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := coverage(a), coverage(b); ra != rb {
			return ra < rb
		}
		if a.DailyVelocity != b.DailyVelocity {
			return a.DailyVelocity > b.DailyVelocity
		}
		return a.Deficit > b.Deficit
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

// coverage fracción del umbral cubierta por el stock actual.
func coverage(s dto.ReplenishmentSuggestionDTO) float64 {
	if s.Threshold <= 0 {
		return 1
	}
	if s.CurrentStock <= 0 {
		return 0
	}
	return float64(s.CurrentStock) / float64(s.Threshold)
}

// ToPlannedItemDTO convierte la decisión al DTO.
func ToPlannedItemDTO(it PlannedItem) dto.PlannedItemDTO {
	out := dto.PlannedItemDTO{
		ProductID:       it.ProductID,
		VariationID:     it.VariationID,
		PurchaseOrderID: it.PurchaseOrderID,
		Outcome:         string(it.Outcome),
		Quantity:        it.Quantity,
	}
	if out.ProductID == 0 && !it.Subject.IsVariation() {
		out.ProductID = it.Subject.ID
	}
	if out.VariationID == nil && it.Subject.IsVariation() {
		id := it.Subject.ID
		out.VariationID = &id
	}
	if it.Err != nil {
		out.Error = it.Err.Error()
	}
	return out
}
