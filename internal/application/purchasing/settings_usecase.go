package purchasing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// SettingsUseCase configuración de reposición automática por tenant.
type SettingsUseCase struct {
	repo         repository.SettingsRepository
	defaultRatio decimal.Decimal
}

// NewSettingsUseCase construye el caso de uso. defaultRatio se usa si el tenant no fijó el suyo.
func NewSettingsUseCase(repo repository.SettingsRepository, defaultRatio decimal.Decimal) *SettingsUseCase {
	return &SettingsUseCase{repo: repo, defaultRatio: defaultRatio}
}

// Effective configuración vigente: la guardada o los valores por defecto.
func (uc *SettingsUseCase) Effective(ctx context.Context, tenantID int64) (*entity.AutoPurchaseOrderSettings, error) {
	s, err := uc.repo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return entity.DefaultAutoPOSettings(tenantID, uc.defaultRatio), nil
	}
	if !s.FallbackCostRatio.IsPositive() {
		s.FallbackCostRatio = uc.defaultRatio
	}
	if s.DefaultReorderQuantity <= 0 {
		s.DefaultReorderQuantity = 1
	}
	return s, nil
}

// Update guarda la configuración del tenant.
func (uc *SettingsUseCase) Update(ctx context.Context, tenantID int64, in dto.AutoPOSettingsRequest) (*entity.AutoPurchaseOrderSettings, error) {
	if in.DefaultReorderQuantity <= 0 {
		return nil, domain.Invalid("default_reorder_quantity", "debe ser mayor que cero")
	}
	if in.MinimumOrderValue.IsNegative() {
		return nil, domain.Invalid("minimum_order_value", "no puede ser negativo")
	}
	ratio := uc.defaultRatio
	if in.FallbackCostRatio != nil {
		if !in.FallbackCostRatio.IsPositive() || in.FallbackCostRatio.GreaterThan(decimal.NewFromInt(1)) {
			return nil, domain.Invalid("fallback_cost_ratio", "debe estar entre 0 y 1")
		}
		ratio = *in.FallbackCostRatio
	}
	s := &entity.AutoPurchaseOrderSettings{
		TenantID:               tenantID,
		AutoPOEnabled:          in.AutoPOEnabled,
		DefaultReorderQuantity: in.DefaultReorderQuantity,
		AutoApprovePO:          in.AutoApprovePO,
		NotifyOnAutoPO:         in.NotifyOnAutoPO,
		MinimumOrderValue:      in.MinimumOrderValue,
		GroupBySupplier:        in.GroupBySupplier,
		FallbackCostRatio:      ratio,
		UpdatedAt:              time.Now(),
	}
	if err := uc.repo.Upsert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ToSettingsResponse convierte la configuración al DTO.
func ToSettingsResponse(s *entity.AutoPurchaseOrderSettings) dto.AutoPOSettingsResponse {
	return dto.AutoPOSettingsResponse{
		AutoPOEnabled:          s.AutoPOEnabled,
		DefaultReorderQuantity: s.DefaultReorderQuantity,
		AutoApprovePO:          s.AutoApprovePO,
		NotifyOnAutoPO:         s.NotifyOnAutoPO,
		MinimumOrderValue:      s.MinimumOrderValue,
		GroupBySupplier:        s.GroupBySupplier,
		FallbackCostRatio:      s.FallbackCostRatio,
	}
}
