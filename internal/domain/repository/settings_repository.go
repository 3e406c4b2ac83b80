package repository

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// SettingsRepository puerto de la configuración de reposición por tenant. Get devuelve (nil, nil) si no hay fila.
type SettingsRepository interface {
	Get(ctx context.Context, tenantID int64) (*entity.AutoPurchaseOrderSettings, error)
	Upsert(ctx context.Context, s *entity.AutoPurchaseOrderSettings) error
}
