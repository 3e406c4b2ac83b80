package repository

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// TenantRepository puerto de tenants y outlets. Devuelve (nil, nil) si no existe.
type TenantRepository interface {
	GetTenant(ctx context.Context, tenantID int64) (*entity.Tenant, error)
	// GetOutlet solo devuelve el outlet si pertenece al tenant.
	GetOutlet(ctx context.Context, tenantID, outletID int64) (*entity.Outlet, error)
	ListTenantIDs(ctx context.Context) ([]int64, error)
}
