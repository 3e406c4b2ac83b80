package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// ResolveSubject carga producto (y variación) del catálogo del tenant.
// ErrNotFound si no existe o es de otro tenant.
func ResolveSubject(ctx context.Context, catalog repository.CatalogRepository, tenantID int64, subject entity.StockSubject) (entity.ResolvedSubject, error) {
	if subject.IsZero() {
		return entity.ResolvedSubject{}, domain.Invalid("subject", "product_id o variation_id requerido")
	}
	var res entity.ResolvedSubject
	productID := subject.ID
	if subject.IsVariation() {
		v, err := catalog.GetVariation(ctx, tenantID, subject.ID)
		if err != nil {
			return res, err
		}
		if v == nil {
			return res, fmt.Errorf("variación %d: %w", subject.ID, domain.ErrNotFound)
		}
		res.Variation = v
		productID = v.ProductID
	}
	p, err := catalog.GetProduct(ctx, tenantID, productID)
	if err != nil {
		return res, err
	}
	if p == nil {
		return res, fmt.Errorf("producto %d: %w", productID, domain.ErrNotFound)
	}
	res.Product = p
	return res, nil
}

// CheckOutlet verifica que el outlet exista y pertenezca al tenant.
func CheckOutlet(ctx context.Context, tenants repository.TenantRepository, tenantID, outletID int64) (*entity.Outlet, error) {
	if outletID <= 0 {
		return nil, domain.Invalid("outlet_id", "requerido")
	}
	o, err := tenants.GetOutlet(ctx, tenantID, outletID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("outlet %d: %w", outletID, domain.ErrNotFound)
	}
	return o, nil
}
