package purchasing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// CostInputsFor candidatos de costo del sujeto. La variación con precio propio manda sobre el producto.
func CostInputsFor(res entity.ResolvedSubject, supplierCost *decimal.Decimal, ratio decimal.Decimal) domaininv.CostInputs {
	in := domaininv.CostInputs{
		SupplierCost:  supplierCost,
		ProductCost:   res.Product.Cost,
		Price:         res.Product.Price,
		FallbackRatio: ratio,
	}
	if res.Variation != nil {
		in.VariationCost = res.Variation.Cost
		if res.Variation.Price.IsPositive() {
			in.Price = res.Variation.Price
		}
	}
	return in
}

// UnitCost costo unitario de compra del sujeto. Con supplierID se prefiere el costo pactado con ese proveedor.
func UnitCost(ctx context.Context, suppliers repository.SupplierRepository, tenantID int64, res entity.ResolvedSubject, supplierID *int64, ratio decimal.Decimal) (decimal.Decimal, domaininv.CostSource, error) {
	var supplierCost *decimal.Decimal
	if supplierID != nil {
		links, err := suppliers.ListProductSuppliers(ctx, tenantID, res.ProductID())
		if err != nil {
			return decimal.Zero, "", err
		}
		for _, ps := range links {
			if ps.SupplierID == *supplierID && ps.IsActive {
				supplierCost = ps.UnitCost
				break
			}
		}
	}
	return domaininv.ResolveUnitCost(CostInputsFor(res, supplierCost, ratio))
}
