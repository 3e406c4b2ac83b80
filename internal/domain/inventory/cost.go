package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/domain"
)

// WeightedAverageCost costo promedio ponderado tras una entrada (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func WeightedAverageCost(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	if stockActual < 0 {
		stockActual = 0
	}
	sum := stockActual + cantEntrada
	if sum <= 0 {
		return decimal.Zero
	}
	if stockActual == 0 || costoActual.IsZero() {
		return costoEntrada.Round(4)
	}
	num := decimal.NewFromInt(stockActual).Mul(costoActual).Add(decimal.NewFromInt(cantEntrada).Mul(costoEntrada))
	return num.Div(decimal.NewFromInt(sum)).Round(4)
}

// CostSource de dónde salió el costo unitario de una línea de reposición.
type CostSource string

const (
	CostFromSupplier  CostSource = "product_supplier"
	CostFromVariation CostSource = "variation_cost"
	CostFromProduct   CostSource = "product_cost"
	CostFromPrice     CostSource = "price_ratio"
)

// CostInputs candidatos de costo en orden de preferencia. Un valor cero se considera ausente.
type CostInputs struct {
	SupplierCost  *decimal.Decimal
	VariationCost decimal.Decimal
	ProductCost   decimal.Decimal
	Price         decimal.Decimal // precio efectivo de venta (variación o producto)
	FallbackRatio decimal.Decimal
}

// ResolveUnitCost elige el costo unitario: proveedor, variación, producto y por último precio * ratio.
func ResolveUnitCost(in CostInputs) (decimal.Decimal, CostSource, error) {
	if in.SupplierCost != nil && in.SupplierCost.IsPositive() {
		return in.SupplierCost.Round(2), CostFromSupplier, nil
	}
	if in.VariationCost.IsPositive() {
		return in.VariationCost.Round(2), CostFromVariation, nil
	}
	if in.ProductCost.IsPositive() {
		return in.ProductCost.Round(2), CostFromProduct, nil
	}
	if in.Price.IsPositive() && in.FallbackRatio.IsPositive() {
		return in.Price.Mul(in.FallbackRatio).Round(2), CostFromPrice, nil
	}
	return decimal.Zero, "", fmt.Errorf("sin costo ni precio para estimar: %w", domain.ErrReorderPlanning)
}
