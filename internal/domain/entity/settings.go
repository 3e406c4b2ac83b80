package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutoPurchaseOrderSettings configuración de reposición automática de un tenant.
type AutoPurchaseOrderSettings struct {
	TenantID               int64
	AutoPOEnabled          bool
	DefaultReorderQuantity int64
	AutoApprovePO          bool
	NotifyOnAutoPO         bool
	MinimumOrderValue      decimal.Decimal
	GroupBySupplier        bool
	FallbackCostRatio      decimal.Decimal // precio * ratio cuando no hay costo conocido
	UpdatedAt              time.Time
}

// DefaultAutoPOSettings valores de un tenant que nunca guardó su configuración.
func DefaultAutoPOSettings(tenantID int64, fallbackRatio decimal.Decimal) *AutoPurchaseOrderSettings {
	return &AutoPurchaseOrderSettings{
		TenantID:               tenantID,
		AutoPOEnabled:          true,
		DefaultReorderQuantity: 10,
		NotifyOnAutoPO:         true,
		MinimumOrderValue:      decimal.Zero,
		GroupBySupplier:        true,
		FallbackCostRatio:      fallbackRatio,
	}
}
