package reorder

import (
	"context"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// VelocityCalculator velocidad de venta sobre una ventana móvil de días.
type VelocityCalculator struct {
	sales      repository.SalesRepository
	windowDays int
	now        func() time.Time
}

// NewVelocityCalculator windowDays <= 0 usa 30 días.
func NewVelocityCalculator(sales repository.SalesRepository, windowDays int) *VelocityCalculator {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &VelocityCalculator{sales: sales, windowDays: windowDays, now: time.Now}
}

// SalesVelocity unidades vendidas por día en la ventana. outletID nil = todos los outlets.
func (c *VelocityCalculator) SalesVelocity(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID *int64) (domaininv.Velocity, error) {
	since := c.now().AddDate(0, 0, -c.windowDays)
	sum, err := c.sales.SalesSince(ctx, tenantID, subject, outletID, since)
	if err != nil {
		return domaininv.Velocity{}, err
	}
	return domaininv.NewVelocity(sum.Quantity, c.windowDays, sum.LastSaleAt), nil
}
