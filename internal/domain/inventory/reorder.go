package inventory

import (
	"math"
	"time"
)

// Velocity ventas promedio de un sujeto en una ventana de días.
type Velocity struct {
	TotalSold  int64
	WindowDays int
	PerDay     float64
	PerWeek    float64
	PerMonth   float64
	LastSaleAt *time.Time
}

// NewVelocity calcula la velocidad de venta a partir del total vendido en la ventana.
func NewVelocity(totalSold int64, windowDays int, lastSale *time.Time) Velocity {
	v := Velocity{TotalSold: totalSold, WindowDays: windowDays, LastSaleAt: lastSale}
	if windowDays <= 0 || totalSold <= 0 {
		return v
	}
	v.PerDay = float64(totalSold) / float64(windowDays)
	v.PerWeek = v.PerDay * 7
	v.PerMonth = v.PerDay * 30
	return v
}

// ReorderParams entradas del cálculo de cantidad a pedir.
type ReorderParams struct {
	BaseQuantity    int64 // reorder_quantity del proveedor o default del tenant
	Threshold       int64 // reorder_point o low_stock_threshold
	CurrentStock    int64
	DailyVelocity   float64
	LeadTimeDays    int
	SafetyStockDays int
}

// ReorderQuantity cantidad a pedir: el mayor entre la base, lo que falta para
// superar el umbral y la demanda esperada durante el lead time más el stock de seguridad.
func ReorderQuantity(p ReorderParams) int64 {
	qty := p.BaseQuantity
	if deficit := p.Threshold - p.CurrentStock + 1; deficit > qty {
		qty = deficit
	}
	if p.DailyVelocity > 0 {
		days := p.LeadTimeDays + p.SafetyStockDays
		if v := int64(math.Floor(p.DailyVelocity * float64(days))); v > qty {
			qty = v
		}
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

// MergeQuantity nueva cantidad para una línea de borrador existente cuando el stock vuelve a avisar.
// Suma lo que el stock bajó desde la última planificación o sube a la cantidad recién calculada,
// lo que sea mayor. Nunca reduce la cantidad ya pedida.
func MergeQuantity(existing int64, stockAtPlanning *int64, currentStock, computed int64) int64 {
	merged := existing
	if stockAtPlanning != nil {
		if drop := *stockAtPlanning - currentStock; drop > 0 {
			merged = existing + drop
		}
	}
	if computed > merged {
		merged = computed
	}
	return merged
}
