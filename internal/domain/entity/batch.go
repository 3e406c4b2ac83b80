package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch lote de una variación en un outlet, con fecha de vencimiento. Solo las variaciones
// llevan lotes. Si existe al menos un lote para (variación, outlet), el stock de ese par
// se deriva de los lotes vendibles.
type Batch struct {
	ID          int64
	TenantID    int64
	VariationID int64
	OutletID    int64
	BatchNumber string
	ExpiryDate  time.Time // fecha (sin hora)
	Quantity    int64
	CostPrice   *decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsExpired true si la fecha de vencimiento ya pasó. El día de vencimiento el lote aún es vendible.
func (b *Batch) IsExpired(today time.Time) bool {
	return DateOf(b.ExpiryDate).Before(DateOf(today))
}

// Sellable true si el lote tiene unidades y no está vencido.
func (b *Batch) Sellable(today time.Time) bool {
	return b.Quantity > 0 && !b.IsExpired(today)
}

// DaysUntilExpiry días hasta el vencimiento (negativo si ya venció).
func (b *Batch) DaysUntilExpiry(today time.Time) int {
	return int(DateOf(b.ExpiryDate).Sub(DateOf(today)).Hours() / 24)
}

// DateOf lleva t a UTC y lo trunca a la medianoche de esa fecha.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
