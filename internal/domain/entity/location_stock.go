package entity

import "time"

// LocationStock cantidad actual de un sujeto en un outlet (cache materializada del ledger).
// Nunca negativa.
type LocationStock struct {
	TenantID    int64
	ProductID   int64
	VariationID *int64
	OutletID    int64
	Quantity    int64
	UpdatedAt   time.Time
}

// Subject sujeto de stock de la fila.
func (l *LocationStock) Subject() StockSubject {
	if l.VariationID != nil {
		return VariationSubject(*l.VariationID)
	}
	return ProductSubject(l.ProductID)
}

// Apply suma delta y recorta en 0. Devuelve true si hubo recorte.
func (l *LocationStock) Apply(delta int64) (clamped bool) {
	next := l.Quantity + delta
	if next < 0 {
		l.Quantity = 0
		return true
	}
	l.Quantity = next
	return false
}
