package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// Deduction unidades a descontar de un lote.
type Deduction struct {
	BatchID  int64
	Quantity int64
}

// SortFEFO ordena lotes por vencimiento más próximo y, a igual fecha, por antigüedad.
func SortFEFO(batches []*entity.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SellableQuantity suma de unidades en lotes no vencidos.
func SellableQuantity(batches []*entity.Batch, today time.Time) int64 {
	var total int64
	for _, b := range batches {
		if b.Sellable(today) {
			total += b.Quantity
		}
	}
	return total
}

// TotalQuantity suma de unidades incluyendo lotes vencidos.
func TotalQuantity(batches []*entity.Batch) int64 {
	var total int64
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}

// PlanConsumption calcula de qué lotes vendibles salen qty unidades, primero los que vencen antes.
// Todo o nada: si no alcanza devuelve InsufficientStockError y ningún descuento.
// No modifica los lotes recibidos.
func PlanConsumption(batches []*entity.Batch, qty int64, today time.Time) ([]Deduction, error) {
	if qty <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	sellable := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if b.Sellable(today) {
			sellable = append(sellable, b)
		}
	}
	available := SellableQuantity(sellable, today)
	if available < qty {
		return nil, &domain.InsufficientStockError{Requested: qty, Available: available}
	}
	SortFEFO(sellable)

	out := make([]Deduction, 0, 2)
	remaining := qty
	for _, b := range sellable {
		if remaining == 0 {
			break
		}
		take := b.Quantity
		if take > remaining {
			take = remaining
		}
		out = append(out, Deduction{BatchID: b.ID, Quantity: take})
		remaining -= take
	}
	return out, nil
}
