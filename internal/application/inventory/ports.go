package inventory

import (
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// StockChangedEvent se publica después del commit de cada escritura al cache de stock.
type StockChangedEvent struct {
	ID             string
	TenantID       int64
	OutletID       int64
	ProductID      int64
	VariationID    *int64
	MovementID     int64
	MovementType   entity.MovementType
	Decrease       bool
	QuantityBefore int64
	QuantityAfter  int64
	ActorID        *int64
	OccurredAt     time.Time
}

// Subject sujeto de stock afectado.
func (e StockChangedEvent) Subject() entity.StockSubject {
	if e.VariationID != nil {
		return entity.VariationSubject(*e.VariationID)
	}
	return entity.ProductSubject(e.ProductID)
}

// Decreased true si el movimiento resta stock o la escritura bajó la cantidad.
func (e StockChangedEvent) Decreased() bool {
	return e.Decrease || e.QuantityAfter < e.QuantityBefore
}

// EventPublisher recibe los eventos de cambio de stock. No debe bloquear al llamador.
type EventPublisher interface {
	PublishStockChanged(evt StockChangedEvent)
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

// PublishStockChanged no hace nada.
func (NopPublisher) PublishStockChanged(StockChangedEvent) {}
