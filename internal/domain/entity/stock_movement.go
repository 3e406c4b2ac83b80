package entity

import "time"

// MovementType tipo de movimiento del ledger de stock.
type MovementType string

const (
	MovementSale        MovementType = "sale"
	MovementPurchase    MovementType = "purchase"
	MovementAdjustment  MovementType = "adjustment"
	MovementTransferIn  MovementType = "transfer_in"
	MovementTransferOut MovementType = "transfer_out"
	MovementReturn      MovementType = "return"
	MovementDamage      MovementType = "damage"
	MovementExpiry      MovementType = "expiry"
)

// Valid true si el tipo es uno de los conocidos.
func (t MovementType) Valid() bool {
	switch t {
	case MovementSale, MovementPurchase, MovementAdjustment, MovementTransferIn,
		MovementTransferOut, MovementReturn, MovementDamage, MovementExpiry:
		return true
	}
	return false
}

// Decreases true para los tipos que siempre restan stock. El ajuste depende de su dirección.
func (t MovementType) Decreases() bool {
	switch t {
	case MovementSale, MovementTransferOut, MovementDamage, MovementExpiry:
		return true
	}
	return false
}

// StockMovement fila append-only del ledger. Quantity siempre positiva; el signo lo da Type
// (y Decrease para ajustes). Una vez creada no se modifica ni se borra.
type StockMovement struct {
	ID            int64
	TenantID      int64
	OutletID      int64
	ProductID     int64
	VariationID   *int64
	Type          MovementType
	Quantity      int64
	Decrease      bool // solo relevante para ajustes
	BatchID       *int64
	TransactionID string // agrupa los dos lados de un traslado
	Reference     string
	Reason        string
	CreatedBy     *int64
	CreatedAt     time.Time
}

// Subject sujeto de stock del movimiento.
func (m *StockMovement) Subject() StockSubject {
	if m.VariationID != nil {
		return VariationSubject(*m.VariationID)
	}
	return ProductSubject(m.ProductID)
}

// IsDecrease true si el movimiento resta stock.
func (m *StockMovement) IsDecrease() bool {
	if m.Type == MovementAdjustment {
		return m.Decrease
	}
	return m.Type.Decreases()
}

// Delta cantidad con signo que el movimiento aplica al stock.
func (m *StockMovement) Delta() int64 {
	if m.IsDecrease() {
		return -m.Quantity
	}
	return m.Quantity
}
