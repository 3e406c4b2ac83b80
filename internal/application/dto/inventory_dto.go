package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/inventory/movements. El outlet viene en X-Outlet-ID.
type RecordMovementRequest struct {
	ProductID   *int64           `json:"product_id,omitempty"`
	VariationID *int64           `json:"variation_id,omitempty"`
	Type        string           `json:"type" validate:"required,oneof=sale purchase adjustment return damage expiry"`
	Quantity    int64            `json:"quantity" validate:"gt=0"`
	Decrease    bool             `json:"decrease,omitempty"` // ajuste negativo
	BatchID     *int64           `json:"batch_id,omitempty"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Reference   string           `json:"reference,omitempty" validate:"max=100"`
	Reason      string           `json:"reason,omitempty" validate:"max=255"`
}

// SaleLineRequest línea de una venta.
type SaleLineRequest struct {
	ProductID   *int64 `json:"product_id,omitempty"`
	VariationID *int64 `json:"variation_id,omitempty"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	BatchID     *int64 `json:"batch_id,omitempty"`
}

// SaleRequest body para POST /api/inventory/sales.
type SaleRequest struct {
	Reference string            `json:"reference" validate:"required,max=100"`
	Lines     []SaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// TransferRequest body para POST /api/inventory/transfers (origen = X-Outlet-ID).
type TransferRequest struct {
	ProductID   *int64 `json:"product_id,omitempty"`
	VariationID *int64 `json:"variation_id,omitempty"`
	ToOutletID  int64  `json:"to_outlet_id" validate:"required,gt=0"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	Reason      string `json:"reason,omitempty" validate:"max=255"`
}

// MovementResponse fila del ledger.
type MovementResponse struct {
	ID            int64     `json:"id"`
	OutletID      int64     `json:"outlet_id"`
	ProductID     int64     `json:"product_id"`
	VariationID   *int64    `json:"variation_id,omitempty"`
	Type          string    `json:"type"`
	Quantity      int64     `json:"quantity"`
	Delta         int64     `json:"delta"`
	BatchID       *int64    `json:"batch_id,omitempty"`
	TransactionID string    `json:"transaction_id"`
	Reference     string    `json:"reference,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedBy     *int64    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StockResponse cantidad actual de un sujeto en un outlet.
type StockResponse struct {
	ProductID    int64     `json:"product_id"`
	VariationID  *int64    `json:"variation_id,omitempty"`
	OutletID     int64     `json:"outlet_id"`
	Quantity     int64     `json:"quantity"`
	BatchTracked bool      `json:"batch_tracked"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResyncResponse resultado de una resincronización.
type ResyncResponse struct {
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
}
