package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveBatchRequest body para POST /api/batches (outlet = X-Outlet-ID).
type ReceiveBatchRequest struct {
	VariationID int64            `json:"variation_id" validate:"required,gt=0"`
	BatchNumber string           `json:"batch_number" validate:"required,max=100"`
	ExpiryDate  string           `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Quantity    int64            `json:"quantity" validate:"gt=0"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`
	Reference   string           `json:"reference,omitempty" validate:"max=100"`
}

// BatchResponse lote con su estado de vencimiento.
type BatchResponse struct {
	ID              int64            `json:"id"`
	VariationID     int64            `json:"variation_id"`
	OutletID        int64            `json:"outlet_id"`
	BatchNumber     string           `json:"batch_number"`
	ExpiryDate      string           `json:"expiry_date"`
	Quantity        int64            `json:"quantity"`
	CostPrice       *decimal.Decimal `json:"cost_price,omitempty"`
	DaysUntilExpiry int              `json:"days_until_expiry"`
	Expired         bool             `json:"expired"`
	CreatedAt       time.Time        `json:"created_at"`
}

// BatchQuantitiesResponse cantidades de los lotes de una variación en un outlet.
type BatchQuantitiesResponse struct {
	VariationID int64           `json:"variation_id"`
	OutletID    int64           `json:"outlet_id"`
	Sellable    int64           `json:"sellable"`
	Total       int64           `json:"total_including_expired"`
	Batches     []BatchResponse `json:"batches"`
}
