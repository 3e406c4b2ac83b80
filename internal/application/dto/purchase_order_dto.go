package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderItemResponse línea de una orden.
type PurchaseOrderItemResponse struct {
	ID               int64           `json:"id"`
	ProductID        int64           `json:"product_id"`
	VariationID      *int64          `json:"variation_id,omitempty"`
	SupplierID       *int64          `json:"supplier_id,omitempty"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Total            decimal.Decimal `json:"total"`
	ReceivedQuantity int64           `json:"received_quantity"`
}

// PurchaseOrderResponse orden de compra con sus líneas.
type PurchaseOrderResponse struct {
	ID                   int64                       `json:"id"`
	PONumber             string                      `json:"po_number"`
	OutletID             int64                       `json:"outlet_id"`
	SupplierID           *int64                      `json:"supplier_id,omitempty"`
	Status               string                      `json:"status"`
	Subtotal             decimal.Decimal             `json:"subtotal"`
	Tax                  decimal.Decimal             `json:"tax"`
	Discount             decimal.Decimal             `json:"discount"`
	Total                decimal.Decimal             `json:"total"`
	OrderDate            time.Time                   `json:"order_date"`
	ExpectedDeliveryDate *time.Time                  `json:"expected_delivery_date,omitempty"`
	Notes                string                      `json:"notes,omitempty"`
	IsAutoGenerated      bool                        `json:"is_auto_generated"`
	Items                []PurchaseOrderItemResponse `json:"items"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// CreatePurchaseOrderRequest body para POST /api/purchase-orders (outlet = X-Outlet-ID).
type CreatePurchaseOrderRequest struct {
	SupplierID *int64 `json:"supplier_id,omitempty"`
	Notes      string `json:"notes,omitempty" validate:"max=500"`
}

// AddPurchaseOrderItemRequest body para agregar una línea.
type AddPurchaseOrderItemRequest struct {
	ProductID   *int64           `json:"product_id,omitempty"`
	VariationID *int64           `json:"variation_id,omitempty"`
	SupplierID  *int64           `json:"supplier_id,omitempty"`
	Quantity    int64            `json:"quantity" validate:"gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

// UpdatePurchaseOrderItemRequest body para cambiar la cantidad de una línea.
type UpdatePurchaseOrderItemRequest struct {
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

// AssignSupplierRequest asigna proveedor a la orden o a una línea.
type AssignSupplierRequest struct {
	SupplierID int64  `json:"supplier_id" validate:"required,gt=0"`
	ItemID     *int64 `json:"item_id,omitempty"`
}

// AdjustmentsRequest impuesto y descuento de la cabecera.
type AdjustmentsRequest struct {
	Tax      decimal.Decimal `json:"tax" validate:"dec_gte0"`
	Discount decimal.Decimal `json:"discount" validate:"dec_gte0"`
}

// ReceiveLineRequest unidades recibidas de una línea. Para variaciones con lotes se indican lote y vencimiento.
type ReceiveLineRequest struct {
	ItemID      int64  `json:"item_id" validate:"required,gt=0"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	BatchNumber string `json:"batch_number,omitempty" validate:"max=100"`
	ExpiryDate  string `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ReceivePurchaseOrderRequest body para POST /api/purchase-orders/:id/receive.
type ReceivePurchaseOrderRequest struct {
	Lines []ReceiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// PurchaseOrderListResponse listado de órdenes.
type PurchaseOrderListResponse struct {
	Items []PurchaseOrderResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}
