package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutoPOSettingsRequest body para PUT /api/reorder/settings.
type AutoPOSettingsRequest struct {
	AutoPOEnabled          bool             `json:"auto_po_enabled"`
	DefaultReorderQuantity int64            `json:"default_reorder_quantity" validate:"gte=1"`
	AutoApprovePO          bool             `json:"auto_approve_po"`
	NotifyOnAutoPO         bool             `json:"notify_on_auto_po"`
	MinimumOrderValue      decimal.Decimal  `json:"minimum_order_value" validate:"dec_gte0"`
	GroupBySupplier        bool             `json:"group_by_supplier"`
	FallbackCostRatio      *decimal.Decimal `json:"fallback_cost_ratio,omitempty"`
}

// AutoPOSettingsResponse configuración efectiva del tenant.
type AutoPOSettingsResponse struct {
	AutoPOEnabled          bool            `json:"auto_po_enabled"`
	DefaultReorderQuantity int64           `json:"default_reorder_quantity"`
	AutoApprovePO          bool            `json:"auto_approve_po"`
	NotifyOnAutoPO         bool            `json:"notify_on_auto_po"`
	MinimumOrderValue      decimal.Decimal `json:"minimum_order_value"`
	GroupBySupplier        bool            `json:"group_by_supplier"`
	FallbackCostRatio      decimal.Decimal `json:"fallback_cost_ratio"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un sujeto en o bajo su umbral.
type ReplenishmentSuggestionDTO struct {
	ProductID          int64           `json:"product_id"`
	VariationID        *int64          `json:"variation_id,omitempty"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	CurrentStock       int64           `json:"current_stock"`
	Threshold          int64           `json:"threshold"`
	Deficit            int64           `json:"deficit"`
	DailyVelocity      float64         `json:"daily_velocity"`
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"`
	SupplierID         *int64          `json:"supplier_id,omitempty"`
	Priority           int             `json:"priority"` // 1 = más urgente
}

// PlannedItemDTO resultado de planificar un sujeto.
type PlannedItemDTO struct {
	ProductID       int64  `json:"product_id"`
	VariationID     *int64 `json:"variation_id,omitempty"`
	PurchaseOrderID *int64 `json:"purchase_order_id,omitempty"`
	Outcome         string `json:"outcome"`
	Quantity        int64  `json:"quantity,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ReorderCheckResponse respuesta de POST /api/reorder/check.
type ReorderCheckResponse struct {
	Checked     int                          `json:"checked"`
	Items       []PlannedItemDTO             `json:"items"`
	Suggestions []ReplenishmentSuggestionDTO `json:"suggestions"`
}

// AuditLogResponse fila de la bitácora.
type AuditLogResponse struct {
	ID              int64          `json:"id"`
	PurchaseOrderID *int64         `json:"purchase_order_id,omitempty"`
	ProductID       *int64         `json:"product_id,omitempty"`
	VariationID     *int64         `json:"variation_id,omitempty"`
	SupplierID      *int64         `json:"supplier_id,omitempty"`
	Action          string         `json:"action"`
	Description     string         `json:"description"`
	Context         map[string]any `json:"context,omitempty"`
	TriggeredBy     *int64         `json:"triggered_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
