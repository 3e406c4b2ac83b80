package entity

import "time"

// AuditAction acción registrada en la bitácora de órdenes de compra automáticas.
type AuditAction string

const (
	AuditLowStockDetected        AuditAction = "low_stock_detected"
	AuditDraftCreated            AuditAction = "draft_created"
	AuditDraftUpdated            AuditAction = "draft_updated"
	AuditItemAdded               AuditAction = "item_added"
	AuditItemUpdated             AuditAction = "item_updated"
	AuditSupplierAssigned        AuditAction = "supplier_assigned"
	AuditReadyToOrder            AuditAction = "ready_to_order"
	AuditPOSubmitted             AuditAction = "po_submitted"
	AuditDuplicatePrevented      AuditAction = "duplicate_prevented"
	AuditSalesVelocityCalculated AuditAction = "sales_velocity_calculated"
	AuditQuantityRecalculated    AuditAction = "quantity_recalculated"
	AuditCheckTriggered          AuditAction = "check_triggered"
	AuditPOApproved              AuditAction = "po_approved"
	AuditPOOrdered               AuditAction = "po_ordered"
	AuditPOReceived              AuditAction = "po_received"
	AuditPOCancelled             AuditAction = "po_cancelled"
)

// AutoPOAuditLog fila append-only de la bitácora. Todas las referencias son opcionales.
type AutoPOAuditLog struct {
	ID              int64
	TenantID        int64
	PurchaseOrderID *int64
	ProductID       *int64
	VariationID     *int64
	SupplierID      *int64
	Action          AuditAction
	Description     string
	Context         map[string]any
	TriggeredBy     *int64 // nil = sistema
	CreatedAt       time.Time
}
