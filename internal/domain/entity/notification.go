package entity

import "time"

// NotificationType tipo de notificación emitida por el backend.
type NotificationType string

const (
	NotificationLowStock      NotificationType = "low_stock"
	NotificationSaleCompleted NotificationType = "sale_completed"
	NotificationAutoPOCreated NotificationType = "auto_po_created"
)

// NotificationPriority prioridad de la notificación.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification mensaje para los canales de notificación (log, websocket, kafka).
type Notification struct {
	ID           string               `json:"id"`
	TenantID     int64                `json:"tenant_id"`
	OutletID     int64                `json:"outlet_id,omitempty"`
	Type         NotificationType     `json:"type"`
	Priority     NotificationPriority `json:"priority"`
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	ResourceType string               `json:"resource_type,omitempty"`
	ResourceID   int64                `json:"resource_id,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}
