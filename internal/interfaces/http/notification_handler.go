package http

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-pos/internal/infrastructure/ws"
)

// NotificationHandler canal websocket de notificaciones (stock bajo, órdenes automáticas) por tenant.
type NotificationHandler struct {
	hub *ws.Hub
}

// NewNotificationHandler construye el handler.
func NewNotificationHandler(hub *ws.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// Upgrade rechaza lo que no sea un upgrade a websocket.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Stream registra la conexión en el hub y la mantiene hasta que el cliente cierre.
func (h *NotificationHandler) Stream() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		tenantID, _ := c.Locals(LocalTenantID).(int64)
		client := &ws.Client{TenantID: tenantID, Conn: c}
		ctx := context.Background()
		if err := h.hub.Register(ctx, client); err != nil {
			_ = c.Close()
			return
		}
		defer h.hub.Unregister(ctx, client)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
}
