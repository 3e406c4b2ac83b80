package ports

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// Notifier puerto de salida de notificaciones (log, websocket, kafka).
// Los errores de un canal no deben impedir la operación que notifica.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}
