package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

var _ ports.Notifier = (*Hub)(nil)

// Conn lo que el hub necesita de una conexión websocket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client conexión registrada de un tenant.
type Client struct {
	TenantID int64
	Conn     Conn
}

type message struct {
	tenantID int64
	payload  []byte
}

// Hub reparte notificaciones a las conexiones abiertas de cada tenant.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	mutex      sync.Mutex
	log        zerolog.Logger
}

// NewHub construye el hub; Run debe correr en su propia goroutine.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

// Run procesa registros y envíos hasta que ctx termina; al salir cierra todas las conexiones.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for _, set := range h.clients {
				for c := range set {
					_ = c.Conn.Close()
				}
			}
			h.clients = make(map[int64]map[*Client]struct{})
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			if h.clients[c.TenantID] == nil {
				h.clients[c.TenantID] = make(map[*Client]struct{})
			}
			h.clients[c.TenantID][c] = struct{}{}
			h.mutex.Unlock()
			h.log.Debug().Int64("tenant_id", c.TenantID).Msg("cliente ws conectado")

		case c := <-h.unregister:
			h.mutex.Lock()
			h.remove(c)
			h.mutex.Unlock()

		case m := <-h.broadcast:
			h.mutex.Lock()
			for c := range h.clients[m.tenantID] {
				if err := c.Conn.WriteMessage(websocket.TextMessage, m.payload); err != nil {
					h.remove(c)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove requiere mutex tomado.
func (h *Hub) remove(c *Client) {
	set := h.clients[c.TenantID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.TenantID)
	}
	_ = c.Conn.Close()
}

// Register agrega la conexión; bloquea hasta que Run la acepte o ctx termine.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unregister quita la conexión y la cierra.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	select {
	case h.unregister <- c:
	case <-ctx.Done():
	}
}

// Connected número de conexiones abiertas del tenant.
func (h *Hub) Connected(tenantID int64) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[tenantID])
}

// Notify encola la notificación para los clientes del tenant.
func (h *Hub) Notify(ctx context.Context, n entity.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("ws: serializar notificación: %w", err)
	}
	select {
	case h.broadcast <- message{tenantID: n.TenantID, payload: payload}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ws: cola de envío llena: %w", ctx.Err())
	}
}
