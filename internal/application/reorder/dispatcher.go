package reorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/pkg/logger"
)

// EventHandler consumidor de cambios de stock.
type EventHandler interface {
	Handle(ctx context.Context, evt inventory.StockChangedEvent) error
}

// DispatcherConfig tamaño del pool y de la cola.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // por evento
}

// Dispatcher entrega los StockChangedEvent a un EventHandler en goroutines propias, fuera de la
// transacción que los produjo. Un fallo o panic del handler se registra y no se propaga.
type Dispatcher struct {
	handler EventHandler
	cfg     DispatcherConfig
	queue   chan inventory.StockChangedEvent
	log     zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher valores no positivos usan 4 workers, cola de 256 y 30s por evento.
func NewDispatcher(handler EventHandler, cfg DispatcherConfig, log zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Dispatcher{
		handler: handler,
		cfg:     cfg,
		queue:   make(chan inventory.StockChangedEvent, cfg.QueueSize),
		log:     log.With().Str("component", "stock_events").Logger(),
	}
}

// Start lanza los workers. ctx es el contexto base de cada evento; llamarlo más de una vez no hace nada.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// PublishStockChanged encola el evento sin bloquear. Con la cola llena o cerrada el evento se descarta
// y queda en el log; la revisión manual de reposición lo recupera.
func (d *Dispatcher) PublishStockChanged(evt inventory.StockChangedEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("event_id", evt.ID).Msg("dispatcher cerrado, evento descartado")
		return
	}
	select {
	case d.queue <- evt:
	default:
		d.log.Warn().
			Str("event_id", evt.ID).
			Int64("tenant_id", evt.TenantID).
			Str("subject", evt.Subject().Key()).
			Msg("cola de eventos llena, evento descartado")
	}
}

// Shutdown deja de aceptar eventos y espera a que se procesen los encolados o a que ctx termine.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher: eventos pendientes al cerrar: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(base context.Context) {
	defer d.wg.Done()
	for evt := range d.queue {
		d.handle(base, evt)
	}
}

func (d *Dispatcher) handle(base context.Context, evt inventory.StockChangedEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(base), d.cfg.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("event_id", evt.ID).Int64("tenant_id", evt.TenantID).Msg("panic procesando evento de stock")
		}
	}()
	if err := d.handler.Handle(ctx, evt); err != nil {
		lg := logger.Scope(d.log, evt.TenantID, evt.OutletID)
		lg.Error().Err(err).
			Str("event_id", evt.ID).
			Str(logger.FieldSubject, evt.Subject().Key()).
			Msg("error procesando evento de stock")
	}
}
