package notification

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

// LogSink escribe cada notificación como línea de log estructurada.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink construye el canal de log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "notifications").Logger()}
}

// Notify registra la notificación. Nunca falla.
func (s *LogSink) Notify(_ context.Context, n entity.Notification) error {
	s.log.Info().
		Str("type", string(n.Type)).
		Str("priority", string(n.Priority)).
		Int64("tenant_id", n.TenantID).
		Int64("outlet_id", n.OutletID).
		Str("resource_type", n.ResourceType).
		Int64("resource_id", n.ResourceID).
		Msg(n.Title + ": " + n.Message)
	return nil
}

// Fanout reparte cada notificación a todos sus canales. Un canal que falla no detiene a los demás;
// los errores se devuelven unidos.
type Fanout struct {
	sinks []ports.Notifier
}

// NewFanout construye el reparto; los nil se ignoran.
func NewFanout(sinks ...ports.Notifier) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Notify envía a todos los canales.
func (f *Fanout) Notify(ctx context.Context, n entity.Notification) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ports.Notifier = (*LogSink)(nil)
	_ ports.Notifier = (*Fanout)(nil)
)
