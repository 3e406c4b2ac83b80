// Package kafka publica las notificaciones del backend en un tópico para otros servicios (POS, apps móviles).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/pkg/config"
)

var _ ports.Notifier = (*NotificationSink)(nil)

// MessageWriter subconjunto de *kafka.Writer usado por el sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Event sobre de cada mensaje publicado.
type Event struct {
	EventID   string              `json:"event_id"`
	EventType string              `json:"event_type"`
	Payload   entity.Notification `json:"payload"`
	Timestamp time.Time           `json:"timestamp"`
}

// NotificationSink canal de notificaciones hacia Kafka. La clave del mensaje es el tenant, así
// las notificaciones de un tenant conservan el orden dentro de su partición.
type NotificationSink struct {
	w   MessageWriter
	now func() time.Time
}

// NewWriter writer asíncrono con balanceo por hash de la clave.
func NewWriter(cfg config.KafkaConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
	}
}

// NewNotificationSink construye el sink sobre un writer (inyectable en tests).
func NewNotificationSink(w MessageWriter) *NotificationSink {
	return &NotificationSink{w: w, now: time.Now}
}

func (s *NotificationSink) Notify(ctx context.Context, n entity.Notification) error {
	evt := Event{
		EventID:   uuid.NewString(),
		EventType: string(n.Type),
		Payload:   n,
		Timestamp: s.now().UTC(),
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: serializar notificación: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(strconv.FormatInt(n.TenantID, 10)),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publicar %s: %w", evt.EventType, err)
	}
	return nil
}

// Close cierra el writer.
func (s *NotificationSink) Close() error {
	return s.w.Close()
}
