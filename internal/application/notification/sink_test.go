package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
)

type recordingSink struct {
	got []entity.Notification
	err error
}

func (r *recordingSink) Notify(_ context.Context, n entity.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("kafka caído")}
	f := NewFanout(bad, nil, ok)

	err := f.Notify(context.Background(), entity.Notification{Type: entity.NotificationLowStock, TenantID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka caído")
	assert.Len(t, ok.got, 1, "el canal sano recibe aunque otro falle")
	assert.Len(t, bad.got, 1)
}

func TestLogSink_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(zerolog.New(&buf))
	require.NoError(t, s.Notify(context.Background(), entity.Notification{
		Type: entity.NotificationLowStock, TenantID: 3, Title: "Stock bajo", Message: "Café: 2 unidades",
	}))
	assert.Contains(t, buf.String(), `"type":"low_stock"`)
	assert.Contains(t, buf.String(), `"tenant_id":3`)
	assert.Contains(t, buf.String(), "Stock bajo: Café: 2 unidades")
}
