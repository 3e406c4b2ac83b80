package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/ws"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
	err    error
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHub_NotifyOnlyTenantClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub(zerolog.Nop())
	go hub.Run(ctx)

	own := &fakeConn{}
	other := &fakeConn{}
	require.NoError(t, hub.Register(ctx, &ws.Client{TenantID: 1, Conn: own}))
	require.NoError(t, hub.Register(ctx, &ws.Client{TenantID: 2, Conn: other}))
	require.Eventually(t, func() bool { return hub.Connected(1) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Notify(ctx, entity.Notification{TenantID: 1, Type: entity.NotificationLowStock, Title: "Stock bajo"}))

	require.Eventually(t, func() bool { return own.received() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, other.received())

	var n entity.Notification
	own.mu.Lock()
	require.NoError(t, json.Unmarshal(own.msgs[0], &n))
	own.mu.Unlock()
	assert.Equal(t, entity.NotificationLowStock, n.Type)
}

func TestHub_DropsBrokenConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub(zerolog.Nop())
	go hub.Run(ctx)

	broken := &fakeConn{err: errors.New("broken pipe")}
	require.NoError(t, hub.Register(ctx, &ws.Client{TenantID: 7, Conn: broken}))
	require.NoError(t, hub.Notify(ctx, entity.Notification{TenantID: 7}))

	require.Eventually(t, func() bool { return hub.Connected(7) == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, broken.isClosed())
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := &fakeConn{}
	require.NoError(t, hub.Register(ctx, &ws.Client{TenantID: 1, Conn: c}))
	cancel()
	<-done
	assert.True(t, c.isClosed())
	assert.Equal(t, 0, hub.Connected(1))
}
