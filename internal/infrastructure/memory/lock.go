package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
)

var (
	_ ports.Locker    = (*Locker)(nil)
	_ ports.Debouncer = (*Debouncer)(nil)
)

// Locker locks por clave dentro del proceso. El TTL se ignora: el lock dura hasta release.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocker construye el locker.
func NewLocker() *Locker {
	return &Locker{held: map[string]chan struct{}{}}
}

// Obtain espera a que la clave quede libre o a que ctx termine.
func (l *Locker) Obtain(ctx context.Context, key string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Debouncer ventanas de supresión en memoria.
type Debouncer struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewDebouncer construye el debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{until: map[string]time.Time{}, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	d.now = now
	return d
}

// Allow true si key no se vio dentro de la ventana vigente.
func (d *Debouncer) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if until, ok := d.until[key]; ok && now.Before(until) {
		return false, nil
	}
	d.until[key] = now.Add(window)
	return true, nil
}
