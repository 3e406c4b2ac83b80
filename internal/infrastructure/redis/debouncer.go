package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
)

var _ ports.Debouncer = (*Debouncer)(nil)

// Debouncer ventana de supresión compartida entre instancias: SET key NX EX window.
type Debouncer struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewDebouncer construye el debouncer. Las claves se guardan bajo "debounce:".
func NewDebouncer(rdb goredis.UniversalClient) *Debouncer {
	return &Debouncer{rdb: rdb, prefix: "debounce:"}
}

func (d *Debouncer) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return false, fmt.Errorf("redis debounce %s: %w", key, err)
	}
	return ok, nil
}
