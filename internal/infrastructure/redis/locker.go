package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain"
)

var _ ports.Locker = (*Locker)(nil)

// Locker lock distribuido con redislock. Los reintentos duran mientras ctx siga vivo.
type Locker struct {
	client *redislock.Client
	retry  time.Duration
	log    zerolog.Logger
}

// NewLocker construye el locker sobre un cliente go-redis.
func NewLocker(rdb goredis.UniversalClient, log zerolog.Logger) *Locker {
	return &Locker{
		client: redislock.New(rdb),
		retry:  100 * time.Millisecond,
		log:    log.With().Str("component", "redis_locker").Logger(),
	}
}

func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	return func() {
		// el ctx de la operación puede estar vencido; liberar con uno propio
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(relCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el lock")
		}
	}, nil
}
