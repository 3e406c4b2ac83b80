package ports

import (
	"context"
	"time"
)

// Locker lock distribuido por clave (redis) o en proceso (memoria).
type Locker interface {
	// Obtain espera hasta obtener el lock o hasta que ctx termine. Devuelve la función para liberarlo.
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Debouncer suprime eventos repetidos dentro de una ventana.
type Debouncer interface {
	// Allow true la primera vez que se ve key dentro de window; false mientras siga vigente.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}
