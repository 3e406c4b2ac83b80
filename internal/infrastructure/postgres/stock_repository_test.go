package postgres_test

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-pos/pkg/config"
)

// integrationPool abre un pool sobre un schema nuevo con la migración aplicada.
// Requiere INTEGRATION_TESTS=1 y TEST_DATABASE_URL.
func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" || dsn == "" {
		t.Skip("set INTEGRATION_TESTS=1 y TEST_DATABASE_URL para correr tests contra PostgreSQL")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("it_%d", time.Now().UnixNano())

	admin, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 1})
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: u.String(), MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ddl, err := os.ReadFile("../../../migrations/001_inventory_reorder.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(ddl))
	require.NoError(t, err)
	return pool
}

func TestLocationStock_ConcurrentFirstMovementsKeepEveryUnit(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()

	var tenantID, outletID, productID, variationID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO tenants (code, name) VALUES ('CAFE', 'Café') RETURNING id`).Scan(&tenantID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO outlets (tenant_id, name) VALUES ($1, 'Centro') RETURNING id`, tenantID).Scan(&outletID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO products (tenant_id, sku, name) VALUES ($1, 'CAF', 'Café') RETURNING id`, tenantID).Scan(&productID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO variations (tenant_id, product_id, sku) VALUES ($1, $2, 'CAF-L') RETURNING id`, tenantID, productID).Scan(&variationID))

	runner := postgres.NewTxRunner(pool, zerolog.Nop())
	const workers = 12

	for _, subject := range []entity.StockSubject{entity.ProductSubject(productID), entity.VariationSubject(variationID)} {
		t.Run(subject.Key(), func(t *testing.T) {
			var g errgroup.Group
			for i := 0; i < workers; i++ {
				g.Go(func() error {
					return runner.Run(ctx, func(uow ports.UnitOfWork) error {
						st, err := uow.Stock().GetForUpdate(ctx, tenantID, subject, outletID)
						if err != nil {
							return err
						}
						st.Apply(1)
						return uow.Stock().Upsert(ctx, st)
					})
				})
			}
			require.NoError(t, g.Wait())

			st, err := postgres.NewLocationStockRepository(pool).Get(ctx, tenantID, subject, outletID)
			require.NoError(t, err)
			assert.Equal(t, int64(workers), st.Quantity)
			assert.Equal(t, productID, st.ProductID)
		})
	}

	// un sujeto de otro tenant no crea fila
	st, err := postgres.NewLocationStockRepository(pool).GetForUpdate(ctx, tenantID+1000, entity.ProductSubject(productID), outletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Quantity)
}
