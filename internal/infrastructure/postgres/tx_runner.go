package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool, log zerolog.Logger) *TxRunner {
	return &TxRunner{pool: pool, log: log}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los AfterCommit registrados corren solo tras un Commit exitoso; un panic en ellos se registra y no se propaga.
func (r *TxRunner) Run(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	uow := &unitOfWork{tx: tx}
	if err := fn(uow); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	for _, f := range uow.after {
		r.runHook(f)
	}
	return nil
}

func (r *TxRunner) runHook(f func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Msg("after-commit hook")
		}
	}()
	f()
}

type unitOfWork struct {
	tx    pgx.Tx
	after []func()
}

func (u *unitOfWork) Catalog() repository.CatalogRepository { return NewCatalogRepository(u.tx) }
func (u *unitOfWork) Movements() repository.StockMovementRepository {
	return NewStockMovementRepository(u.tx)
}
func (u *unitOfWork) Stock() repository.LocationStockRepository { return NewLocationStockRepository(u.tx) }
func (u *unitOfWork) Batches() repository.BatchRepository { return NewBatchRepository(u.tx) }
func (u *unitOfWork) PurchaseOrders() repository.PurchaseOrderRepository {
	return NewPurchaseOrderRepository(u.tx)
}
func (u *unitOfWork) Audit() repository.AuditLogRepository { return NewAuditLogRepository(u.tx) }
func (u *unitOfWork) AfterCommit(fn func()) { u.after = append(u.after, fn) }
