package ports

import (
	"context"

	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// UnitOfWork repositorios ligados a una misma transacción.
// AfterCommit registra funciones que se ejecutan solo si la transacción confirma.
type UnitOfWork interface {
	Catalog() repository.CatalogRepository
	Movements() repository.StockMovementRepository
	Stock() repository.LocationStockRepository
	Batches() repository.BatchRepository
	PurchaseOrders() repository.PurchaseOrderRepository
	Audit() repository.AuditLogRepository
	AfterCommit(fn func())
}

// TxRunner ejecuta fn dentro de una transacción. Si fn devuelve error se hace rollback
// y los AfterCommit registrados se descartan.
type TxRunner interface {
	Run(ctx context.Context, fn func(uow UnitOfWork) error) error
}
