package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// maxNumberAttempts intentos con la secuencia antes de caer al número por timestamp.
const maxNumberAttempts = 5

// CreateNumbered inserta la orden asignándole el número {CODIGO}-PO-{secuencia}.
// Si el número ya existe pide el siguiente; tras varios choques usa un número por timestamp.
// domain.ErrConflict (ya hay un borrador abierto para el mismo proveedor y outlet) se devuelve tal cual.
func CreateNumbered(ctx context.Context, repo repository.PurchaseOrderRepository, po *entity.PurchaseOrder, tenantCode string, now time.Time) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		seq, err := repo.NextSequence(ctx, po.TenantID)
		if err != nil {
			return err
		}
		po.PONumber = domaininv.PONumber(tenantCode, seq)
		err = repo.Create(ctx, po)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
	}
	po.PONumber = domaininv.FallbackPONumber(tenantCode, now)
	return repo.Create(ctx, po)
}
