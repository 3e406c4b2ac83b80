package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// BatchStore operaciones sobre los lotes de un par (variación, outlet). Trabaja con el repositorio
// que le pasen, normalmente el de la transacción en curso.
type BatchStore struct{}

// Consume descuenta qty unidades de los lotes vendibles, primero los que vencen antes.
// Todo o nada: con stock insuficiente no modifica ningún lote.
func (BatchStore) Consume(ctx context.Context, repo repository.BatchRepository, tenantID, variationID, outletID, qty int64, today time.Time) ([]domaininv.Deduction, error) {
	batches, err := repo.ListByStockForUpdate(ctx, tenantID, variationID, outletID)
	if err != nil {
		return nil, err
	}
	return consumeLoaded(ctx, repo, batches, qty, today)
}

// SellableQuantity unidades vendibles (lotes no vencidos) del par.
func (BatchStore) SellableQuantity(ctx context.Context, repo repository.BatchRepository, tenantID, variationID, outletID int64, today time.Time) (int64, error) {
	batches, err := repo.ListByStock(ctx, tenantID, variationID, outletID)
	if err != nil {
		return 0, err
	}
	return domaininv.SellableQuantity(batches, today), nil
}

// TotalQuantity unidades del par incluyendo lotes vencidos.
func (BatchStore) TotalQuantity(ctx context.Context, repo repository.BatchRepository, tenantID, variationID, outletID int64) (int64, error) {
	batches, err := repo.ListByStock(ctx, tenantID, variationID, outletID)
	if err != nil {
		return 0, err
	}
	return domaininv.TotalQuantity(batches), nil
}

func consumeLoaded(ctx context.Context, repo repository.BatchRepository, batches []*entity.Batch, qty int64, today time.Time) ([]domaininv.Deduction, error) {
	plan, err := domaininv.PlanConsumption(batches, qty, today)
	if err != nil {
		return nil, err
	}
	if err := applyDeductions(ctx, repo, batches, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func applyDeductions(ctx context.Context, repo repository.BatchRepository, batches []*entity.Batch, plan []domaininv.Deduction) error {
	for _, d := range plan {
		b := findBatch(batches, d.BatchID)
		if b == nil {
			return fmt.Errorf("lote %d: %w", d.BatchID, domain.ErrNotFound)
		}
		b.Quantity -= d.Quantity
		if err := repo.UpdateQuantity(ctx, b.ID, b.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// applyMovement aplica el movimiento a los lotes ya bloqueados del par y devuelve los descuentos.
func applyMovement(ctx context.Context, repo repository.BatchRepository, batches []*entity.Batch, mov *entity.StockMovement, today time.Time) ([]domaininv.Deduction, error) {
	if mov.IsDecrease() {
		if mov.BatchID != nil {
			b := findBatch(batches, *mov.BatchID)
			if b == nil {
				return nil, fmt.Errorf("lote %d: %w", *mov.BatchID, domain.ErrNotFound)
			}
			// bajas por daño o vencimiento pueden salir de un lote vencido; las ventas no
			if mov.Type != entity.MovementDamage && mov.Type != entity.MovementExpiry && !b.Sellable(today) {
				return nil, &domain.InsufficientStockError{Requested: mov.Quantity, Available: 0}
			}
			if b.Quantity < mov.Quantity {
				return nil, &domain.InsufficientStockError{Requested: mov.Quantity, Available: b.Quantity}
			}
			plan := []domaininv.Deduction{{BatchID: b.ID, Quantity: mov.Quantity}}
			return plan, applyDeductions(ctx, repo, batches, plan)
		}
		if mov.Type == entity.MovementExpiry {
			plan, err := planExpiredWriteOff(batches, mov.Quantity, today)
			if err != nil {
				return nil, err
			}
			return plan, applyDeductions(ctx, repo, batches, plan)
		}
		return consumeLoaded(ctx, repo, batches, mov.Quantity, today)
	}

	var target *entity.Batch
	if mov.BatchID != nil {
		target = findBatch(batches, *mov.BatchID)
		if target == nil {
			return nil, fmt.Errorf("lote %d: %w", *mov.BatchID, domain.ErrNotFound)
		}
	} else {
		target = freshestSellable(batches, today)
		if target == nil {
			return nil, domain.Invalid("batch_id", "requerido: la variación lleva lotes y ninguno está vigente")
		}
	}
	target.Quantity += mov.Quantity
	if err := repo.UpdateQuantity(ctx, target.ID, target.Quantity); err != nil {
		return nil, err
	}
	return nil, nil
}

// planExpiredWriteOff baja unidades de lotes vencidos, los más antiguos primero.
func planExpiredWriteOff(batches []*entity.Batch, qty int64, today time.Time) ([]domaininv.Deduction, error) {
	expired := make([]*entity.Batch, 0, len(batches))
	var available int64
	for _, b := range batches {
		if b.Quantity > 0 && b.IsExpired(today) {
			expired = append(expired, b)
			available += b.Quantity
		}
	}
	if available < qty {
		return nil, &domain.InsufficientStockError{Requested: qty, Available: available}
	}
	domaininv.SortFEFO(expired)
	plan := make([]domaininv.Deduction, 0, len(expired))
	remaining := qty
	for _, b := range expired {
		if remaining == 0 {
			break
		}
		take := min(b.Quantity, remaining)
		plan = append(plan, domaininv.Deduction{BatchID: b.ID, Quantity: take})
		remaining -= take
	}
	return plan, nil
}

func findBatch(batches []*entity.Batch, id int64) *entity.Batch {
	for _, b := range batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func freshestSellable(batches []*entity.Batch, today time.Time) *entity.Batch {
	candidates := make([]*entity.Batch, 0, len(batches))
	for _, b := range batches {
		if !b.IsExpired(today) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ExpiryDate.After(candidates[j].ExpiryDate)
	})
	return candidates[0]
}
