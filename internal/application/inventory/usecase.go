package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
	"github.com/jhoicas/Inventario-pos/pkg/logger"
)

// LedgerUseCase registra movimientos de stock de forma transaccional: bloquea el cache
// (SELECT FOR UPDATE), aplica lotes si la variación los lleva, escribe el ledger y hace Commit/Rollback.
// Tras el commit publica StockChangedEvent para el detector de stock bajo.
type LedgerUseCase struct {
	txRunner  ports.TxRunner
	catalog   repository.CatalogRepository
	tenants   repository.TenantRepository
	movements repository.StockMovementRepository
	publisher EventPublisher
	notifier  ports.Notifier
	log       zerolog.Logger
	now       func() time.Time
}

// NewLedgerUseCase construye el caso de uso del ledger.
func NewLedgerUseCase(
	txRunner ports.TxRunner,
	catalog repository.CatalogRepository,
	tenants repository.TenantRepository,
	movements repository.StockMovementRepository,
	publisher EventPublisher,
	notifier ports.Notifier,
	log zerolog.Logger,
) *LedgerUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &LedgerUseCase{
		txRunner:  txRunner,
		catalog:   catalog,
		tenants:   tenants,
		movements: movements,
		publisher: publisher,
		notifier:  notifier,
		log:       log.With().Str("component", "stock_ledger").Logger(),
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// SetPublisher conecta el publicador de eventos después de construir el caso de uso.
func (uc *LedgerUseCase) SetPublisher(p EventPublisher) {
	if p != nil {
		uc.publisher = p
	}
}

// RecordInput entrada para registrar un movimiento.
// Quantity siempre positiva; el signo lo da Type (Decrease solo para ajustes).
type RecordInput struct {
	TenantID      int64
	OutletID      int64
	Subject       entity.StockSubject
	Type          entity.MovementType
	Quantity      int64
	Decrease      bool
	BatchID       *int64
	UnitCost      *decimal.Decimal // solo compras: actualiza costo promedio ponderado
	Reference     string
	Reason        string
	ActorID       *int64
	TransactionID string // vacío = se genera uno
}

func (in RecordInput) validate(allowTransfer bool) error {
	switch {
	case in.TenantID <= 0:
		return domain.Invalid("tenant_id", "requerido")
	case in.OutletID <= 0:
		return domain.Invalid("outlet_id", "requerido")
	case in.Subject.IsZero():
		return domain.Invalid("subject", "product_id o variation_id requerido")
	case !in.Type.Valid():
		return domain.Invalid("type", "tipo de movimiento desconocido %q", in.Type)
	case in.Quantity <= 0:
		return domain.Invalid("quantity", "debe ser mayor que cero")
	case in.BatchID != nil && !in.Subject.IsVariation():
		return domain.Invalid("batch_id", "solo las variaciones llevan lotes")
	case in.UnitCost != nil && in.UnitCost.IsNegative():
		return domain.Invalid("unit_cost", "no puede ser negativo")
	}
	if !allowTransfer && (in.Type == entity.MovementTransferIn || in.Type == entity.MovementTransferOut) {
		return domain.Invalid("type", "los traslados se registran con Transfer")
	}
	return nil
}

// Record valida, resuelve el sujeto y registra el movimiento en su propia transacción.
func (uc *LedgerUseCase) Record(ctx context.Context, in RecordInput) (*entity.StockMovement, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	if _, err := CheckOutlet(ctx, uc.tenants, in.TenantID, in.OutletID); err != nil {
		return nil, err
	}
	res, err := ResolveSubject(ctx, uc.catalog, in.TenantID, in.Subject)
	if err != nil {
		return nil, err
	}

	var mov *entity.StockMovement
	err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		r, err := uc.record(ctx, uow, res, in)
		if err != nil {
			return err
		}
		mov = r.movement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// RecordInTx registra el movimiento con los repositorios de una transacción abierta por el llamador
// (recepción de órdenes de compra, lotes). El evento se publica solo si esa transacción confirma.
func (uc *LedgerUseCase) RecordInTx(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, in RecordInput) (*entity.StockMovement, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	r, err := uc.record(ctx, uow, res, in)
	if err != nil {
		return nil, err
	}
	return r.movement, nil
}

type recordResult struct {
	movement   *entity.StockMovement
	deductions []domaininv.Deduction
	after      int64
}

func (uc *LedgerUseCase) record(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, in RecordInput) (*recordResult, error) {
	now := uc.now()
	txID := in.TransactionID
	if txID == "" {
		txID = uuid.New().String()
	}
	mov := &entity.StockMovement{
		TenantID:      in.TenantID,
		OutletID:      in.OutletID,
		ProductID:     res.ProductID(),
		VariationID:   res.VariationID(),
		Type:          in.Type,
		Quantity:      in.Quantity,
		Decrease:      in.Type == entity.MovementAdjustment && in.Decrease,
		BatchID:       in.BatchID,
		TransactionID: txID,
		Reference:     in.Reference,
		Reason:        in.Reason,
		CreatedBy:     in.ActorID,
		CreatedAt:     now,
	}

	// Productos sin control de inventario: solo ledger.
	if !res.Product.TrackInventory {
		if err := uow.Movements().Create(ctx, mov); err != nil {
			return nil, err
		}
		return &recordResult{movement: mov}, nil
	}

	subject := res.Subject()
	// Bloquea la fila del cache (SELECT FOR UPDATE) para evitar condiciones de carrera
	stock, err := uow.Stock().GetForUpdate(ctx, in.TenantID, subject, in.OutletID)
	if err != nil {
		return nil, err
	}
	before := stock.Quantity

	var batches []*entity.Batch
	if res.Variation != nil {
		batches, err = uow.Batches().ListByStockForUpdate(ctx, in.TenantID, res.Variation.ID, in.OutletID)
		if err != nil {
			return nil, err
		}
	}

	out := &recordResult{movement: mov}
	if len(batches) > 0 {
		out.deductions, err = applyMovement(ctx, uow.Batches(), batches, mov, now)
		if err != nil {
			return nil, err
		}
		stock.Quantity = domaininv.SellableQuantity(batches, now)
	} else {
		if in.BatchID != nil {
			return nil, fmt.Errorf("lote %d: %w", *in.BatchID, domain.ErrNotFound)
		}
		if stock.Apply(mov.Delta()) {
			lg := logger.Scope(uc.log, in.TenantID, in.OutletID)
			lg.Warn().
				Str(logger.FieldSubject, subject.Key()).
				Int64("available", before).
				Int64("requested", in.Quantity).
				Str("type", string(in.Type)).
				Msg("stock insuficiente en cache; se recorta a 0 y el ledger registra la cantidad completa")
		}
	}
	stock.UpdatedAt = now
	if err := uow.Stock().Upsert(ctx, stock); err != nil {
		return nil, err
	}

	if in.Type == entity.MovementPurchase && in.UnitCost != nil {
		if err := uc.updateAverageCost(ctx, uow, res, before, in.Quantity, *in.UnitCost); err != nil {
			return nil, err
		}
	}

	if err := uow.Movements().Create(ctx, mov); err != nil {
		return nil, err
	}
	out.after = stock.Quantity

	evt := StockChangedEvent{
		ID:             uuid.New().String(),
		TenantID:       in.TenantID,
		OutletID:       in.OutletID,
		ProductID:      mov.ProductID,
		VariationID:    mov.VariationID,
		MovementID:     mov.ID,
		MovementType:   mov.Type,
		Decrease:       mov.IsDecrease(),
		QuantityBefore: before,
		QuantityAfter:  stock.Quantity,
		ActorID:        in.ActorID,
		OccurredAt:     now,
	}
	uow.AfterCommit(func() { uc.publisher.PublishStockChanged(evt) })
	return out, nil
}

// updateAverageCost recalcula el costo promedio ponderado de la variación (o del producto).
func (uc *LedgerUseCase) updateAverageCost(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, stockBefore, qty int64, unitCost decimal.Decimal) error {
	if res.Variation != nil {
		current := res.Variation.Cost
		if current.IsZero() {
			current = res.Product.Cost
		}
		newCost := domaininv.WeightedAverageCost(stockBefore, current, qty, unitCost)
		res.Variation.Cost = newCost
		return uow.Catalog().UpdateVariationCost(ctx, res.Product.TenantID, res.Variation.ID, newCost)
	}
	newCost := domaininv.WeightedAverageCost(stockBefore, res.Product.Cost, qty, unitCost)
	res.Product.Cost = newCost
	return uow.Catalog().UpdateProductCost(ctx, res.Product.TenantID, res.Product.ID, newCost)
}

// SaleLine línea de una venta.
type SaleLine struct {
	Subject  entity.StockSubject
	Quantity int64
	BatchID  *int64
}

// SaleInput venta completa de un outlet (una transacción, un movimiento por línea).
type SaleInput struct {
	TenantID  int64
	OutletID  int64
	ActorID   *int64
	Reference string
	Lines     []SaleLine
}

// RecordSale registra todas las líneas de una venta en una sola transacción.
// Si una línea con lotes no tiene stock suficiente la venta completa se revierte.
func (uc *LedgerUseCase) RecordSale(ctx context.Context, in SaleInput) ([]*entity.StockMovement, error) {
	if len(in.Lines) == 0 {
		return nil, domain.Invalid("lines", "la venta no tiene líneas")
	}
	if _, err := CheckOutlet(ctx, uc.tenants, in.TenantID, in.OutletID); err != nil {
		return nil, err
	}
	txID := uuid.New().String()
	inputs := make([]RecordInput, 0, len(in.Lines))
	resolved := make([]entity.ResolvedSubject, 0, len(in.Lines))
	for _, l := range in.Lines {
		ri := RecordInput{
			TenantID:      in.TenantID,
			OutletID:      in.OutletID,
			Subject:       l.Subject,
			Type:          entity.MovementSale,
			Quantity:      l.Quantity,
			BatchID:       l.BatchID,
			Reference:     in.Reference,
			ActorID:       in.ActorID,
			TransactionID: txID,
		}
		if err := ri.validate(false); err != nil {
			return nil, err
		}
		res, err := ResolveSubject(ctx, uc.catalog, in.TenantID, l.Subject)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, ri)
		resolved = append(resolved, res)
	}

	var movs []*entity.StockMovement
	var units int64
	err := uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		movs = make([]*entity.StockMovement, 0, len(inputs))
		units = 0
		for i := range inputs {
			r, err := uc.record(ctx, uow, resolved[i], inputs[i])
			if err != nil {
				return err
			}
			movs = append(movs, r.movement)
			units += r.movement.Quantity
		}
		n := entity.Notification{
			ID:           txID,
			TenantID:     in.TenantID,
			OutletID:     in.OutletID,
			Type:         entity.NotificationSaleCompleted,
			Priority:     entity.PriorityLow,
			Title:        "Venta registrada",
			Message:      fmt.Sprintf("Venta %s: %d líneas, %d unidades", in.Reference, len(movs), units),
			ResourceType: "sale",
			Metadata:     map[string]any{"transaction_id": txID, "reference": in.Reference},
			CreatedAt:    uc.now(),
		}
		uow.AfterCommit(func() { uc.notifyAsync(n) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movs, nil
}

// TransferInput traslado de stock entre dos outlets del mismo tenant.
type TransferInput struct {
	TenantID     int64
	FromOutletID int64
	ToOutletID   int64
	Subject      entity.StockSubject
	Quantity     int64
	Reason       string
	ActorID      *int64
}

// Transfer resta en el outlet origen y suma en el destino en la misma transacción; ambos
// movimientos comparten TransactionID. Los lotes consumidos en origen se replican en destino
// con el mismo número y vencimiento.
func (uc *LedgerUseCase) Transfer(ctx context.Context, in TransferInput) ([]*entity.StockMovement, error) {
	if in.FromOutletID == in.ToOutletID {
		return nil, domain.Invalid("to_outlet_id", "origen y destino deben ser distintos")
	}
	out := RecordInput{
		TenantID: in.TenantID, OutletID: in.FromOutletID, Subject: in.Subject,
		Type: entity.MovementTransferOut, Quantity: in.Quantity, Reason: in.Reason, ActorID: in.ActorID,
		TransactionID: uuid.New().String(),
	}
	if err := out.validate(true); err != nil {
		return nil, err
	}
	if _, err := CheckOutlet(ctx, uc.tenants, in.TenantID, in.FromOutletID); err != nil {
		return nil, err
	}
	if _, err := CheckOutlet(ctx, uc.tenants, in.TenantID, in.ToOutletID); err != nil {
		return nil, err
	}
	res, err := ResolveSubject(ctx, uc.catalog, in.TenantID, in.Subject)
	if err != nil {
		return nil, err
	}

	var movs []*entity.StockMovement
	err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		// ambas filas de stock en orden de outlet: dos traspasos cruzados no se bloquean entre sí
		first, second := in.FromOutletID, in.ToOutletID
		if second < first {
			first, second = second, first
		}
		locked := map[int64]*entity.LocationStock{}
		for _, outletID := range []int64{first, second} {
			st, err := uow.Stock().GetForUpdate(ctx, in.TenantID, res.Subject(), outletID)
			if err != nil {
				return err
			}
			locked[outletID] = st
		}
		origin := locked[in.FromOutletID]
		if res.Product.TrackInventory && origin.Quantity < in.Quantity {
			return &domain.InsufficientStockError{Requested: in.Quantity, Available: origin.Quantity}
		}
		var originBatches []*entity.Batch
		if res.Variation != nil {
			bs, err := uow.Batches().ListByStock(ctx, in.TenantID, res.Variation.ID, in.FromOutletID)
			if err != nil {
				return err
			}
			originBatches = bs
		}

		r, err := uc.record(ctx, uow, res, out)
		if err != nil {
			return err
		}
		movs = []*entity.StockMovement{r.movement}

		inInput := out
		inInput.Type = entity.MovementTransferIn
		inInput.OutletID = in.ToOutletID

		if len(r.deductions) == 0 {
			ri, err := uc.record(ctx, uow, res, inInput)
			if err != nil {
				return err
			}
			movs = append(movs, ri.movement)
			return nil
		}
		mirrored, err := uc.mirrorBatches(ctx, uow, res, in.ToOutletID, originBatches, r.deductions)
		if err != nil {
			return err
		}
		for _, m := range mirrored {
			line := inInput
			line.Quantity = m.quantity
			line.BatchID = m.batchID
			ri, err := uc.record(ctx, uow, res, line)
			if err != nil {
				return err
			}
			movs = append(movs, ri.movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movs, nil
}

type mirroredLine struct {
	quantity int64
	batchID  *int64
}

// mirrorBatches prepara en destino un lote por cada lote consumido en origen. Si el destino no lleva
// lotes y ya tiene stock suelto, se acredita sin lote para no perder ese stock.
func (uc *LedgerUseCase) mirrorBatches(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, outletID int64, originBatches []*entity.Batch, plan []domaininv.Deduction) ([]mirroredLine, error) {
	st, err := uow.Stock().GetForUpdate(ctx, res.Product.TenantID, res.Subject(), outletID)
	if err != nil {
		return nil, err
	}
	dest, err := uow.Batches().ListByStockForUpdate(ctx, res.Product.TenantID, res.Variation.ID, outletID)
	if err != nil {
		return nil, err
	}
	if len(dest) == 0 {
		if st.Quantity > 0 {
			var total int64
			for _, d := range plan {
				total += d.Quantity
			}
			return []mirroredLine{{quantity: total}}, nil
		}
	}

	out := make([]mirroredLine, 0, len(plan))
	for _, d := range plan {
		src := findBatch(originBatches, d.BatchID)
		if src == nil {
			return nil, fmt.Errorf("lote origen %d: %w", d.BatchID, domain.ErrNotFound)
		}
		var target *entity.Batch
		for _, b := range dest {
			if b.BatchNumber == src.BatchNumber {
				target = b
				break
			}
		}
		if target == nil {
			target = &entity.Batch{
				TenantID:    src.TenantID,
				VariationID: src.VariationID,
				OutletID:    outletID,
				BatchNumber: src.BatchNumber,
				ExpiryDate:  src.ExpiryDate,
				Quantity:    0,
				CostPrice:   src.CostPrice,
				CreatedAt:   uc.now(),
				UpdatedAt:   uc.now(),
			}
			if err := uow.Batches().Create(ctx, target); err != nil {
				return nil, err
			}
			dest = append(dest, target)
		}
		id := target.ID
		out = append(out, mirroredLine{quantity: d.Quantity, batchID: &id})
	}
	return out, nil
}

// ListMovements lista el ledger con filtros.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	if f.TenantID <= 0 {
		return nil, domain.Invalid("tenant_id", "requerido")
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.movements.List(ctx, f)
}

// UpdateMovement los movimientos del ledger no se modifican: siempre ErrImmutable.
func (uc *LedgerUseCase) UpdateMovement(_ context.Context, _ int64, movementID int64) error {
	return fmt.Errorf("movimiento %d: %w", movementID, domain.ErrImmutable)
}

// DeleteMovement los movimientos del ledger no se borran: siempre ErrImmutable.
func (uc *LedgerUseCase) DeleteMovement(_ context.Context, _ int64, movementID int64) error {
	return fmt.Errorf("movimiento %d: %w", movementID, domain.ErrImmutable)
}

// notifyAsync envía la notificación en segundo plano con su propio contexto.
// Un fallo del canal se registra y no afecta la venta ya confirmada.
func (uc *LedgerUseCase) notifyAsync(n entity.Notification) {
	if uc.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := uc.notifier.Notify(ctx, n); err != nil {
			uc.log.Error().Err(err).Str("notification", string(n.Type)).Int64("tenant_id", n.TenantID).Msg("no se pudo notificar")
		}
	}()
}
