package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// BatchUseCase recepción y consulta de lotes con vencimiento.
type BatchUseCase struct {
	txRunner ports.TxRunner
	batches  repository.BatchRepository
	catalog  repository.CatalogRepository
	tenants  repository.TenantRepository
	ledger   *LedgerUseCase
	store    BatchStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewBatchUseCase construye el caso de uso de lotes.
func NewBatchUseCase(
	txRunner ports.TxRunner,
	batches repository.BatchRepository,
	catalog repository.CatalogRepository,
	tenants repository.TenantRepository,
	ledger *LedgerUseCase,
	log zerolog.Logger,
) *BatchUseCase {
	return &BatchUseCase{
		txRunner: txRunner,
		batches:  batches,
		catalog:  catalog,
		tenants:  tenants,
		ledger:   ledger,
		log:      log.With().Str("component", "batch_store").Logger(),
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *BatchUseCase) WithClock(now func() time.Time) *BatchUseCase {
	uc.now = now
	return uc
}

// ReceiveInput recepción de un lote nuevo.
type ReceiveInput struct {
	TenantID    int64
	OutletID    int64
	VariationID int64
	BatchNumber string
	ExpiryDate  time.Time
	Quantity    int64
	CostPrice   *decimal.Decimal
	Reference   string
	ActorID     *int64
}

// Receive crea el lote y registra la compra en el ledger en la misma transacción.
// Volver a recibir el mismo número de lote en el mismo outlet es ErrDuplicate.
// Si la variación tenía stock suelto (sin lotes) se convierte primero en un lote inicial.
func (uc *BatchUseCase) Receive(ctx context.Context, in ReceiveInput) (*entity.Batch, *entity.StockMovement, error) {
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	switch {
	case in.VariationID <= 0:
		return nil, nil, domain.Invalid("variation_id", "requerido")
	case in.BatchNumber == "":
		return nil, nil, domain.Invalid("batch_number", "requerido")
	case in.ExpiryDate.IsZero():
		return nil, nil, domain.Invalid("expiry_date", "requerida")
	case in.Quantity <= 0:
		return nil, nil, domain.Invalid("quantity", "debe ser mayor que cero")
	case in.CostPrice != nil && in.CostPrice.IsNegative():
		return nil, nil, domain.Invalid("cost_price", "no puede ser negativo")
	}
	if _, err := CheckOutlet(ctx, uc.tenants, in.TenantID, in.OutletID); err != nil {
		return nil, nil, err
	}
	res, err := ResolveSubject(ctx, uc.catalog, in.TenantID, entity.VariationSubject(in.VariationID))
	if err != nil {
		return nil, nil, err
	}

	var batch *entity.Batch
	var mov *entity.StockMovement
	err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		var err error
		batch, mov, err = uc.ReceiveInTx(ctx, uow, res, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return batch, mov, nil
}

// ReceiveInTx igual que Receive pero con la transacción del llamador (recepción de órdenes de compra).
func (uc *BatchUseCase) ReceiveInTx(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, in ReceiveInput) (*entity.Batch, *entity.StockMovement, error) {
	if res.Variation == nil {
		return nil, nil, domain.Invalid("variation_id", "solo las variaciones llevan lotes")
	}
	if _, err := migratePair(ctx, uow, res, in.OutletID, defaultInitialExpiryDays, uc.now()); err != nil {
		return nil, nil, err
	}
	now := uc.now()
	b := &entity.Batch{
		TenantID:    in.TenantID,
		VariationID: res.Variation.ID,
		OutletID:    in.OutletID,
		BatchNumber: in.BatchNumber,
		ExpiryDate:  entity.DateOf(in.ExpiryDate),
		Quantity:    0,
		CostPrice:   in.CostPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uow.Batches().Create(ctx, b); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, nil, fmt.Errorf("lote %s ya recibido en el outlet %d: %w", in.BatchNumber, in.OutletID, domain.ErrDuplicate)
		}
		return nil, nil, err
	}
	mov, err := uc.ledger.RecordInTx(ctx, uow, res, RecordInput{
		TenantID:  in.TenantID,
		OutletID:  in.OutletID,
		Subject:   res.Subject(),
		Type:      entity.MovementPurchase,
		Quantity:  in.Quantity,
		BatchID:   &b.ID,
		UnitCost:  in.CostPrice,
		Reference: in.Reference,
		ActorID:   in.ActorID,
	})
	if err != nil {
		return nil, nil, err
	}
	batch, err := uow.Batches().GetByID(ctx, in.TenantID, b.ID)
	if err != nil {
		return nil, nil, err
	}
	return batch, mov, nil
}

// ReceiveFromRequest adapta el request HTTP.
func (uc *BatchUseCase) ReceiveFromRequest(ctx context.Context, tenantID, outletID, userID int64, in dto.ReceiveBatchRequest) (*entity.Batch, *entity.StockMovement, error) {
	expiry, err := time.Parse("2006-01-02", in.ExpiryDate)
	if err != nil {
		return nil, nil, domain.Invalid("expiry_date", "formato YYYY-MM-DD")
	}
	return uc.Receive(ctx, ReceiveInput{
		TenantID:    tenantID,
		OutletID:    outletID,
		VariationID: in.VariationID,
		BatchNumber: in.BatchNumber,
		ExpiryDate:  expiry,
		Quantity:    in.Quantity,
		CostPrice:   in.CostPrice,
		Reference:   in.Reference,
		ActorID:     actor(userID),
	})
}

// Quantities lotes de la variación en el outlet con sus cantidades vendible y total.
func (uc *BatchUseCase) Quantities(ctx context.Context, tenantID, variationID, outletID int64) (dto.BatchQuantitiesResponse, error) {
	out := dto.BatchQuantitiesResponse{VariationID: variationID, OutletID: outletID, Batches: []dto.BatchResponse{}}
	if _, err := CheckOutlet(ctx, uc.tenants, tenantID, outletID); err != nil {
		return out, err
	}
	if _, err := ResolveSubject(ctx, uc.catalog, tenantID, entity.VariationSubject(variationID)); err != nil {
		return out, err
	}
	batches, err := uc.batches.ListByStock(ctx, tenantID, variationID, outletID)
	if err != nil {
		return out, err
	}
	today := uc.now()
	domaininv.SortFEFO(batches)
	out.Sellable = domaininv.SellableQuantity(batches, today)
	out.Total = domaininv.TotalQuantity(batches)
	for _, b := range batches {
		out.Batches = append(out.Batches, ToBatchResponse(b, today))
	}
	return out, nil
}

// SellableQuantity unidades vendibles de la variación en el outlet.
func (uc *BatchUseCase) SellableQuantity(ctx context.Context, tenantID, variationID, outletID int64) (int64, error) {
	return uc.store.SellableQuantity(ctx, uc.batches, tenantID, variationID, outletID, uc.now())
}

// TotalQuantity unidades incluyendo lotes vencidos.
func (uc *BatchUseCase) TotalQuantity(ctx context.Context, tenantID, variationID, outletID int64) (int64, error) {
	return uc.store.TotalQuantity(ctx, uc.batches, tenantID, variationID, outletID)
}

// Consume descuenta unidades FEFO en su propia transacción y resincroniza el cache.
// Las ventas normales pasan por el ledger; esto sirve a procesos que ya registraron el movimiento.
func (uc *BatchUseCase) Consume(ctx context.Context, tenantID, variationID, outletID, qty int64) ([]domaininv.Deduction, error) {
	res, err := ResolveSubject(ctx, uc.catalog, tenantID, entity.VariationSubject(variationID))
	if err != nil {
		return nil, err
	}
	var plan []domaininv.Deduction
	err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		if _, err := uow.Stock().GetForUpdate(ctx, tenantID, res.Subject(), outletID); err != nil {
			return err
		}
		p, err := uc.store.Consume(ctx, uow.Batches(), tenantID, variationID, outletID, qty, uc.now())
		if err != nil {
			return err
		}
		plan = p
		_, err = resyncPair(ctx, uow, res, outletID, uc.now(), uc.ledger.publisher)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListExpiring lotes con unidades que vencen dentro de days días (incluye vencidos). outletID nil = todos.
func (uc *BatchUseCase) ListExpiring(ctx context.Context, tenantID int64, outletID *int64, days int) ([]dto.BatchResponse, error) {
	if days < 0 {
		return nil, domain.Invalid("days", "no puede ser negativo")
	}
	today := uc.now()
	batches, err := uc.batches.ListExpiring(ctx, tenantID, outletID, entity.DateOf(today).AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	domaininv.SortFEFO(batches)
	out := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, ToBatchResponse(b, today))
	}
	return out, nil
}

// ToBatchResponse convierte un lote al DTO.
func ToBatchResponse(b *entity.Batch, today time.Time) dto.BatchResponse {
	return dto.BatchResponse{
		ID:              b.ID,
		VariationID:     b.VariationID,
		OutletID:        b.OutletID,
		BatchNumber:     b.BatchNumber,
		ExpiryDate:      b.ExpiryDate.Format("2006-01-02"),
		Quantity:        b.Quantity,
		CostPrice:       b.CostPrice,
		DaysUntilExpiry: b.DaysUntilExpiry(today),
		Expired:         b.IsExpired(today),
		CreatedAt:       b.CreatedAt,
	}
}
