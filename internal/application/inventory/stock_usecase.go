package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
	"github.com/jhoicas/Inventario-pos/pkg/logger"
)

// defaultInitialExpiryDays vencimiento del lote inicial creado al migrar stock sin lotes.
const defaultInitialExpiryDays = 365

// resyncWorkers resincronizaciones concurrentes en ResyncAll.
const resyncWorkers = 4

// StockUseCase consulta y mantenimiento del cache de stock por outlet.
type StockUseCase struct {
	txRunner ports.TxRunner
	stock    repository.LocationStockRepository
	batches  repository.BatchRepository
	catalog  repository.CatalogRepository
	tenants  repository.TenantRepository
	ledger   *LedgerUseCase
	log      zerolog.Logger
	now      func() time.Time
}

// NewStockUseCase construye el caso de uso del cache de stock. Los eventos salen por el publicador del ledger.
func NewStockUseCase(
	txRunner ports.TxRunner,
	stock repository.LocationStockRepository,
	batches repository.BatchRepository,
	catalog repository.CatalogRepository,
	tenants repository.TenantRepository,
	ledger *LedgerUseCase,
	log zerolog.Logger,
) *StockUseCase {
	return &StockUseCase{
		txRunner: txRunner,
		stock:    stock,
		batches:  batches,
		catalog:  catalog,
		tenants:  tenants,
		ledger:   ledger,
		log:      log.With().Str("component", "stock_cache").Logger(),
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *StockUseCase) WithClock(now func() time.Time) *StockUseCase {
	uc.now = now
	return uc
}

// Get cantidad actual del sujeto en el outlet.
func (uc *StockUseCase) Get(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (dto.StockResponse, error) {
	if _, err := CheckOutlet(ctx, uc.tenants, tenantID, outletID); err != nil {
		return dto.StockResponse{}, err
	}
	res, err := ResolveSubject(ctx, uc.catalog, tenantID, subject)
	if err != nil {
		return dto.StockResponse{}, err
	}
	st, err := uc.stock.Get(ctx, tenantID, res.Subject(), outletID)
	if err != nil {
		return dto.StockResponse{}, err
	}
	out := dto.StockResponse{
		ProductID:   res.ProductID(),
		VariationID: res.VariationID(),
		OutletID:    outletID,
		Quantity:    st.Quantity,
		UpdatedAt:   st.UpdatedAt,
	}
	if res.Variation != nil {
		bs, err := uc.batches.ListByStock(ctx, tenantID, res.Variation.ID, outletID)
		if err != nil {
			return dto.StockResponse{}, err
		}
		out.BatchTracked = len(bs) > 0
	}
	return out, nil
}

// Resync recalcula el cache de una variación con lotes a partir de sus lotes vendibles.
// Sin lotes el cache es la fuente de verdad y no se toca. Devuelve true si la cantidad cambió.
func (uc *StockUseCase) Resync(ctx context.Context, tenantID int64, subject entity.StockSubject, outletID int64) (bool, error) {
	res, err := ResolveSubject(ctx, uc.catalog, tenantID, subject)
	if err != nil {
		return false, err
	}
	var changed bool
	err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		var err error
		changed, err = resyncPair(ctx, uow, res, outletID, uc.now(), uc.ledger.publisher)
		return err
	})
	return changed, err
}

// ResyncAll resincroniza todos los pares con lotes del tenant (por ejemplo tras vencimientos del día).
// Un par que falla se registra y no detiene a los demás.
func (uc *StockUseCase) ResyncAll(ctx context.Context, tenantID int64) (dto.ResyncResponse, error) {
	keys, err := uc.batches.ListTrackedKeys(ctx, tenantID)
	if err != nil {
		return dto.ResyncResponse{}, err
	}
	var (
		mu  sync.Mutex
		out = dto.ResyncResponse{Processed: len(keys)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncWorkers)
	for _, k := range keys {
		if k.VariationID == nil {
			continue
		}
		g.Go(func() error {
			changed, err := uc.Resync(gctx, tenantID, entity.VariationSubject(*k.VariationID), k.OutletID)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				lg := logger.Scope(uc.log, tenantID, k.OutletID)
				lg.Error().Err(err).Int64("variation_id", *k.VariationID).Msg("resync falló")
				return nil
			}
			if changed {
				mu.Lock()
				out.Changed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// MigrationReport resultado de la migración de stock suelto a lotes.
type MigrationReport struct {
	Candidates int
	Created    int
	Skipped    int
}

// MigrateInitialBatches crea un lote inicial INIT-{variación}-{fecha} por cada variación con stock y sin lotes.
// Idempotente: los pares que ya tienen lotes se saltan.
func (uc *StockUseCase) MigrateInitialBatches(ctx context.Context, tenantID int64, expiryDays int) (MigrationReport, error) {
	if expiryDays <= 0 {
		expiryDays = defaultInitialExpiryDays
	}
	rows, err := uc.stock.ListVariationStockWithoutBatches(ctx, tenantID)
	if err != nil {
		return MigrationReport{}, err
	}
	rep := MigrationReport{Candidates: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := ResolveSubject(ctx, uc.catalog, tenantID, row.Subject())
		if err != nil {
			uc.log.Warn().Err(err).Str("subject", row.Subject().Key()).Msg("migración: sujeto no resuelto")
			rep.Skipped++
			continue
		}
		var created *entity.Batch
		err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
			var err error
			created, err = migratePair(ctx, uow, res, row.OutletID, expiryDays, uc.now())
			return err
		})
		if err != nil {
			return rep, err
		}
		if created == nil {
			rep.Skipped++
			continue
		}
		rep.Created++
		lg := logger.Scope(uc.log, tenantID, created.OutletID)
		lg.Info().Int64("variation_id", created.VariationID).Str("batch_number", created.BatchNumber).
			Int64("quantity", created.Quantity).Msg("lote inicial creado")
	}
	return rep, nil
}

// resyncPair deja el cache igual a la suma de lotes vendibles. No hace nada si el par no lleva lotes.
func resyncPair(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, outletID int64, now time.Time, publisher EventPublisher) (bool, error) {
	if res.Variation == nil {
		return false, nil
	}
	// mismo orden de locks que el ledger: fila de stock y luego lotes
	stock, err := uow.Stock().GetForUpdate(ctx, res.Product.TenantID, res.Subject(), outletID)
	if err != nil {
		return false, err
	}
	batches, err := uow.Batches().ListByStockForUpdate(ctx, res.Product.TenantID, res.Variation.ID, outletID)
	if err != nil || len(batches) == 0 {
		return false, err
	}
	want := domaininv.SellableQuantity(batches, now)
	if stock.Quantity == want {
		return false, nil
	}
	before := stock.Quantity
	stock.Quantity = want
	stock.UpdatedAt = now
	if err := uow.Stock().Upsert(ctx, stock); err != nil {
		return false, err
	}
	evt := StockChangedEvent{
		ID:             uuid.New().String(),
		TenantID:       res.Product.TenantID,
		OutletID:       outletID,
		ProductID:      res.ProductID(),
		VariationID:    res.VariationID(),
		QuantityBefore: before,
		QuantityAfter:  want,
		OccurredAt:     now,
	}
	if publisher != nil {
		uow.AfterCommit(func() { publisher.PublishStockChanged(evt) })
	}
	return true, nil
}

// migratePair convierte el stock suelto de una variación en un lote inicial. nil si no había nada que migrar.
func migratePair(ctx context.Context, uow ports.UnitOfWork, res entity.ResolvedSubject, outletID int64, expiryDays int, now time.Time) (*entity.Batch, error) {
	if res.Variation == nil {
		return nil, nil
	}
	stock, err := uow.Stock().GetForUpdate(ctx, res.Product.TenantID, res.Subject(), outletID)
	if err != nil {
		return nil, err
	}
	batches, err := uow.Batches().ListByStockForUpdate(ctx, res.Product.TenantID, res.Variation.ID, outletID)
	if err != nil || len(batches) > 0 || stock.Quantity <= 0 {
		return nil, err
	}

	b := &entity.Batch{
		TenantID:    res.Product.TenantID,
		VariationID: res.Variation.ID,
		OutletID:    outletID,
		BatchNumber: domaininv.InitialBatchNumber(res.Variation.ID, now),
		ExpiryDate:  entity.DateOf(now).AddDate(0, 0, expiryDays),
		Quantity:    stock.Quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cost := res.Variation.Cost
	if !cost.IsPositive() {
		cost = res.Product.Cost
	}
	if cost.IsPositive() {
		b.CostPrice = &cost
	}
	err = uow.Batches().Create(ctx, b)
	if errors.Is(err, domain.ErrDuplicate) {
		b.BatchNumber = domaininv.FallbackBatchNumber(b.BatchNumber, now)
		err = uow.Batches().Create(ctx, b)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
