package reorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
	"github.com/jhoicas/Inventario-pos/pkg/logger"
)

// Outcome resultado de planificar un sujeto.
type Outcome string

const (
	OutcomeItemAdded          Outcome = "item_added"
	OutcomeItemUpdated        Outcome = "item_updated"
	OutcomeDuplicatePrevented Outcome = "duplicate_prevented"
	OutcomeInFlight           Outcome = "in_flight" // ya pedido en una orden fuera del borrador
	OutcomeFailed             Outcome = "failed"
	OutcomeDisabled           Outcome = "disabled"
)

// Config parámetros del cálculo y del lock por borrador.
type Config struct {
	LeadTimeDays    int
	SafetyStockDays int
	LockTTL         time.Duration
}

// LowStockItem sujeto en o bajo su umbral en el outlet.
type LowStockItem struct {
	Subject      entity.StockSubject
	CurrentStock int64
	Threshold    int64
}

// PlanRequest sujetos a reponer en un outlet.
type PlanRequest struct {
	TenantID    int64
	OutletID    int64
	Items       []LowStockItem
	TriggeredBy *int64 // nil = sistema
	Source      string // low_stock_event | manual_check
}

// PlannedItem decisión tomada para un sujeto.
type PlannedItem struct {
	Subject         entity.StockSubject
	ProductID       int64
	VariationID     *int64
	PurchaseOrderID *int64
	Quantity        int64
	Outcome         Outcome
	Err             error
}

// PlanResult decisiones por sujeto, en el orden recibido.
type PlanResult struct {
	Items []PlannedItem
}

// Planner agrega los sujetos con stock bajo a borradores de orden de compra, uno por proveedor y outlet.
// Nunca devuelve error: cada fallo queda en su PlannedItem y en el log.
type Planner struct {
	txRunner  ports.TxRunner
	tenants   repository.TenantRepository
	catalog   repository.CatalogRepository
	suppliers repository.SupplierRepository
	pos       repository.PurchaseOrderRepository
	audit     repository.AuditLogRepository
	settings  *purchasing.SettingsUseCase
	velocity  *VelocityCalculator
	locker    ports.Locker
	notifier  ports.Notifier
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewPlanner construye el planificador. notifier puede ser nil.
func NewPlanner(
	txRunner ports.TxRunner,
	tenants repository.TenantRepository,
	catalog repository.CatalogRepository,
	suppliers repository.SupplierRepository,
	pos repository.PurchaseOrderRepository,
	audit repository.AuditLogRepository,
	settings *purchasing.SettingsUseCase,
	velocity *VelocityCalculator,
	locker ports.Locker,
	notifier ports.Notifier,
	cfg Config,
	log zerolog.Logger,
) *Planner {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Planner{
		txRunner:  txRunner,
		tenants:   tenants,
		catalog:   catalog,
		suppliers: suppliers,
		pos:       pos,
		audit:     audit,
		settings:  settings,
		velocity:  velocity,
		locker:    locker,
		notifier:  notifier,
		cfg:       cfg,
		log:       log.With().Str("component", "reorder_planner").Logger(),
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	p.velocity.now = now
	return p
}

// estimate cantidad, costo y proveedor calculados para un sujeto.
type estimate struct {
	res        entity.ResolvedSubject
	supplier   *entity.ProductSupplier
	velocity   domaininv.Velocity
	threshold  int64
	quantity   int64
	unitCost   decimal.Decimal
	costSource domaininv.CostSource
}

// Plan procesa cada sujeto por separado: un fallo no impide planificar los demás.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) PlanResult {
	out := PlanResult{Items: make([]PlannedItem, 0, len(req.Items))}
	fail := func(err error) PlanResult {
		for _, it := range req.Items {
			out.Items = append(out.Items, PlannedItem{Subject: it.Subject, Outcome: OutcomeFailed, Err: err})
		}
		lg := logger.Scope(p.log, req.TenantID, req.OutletID)
		lg.Error().Err(err).Msg("planificación abortada")
		return out
	}

	settings, err := p.settings.Effective(ctx, req.TenantID)
	if err != nil {
		return fail(fmt.Errorf("configuración: %w", err))
	}
	if !settings.AutoPOEnabled {
		for _, it := range req.Items {
			out.Items = append(out.Items, PlannedItem{Subject: it.Subject, Outcome: OutcomeDisabled})
		}
		return out
	}
	tenant, err := p.tenants.GetTenant(ctx, req.TenantID)
	if err != nil {
		return fail(fmt.Errorf("tenant: %w", err))
	}
	if tenant == nil {
		return fail(fmt.Errorf("tenant %d: %w", req.TenantID, domain.ErrNotFound))
	}

	lg := logger.Scope(p.log, req.TenantID, req.OutletID)
	for _, it := range req.Items {
		planned := p.planItem(ctx, req, tenant, settings, it)
		if planned.Err != nil {
			lg.Error().Err(planned.Err).
				Str(logger.FieldSubject, it.Subject.Key()).
				Str("source", req.Source).
				Msg("no se pudo planificar la reposición")
		}
		out.Items = append(out.Items, planned)
	}
	return out
}

func (p *Planner) planItem(ctx context.Context, req PlanRequest, tenant *entity.Tenant, settings *entity.AutoPurchaseOrderSettings, item LowStockItem) (planned PlannedItem) {
	planned = PlannedItem{Subject: item.Subject, Outcome: OutcomeFailed}
	defer func() {
		if r := recover(); r != nil {
			planned.Outcome = OutcomeFailed
			planned.Err = fmt.Errorf("panic planificando %s: %v: %w", item.Subject, r, domain.ErrReorderPlanning)
		}
	}()

	est, err := p.estimate(ctx, req.TenantID, req.OutletID, item, settings)
	if err != nil {
		planned.Err = err
		return planned
	}
	planned.ProductID, planned.VariationID = est.res.ProductID(), est.res.VariationID()

	inFlight, err := p.pos.FindInFlightLine(ctx, req.TenantID, item.Subject, req.OutletID)
	if err != nil {
		planned.Err = fmt.Errorf("órdenes abiertas: %w", err)
		return planned
	}
	if inFlight != nil {
		id := inFlight.PurchaseOrderID
		planned.PurchaseOrderID, planned.Quantity, planned.Outcome = &id, inFlight.Quantity, OutcomeInFlight
		l := p.entry(req, est, entity.AuditDuplicatePrevented,
			fmt.Sprintf("%s ya está pedido en %s (%s)", est.res.Name(), inFlight.PONumber, inFlight.Status),
			map[string]any{"status": string(inFlight.Status), "quantity": inFlight.Quantity, "source": req.Source})
		l.PurchaseOrderID = &id
		purchasing.AppendBestEffort(ctx, p.audit, p.log, l)
		return planned
	}

	// Con group_by_supplier el proveedor va en la cabecera; si no, un único borrador sin proveedor
	// con el proveedor en cada línea.
	var headerSupplier, lineSupplier *int64
	if est.supplier != nil {
		id := est.supplier.SupplierID
		if settings.GroupBySupplier {
			headerSupplier = &id
		} else {
			lineSupplier = &id
		}
	}

	release, err := p.locker.Obtain(ctx, lockKey(req.TenantID, headerSupplier, req.OutletID), p.cfg.LockTTL)
	if err != nil {
		planned.Err = fmt.Errorf("%w: %w", err, domain.ErrLockNotObtained)
		return planned
	}
	defer release()

	var created *entity.PurchaseOrder
	err = p.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		po, err := uow.PurchaseOrders().FindOpenDraftForUpdate(ctx, req.TenantID, headerSupplier, req.OutletID)
		if err != nil {
			return err
		}
		audits := make([]*entity.AutoPOAuditLog, 0, 5)
		isNew := po == nil
		if isNew {
			po = entity.NewPurchaseOrder(req.TenantID, req.OutletID, headerSupplier, p.now())
			po.IsAutoGenerated = true
			po.CreatedBy = req.TriggeredBy
			po.Notes = "Generada automáticamente por stock bajo"
			if err := purchasing.CreateNumbered(ctx, uow.PurchaseOrders(), po, tenant.Code, p.now()); err != nil {
				return err
			}
			audits = append(audits, p.entryFor(po, req, est, entity.AuditDraftCreated, "Borrador automático "+po.PONumber,
				map[string]any{"status": string(po.Status), "source": req.Source}))
		}
		audits = append(audits, p.entryFor(po, req, est, entity.AuditSalesVelocityCalculated,
			fmt.Sprintf("Velocidad %.2f u/día en %d días", est.velocity.PerDay, est.velocity.WindowDays),
			map[string]any{
				"total_sold": est.velocity.TotalSold,
				"per_day":    est.velocity.PerDay,
				"per_week":   est.velocity.PerWeek,
				"per_month":  est.velocity.PerMonth,
				"window":     est.velocity.WindowDays,
			}))

		stock := item.CurrentStock
		existing := po.FindItem(item.Subject, lineSupplier)
		switch {
		case existing == nil:
			line := &entity.PurchaseOrderItem{
				ProductID:       est.res.ProductID(),
				VariationID:     est.res.VariationID(),
				SupplierID:      lineSupplier,
				Quantity:        est.quantity,
				UnitPrice:       est.unitCost,
				StockAtPlanning: &stock,
				CreatedAt:       p.now(),
				UpdatedAt:       p.now(),
			}
			if err := po.AddItem(line); err != nil {
				return err
			}
			if err := uow.PurchaseOrders().CreateItem(ctx, line); err != nil {
				return err
			}
			audits = append(audits, p.entryFor(po, req, est, entity.AuditItemAdded,
				fmt.Sprintf("%s x%d a %s", est.res.Name(), line.Quantity, line.UnitPrice.StringFixed(2)),
				map[string]any{
					"quantity":      line.Quantity,
					"current_stock": stock,
					"threshold":     est.threshold,
					"unit_cost":     line.UnitPrice.String(),
					"cost_source":   string(est.costSource),
				}))
			planned.Quantity, planned.Outcome = line.Quantity, OutcomeItemAdded

		default:
			merged := domaininv.MergeQuantity(existing.Quantity, existing.StockAtPlanning, stock, est.quantity)
			if merged == existing.Quantity {
				audits = append(audits, p.entryFor(po, req, est, entity.AuditDuplicatePrevented,
					fmt.Sprintf("%s ya está en %s con %d", est.res.Name(), po.PONumber, existing.Quantity),
					map[string]any{"quantity": existing.Quantity, "current_stock": stock}))
				planned.Quantity, planned.Outcome = existing.Quantity, OutcomeDuplicatePrevented
				break
			}
			prev := existing.Quantity
			if _, err := po.UpdateItemQuantity(existing.ID, merged); err != nil {
				return err
			}
			existing.StockAtPlanning = &stock
			existing.UpdatedAt = p.now()
			if err := uow.PurchaseOrders().UpdateItem(ctx, existing); err != nil {
				return err
			}
			audits = append(audits,
				p.entryFor(po, req, est, entity.AuditQuantityRecalculated,
					fmt.Sprintf("Cantidad recalculada %d -> %d", prev, merged),
					map[string]any{"previous_quantity": prev, "computed_quantity": est.quantity, "current_stock": stock}),
				p.entryFor(po, req, est, entity.AuditItemUpdated,
					fmt.Sprintf("%s actualizado a %d", est.res.Name(), merged),
					map[string]any{"previous_quantity": prev, "new_quantity": merged}),
			)
			planned.Quantity, planned.Outcome = merged, OutcomeItemUpdated
		}

		if planned.Outcome != OutcomeDuplicatePrevented {
			po.UpdatedAt = p.now()
			if err := uow.PurchaseOrders().Update(ctx, po); err != nil {
				return err
			}
			if !isNew {
				audits = append(audits, p.entryFor(po, req, est, entity.AuditDraftUpdated, "Borrador "+po.PONumber+" actualizado",
					map[string]any{"subtotal": po.Subtotal.String(), "total": po.Total.String(), "items": len(po.Items)}))
			}
		}
		for _, l := range audits {
			if err := uow.Audit().Append(ctx, l); err != nil {
				return err
			}
		}
		id := po.ID
		planned.PurchaseOrderID = &id
		if isNew {
			created = po
		}
		return nil
	})
	if err != nil {
		planned.Outcome, planned.PurchaseOrderID = OutcomeFailed, nil
		planned.Err = err
		if !errors.Is(err, domain.ErrReorderPlanning) {
			planned.Err = fmt.Errorf("%s: %w: %w", item.Subject, err, domain.ErrReorderPlanning)
		}
		return planned
	}
	lg := logger.Scope(p.log, req.TenantID, req.OutletID)
	lg.Info().
		Str(logger.FieldSubject, item.Subject.Key()).
		Str("outcome", string(planned.Outcome)).
		Int64("quantity", planned.Quantity).
		Msg("reposición planificada")

	if created != nil && settings.NotifyOnAutoPO {
		p.notifyAsync(entity.Notification{
			ID:           uuid.NewString(),
			TenantID:     req.TenantID,
			OutletID:     req.OutletID,
			Type:         entity.NotificationAutoPOCreated,
			Priority:     entity.PriorityNormal,
			Title:        "Orden de compra automática",
			Message:      fmt.Sprintf("Se creó el borrador %s por stock bajo de %s", created.PONumber, est.res.Name()),
			ResourceType: "purchase_order",
			ResourceID:   created.ID,
			Metadata:     map[string]any{"po_number": created.PONumber, "status": string(created.Status)},
			CreatedAt:    p.now(),
		})
	}
	return planned
}

// estimate resuelve proveedor, velocidad, cantidad y costo. Cualquier fallo es ErrReorderPlanning.
func (p *Planner) estimate(ctx context.Context, tenantID, outletID int64, item LowStockItem, settings *entity.AutoPurchaseOrderSettings) (*estimate, error) {
	res, err := inventory.ResolveSubject(ctx, p.catalog, tenantID, item.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", item.Subject, err, domain.ErrReorderPlanning)
	}
	supplier, err := p.resolveSupplier(ctx, tenantID, res.ProductID())
	if err != nil {
		return nil, fmt.Errorf("proveedor de %s: %w: %w", item.Subject, err, domain.ErrReorderPlanning)
	}
	velocity, err := p.velocity.SalesVelocity(ctx, tenantID, item.Subject, &outletID)
	if err != nil {
		return nil, fmt.Errorf("velocidad de %s: %w: %w", item.Subject, err, domain.ErrReorderPlanning)
	}

	base := settings.DefaultReorderQuantity
	threshold := item.Threshold
	var supplierCost *decimal.Decimal
	if supplier != nil {
		if supplier.ReorderQuantity > 0 {
			base = supplier.ReorderQuantity
		}
		if supplier.ReorderPoint > 0 {
			threshold = supplier.ReorderPoint
		}
		supplierCost = supplier.UnitCost
	}
	qty := domaininv.ReorderQuantity(domaininv.ReorderParams{
		BaseQuantity:    base,
		Threshold:       threshold,
		CurrentStock:    item.CurrentStock,
		DailyVelocity:   velocity.PerDay,
		LeadTimeDays:    p.cfg.LeadTimeDays,
		SafetyStockDays: p.cfg.SafetyStockDays,
	})
	cost, source, err := domaininv.ResolveUnitCost(purchasing.CostInputsFor(res, supplierCost, settings.FallbackCostRatio))
	if err != nil {
		return nil, fmt.Errorf("costo de %s: %w", item.Subject, err)
	}
	return &estimate{
		res:        res,
		supplier:   supplier,
		velocity:   velocity,
		threshold:  threshold,
		quantity:   qty,
		unitCost:   cost,
		costSource: source,
	}, nil
}

// resolveSupplier preferido activo; si no, el activo de menor costo conocido; nil si no hay ninguno.
func (p *Planner) resolveSupplier(ctx context.Context, tenantID, productID int64) (*entity.ProductSupplier, error) {
	links, err := p.suppliers.ListProductSuppliers(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	active := make([]*entity.ProductSupplier, 0, len(links))
	for _, ps := range links {
		if ps.IsActive {
			active = append(active, ps)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.IsPreferred != b.IsPreferred {
			return a.IsPreferred
		}
		if (a.UnitCost == nil) != (b.UnitCost == nil) {
			return a.UnitCost != nil
		}
		if a.UnitCost != nil && !a.UnitCost.Equal(*b.UnitCost) {
			return a.UnitCost.LessThan(*b.UnitCost)
		}
		return a.ID < b.ID
	})
	return active[0], nil
}

func (p *Planner) entry(req PlanRequest, est *estimate, action entity.AuditAction, desc string, ctx map[string]any) *entity.AutoPOAuditLog {
	pid := est.res.ProductID()
	l := &entity.AutoPOAuditLog{
		TenantID:    req.TenantID,
		ProductID:   &pid,
		VariationID: est.res.VariationID(),
		Action:      action,
		Description: desc,
		Context:     ctx,
		TriggeredBy: req.TriggeredBy,
	}
	if est.supplier != nil {
		sid := est.supplier.SupplierID
		l.SupplierID = &sid
	}
	return l
}

func (p *Planner) entryFor(po *entity.PurchaseOrder, req PlanRequest, est *estimate, action entity.AuditAction, desc string, ctx map[string]any) *entity.AutoPOAuditLog {
	l := p.entry(req, est, action, desc, ctx)
	if po.ID > 0 {
		id := po.ID
		l.PurchaseOrderID = &id
	}
	return l
}

func (p *Planner) notifyAsync(n entity.Notification) {
	if p.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.log.Error().Err(err).Str("notification", string(n.Type)).Int64("tenant_id", n.TenantID).Msg("no se pudo notificar")
		}
	}()
}

// lockKey sección crítica del get-or-create del borrador.
func lockKey(tenantID int64, supplierID *int64, outletID int64) string {
	supplier := "none"
	if supplierID != nil {
		supplier = fmt.Sprint(*supplierID)
	}
	return fmt.Sprintf("reorder:%d:%s:%d", tenantID, supplier, outletID)
}
