package reorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	domaininv "github.com/jhoicas/Inventario-pos/internal/domain/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// Detector evalúa cada cambio de stock ya confirmado: registra el stock bajo, avisa (con debounce)
// y, si el tenant lo tiene activo, planifica la reposición.
type Detector struct {
	catalog   repository.CatalogRepository
	audit     repository.AuditLogRepository
	settings  *purchasing.SettingsUseCase
	debouncer ports.Debouncer
	notifier  ports.Notifier
	planner   *Planner
	window    time.Duration
	log       zerolog.Logger
}

// NewDetector window es la ventana en la que no se repite el aviso de stock bajo del mismo sujeto.
func NewDetector(
	catalog repository.CatalogRepository,
	audit repository.AuditLogRepository,
	settings *purchasing.SettingsUseCase,
	debouncer ports.Debouncer,
	notifier ports.Notifier,
	planner *Planner,
	window time.Duration,
	log zerolog.Logger,
) *Detector {
	if window <= 0 {
		window = time.Hour
	}
	return &Detector{
		catalog:   catalog,
		audit:     audit,
		settings:  settings,
		debouncer: debouncer,
		notifier:  notifier,
		planner:   planner,
		window:    window,
		log:       log.With().Str("component", "low_stock_detector").Logger(),
	}
}

// Handle procesa un StockChangedEvent. Solo los cambios que bajan stock pueden disparar la alerta.
func (d *Detector) Handle(ctx context.Context, evt inventory.StockChangedEvent) error {
	if !evt.Decreased() {
		return nil
	}
	res, err := inventory.ResolveSubject(ctx, d.catalog, evt.TenantID, evt.Subject())
	if err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if !res.Product.TrackInventory {
		return nil
	}
	threshold := res.Threshold()
	if !domaininv.IsLowStock(evt.QuantityAfter, threshold) {
		return nil
	}

	pid := res.ProductID()
	purchasing.AppendBestEffort(ctx, d.audit, d.log, &entity.AutoPOAuditLog{
		TenantID:    evt.TenantID,
		ProductID:   &pid,
		VariationID: res.VariationID(),
		Action:      entity.AuditLowStockDetected,
		Description: fmt.Sprintf("%s con %d unidades (umbral %d)", res.Name(), evt.QuantityAfter, threshold),
		Context: map[string]any{
			"outlet_id":      evt.OutletID,
			"current_stock":  evt.QuantityAfter,
			"previous_stock": evt.QuantityBefore,
			"threshold":      threshold,
			"deficit":        domaininv.Deficit(evt.QuantityAfter, threshold),
			"movement_type":  string(evt.MovementType),
			"movement_id":    evt.MovementID,
			"stock_event_id": evt.ID,
		},
		TriggeredBy: evt.ActorID,
	})

	d.notifyLowStock(ctx, evt, res, threshold)

	settings, err := d.settings.Effective(ctx, evt.TenantID)
	if err != nil {
		return fmt.Errorf("detector: configuración: %w", err)
	}
	if !settings.AutoPOEnabled {
		return nil
	}
	d.planner.Plan(ctx, PlanRequest{
		TenantID: evt.TenantID,
		OutletID: evt.OutletID,
		Items: []LowStockItem{{
			Subject:      evt.Subject(),
			CurrentStock: evt.QuantityAfter,
			Threshold:    threshold,
		}},
		Source: "low_stock_event",
	})
	return nil
}

func (d *Detector) notifyLowStock(ctx context.Context, evt inventory.StockChangedEvent, res entity.ResolvedSubject, threshold int64) {
	if d.notifier == nil {
		return
	}
	key := fmt.Sprintf("lowstock:%d:%d:%s", evt.TenantID, evt.OutletID, evt.Subject().Key())
	allow := true
	if d.debouncer != nil {
		ok, err := d.debouncer.Allow(ctx, key, d.window)
		if err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("debounce no disponible, se notifica igual")
		} else {
			allow = ok
		}
	}
	if !allow {
		return
	}
	priority := entity.PriorityNormal
	if evt.QuantityAfter <= 0 {
		priority = entity.PriorityHigh
	}
	resourceType, resourceID := "product", res.ProductID()
	if v := res.VariationID(); v != nil {
		resourceType, resourceID = "variation", *v
	}
	n := entity.Notification{
		ID:           uuid.NewString(),
		TenantID:     evt.TenantID,
		OutletID:     evt.OutletID,
		Type:         entity.NotificationLowStock,
		Priority:     priority,
		Title:        "Stock bajo",
		Message:      fmt.Sprintf("%s (%s) tiene %d unidades, umbral %d", res.Name(), res.SKU(), evt.QuantityAfter, threshold),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata: map[string]any{
			"current_stock": evt.QuantityAfter,
			"threshold":     threshold,
		},
		CreatedAt: evt.OccurredAt,
	}
	if err := d.notifier.Notify(ctx, n); err != nil {
		d.log.Error().Err(err).Int64("tenant_id", evt.TenantID).Str("subject", evt.Subject().Key()).Msg("no se pudo notificar stock bajo")
	}
}
