package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/domain"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// PurchaseOrderUseCase ciclo de vida de las órdenes de compra: edición del borrador, envío,
// aprobación, pedido, recepción (con entrada al ledger) y cancelación.
type PurchaseOrderUseCase struct {
	txRunner  ports.TxRunner
	pos       repository.PurchaseOrderRepository
	tenants   repository.TenantRepository
	catalog   repository.CatalogRepository
	suppliers repository.SupplierRepository
	settings  *SettingsUseCase
	ledger    *inventory.LedgerUseCase
	batches   *inventory.BatchUseCase
	log       zerolog.Logger
	now       func() time.Time
}

// NewPurchaseOrderUseCase construye el caso de uso.
func NewPurchaseOrderUseCase(
	txRunner ports.TxRunner,
	pos repository.PurchaseOrderRepository,
	tenants repository.TenantRepository,
	catalog repository.CatalogRepository,
	suppliers repository.SupplierRepository,
	settings *SettingsUseCase,
	ledger *inventory.LedgerUseCase,
	batches *inventory.BatchUseCase,
	log zerolog.Logger,
) *PurchaseOrderUseCase {
	return &PurchaseOrderUseCase{
		txRunner:  txRunner,
		pos:       pos,
		tenants:   tenants,
		catalog:   catalog,
		suppliers: suppliers,
		settings:  settings,
		ledger:    ledger,
		batches:   batches,
		log:       log.With().Str("component", "purchase_orders").Logger(),
		now:       time.Now,
	}
}

// Create abre una orden manual en borrador para el outlet.
func (uc *PurchaseOrderUseCase) Create(ctx context.Context, tenantID, outletID int64, actorID *int64, in dto.CreatePurchaseOrderRequest) (*entity.PurchaseOrder, error) {
	if _, err := inventory.CheckOutlet(ctx, uc.tenants, tenantID, outletID); err != nil {
		return nil, err
	}
	if in.SupplierID != nil {
		if err := uc.checkSupplier(ctx, tenantID, *in.SupplierID); err != nil {
			return nil, err
		}
	}
	tenant, err := uc.tenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	po := entity.NewPurchaseOrder(tenantID, outletID, in.SupplierID, uc.now())
	po.CreatedBy = actorID
	po.Notes = strings.TrimSpace(in.Notes)
	err = uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		if err := CreateNumbered(ctx, uow.PurchaseOrders(), po, tenant.Code, uc.now()); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("ya existe un borrador abierto para ese proveedor en el outlet: %w", domain.ErrConflict)
			}
			return err
		}
		return uow.Audit().Append(ctx, Entry(po, entity.AuditDraftCreated, actorID, "Borrador creado manualmente "+po.PONumber, nil))
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// Get orden por id con sus líneas.
func (uc *PurchaseOrderUseCase) Get(ctx context.Context, tenantID, poID int64) (*entity.PurchaseOrder, error) {
	po, err := uc.pos.GetByID(ctx, tenantID, poID)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, fmt.Errorf("orden de compra %d: %w", poID, domain.ErrNotFound)
	}
	return po, nil
}

// List órdenes del tenant con filtros.
func (uc *PurchaseOrderUseCase) List(ctx context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	if f.Status != nil && !entity.ValidPOStatus(*f.Status) {
		return nil, domain.Invalid("status", "estado desconocido %q", *f.Status)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.pos.List(ctx, f)
}

// mutate carga la orden con bloqueo, aplica fn y guarda la cabecera en la misma transacción.
func (uc *PurchaseOrderUseCase) mutate(ctx context.Context, tenantID, poID int64, fn func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(uow ports.UnitOfWork) error {
		po, err := uow.PurchaseOrders().GetForUpdate(ctx, tenantID, poID)
		if err != nil {
			return err
		}
		if po == nil {
			return fmt.Errorf("orden de compra %d: %w", poID, domain.ErrNotFound)
		}
		if err := fn(uow, po); err != nil {
			return err
		}
		po.UpdatedAt = uc.now()
		if err := uow.PurchaseOrders().Update(ctx, po); err != nil {
			return err
		}
		out = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddItem agrega una línea al borrador. Sin precio se toma el costo resuelto (proveedor, variación,
// producto o precio * ratio).
func (uc *PurchaseOrderUseCase) AddItem(ctx context.Context, tenantID, poID int64, actorID *int64, in dto.AddPurchaseOrderItemRequest) (*entity.PurchaseOrder, error) {
	subject, ok := entity.SubjectFromIDs(in.ProductID, in.VariationID)
	if !ok {
		return nil, domain.Invalid("product_id", "product_id o variation_id requerido")
	}
	res, err := inventory.ResolveSubject(ctx, uc.catalog, tenantID, subject)
	if err != nil {
		return nil, err
	}
	if in.SupplierID != nil {
		if err := uc.checkSupplier(ctx, tenantID, *in.SupplierID); err != nil {
			return nil, err
		}
	}
	settings, err := uc.settings.Effective(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		price := in.UnitPrice
		if price == nil {
			supplierID := in.SupplierID
			if supplierID == nil {
				supplierID = po.SupplierID
			}
			cost, _, err := UnitCost(ctx, uc.suppliers, tenantID, res, supplierID, settings.FallbackCostRatio)
			if err != nil {
				return domain.Invalid("unit_price", "requerido: %v", err)
			}
			price = &cost
		}
		it := &entity.PurchaseOrderItem{
			ProductID:   res.ProductID(),
			VariationID: res.VariationID(),
			SupplierID:  in.SupplierID,
			Quantity:    in.Quantity,
			UnitPrice:   *price,
			CreatedAt:   uc.now(),
			UpdatedAt:   uc.now(),
		}
		if err := po.AddItem(it); err != nil {
			return err
		}
		if err := uow.PurchaseOrders().CreateItem(ctx, it); err != nil {
			return err
		}
		l := Entry(po, entity.AuditItemAdded, actorID, fmt.Sprintf("Línea agregada: %s x%d", res.Name(), it.Quantity),
			map[string]any{"quantity": it.Quantity, "unit_price": it.UnitPrice.String(), "manual": true})
		l.ProductID, l.VariationID = ptr(res.ProductID()), res.VariationID()
		return uow.Audit().Append(ctx, l)
	})
}

// UpdateItemQuantity cambia la cantidad de una línea del borrador.
func (uc *PurchaseOrderUseCase) UpdateItemQuantity(ctx context.Context, tenantID, poID, itemID int64, actorID *int64, quantity int64) (*entity.PurchaseOrder, error) {
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		before, err := po.Item(itemID)
		if err != nil {
			return err
		}
		prev := before.Quantity
		it, err := po.UpdateItemQuantity(itemID, quantity)
		if err != nil {
			return err
		}
		it.UpdatedAt = uc.now()
		if err := uow.PurchaseOrders().UpdateItem(ctx, it); err != nil {
			return err
		}
		l := Entry(po, entity.AuditItemUpdated, actorID, fmt.Sprintf("Cantidad %d -> %d", prev, quantity),
			map[string]any{"previous_quantity": prev, "new_quantity": quantity, "manual": true})
		l.ProductID, l.VariationID = ptr(it.ProductID), it.VariationID
		return uow.Audit().Append(ctx, l)
	})
}

// RemoveItem quita una línea del borrador.
func (uc *PurchaseOrderUseCase) RemoveItem(ctx context.Context, tenantID, poID, itemID int64) (*entity.PurchaseOrder, error) {
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if err := po.RemoveItem(itemID); err != nil {
			return err
		}
		return uow.PurchaseOrders().DeleteItem(ctx, po.ID, itemID)
	})
}

// AssignSupplier asigna proveedor a la orden o a una de sus líneas. Un borrador sin proveedor
// pasa a draft cuando todas sus líneas quedan con proveedor.
func (uc *PurchaseOrderUseCase) AssignSupplier(ctx context.Context, tenantID, poID int64, actorID *int64, in dto.AssignSupplierRequest) (*entity.PurchaseOrder, error) {
	if err := uc.checkSupplier(ctx, tenantID, in.SupplierID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if in.ItemID == nil && (po.SupplierID == nil || *po.SupplierID != in.SupplierID) {
			other, err := uow.PurchaseOrders().FindOpenDraftForUpdate(ctx, tenantID, &in.SupplierID, po.OutletID)
			if err != nil {
				return err
			}
			if other != nil && other.ID != po.ID {
				return fmt.Errorf("el borrador %s ya agrupa a ese proveedor: %w", other.PONumber, domain.ErrConflict)
			}
		}
		if err := po.AssignSupplier(in.SupplierID, in.ItemID); err != nil {
			return err
		}
		if in.ItemID != nil {
			it, _ := po.Item(*in.ItemID)
			if err := uow.PurchaseOrders().UpdateItem(ctx, it); err != nil {
				return err
			}
		}
		ctxMap := map[string]any{"supplier_id": in.SupplierID, "status": string(po.Status)}
		if in.ItemID != nil {
			ctxMap["item_id"] = *in.ItemID
		}
		l := Entry(po, entity.AuditSupplierAssigned, actorID, fmt.Sprintf("Proveedor %d asignado", in.SupplierID), ctxMap)
		l.SupplierID = &in.SupplierID
		return uow.Audit().Append(ctx, l)
	})
}

// SetAdjustments fija impuesto y descuento de la orden.
func (uc *PurchaseOrderUseCase) SetAdjustments(ctx context.Context, tenantID, poID int64, in dto.AdjustmentsRequest) (*entity.PurchaseOrder, error) {
	return uc.mutate(ctx, tenantID, poID, func(_ ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if !po.Status.IsEditable() && po.Status != entity.POStatusReadyToOrder {
			return fmt.Errorf("orden %s en estado %s: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
		}
		return po.SetAdjustments(in.Tax, in.Discount)
	})
}

// MarkReady deja el borrador listo para pedir.
func (uc *PurchaseOrderUseCase) MarkReady(ctx context.Context, tenantID, poID int64, actorID *int64) (*entity.PurchaseOrder, error) {
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if err := po.MarkReady(); err != nil {
			return err
		}
		return uow.Audit().Append(ctx, Entry(po, entity.AuditReadyToOrder, actorID, "Orden lista para pedir", nil))
	})
}

// Submit envía la orden a aprobación respetando el mínimo de orden del tenant.
// Con auto_approve_po la orden queda aprobada en el mismo paso.
func (uc *PurchaseOrderUseCase) Submit(ctx context.Context, tenantID, poID int64, actorID *int64) (*entity.PurchaseOrder, error) {
	settings, err := uc.settings.Effective(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if err := po.Submit(settings.MinimumOrderValue); err != nil {
			return err
		}
		if err := uow.Audit().Append(ctx, Entry(po, entity.AuditPOSubmitted, actorID, "Orden enviada",
			map[string]any{"total": po.Total.String()})); err != nil {
			return err
		}
		if !settings.AutoApprovePO {
			return nil
		}
		if err := po.TransitionTo(entity.POStatusApproved); err != nil {
			return err
		}
		return uow.Audit().Append(ctx, Entry(po, entity.AuditPOApproved, nil, "Aprobada automáticamente", map[string]any{"auto": true}))
	})
}

// Approve aprueba una orden pendiente.
func (uc *PurchaseOrderUseCase) Approve(ctx context.Context, tenantID, poID int64, actorID *int64) (*entity.PurchaseOrder, error) {
	return uc.transition(ctx, tenantID, poID, actorID, entity.POStatusApproved, entity.AuditPOApproved, "Orden aprobada")
}

// MarkOrdered marca la orden como pedida al proveedor.
func (uc *PurchaseOrderUseCase) MarkOrdered(ctx context.Context, tenantID, poID int64, actorID *int64) (*entity.PurchaseOrder, error) {
	return uc.transition(ctx, tenantID, poID, actorID, entity.POStatusOrdered, entity.AuditPOOrdered, "Orden pedida al proveedor")
}

// Cancel cancela la orden; lo ya recibido queda en el ledger.
func (uc *PurchaseOrderUseCase) Cancel(ctx context.Context, tenantID, poID int64, actorID *int64) (*entity.PurchaseOrder, error) {
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if err := po.Cancel(); err != nil {
			return err
		}
		return uow.Audit().Append(ctx, Entry(po, entity.AuditPOCancelled, actorID, "Orden cancelada", nil))
	})
}

func (uc *PurchaseOrderUseCase) transition(ctx context.Context, tenantID, poID int64, actorID *int64, to entity.POStatus, action entity.AuditAction, desc string) (*entity.PurchaseOrder, error) {
	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		if err := po.TransitionTo(to); err != nil {
			return err
		}
		return uow.Audit().Append(ctx, Entry(po, action, actorID, desc, nil))
	})
}

// Receive registra la mercancía recibida: actualiza las líneas, escribe una compra en el ledger
// por línea (al precio de la línea, para el costo promedio) y pasa la orden a partial o received.
// Para variaciones con lote se crea el lote indicado.
func (uc *PurchaseOrderUseCase) Receive(ctx context.Context, tenantID, poID int64, actorID *int64, in dto.ReceivePurchaseOrderRequest) (*entity.PurchaseOrder, error) {
	if len(in.Lines) == 0 {
		return nil, domain.Invalid("lines", "sin líneas a recibir")
	}
	expiries := make([]time.Time, len(in.Lines))
	for i, l := range in.Lines {
		if l.BatchNumber == "" {
			continue
		}
		if l.ExpiryDate == "" {
			return nil, domain.Invalid("lines.expiry_date", "requerida junto con batch_number")
		}
		d, err := time.Parse("2006-01-02", l.ExpiryDate)
		if err != nil {
			return nil, domain.Invalid("lines.expiry_date", "formato YYYY-MM-DD")
		}
		expiries[i] = d
	}

	return uc.mutate(ctx, tenantID, poID, func(uow ports.UnitOfWork, po *entity.PurchaseOrder) error {
		received := make([]map[string]any, 0, len(in.Lines))
		for i, l := range in.Lines {
			it, err := po.Receive(l.ItemID, l.Quantity)
			if err != nil {
				return err
			}
			it.UpdatedAt = uc.now()
			if err := uow.PurchaseOrders().UpdateItem(ctx, it); err != nil {
				return err
			}
			res, err := inventory.ResolveSubject(ctx, uow.Catalog(), tenantID, it.Subject())
			if err != nil {
				return err
			}
			cost := it.UnitPrice
			if l.BatchNumber != "" {
				if !res.Subject().IsVariation() {
					return domain.Invalid("lines.batch_number", "solo las variaciones manejan lotes")
				}
				if _, _, err := uc.batches.ReceiveInTx(ctx, uow, res, inventory.ReceiveInput{
					TenantID:    tenantID,
					OutletID:    po.OutletID,
					VariationID: it.Subject().ID,
					BatchNumber: l.BatchNumber,
					ExpiryDate:  expiries[i],
					Quantity:    l.Quantity,
					CostPrice:   &cost,
					Reference:   po.PONumber,
					ActorID:     actorID,
				}); err != nil {
					return err
				}
			} else {
				if _, err := uc.ledger.RecordInTx(ctx, uow, res, inventory.RecordInput{
					TenantID:  tenantID,
					OutletID:  po.OutletID,
					Subject:   res.Subject(),
					Type:      entity.MovementPurchase,
					Quantity:  l.Quantity,
					UnitCost:  &cost,
					Reference: po.PONumber,
					ActorID:   actorID,
				}); err != nil {
					return err
				}
			}
			received = append(received, map[string]any{"item_id": it.ID, "quantity": l.Quantity})
		}
		return uow.Audit().Append(ctx, Entry(po, entity.AuditPOReceived, actorID, "Mercancía recibida",
			map[string]any{"lines": received, "status": string(po.Status)}))
	})
}

func (uc *PurchaseOrderUseCase) checkSupplier(ctx context.Context, tenantID, supplierID int64) error {
	s, err := uc.suppliers.GetSupplier(ctx, tenantID, supplierID)
	if err != nil {
		return err
	}
	if s == nil || !s.IsActive {
		return fmt.Errorf("proveedor %d: %w", supplierID, domain.ErrNotFound)
	}
	return nil
}

func (uc *PurchaseOrderUseCase) tenant(ctx context.Context, tenantID int64) (*entity.Tenant, error) {
	t, err := uc.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("tenant %d: %w", tenantID, domain.ErrNotFound)
	}
	return t, nil
}

// ToPurchaseOrderResponse convierte la orden al DTO.
func ToPurchaseOrderResponse(po *entity.PurchaseOrder) dto.PurchaseOrderResponse {
	out := dto.PurchaseOrderResponse{
		ID:                   po.ID,
		PONumber:             po.PONumber,
		OutletID:             po.OutletID,
		SupplierID:           po.SupplierID,
		Status:               string(po.Status),
		Subtotal:             po.Subtotal,
		Tax:                  po.Tax,
		Discount:             po.Discount,
		Total:                po.Total,
		OrderDate:            po.OrderDate,
		ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		Notes:                po.Notes,
		IsAutoGenerated:      po.IsAutoGenerated,
		Items:                make([]dto.PurchaseOrderItemResponse, 0, len(po.Items)),
		CreatedAt:            po.CreatedAt,
		UpdatedAt:            po.UpdatedAt,
	}
	for _, it := range po.Items {
		out.Items = append(out.Items, dto.PurchaseOrderItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			VariationID:      it.VariationID,
			SupplierID:       it.SupplierID,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			Total:            it.Total,
			ReceivedQuantity: it.ReceivedQuantity,
		})
	}
	return out
}

func ptr(v int64) *int64 { return &v }
