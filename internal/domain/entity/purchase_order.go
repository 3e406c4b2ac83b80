package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Inventario-pos/internal/domain"
)

// POStatus estado de una orden de compra.
type POStatus string

const (
	POStatusDraft           POStatus = "draft"
	POStatusPendingSupplier POStatus = "pending_supplier" // borrador con líneas sin proveedor
	POStatusReadyToOrder    POStatus = "ready_to_order"
	POStatusPending         POStatus = "pending" // enviada a aprobación
	POStatusApproved        POStatus = "approved"
	POStatusOrdered         POStatus = "ordered"
	POStatusPartial         POStatus = "partial"
	POStatusReceived        POStatus = "received"
	POStatusCancelled       POStatus = "cancelled"
)

var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:           {POStatusPendingSupplier, POStatusReadyToOrder, POStatusCancelled},
	POStatusPendingSupplier: {POStatusDraft, POStatusCancelled},
	POStatusReadyToOrder:    {POStatusDraft, POStatusPending, POStatusCancelled},
	POStatusPending:         {POStatusApproved, POStatusDraft, POStatusCancelled},
	POStatusApproved:        {POStatusOrdered, POStatusPartial, POStatusReceived, POStatusCancelled},
	POStatusOrdered:         {POStatusPartial, POStatusReceived, POStatusCancelled},
	POStatusPartial:         {POStatusReceived, POStatusCancelled},
}

// ValidPOStatus true si s es un estado conocido.
func ValidPOStatus(s POStatus) bool {
	switch s {
	case POStatusDraft, POStatusPendingSupplier, POStatusReadyToOrder, POStatusPending, POStatusApproved,
		POStatusOrdered, POStatusPartial, POStatusReceived, POStatusCancelled:
		return true
	}
	return false
}

// CanTransition informa si el cambio de estado from -> to está permitido.
func CanTransition(from, to POStatus) bool {
	for _, s := range poTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsEditable estados en los que se pueden agregar, cambiar o quitar líneas.
func (s POStatus) IsEditable() bool {
	return s == POStatusDraft || s == POStatusPendingSupplier
}

// IsOpen true mientras la orden no esté recibida ni cancelada.
func (s POStatus) IsOpen() bool {
	return s != POStatusReceived && s != POStatusCancelled
}

// PurchaseOrder agregado orden de compra con sus líneas.
// Invariante: Total = Subtotal + Tax - Discount, Subtotal = suma de los totales de línea.
type PurchaseOrder struct {
	ID                   int64
	TenantID             int64
	OutletID             int64
	SupplierID           *int64
	CreatedBy            *int64
	PONumber             string
	Status               POStatus
	Subtotal             decimal.Decimal
	Tax                  decimal.Decimal
	Discount             decimal.Decimal
	Total                decimal.Decimal
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	Notes                string
	IsAutoGenerated      bool
	Items                []*PurchaseOrderItem
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PurchaseOrderItem línea de una orden de compra. SupplierID en la línea prevalece sobre el de la orden.
type PurchaseOrderItem struct {
	ID               int64
	PurchaseOrderID  int64
	ProductID        int64
	VariationID      *int64
	SupplierID       *int64
	Quantity         int64
	UnitPrice        decimal.Decimal
	Total            decimal.Decimal
	ReceivedQuantity int64
	StockAtPlanning  *int64 // stock observado la última vez que el planificador tocó la línea
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Subject sujeto de stock de la línea.
func (i *PurchaseOrderItem) Subject() StockSubject {
	if i.VariationID != nil {
		return VariationSubject(*i.VariationID)
	}
	return ProductSubject(i.ProductID)
}

// Recalculate total de línea = cantidad * precio unitario.
func (i *PurchaseOrderItem) Recalculate() {
	i.Total = decimal.NewFromInt(i.Quantity).Mul(i.UnitPrice).Round(2)
}

// Pending unidades aún no recibidas.
func (i *PurchaseOrderItem) Pending() int64 { return i.Quantity - i.ReceivedQuantity }

// NewPurchaseOrder crea una orden vacía en borrador. Sin proveedor queda en pending_supplier.
func NewPurchaseOrder(tenantID, outletID int64, supplierID *int64, now time.Time) *PurchaseOrder {
	po := &PurchaseOrder{
		TenantID:   tenantID,
		OutletID:   outletID,
		SupplierID: supplierID,
		Status:     POStatusDraft,
		Subtotal:   decimal.Zero,
		Tax:        decimal.Zero,
		Discount:   decimal.Zero,
		Total:      decimal.Zero,
		OrderDate:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	po.RefreshDraftStatus()
	return po
}

// CalculateTotals recalcula líneas, subtotal y total.
func (po *PurchaseOrder) CalculateTotals() {
	subtotal := decimal.Zero
	for _, it := range po.Items {
		it.Recalculate()
		subtotal = subtotal.Add(it.Total)
	}
	po.Subtotal = subtotal
	po.Total = subtotal.Add(po.Tax).Sub(po.Discount)
}

// SetAdjustments fija impuesto y descuento y recalcula el total.
func (po *PurchaseOrder) SetAdjustments(tax, discount decimal.Decimal) error {
	if tax.IsNegative() || discount.IsNegative() {
		return domain.Invalid("tax", "impuesto y descuento no pueden ser negativos")
	}
	po.Tax = tax
	po.Discount = discount
	po.CalculateTotals()
	if po.Total.IsNegative() {
		po.Discount = decimal.Zero
		po.CalculateTotals()
		return domain.Invalid("discount", "el descuento supera subtotal + impuesto")
	}
	return nil
}

// LineSupplier proveedor efectivo de una línea (línea y si no, orden).
func (po *PurchaseOrder) LineSupplier(it *PurchaseOrderItem) *int64 {
	if it.SupplierID != nil {
		return it.SupplierID
	}
	return po.SupplierID
}

// AllItemsHaveSupplier true si cada línea tiene proveedor efectivo.
func (po *PurchaseOrder) AllItemsHaveSupplier() bool {
	for _, it := range po.Items {
		if po.LineSupplier(it) == nil {
			return false
		}
	}
	return true
}

// RefreshDraftStatus alterna draft/pending_supplier según haya líneas sin proveedor.
// No toca órdenes fuera de esos dos estados.
func (po *PurchaseOrder) RefreshDraftStatus() {
	if !po.Status.IsEditable() {
		return
	}
	if (po.SupplierID == nil && len(po.Items) == 0) || !po.AllItemsHaveSupplier() {
		po.Status = POStatusPendingSupplier
		return
	}
	po.Status = POStatusDraft
}

// FindItem busca la línea del sujeto con el mismo proveedor efectivo.
func (po *PurchaseOrder) FindItem(subject StockSubject, supplierID *int64) *PurchaseOrderItem {
	for _, it := range po.Items {
		if it.Subject() == subject && sameID(po.LineSupplier(it), supplierOr(supplierID, po.SupplierID)) {
			return it
		}
	}
	return nil
}

func (po *PurchaseOrder) itemByID(id int64) (*PurchaseOrderItem, int) {
	for i, it := range po.Items {
		if it.ID == id {
			return it, i
		}
	}
	return nil, -1
}

// Item devuelve la línea por id.
func (po *PurchaseOrder) Item(id int64) (*PurchaseOrderItem, error) {
	it, _ := po.itemByID(id)
	if it == nil {
		return nil, fmt.Errorf("línea %d: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

// AddItem agrega una línea. Rechaza cantidades no positivas y duplicados de sujeto+proveedor.
func (po *PurchaseOrder) AddItem(it *PurchaseOrderItem) error {
	if !po.Status.IsEditable() {
		return fmt.Errorf("orden %s en estado %s: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
	}
	if it.Quantity <= 0 {
		return domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if it.UnitPrice.IsNegative() {
		return domain.Invalid("unit_price", "no puede ser negativo")
	}
	if po.FindItem(it.Subject(), it.SupplierID) != nil {
		return fmt.Errorf("la orden ya tiene una línea para %s: %w", it.Subject(), domain.ErrDuplicate)
	}
	it.PurchaseOrderID = po.ID
	po.Items = append(po.Items, it)
	po.CalculateTotals()
	po.RefreshDraftStatus()
	return nil
}

// UpdateItemQuantity cambia la cantidad de una línea y recalcula totales.
func (po *PurchaseOrder) UpdateItemQuantity(itemID, quantity int64) (*PurchaseOrderItem, error) {
	if !po.Status.IsEditable() {
		return nil, fmt.Errorf("orden %s en estado %s: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
	}
	if quantity <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	it, err := po.Item(itemID)
	if err != nil {
		return nil, err
	}
	it.Quantity = quantity
	po.CalculateTotals()
	return it, nil
}

// RemoveItem quita una línea.
func (po *PurchaseOrder) RemoveItem(itemID int64) error {
	if !po.Status.IsEditable() {
		return fmt.Errorf("orden %s en estado %s: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
	}
	_, idx := po.itemByID(itemID)
	if idx < 0 {
		return fmt.Errorf("línea %d: %w", itemID, domain.ErrNotFound)
	}
	po.Items = append(po.Items[:idx], po.Items[idx+1:]...)
	po.CalculateTotals()
	po.RefreshDraftStatus()
	return nil
}

// AssignSupplier asigna proveedor a una línea (itemID != nil) o a la orden.
func (po *PurchaseOrder) AssignSupplier(supplierID int64, itemID *int64) error {
	if !po.Status.IsEditable() {
		return fmt.Errorf("orden %s en estado %s: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
	}
	if supplierID <= 0 {
		return domain.Invalid("supplier_id", "requerido")
	}
	id := supplierID
	if itemID == nil {
		po.SupplierID = &id
	} else {
		it, err := po.Item(*itemID)
		if err != nil {
			return err
		}
		it.SupplierID = &id
	}
	po.RefreshDraftStatus()
	return nil
}

// TransitionTo cambia el estado validando la máquina de estados.
func (po *PurchaseOrder) TransitionTo(to POStatus) error {
	if !CanTransition(po.Status, to) {
		return fmt.Errorf("%s -> %s: %w", po.Status, to, domain.ErrInvalidTransition)
	}
	po.Status = to
	return nil
}

// MarkReady deja la orden lista para pedir: requiere líneas y todas con proveedor.
func (po *PurchaseOrder) MarkReady() error {
	if err := po.checkComplete(); err != nil {
		return err
	}
	return po.TransitionTo(POStatusReadyToOrder)
}

// Submit envía a aprobación una orden en ready_to_order. minimum cero = sin mínimo.
func (po *PurchaseOrder) Submit(minimum decimal.Decimal) error {
	if err := po.checkComplete(); err != nil {
		return err
	}
	if po.Status != POStatusReadyToOrder {
		return fmt.Errorf("orden %s en estado %s debe marcarse lista antes de enviarse: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
	}
	if minimum.IsPositive() && po.Total.LessThan(minimum) {
		return domain.Invalid("total", "el total %s no alcanza el mínimo de orden %s", po.Total.StringFixed(2), minimum.StringFixed(2))
	}
	return po.TransitionTo(POStatusPending)
}

func (po *PurchaseOrder) checkComplete() error {
	if len(po.Items) == 0 {
		return domain.Invalid("items", "la orden no tiene líneas")
	}
	if !po.AllItemsHaveSupplier() {
		return domain.Invalid("supplier_id", "hay líneas sin proveedor")
	}
	return nil
}

// Receive registra unidades recibidas de una línea y pasa la orden a partial o received.
func (po *PurchaseOrder) Receive(itemID, quantity int64) (*PurchaseOrderItem, error) {
	if po.Status != POStatusApproved && po.Status != POStatusOrdered && po.Status != POStatusPartial {
		return nil, fmt.Errorf("orden %s en estado %s no admite recepción: %w", po.PONumber, po.Status, domain.ErrInvalidTransition)
	}
	if quantity <= 0 {
		return nil, domain.Invalid("quantity", "debe ser mayor que cero")
	}
	it, err := po.Item(itemID)
	if err != nil {
		return nil, err
	}
	if quantity > it.Pending() {
		return nil, domain.Invalid("quantity", "se reciben %d pero quedan %d pendientes", quantity, it.Pending())
	}
	it.ReceivedQuantity += quantity

	next := POStatusReceived
	for _, other := range po.Items {
		if other.Pending() > 0 {
			next = POStatusPartial
			break
		}
	}
	if next != po.Status {
		if err := po.TransitionTo(next); err != nil {
			it.ReceivedQuantity -= quantity
			return nil, err
		}
	}
	return it, nil
}

// Cancel cancela la orden desde cualquier estado no terminal. En una orden partial
// ReceivedQuantity se conserva: lo recibido ya está en el ledger.
func (po *PurchaseOrder) Cancel() error {
	return po.TransitionTo(POStatusCancelled)
}

func supplierOr(a, b *int64) *int64 {
	if a != nil {
		return a
	}
	return b
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
