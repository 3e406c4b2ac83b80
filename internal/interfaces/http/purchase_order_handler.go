package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// PurchaseOrderHandler órdenes de compra manuales y automáticas.
type PurchaseOrderHandler struct {
	uc *purchasing.PurchaseOrderUseCase
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(uc *purchasing.PurchaseOrderUseCase) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc}
}

// Create godoc
// @Summary      Crear orden de compra en borrador
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Outlet-ID  header  int                             true  "Outlet"
// @Param        body         body    dto.CreatePurchaseOrderRequest  true  "supplier_id opcional"
// @Success      201  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	po, err := h.uc.Create(c.Context(), GetTenantID(c), GetOutletID(c), actorID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(purchasing.ToPurchaseOrderResponse(po))
}

// List godoc
// @Summary      Listar órdenes de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        X-Outlet-ID  header  int     false  "Filtrar por outlet"
// @Param        status       query   string  false  "Estado"
// @Param        supplier_id  query   int     false  "Proveedor"
// @Param        auto         query   bool    false  "Solo automáticas / manuales"
// @Param        limit        query   int     false  "Límite"
// @Param        offset       query   int     false  "Desplazamiento"
// @Success      200  {object}  dto.PurchaseOrderListResponse
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badParam(c, "paginación")
	}
	page.DefaultPage()
	f := repository.PurchaseOrderFilter{
		TenantID:   GetTenantID(c),
		OutletID:   optionalOutletID(c),
		SupplierID: queryID(c, "supplier_id"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if s := c.Query("status"); s != "" {
		st := entity.POStatus(s)
		f.Status = &st
	}
	if a := c.Query("auto"); a != "" {
		auto := c.QueryBool("auto")
		f.IsAutoGenerated = &auto
	}
	list, err := h.uc.List(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.PurchaseOrderListResponse{
		Items: make([]dto.PurchaseOrderResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, po := range list {
		out.Items = append(out.Items, purchasing.ToPurchaseOrderResponse(po))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener orden de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	po, err := h.uc.Get(c.Context(), GetTenantID(c), id)
	return h.respond(c, po, err)
}

// AddItem godoc
// @Summary      Agregar línea a un borrador
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                              true  "ID de la orden"
// @Param        body  body  dto.AddPurchaseOrderItemRequest  true  "product_id o variation_id, quantity"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/items [post]
func (h *PurchaseOrderHandler) AddItem(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var in dto.AddPurchaseOrderItemRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	po, err := h.uc.AddItem(c.Context(), GetTenantID(c), id, actorID(c), in)
	return h.respond(c, po, err)
}

// UpdateItem godoc
// @Summary      Cambiar la cantidad de una línea
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  int                                 true  "ID de la orden"
// @Param        itemId  path  int                                 true  "ID de la línea"
// @Param        body    body  dto.UpdatePurchaseOrderItemRequest  true  "quantity"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Router       /api/purchase-orders/{id}/items/{itemId} [put]
func (h *PurchaseOrderHandler) UpdateItem(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return badParam(c, "itemId")
	}
	var in dto.UpdatePurchaseOrderItemRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	po, err := h.uc.UpdateItemQuantity(c.Context(), GetTenantID(c), id, itemID, actorID(c), in.Quantity)
	return h.respond(c, po, err)
}

// RemoveItem godoc
// @Summary      Quitar una línea del borrador
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id      path  int  true  "ID de la orden"
// @Param        itemId  path  int  true  "ID de la línea"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Router       /api/purchase-orders/{id}/items/{itemId} [delete]
func (h *PurchaseOrderHandler) RemoveItem(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return badParam(c, "itemId")
	}
	po, err := h.uc.RemoveItem(c.Context(), GetTenantID(c), id, itemID)
	return h.respond(c, po, err)
}

// AssignSupplier godoc
// @Summary      Asignar proveedor a la orden o a una línea
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                        true  "ID de la orden"
// @Param        body  body  dto.AssignSupplierRequest  true  "supplier_id, item_id opcional"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Router       /api/purchase-orders/{id}/supplier [put]
func (h *PurchaseOrderHandler) AssignSupplier(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var in dto.AssignSupplierRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	po, err := h.uc.AssignSupplier(c.Context(), GetTenantID(c), id, actorID(c), in)
	return h.respond(c, po, err)
}

// SetAdjustments godoc
// @Summary      Fijar impuesto y descuento
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                     true  "ID de la orden"
// @Param        body  body  dto.AdjustmentsRequest  true  "tax, discount"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Router       /api/purchase-orders/{id}/adjustments [put]
func (h *PurchaseOrderHandler) SetAdjustments(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var in dto.AdjustmentsRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	po, err := h.uc.SetAdjustments(c.Context(), GetTenantID(c), id, in)
	return h.respond(c, po, err)
}

type transitionFunc func(h *PurchaseOrderHandler, c *fiber.Ctx, id int64) (*entity.PurchaseOrder, error)

// transition envuelve los cambios de estado sin cuerpo (ready, submit, approve, order, cancel).
func (h *PurchaseOrderHandler) transition(fn transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badParam(c, "id")
		}
		po, err := fn(h, c, id)
		return h.respond(c, po, err)
	}
}

// MarkReady godoc
// @Summary   Borrador listo para pedir
// @Tags      purchase-orders
// @Security  Bearer
// @Param     id   path      int  true  "ID de la orden"
// @Success   200  {object}  dto.PurchaseOrderResponse
// @Failure   409  {object}  dto.ErrorResponse
// @Router    /api/purchase-orders/{id}/ready [post]
func (h *PurchaseOrderHandler) MarkReady() fiber.Handler {
	return h.transition(func(h *PurchaseOrderHandler, c *fiber.Ctx, id int64) (*entity.PurchaseOrder, error) {
		return h.uc.MarkReady(c.Context(), GetTenantID(c), id, actorID(c))
	})
}

// Submit godoc
// @Summary   Enviar a aprobación (se auto-aprueba si el tenant lo configura)
// @Tags      purchase-orders
// @Security  Bearer
// @Param     id   path      int  true  "ID de la orden"
// @Success   200  {object}  dto.PurchaseOrderResponse
// @Router    /api/purchase-orders/{id}/submit [post]
func (h *PurchaseOrderHandler) Submit() fiber.Handler {
	return h.transition(func(h *PurchaseOrderHandler, c *fiber.Ctx, id int64) (*entity.PurchaseOrder, error) {
		return h.uc.Submit(c.Context(), GetTenantID(c), id, actorID(c))
	})
}

// Approve godoc
// @Summary   Aprobar orden
// @Tags      purchase-orders
// @Security  Bearer
// @Param     id   path      int  true  "ID de la orden"
// @Success   200  {object}  dto.PurchaseOrderResponse
// @Router    /api/purchase-orders/{id}/approve [post]
func (h *PurchaseOrderHandler) Approve() fiber.Handler {
	return h.transition(func(h *PurchaseOrderHandler, c *fiber.Ctx, id int64) (*entity.PurchaseOrder, error) {
		return h.uc.Approve(c.Context(), GetTenantID(c), id, actorID(c))
	})
}

// MarkOrdered godoc
// @Summary   Marcar como pedida al proveedor
// @Tags      purchase-orders
// @Security  Bearer
// @Param     id   path      int  true  "ID de la orden"
// @Success   200  {object}  dto.PurchaseOrderResponse
// @Router    /api/purchase-orders/{id}/order [post]
func (h *PurchaseOrderHandler) MarkOrdered() fiber.Handler {
	return h.transition(func(h *PurchaseOrderHandler, c *fiber.Ctx, id int64) (*entity.PurchaseOrder, error) {
		return h.uc.MarkOrdered(c.Context(), GetTenantID(c), id, actorID(c))
	})
}

// Cancel godoc
// @Summary   Cancelar orden
// @Tags      purchase-orders
// @Security  Bearer
// @Param     id   path      int  true  "ID de la orden"
// @Success   200  {object}  dto.PurchaseOrderResponse
// @Router    /api/purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel() fiber.Handler {
	return h.transition(func(h *PurchaseOrderHandler, c *fiber.Ctx, id int64) (*entity.PurchaseOrder, error) {
		return h.uc.Cancel(c.Context(), GetTenantID(c), id, actorID(c))
	})
}

// Receive godoc
// @Summary      Recibir mercancía (parcial o total); entra al ledger como compra
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                              true  "ID de la orden"
// @Param        body  body  dto.ReceivePurchaseOrderRequest  true  "líneas recibidas"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) Receive(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var in dto.ReceivePurchaseOrderRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	po, err := h.uc.Receive(c.Context(), GetTenantID(c), id, actorID(c), in)
	return h.respond(c, po, err)
}

func (h *PurchaseOrderHandler) respond(c *fiber.Ctx, po *entity.PurchaseOrder, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(purchasing.ToPurchaseOrderResponse(po))
}
