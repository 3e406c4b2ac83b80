package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// InventoryHandler maneja el ledger de stock y el cache por outlet (protegido).
type InventoryHandler struct {
	ledger *inventory.LedgerUseCase
	stock  *inventory.StockUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, stock *inventory.StockUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, stock: stock}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Outlet-ID  header  int                        true  "Outlet"
// @Param        body         body    dto.RecordMovementRequest  true  "product_id o variation_id, type, quantity"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	var in dto.RecordMovementRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.ledger.RecordFromRequest(c.Context(), GetTenantID(c), GetOutletID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(mov))
}

// RecordSale godoc
// @Summary      Registrar venta (todas las líneas o ninguna)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Outlet-ID  header  int              true  "Outlet"
// @Param        body         body    dto.SaleRequest  true  "reference y líneas"
// @Success      201  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/sales [post]
func (h *InventoryHandler) RecordSale(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	movs, err := h.ledger.SaleFromRequest(c.Context(), GetTenantID(c), GetOutletID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementList(movs))
}

// Transfer godoc
// @Summary      Trasladar stock entre outlets del tenant
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Outlet-ID  header  int                  true  "Outlet origen"
// @Param        body         body    dto.TransferRequest  true  "sujeto, to_outlet_id, quantity"
// @Success      201  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	movs, err := h.ledger.TransferFromRequest(c.Context(), GetTenantID(c), GetOutletID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementList(movs))
}

// ListMovements godoc
// @Summary      Listar el ledger
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        X-Outlet-ID   header  int     false  "Filtrar por outlet"
// @Param        product_id    query   int     false  "Producto"
// @Param        variation_id  query   int     false  "Variación"
// @Param        type          query   string  false  "Tipo de movimiento"
// @Param        since         query   string  false  "RFC3339"
// @Success      200  {array}   dto.MovementResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badParam(c, "paginación")
	}
	page.DefaultPage()
	f := repository.MovementFilter{
		TenantID: GetTenantID(c),
		OutletID: optionalOutletID(c),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	f.ProductID = queryID(c, "product_id")
	f.VariationID = queryID(c, "variation_id")
	if t := c.Query("type"); t != "" {
		mt := entity.MovementType(t)
		if !mt.Valid() {
			return badParam(c, "type")
		}
		f.Type = &mt
	}
	if s := c.Query("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return badParam(c, "since")
		}
		f.Since = &since
	}
	movs, err := h.ledger.ListMovements(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toMovementList(movs))
}

// UpdateMovement godoc
// @Summary  Los movimientos son inmutables
// @Tags     inventory
// @Failure  405  {object}  dto.ErrorResponse
// @Router   /api/inventory/movements/{id} [put]
func (h *InventoryHandler) UpdateMovement(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	return writeError(c, h.ledger.UpdateMovement(c.Context(), GetTenantID(c), id))
}

// DeleteMovement godoc
// @Summary  Los movimientos son inmutables
// @Tags     inventory
// @Failure  405  {object}  dto.ErrorResponse
// @Router   /api/inventory/movements/{id} [delete]
func (h *InventoryHandler) DeleteMovement(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	return writeError(c, h.ledger.DeleteMovement(c.Context(), GetTenantID(c), id))
}

// GetStock godoc
// @Summary      Stock actual de un producto o variación en el outlet
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        X-Outlet-ID   header  int  true   "Outlet"
// @Param        product_id    query   int  false  "Producto"
// @Param        variation_id  query   int  false  "Variación"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	subject, ok := entity.SubjectFromIDs(queryID(c, "product_id"), queryID(c, "variation_id"))
	if !ok {
		return badParam(c, "product_id o variation_id")
	}
	out, err := h.stock.Get(c.Context(), GetTenantID(c), subject, GetOutletID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ResyncStock godoc
// @Summary      Recalcular el cache del tenant desde los lotes
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ResyncResponse
// @Router       /api/inventory/stock/resync [post]
func (h *InventoryHandler) ResyncStock(c *fiber.Ctx) error {
	out, err := h.stock.ResyncAll(c.Context(), GetTenantID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func toMovementList(movs []*entity.StockMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, inventory.ToMovementResponse(m))
	}
	return out
}

// queryID parámetro de query numérico opcional; ausente o inválido = nil.
func queryID(c *fiber.Ctx, name string) *int64 {
	v := c.QueryInt(name, 0)
	if v <= 0 {
		return nil
	}
	id := int64(v)
	return &id
}
