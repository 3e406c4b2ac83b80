package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
)

// BatchHandler lotes con vencimiento por variación y outlet.
type BatchHandler struct {
	uc *inventory.BatchUseCase
}

// NewBatchHandler construye el handler.
func NewBatchHandler(uc *inventory.BatchUseCase) *BatchHandler {
	return &BatchHandler{uc: uc}
}

type receiveBatchResponse struct {
	Batch    dto.BatchResponse    `json:"batch"`
	Movement dto.MovementResponse `json:"movement"`
}

// Receive godoc
// @Summary      Recibir un lote (crea el lote y el movimiento de compra)
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        X-Outlet-ID  header  int                      true  "Outlet"
// @Param        body         body    dto.ReceiveBatchRequest  true  "variation_id, batch_number, expiry_date, quantity"
// @Success      201  {object}  receiveBatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/batches [post]
func (h *BatchHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveBatchRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	b, mov, err := h.uc.ReceiveFromRequest(c.Context(), GetTenantID(c), GetOutletID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(receiveBatchResponse{
		Batch:    inventory.ToBatchResponse(b, time.Now()),
		Movement: inventory.ToMovementResponse(mov),
	})
}

// Quantities godoc
// @Summary      Lotes de una variación en el outlet (FEFO) con vendible y total
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        X-Outlet-ID   header  int  true  "Outlet"
// @Param        variation_id  query   int  true  "Variación"
// @Success      200  {object}  dto.BatchQuantitiesResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/batches [get]
func (h *BatchHandler) Quantities(c *fiber.Ctx) error {
	variationID := queryID(c, "variation_id")
	if variationID == nil {
		return badParam(c, "variation_id")
	}
	out, err := h.uc.Quantities(c.Context(), GetTenantID(c), *variationID, GetOutletID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListExpiring godoc
// @Summary      Lotes que vencen dentro de N días (incluye vencidos)
// @Tags         batches
// @Security     Bearer
// @Produce      json
// @Param        X-Outlet-ID  header  int  false  "Filtrar por outlet"
// @Param        days         query   int  false  "Días (default 30)"
// @Success      200  {array}   dto.BatchResponse
// @Router       /api/batches/expiring [get]
func (h *BatchHandler) ListExpiring(c *fiber.Ctx) error {
	out, err := h.uc.ListExpiring(c.Context(), GetTenantID(c), optionalOutletID(c), c.QueryInt("days", 30))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
