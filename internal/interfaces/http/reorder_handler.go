package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/application/reorder"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/domain/repository"
)

// ReorderHandler revisión manual, configuración y bitácora de la reposición automática.
type ReorderHandler struct {
	check    *reorder.CheckUseCase
	settings *purchasing.SettingsUseCase
	audit    *purchasing.AuditUseCase
}

// NewReorderHandler construye el handler.
func NewReorderHandler(check *reorder.CheckUseCase, settings *purchasing.SettingsUseCase, audit *purchasing.AuditUseCase) *ReorderHandler {
	return &ReorderHandler{check: check, settings: settings, audit: audit}
}

// Check godoc
// @Summary      Revisar el outlet y planificar órdenes para lo que esté en o bajo su umbral
// @Tags         reorder
// @Security     Bearer
// @Produce      json
// @Param        X-Outlet-ID  header  int  true  "Outlet"
// @Success      200  {object}  dto.ReorderCheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reorder/check [post]
func (h *ReorderHandler) Check(c *fiber.Ctx) error {
	out, err := h.check.Run(c.Context(), GetTenantID(c), GetOutletID(c), actorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetSettings godoc
// @Summary      Configuración efectiva de reposición automática del tenant
// @Tags         reorder
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AutoPOSettingsResponse
// @Router       /api/reorder/settings [get]
func (h *ReorderHandler) GetSettings(c *fiber.Ctx) error {
	s, err := h.settings.Effective(c.Context(), GetTenantID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(purchasing.ToSettingsResponse(s))
}

// UpdateSettings godoc
// @Summary      Actualizar la configuración de reposición automática
// @Tags         reorder
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AutoPOSettingsRequest  true  "Configuración"
// @Success      200  {object}  dto.AutoPOSettingsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reorder/settings [put]
func (h *ReorderHandler) UpdateSettings(c *fiber.Ctx) error {
	var in dto.AutoPOSettingsRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	s, err := h.settings.Update(c.Context(), GetTenantID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(purchasing.ToSettingsResponse(s))
}

// ListAudit godoc
// @Summary      Bitácora de reposición automática
// @Tags         reorder
// @Security     Bearer
// @Produce      json
// @Param        purchase_order_id  query  int     false  "Orden"
// @Param        product_id         query  int     false  "Producto"
// @Param        variation_id       query  int     false  "Variación"
// @Param        action             query  string  false  "Acción"
// @Param        limit              query  int     false  "Límite"
// @Param        offset             query  int     false  "Offset"
// @Success      200  {array}   dto.AuditLogResponse
// @Router       /api/reorder/audit [get]
func (h *ReorderHandler) ListAudit(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badParam(c, "paginación")
	}
	page.DefaultPage()
	f := repository.AuditFilter{
		TenantID:        GetTenantID(c),
		PurchaseOrderID: queryID(c, "purchase_order_id"),
		ProductID:       queryID(c, "product_id"),
		VariationID:     queryID(c, "variation_id"),
		Limit:           page.Limit,
		Offset:          page.Offset,
	}
	if a := c.Query("action"); a != "" {
		action := entity.AuditAction(a)
		f.Action = &action
	}
	logs, err := h.audit.List(c.Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, purchasing.ToAuditResponse(l))
	}
	return c.JSON(out)
}

// UpdateAudit godoc
// @Summary  La bitácora es append-only
// @Tags     reorder
// @Failure  405  {object}  dto.ErrorResponse
// @Router   /api/reorder/audit/{id} [put]
func (h *ReorderHandler) UpdateAudit(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	return writeError(c, h.audit.Update(c.Context(), GetTenantID(c), id))
}

// DeleteAudit godoc
// @Summary  La bitácora es append-only
// @Tags     reorder
// @Failure  405  {object}  dto.ErrorResponse
// @Router   /api/reorder/audit/{id} [delete]
func (h *ReorderHandler) DeleteAudit(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	return writeError(c, h.audit.Delete(c.Context(), GetTenantID(c), id))
}
