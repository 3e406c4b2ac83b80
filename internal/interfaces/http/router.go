package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Inventario-pos/internal/application/inventory"
	"github.com/jhoicas/Inventario-pos/internal/application/purchasing"
	"github.com/jhoicas/Inventario-pos/internal/application/reorder"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/ws"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger         *inventory.LedgerUseCase
	Stock          *inventory.StockUseCase
	Batches        *inventory.BatchUseCase
	PurchaseOrders *purchasing.PurchaseOrderUseCase
	Settings       *purchasing.SettingsUseCase
	Audit          *purchasing.AuditUseCase
	ReorderCheck   *reorder.CheckUseCase
	Hub            *ws.Hub // nil = sin canal websocket
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	auth := AuthMiddleware(deps.JWTSecret)
	protected := app.Group("/api", auth)
	perm := RequirePermission
	outlet := RequireOutlet()

	// Ledger y cache de stock
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Stock)
	invGroup.Post("/movements", perm(entity.PermAdjustStock), outlet, inventoryHandler.RecordMovement)
	invGroup.Get("/movements", perm(entity.PermViewInventory), inventoryHandler.ListMovements)
	invGroup.Put("/movements/:id", perm(entity.PermAdjustStock), inventoryHandler.UpdateMovement)
	invGroup.Delete("/movements/:id", perm(entity.PermAdjustStock), inventoryHandler.DeleteMovement)
	invGroup.Post("/sales", perm(entity.PermRecordSale), outlet, inventoryHandler.RecordSale)
	invGroup.Post("/transfers", perm(entity.PermTransferStock), outlet, inventoryHandler.Transfer)
	invGroup.Get("/stock", perm(entity.PermViewInventory), outlet, inventoryHandler.GetStock)
	invGroup.Post("/stock/resync", perm(entity.PermManageSettings), inventoryHandler.ResyncStock)

	// Lotes
	batches := protected.Group("/batches")
	batchHandler := NewBatchHandler(deps.Batches)
	batches.Post("/", perm(entity.PermManageBatches), outlet, batchHandler.Receive)
	batches.Get("/", perm(entity.PermViewInventory), outlet, batchHandler.Quantities)
	batches.Get("/expiring", perm(entity.PermViewInventory), batchHandler.ListExpiring)

	// Órdenes de compra
	pos := protected.Group("/purchase-orders")
	poHandler := NewPurchaseOrderHandler(deps.PurchaseOrders)
	manage := perm(entity.PermManagePurchaseOrders)
	pos.Post("/", manage, outlet, poHandler.Create)
	pos.Get("/", perm(entity.PermViewPurchaseOrders), poHandler.List)
	pos.Get("/:id", perm(entity.PermViewPurchaseOrders), poHandler.GetByID)
	pos.Post("/:id/items", manage, poHandler.AddItem)
	pos.Put("/:id/items/:itemId", manage, poHandler.UpdateItem)
	pos.Delete("/:id/items/:itemId", manage, poHandler.RemoveItem)
	pos.Put("/:id/supplier", manage, poHandler.AssignSupplier)
	pos.Put("/:id/adjustments", manage, poHandler.SetAdjustments)
	pos.Post("/:id/ready", manage, poHandler.MarkReady())
	pos.Post("/:id/submit", manage, poHandler.Submit())
	pos.Post("/:id/approve", perm(entity.PermApprovePurchaseOrders), poHandler.Approve())
	pos.Post("/:id/order", manage, poHandler.MarkOrdered())
	pos.Post("/:id/cancel", manage, poHandler.Cancel())
	pos.Post("/:id/receive", perm(entity.PermReceiveStock), poHandler.Receive)

	// Reposición automática
	re := protected.Group("/reorder")
	reorderHandler := NewReorderHandler(deps.ReorderCheck, deps.Settings, deps.Audit)
	re.Post("/check", manage, outlet, reorderHandler.Check)
	re.Get("/settings", perm(entity.PermViewPurchaseOrders), reorderHandler.GetSettings)
	re.Put("/settings", perm(entity.PermManageSettings), reorderHandler.UpdateSettings)
	re.Get("/audit", perm(entity.PermViewAudit), reorderHandler.ListAudit)
	re.Put("/audit/:id", perm(entity.PermViewAudit), reorderHandler.UpdateAudit)
	re.Delete("/audit/:id", perm(entity.PermViewAudit), reorderHandler.DeleteAudit)

	// Notificaciones en tiempo real
	if deps.Hub != nil {
		notif := NewNotificationHandler(deps.Hub)
		app.Get("/ws/notifications", notif.Upgrade, auth, notif.Stream())
	}
}
