package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Inventario-pos/internal/application/dto"
	"github.com/jhoicas/Inventario-pos/internal/application/notification"
	"github.com/jhoicas/Inventario-pos/internal/bootstrap"
	"github.com/jhoicas/Inventario-pos/internal/domain/entity"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/Inventario-pos/internal/interfaces/http"
	"github.com/jhoicas/Inventario-pos/pkg/config"
)

type api struct {
	app      *fiber.App
	store    *memory.Store
	tenant   entity.Tenant
	outlet   entity.Outlet
	supplier entity.Supplier
	product  entity.Product
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	svc := bootstrap.NewServices(bootstrap.MemoryStorage(store), bootstrap.MemoryCoordination(),
		notification.NewLogSink(log), config.ReorderConfig{
			LeadTimeDays:      7,
			SafetyStockDays:   7,
			VelocityWindow:    30,
			FallbackCostRatio: decimal.RequireFromString("0.6"),
			DebounceWindow:    time.Hour,
			LockTTL:           5 * time.Second,
			Workers:           1,
			QueueSize:         16,
			JobTimeout:        5 * time.Second,
		}, log)
	svc.Dispatcher.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Dispatcher.Shutdown(ctx)
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:         svc.Ledger,
		Stock:          svc.Stock,
		Batches:        svc.Batches,
		PurchaseOrders: svc.PurchaseOrders,
		Settings:       svc.Settings,
		Audit:          svc.Audit,
		ReorderCheck:   svc.ReorderCheck,
		JWTSecret:      testJWTSecret,
	})

	a := &api{app: app, store: store}
	a.tenant = store.AddTenant(entity.Tenant{ID: testTenantID, Code: "CAFE", Name: "Café Central"})
	a.outlet = store.AddOutlet(entity.Outlet{TenantID: a.tenant.ID, Name: "Centro", IsActive: true})
	a.supplier = store.AddSupplier(entity.Supplier{TenantID: a.tenant.ID, Name: "Tostadores del Sur", IsActive: true})
	a.product = store.AddProduct(entity.Product{
		TenantID:          a.tenant.ID,
		SKU:               "CAF-500",
		Name:              "Café en grano 500g",
		Price:             decimal.RequireFromString("12"),
		LowStockThreshold: 10,
		TrackInventory:    true,
	})
	cost := decimal.RequireFromString("4")
	store.AddProductSupplier(entity.ProductSupplier{
		TenantID: a.tenant.ID, ProductID: a.product.ID, SupplierID: a.supplier.ID,
		UnitCost: &cost, IsPreferred: true, IsActive: true,
	})
	store.SetStock(a.tenant.ID, entity.ProductSubject(a.product.ID), a.product.ID, a.outlet.ID, 12)
	return a
}

// call lanza la petición con el rol indicado; outlet 0 = sin X-Outlet-ID.
func (a *api) call(t *testing.T, method, path, role string, outlet int64, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	if outlet > 0 {
		req.Header.Set(apphttp.HeaderOutletID, fmt.Sprint(outlet))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (a *api) stock(t *testing.T) int64 {
	t.Helper()
	resp := a.call(t, http.MethodGet, fmt.Sprintf("/api/inventory/stock?product_id=%d", a.product.ID), entity.RoleCashier, a.outlet.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[dto.StockResponse](t, resp).Quantity
}

func TestAPI_SaleTriggersAutomaticDraft(t *testing.T) {
	a := newAPI(t)

	resp := a.call(t, http.MethodPost, "/api/inventory/sales", entity.RoleCashier, a.outlet.ID, dto.SaleRequest{
		Reference: "TICKET-1",
		Lines:     []dto.SaleLineRequest{{ProductID: &a.product.ID, Quantity: 5}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	movs := decode[[]dto.MovementResponse](t, resp)
	require.Len(t, movs, 1)
	assert.Equal(t, int64(-5), movs[0].Delta)
	assert.Equal(t, int64(7), a.stock(t))

	var list dto.PurchaseOrderListResponse
	require.Eventually(t, func() bool {
		resp := a.call(t, http.MethodGet, "/api/purchase-orders?auto=true", entity.RoleManager, 0, nil)
		list = decode[dto.PurchaseOrderListResponse](t, resp)
		return len(list.Items) == 1
	}, 2*time.Second, 20*time.Millisecond)
	po := list.Items[0]
	assert.Equal(t, string(entity.POStatusDraft), po.Status)
	assert.Equal(t, "CAFE-PO-0001", po.PONumber)
	require.Len(t, po.Items, 1)
	assert.Equal(t, int64(10), po.Items[0].Quantity)
}

func TestAPI_InventoryErrors(t *testing.T) {
	a := newAPI(t)

	resp := a.call(t, http.MethodPost, "/api/inventory/sales", entity.RoleCashier, 0, dto.SaleRequest{
		Reference: "T", Lines: []dto.SaleLineRequest{{ProductID: &a.product.ID, Quantity: 1}},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "sin outlet")

	resp = a.call(t, http.MethodPost, "/api/inventory/sales", entity.RoleCashier, a.outlet.ID, dto.SaleRequest{
		Reference: "T", Lines: []dto.SaleLineRequest{{ProductID: &a.product.ID, Quantity: 50}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, resp).Code)
	assert.Equal(t, int64(12), a.stock(t))

	resp = a.call(t, http.MethodPost, "/api/inventory/sales", entity.RoleCashier, a.outlet.ID, dto.SaleRequest{Reference: "T"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "sin líneas")

	resp = a.call(t, http.MethodPost, "/api/inventory/movements", entity.RoleCashier, a.outlet.ID, dto.RecordMovementRequest{
		ProductID: &a.product.ID, Type: "adjustment", Quantity: 1,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "el cajero no ajusta")

	resp = a.call(t, http.MethodPut, "/api/inventory/movements/1", entity.RoleOwner, 0, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "IMMUTABLE", decode[dto.ErrorResponse](t, resp).Code)

	resp = a.call(t, http.MethodGet, "/api/inventory/stock", "", a.outlet.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_PurchaseOrderLifecycle(t *testing.T) {
	a := newAPI(t)

	resp := a.call(t, http.MethodPost, "/api/purchase-orders", entity.RoleManager, a.outlet.ID, dto.CreatePurchaseOrderRequest{
		SupplierID: &a.supplier.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	po := decode[dto.PurchaseOrderResponse](t, resp)
	base := fmt.Sprintf("/api/purchase-orders/%d", po.ID)

	resp = a.call(t, http.MethodPost, base+"/items", entity.RoleManager, 0, dto.AddPurchaseOrderItemRequest{
		ProductID: &a.product.ID, Quantity: 20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	po = decode[dto.PurchaseOrderResponse](t, resp)
	assert.True(t, po.Total.Equal(decimal.NewFromInt(80)))

	resp = a.call(t, http.MethodPost, base+"/submit", entity.RoleManager, 0, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, resp).Code)

	resp = a.call(t, http.MethodPost, base+"/ready", entity.RoleManager, 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.POStatusReadyToOrder), decode[dto.PurchaseOrderResponse](t, resp).Status)

	resp = a.call(t, http.MethodPost, base+"/submit", entity.RoleManager, 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.POStatusPending), decode[dto.PurchaseOrderResponse](t, resp).Status)

	resp = a.call(t, http.MethodPost, base+"/approve", entity.RoleStockClerk, 0, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.call(t, http.MethodPost, base+"/approve", entity.RoleManager, 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = a.call(t, http.MethodPost, base+"/receive", entity.RoleStockClerk, 0, dto.ReceivePurchaseOrderRequest{
		Lines: []dto.ReceiveLineRequest{{ItemID: po.Items[0].ID, Quantity: 20}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(entity.POStatusReceived), decode[dto.PurchaseOrderResponse](t, resp).Status)
	assert.Equal(t, int64(32), a.stock(t))

	resp = a.call(t, http.MethodPost, base+"/cancel", entity.RoleManager, 0, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, resp).Code)

	resp = a.call(t, http.MethodGet, "/api/purchase-orders/9999", entity.RoleManager, 0, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ReorderCheckAndSettings(t *testing.T) {
	a := newAPI(t)
	a.store.SetStock(a.tenant.ID, entity.ProductSubject(a.product.ID), a.product.ID, a.outlet.ID, 4)

	resp := a.call(t, http.MethodPost, "/api/reorder/check", entity.RoleManager, a.outlet.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	check := decode[dto.ReorderCheckResponse](t, resp)
	assert.Equal(t, 1, check.Checked)
	require.Len(t, check.Suggestions, 1)
	assert.Equal(t, int64(6), check.Suggestions[0].Deficit)

	resp = a.call(t, http.MethodGet, "/api/reorder/settings", entity.RoleCashier, 0, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.call(t, http.MethodGet, "/api/reorder/settings", entity.RoleManager, 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[dto.AutoPOSettingsResponse](t, resp)
	assert.True(t, settings.AutoPOEnabled)
	assert.Equal(t, int64(10), settings.DefaultReorderQuantity)

	update := dto.AutoPOSettingsRequest{AutoPOEnabled: true, DefaultReorderQuantity: 24, GroupBySupplier: true}
	resp = a.call(t, http.MethodPut, "/api/reorder/settings", entity.RoleManager, 0, update)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo el dueño configura")

	resp = a.call(t, http.MethodPut, "/api/reorder/settings", entity.RoleOwner, 0, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(24), decode[dto.AutoPOSettingsResponse](t, resp).DefaultReorderQuantity)

	resp = a.call(t, http.MethodPut, "/api/reorder/settings", entity.RoleOwner, 0, dto.AutoPOSettingsRequest{})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.call(t, http.MethodGet, "/api/reorder/audit?action=check_triggered", entity.RoleManager, 0, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := decode[[]dto.AuditLogResponse](t, resp)
	require.Len(t, logs, 1)

	resp = a.call(t, http.MethodDelete, fmt.Sprintf("/api/reorder/audit/%d", logs[0].ID), entity.RoleOwner, 0, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
