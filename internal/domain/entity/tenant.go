package entity

import "time"

// Tenant negocio (multi-tenant). Code se usa como prefijo de la numeración de órdenes de compra.
type Tenant struct {
	ID        int64
	Code      string
	Name      string
	CreatedAt time.Time
}

// Outlet punto de venta / sucursal de un tenant donde se lleva stock.
type Outlet struct {
	ID        int64
	TenantID  int64
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
