package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo de un tenant. Puede venderse directo o a través de sus variaciones.
// Cost es el costo promedio ponderado (se actualiza al recibir mercancía con costo).
type Product struct {
	ID                int64
	TenantID          int64
	SKU               string
	Name              string
	Price             decimal.Decimal // precio de venta
	Cost              decimal.Decimal // 0 = sin costo conocido
	LowStockThreshold int64
	TrackInventory    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Variation presentación vendible de un producto (talla, sabor, tamaño). Precio y costo propios opcionales.
type Variation struct {
	ID                int64
	TenantID          int64
	ProductID         int64
	SKU               string
	Name              string
	Price             decimal.Decimal // 0 = usa el del producto
	Cost              decimal.Decimal // 0 = usa el del producto
	LowStockThreshold int64           // 0 = usa el del producto
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
