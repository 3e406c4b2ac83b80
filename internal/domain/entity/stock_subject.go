package entity

import (
	"fmt"
	"strconv"
)

// SubjectKind indica si el stock se lleva a nivel de producto o de variación.
type SubjectKind uint8

const (
	SubjectProduct SubjectKind = iota + 1
	SubjectVariation
)

// StockSubject es "lo que tiene stock": un producto sin variaciones o una variación concreta.
// Se resuelve una sola vez en el borde (HTTP, comandos) y viaja tipado por toda la aplicación.
type StockSubject struct {
	Kind SubjectKind
	ID   int64
}

// ProductSubject sujeto de stock a nivel producto.
func ProductSubject(productID int64) StockSubject {
	return StockSubject{Kind: SubjectProduct, ID: productID}
}

// VariationSubject sujeto de stock a nivel variación.
func VariationSubject(variationID int64) StockSubject {
	return StockSubject{Kind: SubjectVariation, ID: variationID}
}

// SubjectFromIDs construye el sujeto a partir de los ids opcionales de una petición.
// La variación tiene prioridad; exactamente uno de los dos debe venir informado.
func SubjectFromIDs(productID, variationID *int64) (StockSubject, bool) {
	switch {
	case variationID != nil && *variationID > 0:
		return VariationSubject(*variationID), true
	case productID != nil && *productID > 0:
		return ProductSubject(*productID), true
	default:
		return StockSubject{}, false
	}
}

// IsZero true si el sujeto no fue informado.
func (s StockSubject) IsZero() bool { return s.Kind == 0 || s.ID <= 0 }

// IsVariation true si el sujeto es una variación.
func (s StockSubject) IsVariation() bool { return s.Kind == SubjectVariation }

// Key representación estable para claves de cache, locks y logs ("variation:12").
func (s StockSubject) Key() string {
	switch s.Kind {
	case SubjectVariation:
		return "variation:" + strconv.FormatInt(s.ID, 10)
	case SubjectProduct:
		return "product:" + strconv.FormatInt(s.ID, 10)
	default:
		return "unknown:" + strconv.FormatInt(s.ID, 10)
	}
}

func (s StockSubject) String() string { return s.Key() }

// ResolvedSubject sujeto ya cargado del catálogo: el producto siempre, la variación si aplica.
type ResolvedSubject struct {
	Product   *Product
	Variation *Variation
}

// Subject devuelve el sujeto tipado.
func (r ResolvedSubject) Subject() StockSubject {
	if r.Variation != nil {
		return VariationSubject(r.Variation.ID)
	}
	return ProductSubject(r.Product.ID)
}

// ProductID id del producto (también para variaciones).
func (r ResolvedSubject) ProductID() int64 { return r.Product.ID }

// VariationID id de la variación o nil.
func (r ResolvedSubject) VariationID() *int64 {
	if r.Variation == nil {
		return nil
	}
	id := r.Variation.ID
	return &id
}

// Threshold umbral de stock bajo efectivo (variación y si no, producto).
func (r ResolvedSubject) Threshold() int64 {
	if r.Variation != nil && r.Variation.LowStockThreshold > 0 {
		return r.Variation.LowStockThreshold
	}
	return r.Product.LowStockThreshold
}

// Name nombre para notificaciones ("Café 500g / Molido").
func (r ResolvedSubject) Name() string {
	if r.Variation != nil && r.Variation.Name != "" {
		return fmt.Sprintf("%s / %s", r.Product.Name, r.Variation.Name)
	}
	return r.Product.Name
}

// SKU de la variación si tiene, si no del producto.
func (r ResolvedSubject) SKU() string {
	if r.Variation != nil && r.Variation.SKU != "" {
		return r.Variation.SKU
	}
	return r.Product.SKU
}
