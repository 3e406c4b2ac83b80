package inventory

// IsLowStock true si la cantidad actual está en o por debajo del umbral. Umbral 0 = sin alerta.
func IsLowStock(current, threshold int64) bool {
	return threshold > 0 && current <= threshold
}

// Deficit unidades que faltan para llegar al umbral (0 si no falta nada).
func Deficit(current, threshold int64) int64 {
	if d := threshold - current; d > 0 {
		return d
	}
	return 0
}
