package inventory

import (
	"fmt"
	"strings"
	"time"
)

// PONumber número de orden de compra: {CODIGO}-PO-{secuencia de 4 dígitos}.
func PONumber(tenantCode string, seq int64) string {
	return fmt.Sprintf("%s-PO-%04d", normalizeCode(tenantCode), seq)
}

// FallbackPONumber número basado en timestamp cuando la secuencia choca repetidamente.
func FallbackPONumber(tenantCode string, now time.Time) string {
	return fmt.Sprintf("%s-PO-%s%03d", normalizeCode(tenantCode), now.UTC().Format("20060102150405"), now.Nanosecond()/1e6)
}

// InitialBatchNumber número del lote sintético creado al migrar stock existente.
func InitialBatchNumber(variationID int64, day time.Time) string {
	return fmt.Sprintf("INIT-%d-%s", variationID, day.UTC().Format("20060102"))
}

// FallbackBatchNumber agrega un sufijo de hora al número de lote cuando ya existe.
func FallbackBatchNumber(base string, now time.Time) string {
	return fmt.Sprintf("%s-%s", base, now.UTC().Format("150405"))
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "POS"
	}
	return code
}
