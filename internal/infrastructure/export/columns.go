// Package export serializa el kardex de un artículo a archivos descargables (CSV, JSON, XLSX, PDF).
package export

import (
	"strings"
	"time"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
)

// Columns orden fijo de columnas de todos los formatos tabulares.
var Columns = []string{
	"fecha", "tipo_documento", "documento", "motivo", "unidad",
	"cantidad", "cantidad_base", "direccion", "saldo",
}

const timestampLayout = time.RFC3339

func record(r domaininv.KardexRow) []string {
	return []string{
		r.Timestamp.UTC().Format(timestampLayout),
		r.DocumentType,
		r.DocumentID,
		string(r.Reason),
		r.Unit,
		r.Quantity.StringFixed(3),
		r.BaseQuantity.StringFixed(3),
		string(r.Direction),
		r.RunningBalance.StringFixed(3),
	}
}

// All devuelve los exportadores disponibles indexados por formato.
func All() map[string]app.HistoryExporter {
	return map[string]app.HistoryExporter{
		"csv":  CSV{},
		"json": JSON{},
		"xlsx": XLSX{},
		"pdf":  PDF{},
	}
}

func warehouseLabel(id *string) string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return "todas"
	}
	return *id
}
