package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

const sheetName = "Kardex"

// XLSX una hoja con cabecera en negrita; las cantidades se escriben como número.
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSX) Extension() string { return "xlsx" }

func (XLSX) Write(w io.Writer, a *entity.Article, h *app.History) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: estilo: %w", err)
	}

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s - %s", a.SKU, a.Name))
	_ = f.SetCellValue(sheetName, "A2", "Bodega")
	_ = f.SetCellValue(sheetName, "B2", warehouseLabel(h.WarehouseID))
	_ = f.SetCellValue(sheetName, "A3", "Saldo inicial")
	_ = f.SetCellValue(sheetName, "B3", h.StartingBalance.InexactFloat64())

	const headerRow = 5
	for i, c := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheetName, cell, c)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(Columns), headerRow)
	if err := f.SetCellStyle(sheetName, first, last, bold); err != nil {
		return fmt.Errorf("xlsx: estilo cabecera: %w", err)
	}

	for i, r := range h.Rows {
		values := []any{
			r.Timestamp.UTC().Format(timestampLayout),
			r.DocumentType,
			r.DocumentID,
			string(r.Reason),
			r.Unit,
			r.Quantity.InexactFloat64(),
			r.BaseQuantity.InexactFloat64(),
			string(r.Direction),
			r.RunningBalance.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("xlsx: fila %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}
