package export

import (
	"fmt"
	"io"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorOut     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// PDF kardex en A4 horizontal:
//
//	┌──────────────────────────────────────────────────────────┐
//	│  SKU + Nombre              │  Bodega + Rango de fechas   │
//	│  Saldo inicial / Saldo actual                            │
//	│  TABLA: Fecha | Documento | Motivo | Cant | Base | Saldo │
//	└──────────────────────────────────────────────────────────┘
type PDF struct{}

func (PDF) ContentType() string { return "application/pdf" }
func (PDF) Extension() string   { return "pdf" }

func (PDF) Write(w io.Writer, a *entity.Article, h *app.History) error {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Kardex "+a.SKU, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(a, h))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(balancesRow(h))
	m.AddRows(tableHeaderRow())
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	for _, r := range h.Rows {
		m.AddRows(detailRow(r))
	}
	if len(h.Rows) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos en el rango consultado.", props.Text{
				Size: 8, Align: align.Center, Color: colorGray, Top: 2,
			}),
		)))
	}

	doc, err := m.Generate()
	if err != nil {
		return fmt.Errorf("pdf: generar documento: %w", err)
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(a *entity.Article, h *app.History) core.Row {
	return row.New(16).Add(
		col.New(7).Add(
			text.New(a.SKU, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(a.Name, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("KARDEX", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Bodega: "+warehouseLabel(h.WarehouseID), props.Text{Size: 8, Align: align.Right, Top: 6}),
			text.New(dateRange(h.DateFrom, h.DateTo), props.Text{
				Size: 8, Align: align.Right, Top: 11, Color: colorGray,
			}),
		),
	)
}

func balancesRow(h *app.History) core.Row {
	return row.New(10).Add(
		col.New(6).Add(text.New("Saldo inicial: "+qty(h.StartingBalance), props.Text{
			Style: fontstyle.Bold, Size: 9, Top: 2,
		})),
		col.New(6).Add(text.New("Saldo actual: "+qty(h.CurrentBalance), props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 2,
		})),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Documento", 3, align.Left),
		h("Motivo", 2, align.Left),
		h("Unidad", 1, align.Center),
		h("Cantidad", 1, align.Right),
		h("Base", 1, align.Right),
		h("Saldo", 2, align.Right),
	)
}

func detailRow(r domaininv.KardexRow) core.Row {
	base := qty(r.BaseQuantity)
	style := props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1}
	if r.Direction == entity.DirectionOut {
		base = "-" + base
		style.Color = colorOut
	}
	return row.New(6).Add(
		col.New(2).Add(text.New(r.Timestamp.UTC().Format("2006-01-02 15:04"), props.Text{Size: 8, Top: 1, Left: 1})),
		col.New(3).Add(text.New(document(r), props.Text{Size: 8, Top: 1, Left: 1})),
		col.New(2).Add(text.New(string(r.Reason), props.Text{Size: 8, Top: 1, Left: 1})),
		col.New(1).Add(text.New(r.Unit, props.Text{Size: 8, Align: align.Center, Top: 1})),
		col.New(1).Add(text.New(qty(r.Quantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		col.New(1).Add(text.New(base, style)),
		col.New(2).Add(text.New(qty(r.RunningBalance), props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 1,
		})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func qty(d decimal.Decimal) string { return d.StringFixed(3) }

func document(r domaininv.KardexRow) string {
	if r.DocumentID == "" {
		return r.DocumentType
	}
	return r.DocumentType + " " + r.DocumentID
}

func dateRange(from, to *time.Time) string {
	f, t := "inicio", "hoy"
	if from != nil {
		f = from.UTC().Format("2006-01-02")
	}
	if to != nil {
		t = to.UTC().Format("2006-01-02")
	}
	return f + " a " + t
}
