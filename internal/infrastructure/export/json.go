package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

type jsonRow struct {
	Timestamp      time.Time       `json:"fecha"`
	DocumentType   string          `json:"tipo_documento"`
	DocumentID     string          `json:"documento,omitempty"`
	Reason         string          `json:"motivo"`
	Unit           string          `json:"unidad"`
	Quantity       decimal.Decimal `json:"cantidad"`
	BaseQuantity   decimal.Decimal `json:"cantidad_base"`
	Direction      string          `json:"direccion"`
	RunningBalance decimal.Decimal `json:"saldo"`
}

type jsonDoc struct {
	ArticleID       string          `json:"article_id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Warehouse       string          `json:"warehouse"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	Rows            []jsonRow       `json:"rows"`
}

// JSON documento con cabecera del artículo y filas.
type JSON struct{}

func (JSON) ContentType() string { return "application/json" }
func (JSON) Extension() string   { return "json" }

func (JSON) Write(w io.Writer, a *entity.Article, h *app.History) error {
	doc := jsonDoc{
		ArticleID:       a.ID,
		SKU:             a.SKU,
		Name:            a.Name,
		Warehouse:       warehouseLabel(h.WarehouseID),
		StartingBalance: h.StartingBalance,
		CurrentBalance:  h.CurrentBalance,
		Rows:            make([]jsonRow, 0, len(h.Rows)),
	}
	for _, r := range h.Rows {
		doc.Rows = append(doc.Rows, jsonRow{
			Timestamp:      r.Timestamp.UTC(),
			DocumentType:   r.DocumentType,
			DocumentID:     r.DocumentID,
			Reason:         string(r.Reason),
			Unit:           r.Unit,
			Quantity:       r.Quantity,
			BaseQuantity:   r.BaseQuantity,
			Direction:      string(r.Direction),
			RunningBalance: r.RunningBalance,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
