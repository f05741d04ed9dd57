package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// ComponentDemand cantidad requerida de un componente para una línea de combo.
type ComponentDemand struct {
	Index     int
	Component *entity.Article
	Factor    decimal.Decimal
	Required  decimal.Decimal // factor × cantidad base de la línea
}

// ExpandComposite expande un combo un solo nivel. Los componentes que son servicios o no
// controlan stock se omiten. Un componente que es a su vez combo, o que apunta al propio
// combo, es un error de catálogo: no se admite anidamiento.
func ExpandComposite(
	combo *entity.Article,
	lineQty decimal.Decimal,
	lookup func(id string) *entity.Article,
) ([]ComponentDemand, error) {
	out := make([]ComponentDemand, 0, len(combo.Components))
	for i, c := range combo.Components {
		if c.ArticleID == combo.ID {
			return nil, domain.Invalid("el combo %s se referencia a sí mismo", combo.ID)
		}
		if !c.Quantity.IsPositive() {
			return nil, domain.Invalid("cantidad de componente inválida en combo %s", combo.ID)
		}
		comp := lookup(c.ArticleID)
		if comp == nil {
			return nil, domain.Conflict("componente %s del combo %s no existe", c.ArticleID, combo.ID)
		}
		if comp.IsComposite() {
			return nil, domain.Invalid("combo anidado no soportado: %s dentro de %s", comp.ID, combo.ID)
		}
		if comp.IsService || !comp.StockControlled {
			continue
		}
		required := c.Quantity.Mul(lineQty).Round(QuantityScale)
		if !required.IsPositive() {
			return nil, domain.Invalid("la línea del combo %s requiere cero de %s al redondear", combo.ID, comp.ID)
		}
		out = append(out, ComponentDemand{
			Index:     i,
			Component: comp,
			Factor:    c.Quantity,
			Required:  required,
		})
	}
	return out, nil
}
