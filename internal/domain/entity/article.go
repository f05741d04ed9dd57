package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Article representa un artículo del catálogo (inventariable, servicio o combo).
// El catálogo es dueño del registro; este subsistema solo lo lee, salvo StockTotal.
type Article struct {
	ID              string
	CompanyID       string
	SKU             string
	Name            string
	BaseUnit        string // unidad en la que se guarda el saldo
	StockControlled bool   // false = no lleva control de existencias
	IsService       bool
	Price           decimal.Decimal
	TaxRate         decimal.Decimal
	Components      []Component      // no vacío = combo; orden estable
	Conversions     []UnitConversion // tabla de conversión a unidad base
	// StockTotal es un espejo desnormalizado de la suma de saldos por bodega.
	// Se recalcula desde stock_balances en cada movimiento; nunca es fuente de verdad.
	StockTotal decimal.Decimal
	UpdatedAt  time.Time
}

// Component es una línea de la receta de un combo: cantidad del componente por unidad del combo.
type Component struct {
	ArticleID string
	Quantity  decimal.Decimal
}

// UnitConversion factor multiplicativo de una unidad hacia la unidad base del artículo.
type UnitConversion struct {
	Unit          string
	Factor        decimal.Decimal
	PriceOverride *decimal.Decimal
}

// IsComposite indica si el artículo es un combo (se expande en componentes al consumir).
func (a *Article) IsComposite() bool {
	return len(a.Components) > 0
}

// TracksStock indica si los movimientos de este artículo afectan un saldo propio.
func (a *Article) TracksStock() bool {
	return a.StockControlled && !a.IsService && !a.IsComposite()
}

// Conversion busca la conversión registrada para la unidad (sin distinguir mayúsculas).
func (a *Article) Conversion(unit string) (UnitConversion, bool) {
	for _, c := range a.Conversions {
		if strings.EqualFold(c.Unit, unit) {
			return c, true
		}
	}
	return UnitConversion{}, false
}
