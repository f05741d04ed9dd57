package inventory

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// Unidades reconocidas. UND y CAJA son contables (solo enteros); KG y LT son continuas (3 decimales).
const (
	UnitPiece = "UND"
	UnitBox   = "CAJA"
	UnitKilo  = "KG"
	UnitLiter = "LT"
)

// QuantityScale decimales de cantidades y saldos; MoneyScale decimales de precios.
const (
	QuantityScale int32 = 3
	MoneyScale    int32 = 2
)

type unitKind int

const (
	unitCountable unitKind = iota + 1
	unitContinuous
)

var unitKinds = map[string]unitKind{
	UnitPiece: unitCountable,
	UnitBox:   unitCountable,
	UnitKilo:  unitContinuous,
	UnitLiter: unitContinuous,
}

// CanonicalUnit normaliza el símbolo (mayúsculas, sin espacios).
func CanonicalUnit(unit string) string {
	return strings.ToUpper(strings.TrimSpace(unit))
}

// Normalize valida la cantidad según el tipo de unidad.
// Contables: entero positivo. Continuas: positiva, redondeada a 3 decimales.
func Normalize(unit string, raw decimal.Decimal) (decimal.Decimal, error) {
	u := CanonicalUnit(unit)
	kind, ok := unitKinds[u]
	if !ok {
		return decimal.Zero, domain.Invalid("unidad desconocida %q", unit)
	}
	if !raw.IsPositive() {
		return decimal.Zero, domain.Invalid("la cantidad debe ser positiva (%s)", raw.String())
	}
	switch kind {
	case unitCountable:
		if !raw.Equal(raw.Truncate(0)) {
			return decimal.Zero, domain.Invalid("la unidad %s solo admite cantidades enteras (%s)", u, raw.String())
		}
		return raw, nil
	case unitContinuous:
		q := raw.Round(QuantityScale)
		if !q.IsPositive() {
			return decimal.Zero, domain.Invalid("la cantidad redondeada a %d decimales es cero", QuantityScale)
		}
		return q, nil
	}
	return decimal.Zero, domain.Invalid("unidad desconocida %q", unit)
}

// ConversionFactor factor de la unidad hacia la unidad base del artículo.
// Unidad base = 1; unidad sin conversión registrada = 1.
func ConversionFactor(article *entity.Article, unit string) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	u := CanonicalUnit(unit)
	conv, ok := article.Conversion(u)
	isBase := u == CanonicalUnit(article.BaseUnit)
	switch {
	case isBase && ok && !conv.Factor.Equal(one):
		return decimal.Zero, domain.Invalid("la unidad base %s del artículo %s debe tener factor 1", u, article.ID)
	case isBase, !ok:
		return one, nil
	case !conv.Factor.IsPositive():
		return decimal.Zero, domain.Invalid("factor de conversión inválido para %s en artículo %s", u, article.ID)
	}
	return conv.Factor, nil
}

// ToBaseUnit normaliza la cantidad y la convierte a la unidad base del artículo (3 decimales).
// Una conversión que redondea a cero es inválida: el ledger no registra movimientos vacíos.
func ToBaseUnit(article *entity.Article, unit string, quantity decimal.Decimal) (decimal.Decimal, error) {
	q, err := Normalize(unit, quantity)
	if err != nil {
		return decimal.Zero, err
	}
	factor, err := ConversionFactor(article, unit)
	if err != nil {
		return decimal.Zero, err
	}
	base := q.Mul(factor).Round(QuantityScale)
	if !base.IsPositive() {
		return decimal.Zero, domain.Invalid("%s %s equivale a cero en %s (artículo %s)", q.String(), CanonicalUnit(unit), article.BaseUnit, article.ID)
	}
	return base, nil
}

// UnitPrice calcula el precio neto y bruto de una unidad.
// Si hay override se usa tal cual; si no, basePrice * factor. taxRate acepta fracción (0.19) o porcentaje (19).
func UnitPrice(basePrice, factor decimal.Decimal, override *decimal.Decimal, taxRate decimal.Decimal) (net, gross decimal.Decimal) {
	if override != nil {
		net = *override
	} else {
		net = basePrice.Mul(factor)
	}
	rate := taxRate
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = rate.Div(decimal.NewFromInt(100))
	}
	gross = net.Mul(decimal.NewFromInt(1).Add(rate))
	return net.Round(MoneyScale), gross.Round(MoneyScale)
}
