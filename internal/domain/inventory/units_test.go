package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/internal/domain/inventory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func packArticle() *entity.Article {
	return &entity.Article{
		ID:              "art-1",
		BaseUnit:        inventory.UnitPiece,
		StockControlled: true,
		Conversions: []entity.UnitConversion{
			{Unit: "UND", Factor: dec("1")},
			{Unit: "CAJA", Factor: dec("12")},
		},
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		unit    string
		raw     string
		want    string
		wantErr bool
	}{
		{"contable entero", "UND", "5", "5", false},
		{"contable minúsculas", " caja ", "2", "2", false},
		{"contable con decimales", "UND", "1.5", "", true},
		{"continua redondea a 3", "KG", "1.23456", "1.235", false},
		{"continua litros", "LT", "0.5", "0.5", false},
		{"continua que redondea a cero", "KG", "0.0001", "", true},
		{"cero", "UND", "0", "", true},
		{"negativa", "KG", "-1", "", true},
		{"unidad desconocida", "GALON", "1", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := inventory.Normalize(tc.unit, dec(tc.raw))
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tc.want).Equal(got), "esperado %s, obtenido %s", tc.want, got)
		})
	}
}

// Ejemplo: factor base 1, caja factor 12; vender 2 cajas son 24 unidades base.
func TestToBaseUnit_CajaDeDoce(t *testing.T) {
	got, err := inventory.ToBaseUnit(packArticle(), "CAJA", dec("2"))
	require.NoError(t, err)
	assert.True(t, dec("24").Equal(got), "2 cajas deben ser 24 unidades, obtenido %s", got)
}

func TestToBaseUnit_SinConversionUsaFactorUno(t *testing.T) {
	a := &entity.Article{ID: "a", BaseUnit: "KG"}
	got, err := inventory.ToBaseUnit(a, "LT", dec("1.5"))
	require.NoError(t, err)
	assert.True(t, dec("1.5").Equal(got))
}

func TestToBaseUnit_FactorFraccionarioRedondea(t *testing.T) {
	a := &entity.Article{ID: "a", BaseUnit: "KG", Conversions: []entity.UnitConversion{{Unit: "LT", Factor: dec("0.9237")}}}
	got, err := inventory.ToBaseUnit(a, "LT", dec("1.111"))
	require.NoError(t, err)
	assert.True(t, dec("1.026").Equal(got), "obtenido %s", got)
}

func TestToBaseUnit_ConversionQueRedondeaACeroEsInvalida(t *testing.T) {
	a := &entity.Article{ID: "a", BaseUnit: "KG", Conversions: []entity.UnitConversion{{Unit: "LT", Factor: dec("0.1")}}}
	_, err := inventory.ToBaseUnit(a, "LT", dec("0.001"))
	assert.ErrorIs(t, err, domain.ErrValidation, "0.001 LT x 0.1 no debe registrarse como cero KG")
}

func TestConversionFactor_BaseDistintaDeUnoEsInvalida(t *testing.T) {
	a := &entity.Article{ID: "a", BaseUnit: "UND", Conversions: []entity.UnitConversion{{Unit: "UND", Factor: dec("2")}}}
	_, err := inventory.ConversionFactor(a, "UND")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConversionFactor_FactorNoPositivo(t *testing.T) {
	a := &entity.Article{ID: "a", BaseUnit: "UND", Conversions: []entity.UnitConversion{{Unit: "CAJA", Factor: dec("0")}}}
	_, err := inventory.ConversionFactor(a, "CAJA")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUnitPrice(t *testing.T) {
	override := dec("100000")
	cases := []struct {
		name      string
		base      string
		factor    string
		override  *decimal.Decimal
		tax       string
		wantNet   string
		wantGross string
	}{
		{"factor por precio base, IVA fracción", "1000", "12", nil, "0.19", "12000", "14280"},
		{"IVA como porcentaje", "1000", "12", nil, "19", "12000", "14280"},
		{"override gana al factor", "1000", "12", &override, "0.05", "100000", "105000"},
		{"redondeo a 2 decimales", "0.333", "1", nil, "0.19", "0.33", "0.4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net, gross := inventory.UnitPrice(dec(tc.base), dec(tc.factor), tc.override, dec(tc.tax))
			assert.True(t, dec(tc.wantNet).Equal(net), "neto: esperado %s, obtenido %s", tc.wantNet, net)
			assert.True(t, dec(tc.wantGross).Equal(gross), "bruto: esperado %s, obtenido %s", tc.wantGross, gross)
		})
	}
}
