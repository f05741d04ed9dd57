package inventory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/internal/domain/inventory"
)

var today = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

// ──────────────────────────────────────────────────────────────────────────────
// Ejemplo de referencia: avgDaily=2, lead=5, safety=3, coverage=14, onHand=10, onOrder=0
// → reorderPoint=16, suggested=ceil(2×22−10)=34, daysOfStock=5 → RED.
// ──────────────────────────────────────────────────────────────────────────────
func TestProject_EjemploReferencia(t *testing.T) {
	f := inventory.Project(inventory.ForecastInput{
		AvgDaily:        dec("2"),
		OnHand:          dec("10"),
		OnOrder:         decimal.Zero,
		LeadTimeDays:    5,
		SafetyStockDays: 3,
		CoverageDays:    14,
		Today:           today,
	})
	assert.True(t, dec("16").Equal(f.ReorderPoint), "reorderPoint %s", f.ReorderPoint)
	assert.True(t, dec("34").Equal(f.SuggestedQty), "suggestedQty %s", f.SuggestedQty)
	assert.True(t, dec("5").Equal(f.DaysOfStock), "daysOfStock %s", f.DaysOfStock)
	assert.Equal(t, inventory.SignalRed, f.Signal)
	require.NotNil(t, f.ProjectedStockoutDate)
	assert.Equal(t, "2026-03-15", f.ProjectedStockoutDate.Format(time.DateOnly))
}

func TestProject_Semaforo(t *testing.T) {
	base := inventory.ForecastInput{AvgDaily: dec("1"), LeadTimeDays: 5, SafetyStockDays: 3, CoverageDays: 14, Today: today}
	cases := []struct {
		onHand string
		want   inventory.Signal
	}{
		{"5", inventory.SignalRed},
		{"5.5", inventory.SignalYellow},
		{"8", inventory.SignalYellow},
		{"8.01", inventory.SignalGreen},
		{"-3", inventory.SignalRed},
	}
	for _, tc := range cases {
		in := base
		in.OnHand = dec(tc.onHand)
		assert.Equal(t, tc.want, inventory.Project(in).Signal, "onHand=%s", tc.onHand)
	}
}

func TestProject_SinConsumo(t *testing.T) {
	f := inventory.Project(inventory.ForecastInput{AvgDaily: decimal.Zero, OnHand: dec("10"), LeadTimeDays: 5, SafetyStockDays: 3, CoverageDays: 14, Today: today})
	assert.Nil(t, f.ProjectedStockoutDate, "sin consumo no hay fecha de quiebre")
	assert.True(t, f.SuggestedQty.IsZero())
	assert.True(t, f.ReorderPoint.IsZero())
	assert.Equal(t, inventory.SignalGreen, f.Signal)
}

func TestProject_PedidoEnCursoReduceSugerido(t *testing.T) {
	f := inventory.Project(inventory.ForecastInput{AvgDaily: dec("2"), OnHand: dec("10"), OnOrder: dec("40"), LeadTimeDays: 5, SafetyStockDays: 3, CoverageDays: 14, Today: today})
	assert.True(t, f.SuggestedQty.IsZero(), "44 − 50 < 0 → 0, obtenido %s", f.SuggestedQty)
}

func TestVolatility(t *testing.T) {
	assert.True(t, inventory.Volatility([]decimal.Decimal{dec("0"), dec("0")}).IsZero(), "media 0 → 0")
	assert.True(t, inventory.Volatility([]decimal.Decimal{dec("3"), dec("3"), dec("3")}).IsZero(), "serie constante → 0")
	// media 2, desviación poblacional 2 → CV = 1
	got := inventory.Volatility([]decimal.Decimal{dec("0"), dec("4"), dec("0"), dec("4")})
	assert.True(t, dec("1").Equal(got), "obtenido %s", got)
}

func TestDailySeries_RellenaConCeros(t *testing.T) {
	points := []inventory.DailyQuantity{
		{Day: today.AddDate(0, 0, -1), Quantity: dec("4")},
		{Day: today, Quantity: dec("1")},
		{Day: today, Quantity: dec("2")},
		{Day: today.AddDate(0, 0, -30), Quantity: dec("100")}, // fuera de la ventana de 7
	}
	s := inventory.DailySeries(points, today, 7)
	require.Len(t, s, 7)
	assert.True(t, dec("3").Equal(s[6]))
	assert.True(t, dec("4").Equal(s[5]))
	for i := 0; i < 5; i++ {
		assert.True(t, s[i].IsZero(), "día %d debe ser 0", i)
	}
}

func TestComputeStats_Promedios(t *testing.T) {
	points := []inventory.DailyQuantity{
		{Day: today, Quantity: dec("7")},
		{Day: today.AddDate(0, 0, -20), Quantity: dec("23")},
		{Day: today.AddDate(0, 0, -60), Quantity: dec("60")},
	}
	st := inventory.ComputeStats("co", "art", points, nil, today)
	assert.True(t, dec("1").Equal(st.AvgDaily7), "7d %s", st.AvgDaily7)
	assert.True(t, dec("1").Equal(st.AvgDaily30), "30d %s", st.AvgDaily30)
	assert.True(t, dec("1").Equal(st.AvgDaily90), "90d %s", st.AvgDaily90)
	assert.True(t, st.Volatility.GreaterThan(dec("0.6")))
}

func TestSelectWindow(t *testing.T) {
	stats := &entity.DemandStats{AvgDaily7: dec("7"), AvgDaily30: dec("30"), AvgDaily90: dec("90")}
	cases := []struct {
		vol       string
		requested inventory.Window
		wantW     inventory.Window
		wantAvg   string
	}{
		{"0.7", inventory.WindowAuto, inventory.Window90, "90"},
		{"0.6", inventory.WindowAuto, inventory.Window30, "30"},
		{"0.31", inventory.WindowAuto, inventory.Window30, "30"},
		{"0.3", inventory.WindowAuto, inventory.Window7, "7"},
		{"0.9", inventory.Window7, inventory.Window7, "7"},
	}
	for _, tc := range cases {
		stats.Volatility = dec(tc.vol)
		w, avg, err := inventory.SelectWindow(stats, tc.requested)
		require.NoError(t, err)
		assert.Equal(t, tc.wantW, w, "vol=%s", tc.vol)
		assert.True(t, dec(tc.wantAvg).Equal(avg))
	}
	_, _, err := inventory.SelectWindow(stats, inventory.Window(14))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
