package inventory

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// Window ventana de promedio diario en días. WindowAuto elige según volatilidad.
type Window int

const (
	WindowAuto Window = 0
	Window7    Window = 7
	Window30   Window = 30
	Window90   Window = 90
)

// Valid indica si la ventana es soportada.
func (w Window) Valid() bool {
	switch w {
	case WindowAuto, Window7, Window30, Window90:
		return true
	}
	return false
}

// Signal semáforo de reposición.
type Signal string

const (
	SignalRed    Signal = "RED"
	SignalYellow Signal = "YELLOW"
	SignalGreen  Signal = "GREEN"
)

// Rank orden de urgencia (RED primero).
func (s Signal) Rank() int {
	switch s {
	case SignalRed:
		return 0
	case SignalYellow:
		return 1
	case SignalGreen:
		return 2
	}
	return 3
}

// Umbrales de volatilidad para la ventana automática.
var (
	highVolatility = decimal.RequireFromString("0.6")
	midVolatility  = decimal.RequireFromString("0.3")
	// Epsilon evita dividir por cero al calcular días de inventario.
	Epsilon = decimal.RequireFromString("0.0001")
)

const (
	avgScale        int32 = 4
	volatilityScale int32 = 4
	daysScale       int32 = 2
)

// DailyQuantity consumo en unidad base de un día (UTC).
type DailyQuantity struct {
	Day      time.Time
	Quantity decimal.Decimal
}

// DailySeries arma la serie diaria rellena con ceros de los últimos `days` días terminando en today.
func DailySeries(points []DailyQuantity, today time.Time, days int) []decimal.Decimal {
	end := truncateDay(today)
	byDay := make(map[string]decimal.Decimal, len(points))
	for _, p := range points {
		k := truncateDay(p.Day).Format(time.DateOnly)
		byDay[k] = byDay[k].Add(p.Quantity)
	}
	series := make([]decimal.Decimal, days)
	for i := 0; i < days; i++ {
		d := end.AddDate(0, 0, -(days - 1 - i)).Format(time.DateOnly)
		series[i] = byDay[d]
	}
	return series
}

// Volatility coeficiente de variación (desviación poblacional / media) a 4 decimales; 0 si la media es 0.
func Volatility(series []decimal.Decimal) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(len(series)))
	sum := decimal.Zero
	for _, v := range series {
		sum = sum.Add(v)
	}
	mean := sum.Div(n)
	if mean.IsZero() {
		return decimal.Zero
	}
	variance := decimal.Zero
	for _, v := range series {
		d := v.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(n)
	// La raíz cuadrada se hace en float64; el índice es estadístico, no una cantidad contable.
	vf, _ := variance.Float64()
	stddev := decimal.NewFromFloat(math.Sqrt(vf))
	return stddev.Div(mean).Round(volatilityScale)
}

// ComputeStats calcula promedios de 7/30/90 días y volatilidad desde la serie de 90 días.
func ComputeStats(companyID, articleID string, points []DailyQuantity, lastSaleAt *time.Time, now time.Time) *entity.DemandStats {
	series := DailySeries(points, now, int(Window90))
	return &entity.DemandStats{
		CompanyID:  companyID,
		ArticleID:  articleID,
		AvgDaily7:  averageTail(series, int(Window7)),
		AvgDaily30: averageTail(series, int(Window30)),
		AvgDaily90: averageTail(series, int(Window90)),
		Volatility: Volatility(series),
		LastSaleAt: lastSaleAt,
		ComputedAt: now,
	}
}

func averageTail(series []decimal.Decimal, days int) decimal.Decimal {
	if days > len(series) {
		days = len(series)
	}
	if days == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range series[len(series)-days:] {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(days))).Round(avgScale)
}

// SelectWindow devuelve la ventana usada y su promedio. Una ventana explícita ignora la volatilidad.
func SelectWindow(stats *entity.DemandStats, requested Window) (Window, decimal.Decimal, error) {
	w := requested
	switch requested {
	case WindowAuto:
		switch {
		case stats.Volatility.GreaterThan(highVolatility):
			w = Window90
		case stats.Volatility.GreaterThan(midVolatility):
			w = Window30
		default:
			w = Window7
		}
	case Window7, Window30, Window90:
	default:
		return 0, decimal.Zero, domain.Invalid("ventana no soportada: %d", requested)
	}
	switch w {
	case Window7:
		return w, stats.AvgDaily7, nil
	case Window30:
		return w, stats.AvgDaily30, nil
	default:
		return w, stats.AvgDaily90, nil
	}
}

// ForecastInput parámetros de la proyección.
type ForecastInput struct {
	AvgDaily        decimal.Decimal
	OnHand          decimal.Decimal
	OnOrder         decimal.Decimal
	LeadTimeDays    int
	SafetyStockDays int
	CoverageDays    int
	Today           time.Time
}

// Forecast resultado de la proyección de reposición.
type Forecast struct {
	DaysOfStock           decimal.Decimal
	ReorderPoint          decimal.Decimal
	SuggestedQty          decimal.Decimal
	ProjectedStockoutDate *time.Time
	Signal                Signal
}

// Project calcula días de inventario, punto de reorden, cantidad sugerida y semáforo.
//
//	daysOfStock  = onHand / max(avgDaily, ε)
//	reorderPoint = avgDaily × (lead + safety)
//	suggested    = ceil(max(avgDaily × (lead + safety + coverage) − (onHand + onOrder), 0))
func Project(in ForecastInput) Forecast {
	lead := decimal.NewFromInt(int64(in.LeadTimeDays))
	leadSafety := lead.Add(decimal.NewFromInt(int64(in.SafetyStockDays)))
	horizon := leadSafety.Add(decimal.NewFromInt(int64(in.CoverageDays)))

	divisor := decimal.Max(in.AvgDaily, Epsilon)
	days := in.OnHand.Div(divisor)

	netNeed := in.AvgDaily.Mul(horizon).Sub(in.OnHand.Add(in.OnOrder))
	suggested := decimal.Max(netNeed, decimal.Zero).Ceil()

	f := Forecast{
		DaysOfStock:  days.Round(daysScale),
		ReorderPoint: in.AvgDaily.Mul(leadSafety).Round(QuantityScale),
		SuggestedQty: suggested,
	}
	if in.AvgDaily.IsPositive() {
		d := truncateDay(in.Today).AddDate(0, 0, int(days.Floor().IntPart()))
		f.ProjectedStockoutDate = &d
	}
	switch {
	case days.LessThanOrEqual(lead):
		f.Signal = SignalRed
	case days.LessThanOrEqual(leadSafety):
		f.Signal = SignalYellow
	default:
		f.Signal = SignalGreen
	}
	return f
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
