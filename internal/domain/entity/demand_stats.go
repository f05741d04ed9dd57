package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemandStats caché de velocidad de consumo por artículo. Derivado y reconstruible.
type DemandStats struct {
	CompanyID  string
	ArticleID  string
	AvgDaily7  decimal.Decimal
	AvgDaily30 decimal.Decimal
	AvgDaily90 decimal.Decimal
	Volatility decimal.Decimal // coeficiente de variación diario, 90 días
	LastSaleAt *time.Time
	ComputedAt time.Time
}
