package entity

import "github.com/shopspring/decimal"

// Sale documento de venta tal como lo entrega el módulo de ventas al pagarse o anularse.
// Las líneas llegan ya validadas y en orden estable.
type Sale struct {
	ID           string
	CompanyID    string
	WarehouseID  *string
	DocumentType string
	Lines        []SaleLine
	Actor        string
	// Override permite que la venta deje saldos negativos (venta sin existencias autorizada).
	Override bool
}

// SaleLine línea de venta: artículo, unidad y cantidad solicitada.
type SaleLine struct {
	ArticleID string
	Unit      string
	Quantity  decimal.Decimal
}
