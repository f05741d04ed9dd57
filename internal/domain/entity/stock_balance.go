package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKey identifica un saldo: empresa + artículo + bodega (nil = saldo sin bodega).
type BalanceKey struct {
	CompanyID   string
	ArticleID   string
	WarehouseID *string
}

// Warehouse devuelve la bodega o "" si la clave es a nivel empresa.
func (k BalanceKey) Warehouse() string {
	if k.WarehouseID == nil {
		return ""
	}
	return *k.WarehouseID
}

// StockBalance saldo disponible (en unidad base) de una clave. Se crea en el primer movimiento.
type StockBalance struct {
	BalanceKey
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}
