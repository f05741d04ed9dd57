package entity

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Direction sentido de un movimiento.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid indica si la dirección es conocida.
func (d Direction) Valid() bool {
	switch d {
	case DirectionIn, DirectionOut:
		return true
	}
	return false
}

// Sign devuelve +1 para entradas y -1 para salidas.
func (d Direction) Sign() decimal.Decimal {
	if d == DirectionOut {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Reason motivo de negocio de un movimiento. Conjunto cerrado.
type Reason string

const (
	ReasonSaleOut       Reason = "SALE_OUT"
	ReasonReturnIn      Reason = "RETURN_IN"
	ReasonComboConsume  Reason = "COMBO_CONSUME"
	ReasonComboRevert   Reason = "COMBO_REVERT"
	ReasonManual        Reason = "MANUAL"
	ReasonAdjustmentIn  Reason = "ADJUSTMENT_IN"
	ReasonAdjustmentOut Reason = "ADJUSTMENT_OUT"
)

// Valid indica si el motivo es conocido.
func (r Reason) Valid() bool {
	switch r {
	case ReasonSaleOut, ReasonReturnIn, ReasonComboConsume, ReasonComboRevert,
		ReasonManual, ReasonAdjustmentIn, ReasonAdjustmentOut:
		return true
	}
	return false
}

// AllowsDirection verifica que el motivo sea coherente con la dirección.
// MANUAL admite ambas; el resto tiene un sentido fijo.
func (r Reason) AllowsDirection(d Direction) bool {
	switch r {
	case ReasonSaleOut, ReasonComboConsume, ReasonAdjustmentOut:
		return d == DirectionOut
	case ReasonReturnIn, ReasonComboRevert, ReasonAdjustmentIn:
		return d == DirectionIn
	case ReasonManual:
		return d.Valid()
	}
	return false
}

// ConsumptionReasons motivos que cuentan como demanda (venta directa o por combo).
// Los repositorios filtran el consumo con esta lista.
func ConsumptionReasons() []Reason { return []Reason{ReasonSaleOut, ReasonComboConsume} }

// RevertReasons motivos que anulan un documento de venta.
func RevertReasons() []Reason { return []Reason{ReasonReturnIn, ReasonComboRevert} }

// IsConsumption indica si el motivo representa demanda.
func (r Reason) IsConsumption() bool { return slices.Contains(ConsumptionReasons(), r) }

// IsRevert indica si el motivo anula una venta.
func (r Reason) IsRevert() bool { return slices.Contains(RevertReasons(), r) }

// StockMovement registro inmutable del ledger. Nunca se actualiza ni se borra;
// una corrección es un movimiento nuevo en sentido contrario.
type StockMovement struct {
	ID             string
	CompanyID      string
	ArticleID      string
	WarehouseID    *string
	Unit           string          // unidad solicitada
	Quantity       decimal.Decimal // cantidad solicitada (positiva)
	BaseQuantity   decimal.Decimal // cantidad en unidad base (positiva)
	Direction      Direction
	Reason         Reason
	DocumentType   string // SALE, RETURN, ADJUSTMENT...
	DocumentID     string
	IdempotencyKey string // único por empresa cuando no está vacío
	Override       bool   // permitió dejar saldo negativo
	CreatedAt      time.Time
	CreatedBy      string
}

// Key devuelve la clave de saldo afectada.
func (m *StockMovement) Key() BalanceKey {
	return BalanceKey{CompanyID: m.CompanyID, ArticleID: m.ArticleID, WarehouseID: m.WarehouseID}
}

// SignedQuantity cantidad base con signo (+ entrada, - salida).
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	return m.BaseQuantity.Mul(m.Direction.Sign())
}
