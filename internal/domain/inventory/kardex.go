package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// KardexRow una fila del kardex: el movimiento y el saldo acumulado después de aplicarlo.
type KardexRow struct {
	MovementID     string
	Timestamp      time.Time
	WarehouseID    string
	DocumentType   string
	DocumentID     string
	Reason         entity.Reason
	Unit           string
	Quantity       decimal.Decimal
	BaseQuantity   decimal.Decimal
	Direction      entity.Direction
	RunningBalance decimal.Decimal
}

// WalkRunningBalance recorre los movimientos en orden cronológico acumulando el saldo
// a partir de start. El slice debe venir en orden de inserción: (created_at, seq).
func WalkRunningBalance(start decimal.Decimal, movements []*entity.StockMovement) []KardexRow {
	rows := make([]KardexRow, 0, len(movements))
	balance := start
	for _, m := range movements {
		balance = balance.Add(m.SignedQuantity())
		rows = append(rows, KardexRow{
			MovementID:     m.ID,
			Timestamp:      m.CreatedAt,
			WarehouseID:    m.Key().Warehouse(),
			DocumentType:   m.DocumentType,
			DocumentID:     m.DocumentID,
			Reason:         m.Reason,
			Unit:           m.Unit,
			Quantity:       m.Quantity,
			BaseQuantity:   m.BaseQuantity,
			Direction:      m.Direction,
			RunningBalance: balance,
		})
	}
	return rows
}
