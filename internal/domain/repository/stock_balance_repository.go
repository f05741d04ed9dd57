package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// StockBalanceRepository define el puerto para consultar/actualizar saldos por clave.
// Usado dentro de transacciones para garantizar consistencia.
type StockBalanceRepository interface {
	// Get devuelve el saldo o uno en cero si la fila no existe todavía.
	Get(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error)
	// GetForUpdate crea la fila si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
	GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error)
	Upsert(ctx context.Context, balance *entity.StockBalance) error
	// SumByArticle total del artículo en todas las bodegas de la empresa.
	SumByArticle(ctx context.Context, companyID, articleID string) (decimal.Decimal, error)
}
