package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

var _ repository.StockBalanceRepository = (*StockBalanceRepo)(nil)

// StockBalanceRepo saldos por (empresa, artículo, bodega) sobre PostgreSQL (usable con pool o tx).
type StockBalanceRepo struct {
	q Querier
}

// NewStockBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewStockBalanceRepository(q Querier) *StockBalanceRepo {
	return &StockBalanceRepo{q: q}
}

// Get obtiene el saldo actual; uno en cero si la fila no existe.
func (r *StockBalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	query := `
		SELECT quantity, updated_at FROM stock_balances
		WHERE company_id = $1 AND article_id = $2 AND warehouse_id = $3`
	b := &entity.StockBalance{BalanceKey: key}
	err := r.q.QueryRow(ctx, query, key.CompanyID, key.ArticleID, keyColumn(key.WarehouseID)).
		Scan(&b.Quantity, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			b.Quantity = decimal.Zero
			return b, nil
		}
		return nil, fmt.Errorf("get stock balance: %w", err)
	}
	return b, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *StockBalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	wh := keyColumn(key.WarehouseID)
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_balances (company_id, article_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (company_id, article_id, warehouse_id) DO NOTHING`,
		key.CompanyID, key.ArticleID, wh)
	if err != nil {
		return nil, fmt.Errorf("ensure stock balance: %w", err)
	}
	b := &entity.StockBalance{BalanceKey: key}
	err = r.q.QueryRow(ctx, `
		SELECT quantity, updated_at FROM stock_balances
		WHERE company_id = $1 AND article_id = $2 AND warehouse_id = $3
		FOR UPDATE`, key.CompanyID, key.ArticleID, wh).Scan(&b.Quantity, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get stock balance for update: %w", err)
	}
	return b, nil
}

// Upsert inserta o actualiza la cantidad de la clave.
func (r *StockBalanceRepo) Upsert(ctx context.Context, b *entity.StockBalance) error {
	query := `
		INSERT INTO stock_balances (company_id, article_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, article_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, b.CompanyID, b.ArticleID, keyColumn(b.WarehouseID), b.Quantity, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert stock balance: %w", err)
	}
	return nil
}

// SumByArticle total del artículo en todas las bodegas.
func (r *StockBalanceRepo) SumByArticle(ctx context.Context, companyID, articleID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM stock_balances
		WHERE company_id = $1 AND article_id = $2`, companyID, articleID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum stock balances: %w", err)
	}
	return total, nil
}
