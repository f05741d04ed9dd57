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

var _ repository.ArticleRepository = (*ArticleRepo)(nil)

// ArticleRepo lectura del catálogo sobre PostgreSQL (usable con pool o tx).
// Solo escribe el espejo stock_total.
type ArticleRepo struct {
	q Querier
}

// NewArticleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewArticleRepository(q Querier) *ArticleRepo {
	return &ArticleRepo{q: q}
}

const articleColumns = `id, company_id, sku, name, base_unit, stock_controlled, is_service, price, tax_rate, stock_total, updated_at`

func scanArticle(row pgx.Row) (*entity.Article, error) {
	var a entity.Article
	err := row.Scan(&a.ID, &a.CompanyID, &a.SKU, &a.Name, &a.BaseUnit, &a.StockControlled, &a.IsService,
		&a.Price, &a.TaxRate, &a.StockTotal, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID obtiene el artículo con su receta y sus conversiones. nil, nil si no existe.
func (r *ArticleRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE company_id = $1 AND id = $2`
	a, err := scanArticle(r.q.QueryRow(ctx, query, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	byID := map[string]*entity.Article{a.ID: a}
	if err := r.loadDetails(ctx, byID); err != nil {
		return nil, err
	}
	return a, nil
}

// GetMany obtiene varios artículos por id. Los inexistentes no aparecen en el mapa.
func (r *ArticleRepo) GetMany(ctx context.Context, companyID string, ids []string) (map[string]*entity.Article, error) {
	out := make(map[string]*entity.Article, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + articleColumns + ` FROM articles WHERE company_id = $1 AND id = ANY($2)`
	if err := r.collect(ctx, out, query, companyID, ids); err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}
	if err := r.loadDetails(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStockControlled artículos con control de existencias (excluye servicios), ordenados por SKU.
func (r *ArticleRepo) ListStockControlled(ctx context.Context, companyID string) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles
		WHERE company_id = $1 AND stock_controlled AND NOT is_service ORDER BY sku`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list stock controlled: %w", err)
	}
	defer rows.Close()
	var list []*entity.Article
	byID := make(map[string]*entity.Article)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		list = append(list, a)
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, byID); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStockTotal escribe el espejo desnormalizado.
func (r *ArticleRepo) UpdateStockTotal(ctx context.Context, companyID, articleID string, total decimal.Decimal) error {
	query := `UPDATE articles SET stock_total = $3, updated_at = now() WHERE company_id = $1 AND id = $2`
	if _, err := r.q.Exec(ctx, query, companyID, articleID, total); err != nil {
		return fmt.Errorf("update stock total: %w", err)
	}
	return nil
}

func (r *ArticleRepo) collect(ctx context.Context, out map[string]*entity.Article, query string, args ...any) error {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return err
		}
		out[a.ID] = a
	}
	return rows.Err()
}

// loadDetails completa receta (en orden de posición) y conversiones de los artículos dados.
func (r *ArticleRepo) loadDetails(ctx context.Context, byID map[string]*entity.Article) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := r.q.Query(ctx, `
		SELECT article_id, component_id, quantity FROM article_components
		WHERE article_id = ANY($1) ORDER BY article_id, position, component_id`, ids)
	if err != nil {
		return fmt.Errorf("list components: %w", err)
	}
	for rows.Next() {
		var articleID string
		var c entity.Component
		if err := rows.Scan(&articleID, &c.ArticleID, &c.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scan component: %w", err)
		}
		byID[articleID].Components = append(byID[articleID].Components, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.q.Query(ctx, `
		SELECT article_id, unit, factor, price_override FROM article_unit_conversions
		WHERE article_id = ANY($1) ORDER BY article_id, unit`, ids)
	if err != nil {
		return fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var articleID string
		var c entity.UnitConversion
		if err := rows.Scan(&articleID, &c.Unit, &c.Factor, &c.PriceOverride); err != nil {
			return fmt.Errorf("scan conversion: %w", err)
		}
		byID[articleID].Conversions = append(byID[articleID].Conversions, c)
	}
	return rows.Err()
}
