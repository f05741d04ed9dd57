package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
)

// ArticleRepository puerto de lectura del catálogo de artículos (DIP).
// GetByID devuelve nil, nil si el artículo no existe en la empresa.
type ArticleRepository interface {
	GetByID(ctx context.Context, companyID, id string) (*entity.Article, error)
	GetMany(ctx context.Context, companyID string, ids []string) (map[string]*entity.Article, error)
	ListStockControlled(ctx context.Context, companyID string) ([]*entity.Article, error)
	// UpdateStockTotal escribe el espejo desnormalizado del total de existencias.
	UpdateStockTotal(ctx context.Context, companyID, articleID string, total decimal.Decimal) error
}
