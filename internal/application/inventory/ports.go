package inventory

import (
	"context"
	"io"

	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el ledger: si fn devuelve error se hace rollback y no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		balanceRepo repository.StockBalanceRepository,
		articleRepo repository.ArticleRepository,
	) error) error
}

// StatsLocker serializa reconstrucciones de estadísticas por empresa (opcional).
type StatsLocker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// HistoryExporter serializa filas de kardex a un formato plano.
type HistoryExporter interface {
	ContentType() string
	Extension() string
	Write(w io.Writer, article *entity.Article, history *History) error
}
