package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// maxTxAttempts intentos ante serialization failure o deadlock.
const maxTxAttempts = 3

// TxRunner ejecuta callbacks del ledger dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run ejecuta fn con repositorios atados a la tx; Commit si fn no falla, Rollback si no.
// Un deadlock o serialization failure repite la tx completa, por eso fn no debe acumular estado entre llamadas.
// Un lock_timeout sobre la fila de saldo se devuelve como conflicto.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	balanceRepo repository.StockBalanceRepository,
	articleRepo repository.ArticleRepository,
) error) error {
	ctx, span := tracer.Start(ctx, "postgres.Tx")
	defer span.End()

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("db.tx.attempt", attempt))
		err = r.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			break
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.String("db.error", pgCode(err))))
	}
	if isLockTimeout(err) {
		err = fmt.Errorf("%w: saldo bloqueado por otra operación: %v", domain.ErrBusy, err)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(
	repository.StockMovementRepository,
	repository.StockBalanceRepository,
	repository.ArticleRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStockMovementRepository(tx), NewStockBalanceRepository(tx), NewArticleRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
