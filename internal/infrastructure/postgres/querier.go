package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx: los repositorios funcionan igual dentro o fuera de una transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// keyColumn traduce una clave opcional (bodega, proveedor) a la columna NOT NULL ('' = sin valor).
func keyColumn(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

func keyPtr(col string) *string {
	if col == "" {
		return nil
	}
	return &col
}
