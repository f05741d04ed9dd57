package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo ledger sobre PostgreSQL (usable con pool o tx). Solo inserta.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, company_id, article_id, warehouse_id, unit, quantity, base_quantity, direction, reason,
	document_type, document_id, idempotency_key, override, created_at, created_by`

// consumptionFilter condición de consumo no revertido sobre el alias m. Los motivos llegan como
// parámetros $3 (consumo) y $4 (reverso); ver consumptionArgs.
const consumptionFilter = `
		  AND m.direction = 'OUT' AND m.reason = ANY($3::text[])
		  AND NOT EXISTS (
		      SELECT 1 FROM stock_movements r
		      WHERE r.company_id = m.company_id AND r.document_id = m.document_id
		        AND r.article_id = m.article_id AND r.reason = ANY($4::text[]))`

// consumptionArgs argumentos de consumptionFilter precedidos por empresa y artículo.
func consumptionArgs(companyID, articleID string, extra ...any) []any {
	args := []any{companyID, articleID, reasonNames(entity.ConsumptionReasons()), reasonNames(entity.RevertReasons())}
	return append(args, extra...)
}

func reasonNames(reasons []entity.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m         entity.StockMovement
		warehouse string
		key       *string
		createdBy *string
	)
	err := row.Scan(&m.ID, &m.CompanyID, &m.ArticleID, &warehouse, &m.Unit, &m.Quantity, &m.BaseQuantity,
		&m.Direction, &m.Reason, &m.DocumentType, &m.DocumentID, &key, &m.Override, &m.CreatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	m.WarehouseID = keyPtr(warehouse)
	if key != nil {
		m.IdempotencyKey = *key
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}

// Create persiste un movimiento. Una clave de idempotencia repetida devuelve domain.ErrDuplicate.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, company_id, article_id, warehouse_id, unit, quantity, base_quantity, direction,
			reason, document_type, document_id, idempotency_key, override, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	var key, createdBy *string
	if m.IdempotencyKey != "" {
		key = &m.IdempotencyKey
	}
	if m.CreatedBy != "" {
		createdBy = &m.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		m.ID, m.CompanyID, m.ArticleID, keyColumn(m.WarehouseID), m.Unit, m.Quantity, m.BaseQuantity,
		string(m.Direction), string(m.Reason), m.DocumentType, m.DocumentID, key, m.Override, m.CreatedAt, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByIdempotencyKey nil, nil si la clave no existe.
func (r *StockMovementRepo) GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE company_id = $1 AND idempotency_key = $2`
	m, err := scanMovement(r.q.QueryRow(ctx, query, companyID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by key: %w", err)
	}
	return m, nil
}

// where arma el WHERE del filtro con parámetros posicionales.
func where(f repository.MovementFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(" WHERE company_id = $1 AND article_id = $2")
	args := []any{f.CompanyID, f.ArticleID}
	pos := 3
	if !f.AllWarehouses {
		fmt.Fprintf(&sb, " AND warehouse_id = $%d", pos)
		args = append(args, keyColumn(f.WarehouseID))
		pos++
	}
	if f.From != nil {
		fmt.Fprintf(&sb, " AND created_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.Before != nil {
		fmt.Fprintf(&sb, " AND created_at < $%d", pos)
		args = append(args, *f.Before)
	}
	return sb.String(), args
}

// page agrega orden cronológico y LIMIT/OFFSET.
func page(query string, args []any, f repository.MovementFilter) (string, []any) {
	query += " ORDER BY created_at, seq"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

// List movimientos del filtro en orden (created_at, seq).
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	cond, args := where(f)
	query, args := page(`SELECT `+movementColumns+` FROM stock_movements`+cond, args, f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Count total de movimientos del filtro (ignora Limit/Offset).
func (r *StockMovementRepo) Count(ctx context.Context, f repository.MovementFilter) (int, error) {
	cond, args := where(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stock movements: %w", err)
	}
	return n, nil
}

// SumSigned suma con signo; con Limit/Offset suma solo esa porción del orden cronológico.
func (r *StockMovementRepo) SumSigned(ctx context.Context, f repository.MovementFilter) (decimal.Decimal, error) {
	cond, args := where(f)
	inner, args := page(`SELECT direction, base_quantity FROM stock_movements`+cond, args, f)
	query := `
		SELECT COALESCE(SUM(CASE WHEN direction = 'IN' THEN base_quantity ELSE -base_quantity END), 0)
		FROM (` + inner + `) m`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum stock movements: %w", err)
	}
	return total, nil
}

// ConsumptionSince consumo diario (UTC) de ventas y combos desde `since`, sin documentos revertidos.
func (r *StockMovementRepo) ConsumptionSince(ctx context.Context, companyID, articleID string, since time.Time) ([]repository.DailyConsumption, error) {
	query := `
		SELECT (m.created_at AT TIME ZONE 'UTC')::date AS day, SUM(m.base_quantity)
		FROM stock_movements m
		WHERE m.company_id = $1 AND m.article_id = $2 AND m.created_at >= $5` + consumptionFilter + `
		GROUP BY day
		ORDER BY day`
	rows, err := r.q.Query(ctx, query, consumptionArgs(companyID, articleID, since)...)
	if err != nil {
		return nil, fmt.Errorf("consumption since: %w", err)
	}
	defer rows.Close()
	var out []repository.DailyConsumption
	for rows.Next() {
		var d repository.DailyConsumption
		if err := rows.Scan(&d.Day, &d.Quantity); err != nil {
			return nil, fmt.Errorf("scan consumption: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LastConsumptionAt última venta no revertida; nil si nunca se vendió.
func (r *StockMovementRepo) LastConsumptionAt(ctx context.Context, companyID, articleID string) (*time.Time, error) {
	query := `
		SELECT MAX(m.created_at)
		FROM stock_movements m
		WHERE m.company_id = $1 AND m.article_id = $2` + consumptionFilter
	var last *time.Time
	if err := r.q.QueryRow(ctx, query, consumptionArgs(companyID, articleID)...).Scan(&last); err != nil {
		return nil, fmt.Errorf("last consumption: %w", err)
	}
	return last, nil
}
