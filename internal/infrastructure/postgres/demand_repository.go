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

var (
	_ repository.DemandStatsRepository       = (*DemandStatsRepo)(nil)
	_ repository.EstimatorSettingsRepository = (*EstimatorSettingsRepo)(nil)
	_ repository.OnOrderRepository           = (*OnOrderRepo)(nil)
)

// DemandStatsRepo caché demand_stats.
type DemandStatsRepo struct {
	q Querier
}

func NewDemandStatsRepository(q Querier) *DemandStatsRepo {
	return &DemandStatsRepo{q: q}
}

// Get nil, nil si el artículo no tiene estadísticas calculadas.
func (r *DemandStatsRepo) Get(ctx context.Context, companyID, articleID string) (*entity.DemandStats, error) {
	query := `
		SELECT company_id, article_id, avg_daily_7, avg_daily_30, avg_daily_90, volatility, last_sale_at, computed_at
		FROM demand_stats WHERE company_id = $1 AND article_id = $2`
	var s entity.DemandStats
	err := r.q.QueryRow(ctx, query, companyID, articleID).Scan(
		&s.CompanyID, &s.ArticleID, &s.AvgDaily7, &s.AvgDaily30, &s.AvgDaily90, &s.Volatility, &s.LastSaleAt, &s.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get demand stats: %w", err)
	}
	return &s, nil
}

func (r *DemandStatsRepo) Upsert(ctx context.Context, s *entity.DemandStats) error {
	query := `
		INSERT INTO demand_stats (company_id, article_id, avg_daily_7, avg_daily_30, avg_daily_90, volatility, last_sale_at, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, article_id) DO UPDATE SET
			avg_daily_7 = EXCLUDED.avg_daily_7,
			avg_daily_30 = EXCLUDED.avg_daily_30,
			avg_daily_90 = EXCLUDED.avg_daily_90,
			volatility = EXCLUDED.volatility,
			last_sale_at = EXCLUDED.last_sale_at,
			computed_at = EXCLUDED.computed_at`
	_, err := r.q.Exec(ctx, query, s.CompanyID, s.ArticleID, s.AvgDaily7, s.AvgDaily30, s.AvgDaily90,
		s.Volatility, s.LastSaleAt, s.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert demand stats: %w", err)
	}
	return nil
}

// EstimatorSettingsRepo configuración por empresa ('' en supplier_id) o por proveedor.
type EstimatorSettingsRepo struct {
	q Querier
}

func NewEstimatorSettingsRepository(q Querier) *EstimatorSettingsRepo {
	return &EstimatorSettingsRepo{q: q}
}

// Get nil, nil si no hay fila para ese alcance exacto.
func (r *EstimatorSettingsRepo) Get(ctx context.Context, companyID string, supplierID *string) (*entity.EstimatorSettings, error) {
	query := `
		SELECT lead_time_days, safety_stock_days, coverage_days, updated_at
		FROM estimator_settings WHERE company_id = $1 AND supplier_id = $2`
	s := &entity.EstimatorSettings{CompanyID: companyID, SupplierID: supplierID}
	err := r.q.QueryRow(ctx, query, companyID, keyColumn(supplierID)).
		Scan(&s.LeadTimeDays, &s.SafetyStockDays, &s.CoverageDays, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get estimator settings: %w", err)
	}
	return s, nil
}

func (r *EstimatorSettingsRepo) Upsert(ctx context.Context, s *entity.EstimatorSettings) error {
	query := `
		INSERT INTO estimator_settings (company_id, supplier_id, lead_time_days, safety_stock_days, coverage_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id, supplier_id) DO UPDATE SET
			lead_time_days = EXCLUDED.lead_time_days,
			safety_stock_days = EXCLUDED.safety_stock_days,
			coverage_days = EXCLUDED.coverage_days,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, s.CompanyID, keyColumn(s.SupplierID), s.LeadTimeDays,
		s.SafetyStockDays, s.CoverageDays, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert estimator settings: %w", err)
	}
	return nil
}

// OnOrderRepo lee pendientes de las órdenes de compra abiertas.
type OnOrderRepo struct {
	q Querier
}

func NewOnOrderRepository(q Querier) *OnOrderRepo {
	return &OnOrderRepo{q: q}
}

// OnOrder suma (pedido - recibido) de las líneas abiertas; con proveedor, solo las suyas.
func (r *OnOrderRepo) OnOrder(ctx context.Context, companyID, articleID string, supplierID *string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(GREATEST(quantity_ordered - quantity_received, 0)), 0)
		FROM purchase_order_lines
		WHERE company_id = $1 AND article_id = $2 AND status = 'OPEN'`
	args := []any{companyID, articleID}
	if supplierID != nil {
		query += ` AND supplier_id = $3`
		args = append(args, *supplierID)
	}
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("on order: %w", err)
	}
	return total, nil
}
