package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain/repository"
)

// ErrLockNotAcquired lo devuelve un StatsLocker cuando otra réplica tiene el lock.
var ErrLockNotAcquired = errors.New("lock de reconstrucción ocupado")

// SettingsDefaults valores usados cuando la empresa no tiene configuración guardada.
type SettingsDefaults struct {
	LeadTimeDays    int
	SafetyStockDays int
	CoverageDays    int
}

// DefaultSettings lead 7, seguridad 3, cobertura 14.
var DefaultSettings = SettingsDefaults{LeadTimeDays: 7, SafetyStockDays: 3, CoverageDays: 14}

// EstimateQuery consulta de proyección de un artículo.
type EstimateQuery struct {
	CompanyID  string
	ArticleID  string
	SupplierID *string
	Window     domaininv.Window
}

// Estimate proyección de reposición de un artículo.
type Estimate struct {
	ArticleID             string
	SKU                   string
	Name                  string
	WindowUsed            domaininv.Window
	AvgDaily              decimal.Decimal
	Volatility            decimal.Decimal
	OnHand                decimal.Decimal
	OnOrder               decimal.Decimal
	DaysOfStock           decimal.Decimal
	ReorderPoint          decimal.Decimal
	SuggestedQty          decimal.Decimal
	ProjectedStockoutDate *time.Time
	Signal                domaininv.Signal
	LeadTimeDays          int
	SafetyStockDays       int
	CoverageDays          int
	SettingsScope         string
	StatsCached           bool
	LastSaleAt            *time.Time
}

// SettingsInput entrada de UpdateSettings.
type SettingsInput struct {
	CompanyID       string
	Scope           string
	SupplierID      *string
	LeadTimeDays    int
	SafetyStockDays int
	CoverageDays    int
}

// EstimatorUseCase estima demanda y sugiere reposición a partir del consumo registrado en el ledger.
type EstimatorUseCase struct {
	articleRepo  repository.ArticleRepository
	balanceRepo  repository.StockBalanceRepository
	movRepo      repository.StockMovementRepository
	statsRepo    repository.DemandStatsRepository
	settingsRepo repository.EstimatorSettingsRepository
	onOrderRepo  repository.OnOrderRepository
	locker       StatsLocker
	defaults     SettingsDefaults
	log          zerolog.Logger
}

// NewEstimatorUseCase construye el caso de uso. onOrderRepo y locker pueden ser nil.
func NewEstimatorUseCase(
	articleRepo repository.ArticleRepository,
	balanceRepo repository.StockBalanceRepository,
	movRepo repository.StockMovementRepository,
	statsRepo repository.DemandStatsRepository,
	settingsRepo repository.EstimatorSettingsRepository,
	onOrderRepo repository.OnOrderRepository,
	locker StatsLocker,
	defaults SettingsDefaults,
	log zerolog.Logger,
) *EstimatorUseCase {
	if defaults.LeadTimeDays <= 0 || defaults.SafetyStockDays <= 0 || defaults.CoverageDays <= 0 {
		defaults = DefaultSettings
	}
	return &EstimatorUseCase{
		articleRepo:  articleRepo,
		balanceRepo:  balanceRepo,
		movRepo:      movRepo,
		statsRepo:    statsRepo,
		settingsRepo: settingsRepo,
		onOrderRepo:  onOrderRepo,
		locker:       locker,
		defaults:     defaults,
		log:          log.With().Str("component", "estimator").Logger(),
	}
}

// Estimate proyecta días de inventario, punto de reorden, cantidad sugerida y semáforo.
// Usa el caché de estadísticas; si el artículo no tiene caché calcula al vuelo sin guardarlo.
func (uc *EstimatorUseCase) Estimate(ctx context.Context, q EstimateQuery) (est *Estimate, err error) {
	ctx, span := tracer.Start(ctx, "estimator.Estimate", trace.WithAttributes(
		attribute.String("company_id", q.CompanyID),
		attribute.String("article_id", q.ArticleID),
		attribute.Int("window", int(q.Window)),
	))
	defer func() { endSpan(span, err) }()

	if q.CompanyID == "" || q.ArticleID == "" {
		return nil, domain.Invalid("company_id y article_id requeridos")
	}
	if !q.Window.Valid() {
		return nil, domain.Invalid("ventana no soportada: %d", q.Window)
	}
	article, err := uc.articleRepo.GetByID(ctx, q.CompanyID, q.ArticleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, domain.Conflict("el artículo %s no existe", q.ArticleID)
	}
	settings, err := uc.resolveSettings(ctx, q.CompanyID, q.SupplierID)
	if err != nil {
		return nil, err
	}
	return uc.estimate(ctx, article, q.Window, q.SupplierID, settings, time.Now().UTC())
}

func (uc *EstimatorUseCase) estimate(
	ctx context.Context,
	article *entity.Article,
	window domaininv.Window,
	supplierID *string,
	settings *entity.EstimatorSettings,
	now time.Time,
) (*Estimate, error) {
	stats, err := uc.statsRepo.Get(ctx, article.CompanyID, article.ID)
	if err != nil {
		return nil, err
	}
	cached := stats != nil
	if !cached {
		if stats, err = uc.computeStats(ctx, article.CompanyID, article.ID, now); err != nil {
			return nil, err
		}
	}
	used, avg, err := domaininv.SelectWindow(stats, window)
	if err != nil {
		return nil, err
	}
	onHand, err := uc.balanceRepo.SumByArticle(ctx, article.CompanyID, article.ID)
	if err != nil {
		return nil, err
	}
	onOrder := decimal.Zero
	if uc.onOrderRepo != nil {
		if onOrder, err = uc.onOrderRepo.OnOrder(ctx, article.CompanyID, article.ID, supplierID); err != nil {
			return nil, err
		}
	}

	f := domaininv.Project(domaininv.ForecastInput{
		AvgDaily:        avg,
		OnHand:          onHand,
		OnOrder:         onOrder,
		LeadTimeDays:    settings.LeadTimeDays,
		SafetyStockDays: settings.SafetyStockDays,
		CoverageDays:    settings.CoverageDays,
		Today:           now,
	})
	return &Estimate{
		ArticleID:             article.ID,
		SKU:                   article.SKU,
		Name:                  article.Name,
		WindowUsed:            used,
		AvgDaily:              avg,
		Volatility:            stats.Volatility,
		OnHand:                onHand,
		OnOrder:               onOrder,
		DaysOfStock:           f.DaysOfStock,
		ReorderPoint:          f.ReorderPoint,
		SuggestedQty:          f.SuggestedQty,
		ProjectedStockoutDate: f.ProjectedStockoutDate,
		Signal:                f.Signal,
		LeadTimeDays:          settings.LeadTimeDays,
		SafetyStockDays:       settings.SafetyStockDays,
		CoverageDays:          settings.CoverageDays,
		SettingsScope:         settings.Scope(),
		StatsCached:           cached,
		LastSaleAt:            stats.LastSaleAt,
	}, nil
}

func (uc *EstimatorUseCase) computeStats(ctx context.Context, companyID, articleID string, now time.Time) (*entity.DemandStats, error) {
	since := startOfDay(now).AddDate(0, 0, -(int(domaininv.Window90) - 1))
	daily, err := uc.movRepo.ConsumptionSince(ctx, companyID, articleID, since)
	if err != nil {
		return nil, err
	}
	last, err := uc.movRepo.LastConsumptionAt(ctx, companyID, articleID)
	if err != nil {
		return nil, err
	}
	points := make([]domaininv.DailyQuantity, 0, len(daily))
	for _, d := range daily {
		points = append(points, domaininv.DailyQuantity{Day: d.Day, Quantity: d.Quantity})
	}
	return domaininv.ComputeStats(companyID, articleID, points, last, now), nil
}

// RebuildStats recalcula y guarda el caché de demanda de todos los artículos con control de stock.
// Es el único escritor del caché. Con locker configurado, solo una réplica reconstruye a la vez.
func (uc *EstimatorUseCase) RebuildStats(ctx context.Context, companyID string) (n int, err error) {
	ctx, span := tracer.Start(ctx, "estimator.RebuildStats", trace.WithAttributes(
		attribute.String("company_id", companyID),
	))
	defer func() { endSpan(span, err) }()

	if companyID == "" {
		return 0, domain.Invalid("company_id requerido")
	}
	if uc.locker != nil {
		unlock, err := uc.locker.Lock(ctx, "inventory:rebuild-stats:"+companyID)
		if errors.Is(err, ErrLockNotAcquired) {
			return 0, domain.Conflict("ya hay una reconstrucción en curso para la empresa %s", companyID)
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				uc.log.Warn().Err(uerr).Str("company_id", companyID).Msg("no se pudo liberar el lock")
			}
		}()
	}

	articles, err := uc.articleRepo.ListStockControlled(ctx, companyID)
	if err != nil {
		return 0, err
	}
	started := time.Now()
	now := started.UTC()
	for _, a := range articles {
		if !a.TracksStock() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		stats, err := uc.computeStats(ctx, companyID, a.ID, now)
		if err != nil {
			return n, fmt.Errorf("estadísticas de %s: %w", a.ID, err)
		}
		if err := uc.statsRepo.Upsert(ctx, stats); err != nil {
			return n, err
		}
		n++
	}
	uc.log.Info().Str("company_id", companyID).Int("articles", n).
		Dur("elapsed", time.Since(started)).Msg("caché de demanda reconstruido")
	return n, nil
}

// GetSettings devuelve la configuración del alcance pedido o los valores por defecto si no existe.
func (uc *EstimatorUseCase) GetSettings(ctx context.Context, companyID, scope string, supplierID *string) (*entity.EstimatorSettings, error) {
	supplierID, err := validateScope(companyID, scope, supplierID)
	if err != nil {
		return nil, err
	}
	s, err := uc.settingsRepo.Get(ctx, companyID, supplierID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return uc.defaultSettings(companyID, supplierID), nil
	}
	return s, nil
}

// UpdateSettings crea o reemplaza la configuración de un alcance.
func (uc *EstimatorUseCase) UpdateSettings(ctx context.Context, in SettingsInput) (*entity.EstimatorSettings, error) {
	supplierID, err := validateScope(in.CompanyID, in.Scope, in.SupplierID)
	if err != nil {
		return nil, err
	}
	switch {
	case in.LeadTimeDays <= 0:
		return nil, domain.Invalid("lead_time_days debe ser positivo")
	case in.SafetyStockDays <= 0:
		return nil, domain.Invalid("safety_stock_days debe ser positivo")
	case in.CoverageDays <= 0:
		return nil, domain.Invalid("coverage_days debe ser positivo")
	}
	s := &entity.EstimatorSettings{
		CompanyID:       in.CompanyID,
		SupplierID:      supplierID,
		LeadTimeDays:    in.LeadTimeDays,
		SafetyStockDays: in.SafetyStockDays,
		CoverageDays:    in.CoverageDays,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := uc.settingsRepo.Upsert(ctx, s); err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", in.CompanyID).Str("scope", s.Scope()).
		Int("lead", s.LeadTimeDays).Int("safety", s.SafetyStockDays).Int("coverage", s.CoverageDays).
		Msg("configuración del estimador actualizada")
	return s, nil
}

// ListReorderSignals proyecta todos los artículos con control de stock, ordenados por urgencia
// (RED, YELLOW, GREEN) y, dentro de cada color, por menos días de inventario.
func (uc *EstimatorUseCase) ListReorderSignals(ctx context.Context, companyID string, window domaininv.Window) (out []*Estimate, err error) {
	ctx, span := tracer.Start(ctx, "estimator.ListReorderSignals", trace.WithAttributes(
		attribute.String("company_id", companyID),
	))
	defer func() { endSpan(span, err) }()

	if companyID == "" {
		return nil, domain.Invalid("company_id requerido")
	}
	if !window.Valid() {
		return nil, domain.Invalid("ventana no soportada: %d", window)
	}
	settings, err := uc.resolveSettings(ctx, companyID, nil)
	if err != nil {
		return nil, err
	}
	articles, err := uc.articleRepo.ListStockControlled(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, a := range articles {
		if !a.TracksStock() {
			continue
		}
		est, err := uc.estimate(ctx, a, window, nil, settings, now)
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Signal.Rank(), out[j].Signal.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].DaysOfStock.LessThan(out[j].DaysOfStock)
	})
	return out, nil
}

// resolveSettings: fila del proveedor, si no la de la empresa, si no los valores por defecto.
func (uc *EstimatorUseCase) resolveSettings(ctx context.Context, companyID string, supplierID *string) (*entity.EstimatorSettings, error) {
	if supplierID != nil && *supplierID != "" {
		s, err := uc.settingsRepo.Get(ctx, companyID, supplierID)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s, nil
		}
	}
	s, err := uc.settingsRepo.Get(ctx, companyID, nil)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}
	return uc.defaultSettings(companyID, nil), nil
}

func (uc *EstimatorUseCase) defaultSettings(companyID string, supplierID *string) *entity.EstimatorSettings {
	return &entity.EstimatorSettings{
		CompanyID:       companyID,
		SupplierID:      supplierID,
		LeadTimeDays:    uc.defaults.LeadTimeDays,
		SafetyStockDays: uc.defaults.SafetyStockDays,
		CoverageDays:    uc.defaults.CoverageDays,
	}
}

func validateScope(companyID, scope string, supplierID *string) (*string, error) {
	if companyID == "" {
		return nil, domain.Invalid("company_id requerido")
	}
	switch scope {
	case "", entity.SettingsScopeCompany:
		return nil, nil
	case entity.SettingsScopeSupplier:
		if supplierID == nil || *supplierID == "" {
			return nil, domain.Invalid("el alcance supplier requiere supplier_id")
		}
		return supplierID, nil
	}
	return nil, domain.Invalid("alcance desconocido %q", scope)
}
