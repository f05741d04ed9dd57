package inventory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/domain"
	"github.com/jhoicas/inventario-kardex/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-kardex/internal/domain/inventory"
)

func today() time.Time {
	u := time.Now().UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// seedDemand deja onHand en el artículo y registra `perDay` unidades vendidas en cada uno de los últimos `days` días.
func seedDemand(s *memStore, articleID, onHand string, perDay string, days int) {
	sold := dec(perDay).Mul(dec(fmt.Sprint(days)))
	s.seedMovement(&entity.StockMovement{
		ArticleID: articleID, BaseQuantity: dec(onHand).Add(sold), Direction: entity.DirectionIn,
		Reason: entity.ReasonManual, CreatedAt: today().AddDate(0, 0, -120),
	})
	for i := 0; i < days; i++ {
		s.seedMovement(&entity.StockMovement{
			ID:           fmt.Sprintf("%s-sale-%d", articleID, i),
			ArticleID:    articleID,
			BaseQuantity: dec(perDay),
			Direction:    entity.DirectionOut,
			Reason:       entity.ReasonSaleOut,
			DocumentType: "SALE",
			DocumentID:   fmt.Sprintf("S-%s-%d", articleID, i),
			CreatedAt:    today().AddDate(0, 0, -i).Add(time.Minute),
		})
	}
}

func newEstimator(s *memStore, locker app.StatsLocker) *app.EstimatorUseCase {
	return app.NewEstimatorUseCase(
		&memArticles{s.pool()},
		&memBalances{s.pool()},
		&memMovements{s.pool()},
		&memStats{s.pool()},
		&memSettings{s.pool()},
		memOnOrder{s},
		locker,
		app.DefaultSettings,
		zerolog.Nop(),
	)
}

func companySettings(t *testing.T, uc *app.EstimatorUseCase, lead, safety, coverage int) {
	t.Helper()
	_, err := uc.UpdateSettings(context.Background(), app.SettingsInput{
		CompanyID: company, Scope: entity.SettingsScopeCompany,
		LeadTimeDays: lead, SafetyStockDays: safety, CoverageDays: coverage,
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Estimate
// ──────────────────────────────────────────────────────────────────────────────

func TestEstimate_EjemploDeReferencia(t *testing.T) {
	s := newMemStore()
	s.product("A")
	seedDemand(s, "A", "10", "2", 7)
	uc := newEstimator(s, nil)
	companySettings(t, uc, 5, 3, 14)

	est, err := uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: domaininv.Window7})
	require.NoError(t, err)

	assert.Equal(t, domaininv.Window7, est.WindowUsed)
	assert.True(t, dec("2").Equal(est.AvgDaily))
	assert.True(t, dec("10").Equal(est.OnHand))
	assert.True(t, dec("16").Equal(est.ReorderPoint), "2 × (5 + 3)")
	assert.True(t, dec("34").Equal(est.SuggestedQty), "2 × 22 − 10")
	assert.True(t, dec("5").Equal(est.DaysOfStock))
	assert.Equal(t, domaininv.SignalRed, est.Signal)
	require.NotNil(t, est.ProjectedStockoutDate)
	assert.Equal(t, today().AddDate(0, 0, 5), *est.ProjectedStockoutDate)
	assert.False(t, est.StatsCached, "sin caché se calcula al vuelo")
	assert.Equal(t, entity.SettingsScopeCompany, est.SettingsScope)
}

func TestEstimate_VentasRevertidasNoCuentan(t *testing.T) {
	s := newMemStore()
	s.product("A")
	seedDemand(s, "A", "10", "2", 7)
	s.seedMovement(&entity.StockMovement{ID: "x-out", ArticleID: "A", BaseQuantity: dec("7"), Direction: entity.DirectionOut,
		Reason: entity.ReasonSaleOut, DocumentID: "S-ANULADA", CreatedAt: today().Add(2 * time.Minute)})
	s.seedMovement(&entity.StockMovement{ID: "x-in", ArticleID: "A", BaseQuantity: dec("7"), Direction: entity.DirectionIn,
		Reason: entity.ReasonReturnIn, DocumentID: "S-ANULADA", CreatedAt: today().Add(3 * time.Minute)})
	uc := newEstimator(s, nil)

	est, err := uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: domaininv.Window7})
	require.NoError(t, err)
	assert.True(t, dec("2").Equal(est.AvgDaily), "la venta anulada no es demanda")
}

func TestEstimate_PedidosEnCaminoReducenSugerido(t *testing.T) {
	s := newMemStore()
	s.product("A")
	seedDemand(s, "A", "10", "2", 7)
	s.onOrder["A"] = dec("10")
	uc := newEstimator(s, nil)
	companySettings(t, uc, 5, 3, 14)

	est, err := uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: domaininv.Window7})
	require.NoError(t, err)
	assert.True(t, dec("24").Equal(est.SuggestedQty))
	assert.True(t, dec("10").Equal(est.OnOrder))
}

func TestEstimate_SinDemanda(t *testing.T) {
	s := newMemStore()
	s.product("A")
	uc := newEstimator(s, nil)

	est, err := uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "A"})
	require.NoError(t, err)
	assert.True(t, est.AvgDaily.IsZero())
	assert.True(t, est.SuggestedQty.IsZero())
	assert.Nil(t, est.ProjectedStockoutDate)
	assert.Equal(t, domaininv.Window7, est.WindowUsed, "volatilidad 0 elige 7 días")
	assert.Equal(t, 7, est.LeadTimeDays, "valores por defecto")
}

func TestEstimate_Validaciones(t *testing.T) {
	s := newMemStore()
	s.product("A")
	uc := newEstimator(s, nil)

	_, err := uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: 14})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "ZZ"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

// ──────────────────────────────────────────────────────────────────────────────
// RebuildStats
// ──────────────────────────────────────────────────────────────────────────────

func TestRebuildStats_EscribeCacheDeArticulosConStock(t *testing.T) {
	s := newMemStore()
	s.product("A")
	s.product("B")
	s.addArticle(&entity.Article{ID: "SRV", IsService: true, StockControlled: true})
	s.addArticle(&entity.Article{ID: "K", StockControlled: true, Components: []entity.Component{{ArticleID: "A", Quantity: dec("1")}}})
	seedDemand(s, "A", "10", "2", 7)
	uc := newEstimator(s, &memLocker{})

	n, err := uc.RebuildStats(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "ni servicios ni combos tienen estadísticas")

	stats, err := (&memStats{s.pool()}).Get(context.Background(), company, "A")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.True(t, dec("2").Equal(stats.AvgDaily7))
	assert.NotNil(t, stats.LastSaleAt)

	est, err := uc.Estimate(context.Background(), app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: domaininv.Window7})
	require.NoError(t, err)
	assert.True(t, est.StatsCached)
}

func TestRebuildStats_LockOcupadoEsConflicto(t *testing.T) {
	s := newMemStore()
	locker := &memLocker{}
	unlock, err := locker.Lock(context.Background(), "inventory:rebuild-stats:"+company)
	require.NoError(t, err)
	uc := newEstimator(s, locker)

	_, err = uc.RebuildStats(context.Background(), company)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	require.NoError(t, unlock(context.Background()))
	_, err = uc.RebuildStats(context.Background(), company)
	assert.NoError(t, err, "liberado el lock la reconstrucción procede")
}

// ──────────────────────────────────────────────────────────────────────────────
// Configuración
// ──────────────────────────────────────────────────────────────────────────────

func TestSettings_DefaultsActualizacionYProveedor(t *testing.T) {
	s := newMemStore()
	s.product("A")
	seedDemand(s, "A", "10", "2", 7)
	uc := newEstimator(s, nil)
	ctx := context.Background()

	def, err := uc.GetSettings(ctx, company, entity.SettingsScopeCompany, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 3, 14}, []int{def.LeadTimeDays, def.SafetyStockDays, def.CoverageDays})

	_, err = uc.GetSettings(ctx, company, entity.SettingsScopeSupplier, nil)
	assert.ErrorIs(t, err, domain.ErrValidation, "supplier sin id")
	_, err = uc.GetSettings(ctx, company, "warehouse", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.UpdateSettings(ctx, app.SettingsInput{CompanyID: company, LeadTimeDays: 0, CoverageDays: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.UpdateSettings(ctx, app.SettingsInput{CompanyID: company, LeadTimeDays: 5, SafetyStockDays: 0, CoverageDays: 14})
	assert.ErrorIs(t, err, domain.ErrValidation, "safety_stock_days en cero")

	companySettings(t, uc, 5, 3, 14)
	_, err = uc.UpdateSettings(ctx, app.SettingsInput{
		CompanyID: company, Scope: entity.SettingsScopeSupplier, SupplierID: strPtr("p1"),
		LeadTimeDays: 2, SafetyStockDays: 1, CoverageDays: 7,
	})
	require.NoError(t, err)

	est, err := uc.Estimate(ctx, app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: domaininv.Window7, SupplierID: strPtr("p1")})
	require.NoError(t, err)
	assert.Equal(t, entity.SettingsScopeSupplier, est.SettingsScope)
	assert.True(t, dec("6").Equal(est.ReorderPoint), "2 × (2 + 1)")

	est, err = uc.Estimate(ctx, app.EstimateQuery{CompanyID: company, ArticleID: "A", Window: domaininv.Window7, SupplierID: strPtr("p2")})
	require.NoError(t, err)
	assert.Equal(t, entity.SettingsScopeCompany, est.SettingsScope, "proveedor sin fila cae a la empresa")
}

// ──────────────────────────────────────────────────────────────────────────────
// ListReorderSignals
// ──────────────────────────────────────────────────────────────────────────────

func TestListReorderSignals_OrdenPorUrgencia(t *testing.T) {
	s := newMemStore()
	s.product("green")
	s.product("red")
	s.product("yellow")
	seedDemand(s, "green", "50", "0", 0)
	seedDemand(s, "red", "10", "2", 7)
	seedDemand(s, "yellow", "14", "2", 7)
	uc := newEstimator(s, nil)
	companySettings(t, uc, 5, 3, 14)

	out, err := uc.ListReorderSignals(context.Background(), company, domaininv.Window7)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "red", out[0].ArticleID)
	assert.Equal(t, "yellow", out[1].ArticleID)
	assert.Equal(t, domaininv.SignalYellow, out[1].Signal, "7 días: entre lead (5) y lead+seguridad (8)")
	assert.Equal(t, "green", out[2].ArticleID)
	assert.Equal(t, domaininv.SignalGreen, out[2].Signal)
}
