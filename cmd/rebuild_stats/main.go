// rebuild_stats recalcula las estadísticas de demanda de una empresa fuera del servidor HTTP.
// Pensado para un cron nocturno; toma el mismo lock Redis que el endpoint /stats/rebuild.
//
// Uso: go run ./cmd/rebuild_stats -company <uuid>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/observability"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/redislock"
	"github.com/jhoicas/inventario-kardex/pkg/config"
	"github.com/jhoicas/inventario-kardex/pkg/logger"
)

func main() {
	companyID := flag.String("company", "", "id de la empresa (requerido)")
	timeout := flag.Duration("timeout", 30*time.Minute, "tiempo máximo de la reconstrucción")
	flag.Parse()
	if *companyID == "" {
		fmt.Fprintln(os.Stderr, "uso: rebuild_stats -company <uuid>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "rebuild_stats"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	pool, err := postgres.NewPool(ctx, cfg.DB, "rebuild_stats")
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	var statsLocker inventory.StatsLocker
	if rdb := redislock.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		defer rdb.Close()
		statsLocker = redislock.New(rdb, redislock.DefaultTTL)
	}

	uc := inventory.NewEstimatorUseCase(
		postgres.NewArticleRepository(pool),
		postgres.NewStockBalanceRepository(pool),
		postgres.NewStockMovementRepository(pool),
		postgres.NewDemandStatsRepository(pool),
		postgres.NewEstimatorSettingsRepository(pool),
		postgres.NewOnOrderRepository(pool),
		statsLocker,
		inventory.SettingsDefaults{
			LeadTimeDays:    cfg.Estimator.LeadTimeDays,
			SafetyStockDays: cfg.Estimator.SafetyStockDays,
			CoverageDays:    cfg.Estimator.CoverageDays,
		},
		log.Zerolog(),
	)

	start := time.Now()
	n, err := uc.RebuildStats(ctx, *companyID)
	if err != nil {
		log.Error().Err(err).Str("company_id", *companyID).Msg("reconstrucción de estadísticas")
		os.Exit(1)
	}
	log.Info().
		Str("company_id", *companyID).
		Int("articles", n).
		Dur("elapsed", time.Since(start)).
		Msg("estadísticas reconstruidas")
}
