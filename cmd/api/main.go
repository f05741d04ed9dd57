package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/inventario-kardex/docs"
	"github.com/jhoicas/inventario-kardex/internal/application/inventory"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/export"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/messaging"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/observability"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-kardex/internal/infrastructure/redislock"
	httpRouter "github.com/jhoicas/inventario-kardex/internal/interfaces/http"
	"github.com/jhoicas/inventario-kardex/pkg/config"
	"github.com/jhoicas/inventario-kardex/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry, cfg.App.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	articleRepo := postgres.NewArticleRepository(pool)
	balanceRepo := postgres.NewStockBalanceRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	statsRepo := postgres.NewDemandStatsRepository(pool)
	settingsRepo := postgres.NewEstimatorSettingsRepository(pool)
	onOrderRepo := postgres.NewOnOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Lock de RebuildStats solo si hay Redis; sin él las reconstrucciones no se serializan entre réplicas.
	var statsLocker inventory.StatsLocker
	if rdb := redislock.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB); rdb != nil {
		defer rdb.Close()
		statsLocker = redislock.New(rdb, redislock.DefaultTTL)
	}

	zl := log.Zerolog()
	ledgerUC := inventory.NewLedgerUseCase(txRunner, articleRepo, zl)
	fulfillmentUC := inventory.NewFulfillmentUseCase(articleRepo, balanceRepo, zl)
	historyUC := inventory.NewHistoryUseCase(txRunner, articleRepo, movementRepo, balanceRepo, export.All(), zl)
	estimatorUC := inventory.NewEstimatorUseCase(
		articleRepo, balanceRepo, movementRepo, statsRepo, settingsRepo, onOrderRepo,
		statsLocker,
		inventory.SettingsDefaults{
			LeadTimeDays:    cfg.Estimator.LeadTimeDays,
			SafetyStockDays: cfg.Estimator.SafetyStockDays,
			CoverageDays:    cfg.Estimator.CoverageDays,
		},
		zl,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario Kardex API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:      ledgerUC,
		Fulfillment: fulfillmentUC,
		History:     historyUC,
		Estimator:   estimatorUC,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		Log:         log.Component("http"),
	})

	var consumer *messaging.SaleConsumer
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled() {
		consumer = messaging.NewSaleConsumer(messaging.NewReader(cfg.Kafka), ledgerUC, zl)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("consumidor de ventas finalizado")
			}
		}()
	} else {
		close(consumerDone)
		log.Info().Msg("KAFKA_BROKERS vacío: consumidor de ventas deshabilitado")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	<-consumerDone
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar consumidor de ventas")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
