package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/cache"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/config"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/event"
	handler "github.com/leonardoxyz/femisse-stock-ledger/internal/handler/http"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/orderclient"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/repository/postgres"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/service"
	"github.com/leonardoxyz/femisse-stock-ledger/migrations"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/health"
	pkgkafka "github.com/leonardoxyz/femisse-stock-ledger/pkg/kafka"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/tracing"
)

// App wires the stock ledger service: storage, cache, events, the HTTP
// server, and the in-process expiry sweeper.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool          *pgxpool.Pool
	redisClient   *redis.Client
	kafkaProducer *pkgkafka.Producer
	server        *http.Server
	sweeper       *service.Sweeper

	tracerShutdown func(context.Context) error
}

// New builds the application from configuration. It connects to every
// dependency and runs pending schema migrations; a hard dependency failure
// aborts startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracerConfig())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresPoolConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	database.RegisterPoolMetrics(pool, cfg.ServiceName)

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisClientConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var events service.EventPublisher = event.NoopProducer{}
	var kafkaProducer *pkgkafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.Kafka.Brokers), logger)
		if err := kafkaProducer.Ping(ctx); err != nil {
			// The broker can catch up after startup; events are advisory, so
			// this is not fatal.
			logger.Warn("kafka not reachable at startup", slog.String("error", err.Error()))
		}
		events = event.NewProducer(kafkaProducer, logger)
	}

	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	invalidator := cache.NewRedisInvalidator(redisClient, logger)

	ledger := service.NewLedger(productRepo, invalidator, events, logger)

	var sweeper *service.Sweeper
	if cfg.Sweeper.Enabled {
		orders := orderclient.New(cfg.OrderServiceURL, logger)
		sweeper = service.NewSweeper(orderRepo, ledger, orders, service.SweeperConfig{
			Window:   cfg.Sweeper.Window,
			Interval: cfg.Sweeper.Interval,
			Reason:   cfg.Sweeper.CancelReason,
		}, logger)
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if kafkaProducer != nil {
		healthHandler.RegisterNonCritical("kafka", kafkaProducer.Ping)
	}

	stockHandler := handler.NewStockHandler(ledger, logger)
	router := handler.NewRouter(stockHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		kafkaProducer:  kafkaProducer,
		server:         server,
		sweeper:        sweeper,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the in-process sweeper, then blocks until
// the context is canceled and everything shut down.
func (a *App) Run(ctx context.Context) error {
	sweeperDone := make(chan struct{})
	if a.sweeper != nil {
		go func() {
			defer close(sweeperDone)
			a.sweeper.Run(ctx)
		}()
	} else {
		close(sweeperDone)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", slog.String("error", err.Error()))
	}

	select {
	case <-sweeperDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("sweeper did not stop before shutdown deadline")
	}

	a.close(shutdownCtx)
	return nil
}

func (a *App) close(ctx context.Context) {
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			a.logger.Error("kafka producer close failed", slog.String("error", err.Error()))
		}
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close failed", slog.String("error", err.Error()))
	}
	a.pool.Close()

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.tracerShutdown(flushCtx); err != nil {
		a.logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
	}

	a.logger.Info("shutdown complete")
}
