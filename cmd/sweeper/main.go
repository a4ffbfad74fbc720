// Command sweeper runs the expiry sweeper as a standalone process, for
// deployments that keep the HTTP service and the background cleanup on
// separate lifecycles. With -once it performs a single sweep and exits,
// which fits cron-style scheduling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/cache"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/config"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/event"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/orderclient"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/repository/postgres"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/service"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
	pkgkafka "github.com/leonardoxyz/femisse-stock-ledger/pkg/kafka"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "stock-ledger-sweeper: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.ServiceName+"-sweeper", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresPoolConfig(), log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisClientConfig())
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	var events service.EventPublisher = event.NoopProducer{}
	if cfg.Kafka.Enabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.Kafka.Brokers), log)
		defer producer.Close()
		if err := producer.Ping(ctx); err != nil {
			log.Warn("kafka not reachable at startup", slog.String("error", err.Error()))
		}
		events = event.NewProducer(producer, log)
	}

	ledger := service.NewLedger(
		postgres.NewProductRepository(pool),
		cache.NewRedisInvalidator(redisClient, log),
		events,
		log,
	)

	sweeper := service.NewSweeper(
		postgres.NewOrderRepository(pool),
		ledger,
		orderclient.New(cfg.OrderServiceURL, log),
		service.SweeperConfig{
			Window:   cfg.Sweeper.Window,
			Interval: cfg.Sweeper.Interval,
			Reason:   cfg.Sweeper.CancelReason,
		},
		log,
	)

	if once {
		handled, err := sweeper.SweepOnce(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		log.Info("sweep finished", slog.Int("handled", handled))
		return nil
	}

	sweeper.Run(ctx)
	return nil
}
