package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/repository"
)

var (
	sweptOrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expired_orders_swept_total",
			Help: "Total number of expired orders handled by the sweeper, by path",
		},
		[]string{"path"},
	)

	sweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total number of sweeper runs",
		},
	)
)

// OrderCanceller is the primary cancellation path: the order service owns
// the full cancellation flow (stock release included). The sweeper only
// falls back to direct mutation when this call fails.
type OrderCanceller interface {
	CancelOrder(ctx context.Context, orderID, reason string) error
}

// SweeperConfig holds the expiry sweeper's tunables.
type SweeperConfig struct {
	// Window is how long an unpaid order may stay pending.
	Window time.Duration

	// Interval is the pause between sweep runs.
	Interval time.Duration

	// Reason is recorded on auto-cancelled orders.
	Reason string
}

// Sweeper cancels pending orders whose payment window lapsed and restores
// their reserved stock. It runs independently of the request path but
// compensates through the same Ledger, so both writers share one matching
// algorithm and one per-product locking discipline.
type Sweeper struct {
	orders    repository.OrderStore
	ledger    *Ledger
	canceller OrderCanceller
	cfg       SweeperConfig
	logger    *slog.Logger
}

// NewSweeper creates the expiry sweeper.
func NewSweeper(orders repository.OrderStore, ledger *Ledger, canceller OrderCanceller, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		orders:    orders,
		ledger:    ledger,
		canceller: canceller,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Duration("window", s.cfg.Window),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// SweepOnce cancels every order whose payment window lapsed and returns how
// many were handled. Per-order failures are logged and do not stop the run.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	sweepRunsTotal.Inc()

	cutoff := time.Now().UTC().Add(-s.cfg.Window)
	expired, err := s.orders.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired orders: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	handled := 0
	for _, order := range expired {
		err := s.canceller.CancelOrder(ctx, order.ID, s.cfg.Reason)
		if err == nil {
			sweptOrdersTotal.WithLabelValues("order_service").Inc()
			handled++
			continue
		}
		s.logger.WarnContext(ctx, "order service cancellation failed, falling back to direct release",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)

		if s.cancelDirect(ctx, order.ID) {
			sweptOrdersTotal.WithLabelValues("direct").Inc()
			handled++
		}
	}

	s.logger.InfoContext(ctx, "sweep completed",
		slog.Int("expired", len(expired)),
		slog.Int("handled", handled),
	)

	return handled, nil
}

// cancelDirect releases an order's stock through the ledger and marks it
// cancelled. The release is best-effort: a stock correction failure must
// not keep an expired order in pending forever.
func (s *Sweeper) cancelDirect(ctx context.Context, orderID string) bool {
	items, err := s.orders.LoadOrderItems(ctx, orderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load items for expired order",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.ledger.Release(ctx, items)

	if err := s.orders.MarkCancelled(ctx, orderID, s.cfg.Reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark expired order cancelled",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.InfoContext(ctx, "expired order cancelled directly",
		slog.String("order_id", orderID),
	)
	return true
}
