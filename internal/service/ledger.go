package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/repository"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/apperrors"
)

var (
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_reservations_total",
			Help: "Total number of reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	releasedItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_released_items_total",
			Help: "Total quantity of stock added back by release operations",
		},
	)

	snapshotRestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_snapshot_restores_total",
			Help: "Total number of per-product snapshot restores by outcome",
		},
		[]string{"outcome"},
	)
)

// Invalidator drops a product's cached read model. Implementations must be
// safe to call after every successful mutation; failures stay internal.
type Invalidator interface {
	Invalidate(ctx context.Context, productID string)
}

// EventPublisher emits stock domain events. Publish failures never fail the
// mutation they follow.
type EventPublisher interface {
	PublishStockReserved(ctx context.Context, items []domain.AggregatedItem) error
	PublishStockReleased(ctx context.Context, items []domain.AggregatedItem) error
	PublishStockRestored(ctx context.Context, productIDs []string) error
}

// Ledger owns every stock mutation: reserving on order placement, releasing
// on compensation, and restoring snapshots on payment failure. All three run
// the same two-phase pattern inside the store's per-product mutual
// exclusion: validate against in-memory working copies first, persist only
// if every check passed.
type Ledger struct {
	products repository.ProductStore
	cache    Invalidator
	events   EventPublisher
	logger   *slog.Logger
}

// NewLedger creates the stock ledger service.
func NewLedger(products repository.ProductStore, cache Invalidator, events EventPublisher, logger *slog.Logger) *Ledger {
	return &Ledger{
		products: products,
		cache:    cache,
		events:   events,
		logger:   logger,
	}
}

// Variants returns a product's current variants document. Read path for the
// operational API; the storefront reads through its own cached service.
func (l *Ledger) Variants(ctx context.Context, productID string) ([]domain.Variant, error) {
	return l.products.GetVariants(ctx, productID)
}

// Reserve decrements stock for every line of an order, all-or-nothing.
//
// Items are aggregated first so two lines addressing the same variant/size
// are checked jointly against available stock. Every referenced product is
// then locked and validated in input order; the first failure aborts the
// whole call with zero rows written. On success it returns one pre-mutation
// snapshot per touched product, which the order pipeline holds for
// compensation until the order reaches a terminal state.
func (l *Ledger) Reserve(ctx context.Context, items []domain.OrderItem) ([]domain.Snapshot, error) {
	if len(items) == 0 {
		reservationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.InvalidInput("order items list cannot be empty")
	}

	aggregated, _, err := domain.Aggregate(items, domain.ModeStrict)
	if err != nil {
		reservationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var snapshots []domain.Snapshot
	err = l.products.MutateVariants(ctx, domain.ProductIDs(aggregated), func(products map[string]*domain.Product) ([]string, error) {
		touched := make([]string, 0, len(products))
		seen := make(map[string]struct{}, len(products))

		for _, item := range aggregated {
			product, ok := products[item.ProductID]
			if !ok {
				return nil, apperrors.ProductNotFound(item.ProductID)
			}

			variant, err := domain.FindVariant(product.Variants, item.ProductID, item.Color)
			if err != nil {
				return nil, err
			}

			entry, err := domain.FindSizeEntry(variant, item.ProductID, item.SizeLabel)
			if err != nil {
				return nil, err
			}

			if entry.Stock < item.Quantity {
				return nil, apperrors.InsufficientStock(item.ProductID, item.SizeLabel, item.Quantity, entry.Stock)
			}

			// Working copy only; nothing is written until every item passed.
			entry.Stock -= item.Quantity

			if _, ok := seen[item.ProductID]; !ok {
				seen[item.ProductID] = struct{}{}
				touched = append(touched, item.ProductID)
				snapshots = append(snapshots, domain.Snapshot{
					ProductID: item.ProductID,
					Variants:  product.RawVariants,
				})
			}
		}

		return touched, nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.PersistenceFailure(err)
		}
		l.logger.WarnContext(ctx, "reservation failed",
			slog.Int("item_count", len(items)),
			slog.String("error", err.Error()),
		)
		reservationsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	l.afterMutation(ctx, domain.ProductIDs(aggregated))
	if err := l.events.PublishStockReserved(ctx, aggregated); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish stock.reserved event",
			slog.String("error", err.Error()),
		)
	}

	l.logger.InfoContext(ctx, "stock reserved",
		slog.Int("item_count", len(items)),
		slog.Int("product_count", len(snapshots)),
	)
	reservationsTotal.WithLabelValues("success").Inc()

	return snapshots, nil
}

// Release adds quantities back to stock, best-effort. It runs during
// cleanup and compensation, so it never propagates errors: invalid items
// and unresolvable references are logged and skipped, and a write failure
// is logged and dropped.
func (l *Ledger) Release(ctx context.Context, items []domain.OrderItem) {
	aggregated, skipped, _ := domain.Aggregate(items, domain.ModeBestEffort)
	for _, err := range skipped {
		l.logger.WarnContext(ctx, "skipping invalid item during release",
			slog.String("error", err.Error()),
		)
	}
	if len(aggregated) == 0 {
		return
	}

	var applied []domain.AggregatedItem
	err := l.products.MutateVariants(ctx, domain.ProductIDs(aggregated), func(products map[string]*domain.Product) ([]string, error) {
		touched := make([]string, 0, len(products))
		seen := make(map[string]struct{}, len(products))

		for _, item := range aggregated {
			product, ok := products[item.ProductID]
			if !ok {
				l.logger.WarnContext(ctx, "skipping release for missing product",
					slog.String("product_id", item.ProductID),
				)
				continue
			}

			variant, err := domain.FindVariant(product.Variants, item.ProductID, item.Color)
			if err != nil {
				l.logger.WarnContext(ctx, "skipping release for unmatched variant",
					slog.String("product_id", item.ProductID),
					slog.String("color", item.ColorLabel),
					slog.String("error", err.Error()),
				)
				continue
			}

			entry, err := domain.FindSizeEntry(variant, item.ProductID, item.SizeLabel)
			if err != nil {
				l.logger.WarnContext(ctx, "skipping release for unmatched size",
					slog.String("product_id", item.ProductID),
					slog.String("size", item.SizeLabel),
					slog.String("error", err.Error()),
				)
				continue
			}

			entry.Stock += item.Quantity
			applied = append(applied, item)

			if _, ok := seen[item.ProductID]; !ok {
				seen[item.ProductID] = struct{}{}
				touched = append(touched, item.ProductID)
			}
		}

		return touched, nil
	})
	if err != nil {
		l.logger.ErrorContext(ctx, "stock release failed",
			slog.Int("item_count", len(items)),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(applied) == 0 {
		return
	}

	total := 0
	for _, item := range applied {
		total += item.Quantity
	}
	releasedItemsTotal.Add(float64(total))

	l.afterMutation(ctx, domain.ProductIDs(applied))
	if err := l.events.PublishStockReleased(ctx, applied); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish stock.released event",
			slog.String("error", err.Error()),
		)
	}

	l.logger.InfoContext(ctx, "stock released",
		slog.Int("item_count", len(applied)),
		slog.Int("quantity", total),
	)
}

// RestoreFromSnapshot overwrites each product's variants with the exact
// pre-mutation value captured at reserve time. A full replace, not a delta:
// the caller must apply each snapshot at most once. Best-effort, like
// Release; per-snapshot failures are logged and the rest still apply.
func (l *Ledger) RestoreFromSnapshot(ctx context.Context, snapshots []domain.Snapshot) {
	var restored []string
	for _, snapshot := range snapshots {
		if err := l.products.ReplaceVariants(ctx, snapshot.ProductID, snapshot.Variants); err != nil {
			snapshotRestoresTotal.WithLabelValues("failure").Inc()
			l.logger.ErrorContext(ctx, "snapshot restore failed",
				slog.String("product_id", snapshot.ProductID),
				slog.String("error", err.Error()),
			)
			continue
		}
		snapshotRestoresTotal.WithLabelValues("success").Inc()
		restored = append(restored, snapshot.ProductID)
	}
	if len(restored) == 0 {
		return
	}

	l.afterMutation(ctx, restored)
	if err := l.events.PublishStockRestored(ctx, restored); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish stock.restored event",
			slog.String("error", err.Error()),
		)
	}

	l.logger.InfoContext(ctx, "stock restored from snapshots",
		slog.Int("product_count", len(restored)),
	)
}

// afterMutation fires cache invalidation for every touched product.
func (l *Ledger) afterMutation(ctx context.Context, productIDs []string) {
	for _, id := range productIDs {
		l.cache.Invalidate(ctx, id)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperrors.ErrPersistenceFailure):
		return "persistence_failure"
	default:
		return "rejected"
	}
}
