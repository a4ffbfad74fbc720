package event

import (
	"context"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
)

// NoopProducer discards events. Used when Kafka is disabled, typically in
// local development and tests.
type NoopProducer struct{}

func (NoopProducer) PublishStockReserved(context.Context, []domain.AggregatedItem) error { return nil }
func (NoopProducer) PublishStockReleased(context.Context, []domain.AggregatedItem) error { return nil }
func (NoopProducer) PublishStockRestored(context.Context, []string) error                { return nil }
