package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
	pkgkafka "github.com/leonardoxyz/femisse-stock-ledger/pkg/kafka"
)

// Kafka topics for stock ledger domain events.
const (
	TopicStockReserved = "femisse.stock.reserved"
	TopicStockReleased = "femisse.stock.released"
	TopicStockRestored = "femisse.stock.restored"
)

const (
	aggregateTypeStock = "stock"
	sourceStockLedger  = "stock-ledger"
)

// StockItemData is one reserved or released line in an event payload.
type StockItemData struct {
	ProductID string  `json:"product_id"`
	Color     *string `json:"color"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
}

// StockMutationData is the payload for stock.reserved and stock.released.
type StockMutationData struct {
	ProductIDs []string        `json:"product_ids"`
	Items      []StockItemData `json:"items"`
}

// StockRestoredData is the payload for stock.restored.
type StockRestoredData struct {
	ProductIDs []string `json:"product_ids"`
}

// Producer publishes stock ledger domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer for the stock ledger.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishStockReserved publishes a stock.reserved event for a committed
// reservation.
func (p *Producer) PublishStockReserved(ctx context.Context, items []domain.AggregatedItem) error {
	return p.publishMutation(ctx, TopicStockReserved, items)
}

// PublishStockReleased publishes a stock.released event.
func (p *Producer) PublishStockReleased(ctx context.Context, items []domain.AggregatedItem) error {
	return p.publishMutation(ctx, TopicStockReleased, items)
}

func (p *Producer) publishMutation(ctx context.Context, topic string, items []domain.AggregatedItem) error {
	ids := domain.ProductIDs(items)
	data := StockMutationData{
		ProductIDs: ids,
		Items:      make([]StockItemData, 0, len(items)),
	}
	for _, item := range items {
		data.Items = append(data.Items, StockItemData{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}

	key := ""
	if len(ids) > 0 {
		key = ids[0]
	}

	event, err := pkgkafka.NewEvent(topic, key, aggregateTypeStock, sourceStockLedger, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published stock event",
		slog.String("topic", topic),
		slog.Int("item_count", len(items)),
	)

	return nil
}

// PublishStockRestored publishes a stock.restored event after a snapshot
// rollback.
func (p *Producer) PublishStockRestored(ctx context.Context, productIDs []string) error {
	data := StockRestoredData{ProductIDs: productIDs}

	key := ""
	if len(productIDs) > 0 {
		key = productIDs[0]
	}

	event, err := pkgkafka.NewEvent(TopicStockRestored, key, aggregateTypeStock, sourceStockLedger, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", TopicStockRestored, err)
	}

	if err := p.kafka.Publish(ctx, TopicStockRestored, event); err != nil {
		return fmt.Errorf("publish %s event: %w", TopicStockRestored, err)
	}

	return nil
}
