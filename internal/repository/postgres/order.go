package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/repository"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
)

// Order status values the sweeper cares about.
const (
	OrderStatusPending   = "pending"
	OrderStatusCancelled = "cancelled"
)

// OrderRepository implements repository.OrderStore over PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order store.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// ListExpiredPending returns pending orders created before the cutoff,
// oldest first.
func (r *OrderRepository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]repository.PendingOrder, error) {
	query := `
		SELECT id, created_at
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at`

	ctx, end := database.TraceQuery(ctx, "ListExpiredPending", query)
	rows, err := r.pool.Query(ctx, query, OrderStatusPending, cutoff)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("list expired pending orders: %w", err)
	}
	defer rows.Close()

	var orders []repository.PendingOrder
	for rows.Next() {
		var o repository.PendingOrder
		if err := rows.Scan(&o.ID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pending orders: %w", err)
	}

	return orders, nil
}

// LoadOrderItems returns the line items of an order.
func (r *OrderRepository) LoadOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT product_id, quantity, variant_size, variant_color
		FROM order_items
		WHERE order_id = $1`

	ctx, end := database.TraceQuery(ctx, "LoadOrderItems", query)
	rows, err := r.pool.Query(ctx, query, orderID)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("load items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.VariantSize, &item.VariantColor); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read order items: %w", err)
	}

	return items, nil
}

// MarkCancelled transitions a pending order to cancelled. Orders already in
// a terminal state are left untouched, so a sweeper racing the order service
// cannot cancel a paid order.
func (r *OrderRepository) MarkCancelled(ctx context.Context, orderID, reason string) error {
	query := `
		UPDATE orders
		SET status = $2, cancel_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	ctx, end := database.TraceQuery(ctx, "MarkCancelled", query)
	tag, err := r.pool.Exec(ctx, query, orderID, OrderStatusCancelled, reason, OrderStatusPending)
	end(err)
	if err != nil {
		return fmt.Errorf("mark order %s cancelled: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s is not pending", orderID)
	}

	return nil
}
