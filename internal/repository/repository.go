package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
)

// MutateFunc receives the working copies of every requested product, keyed by
// id, and mutates them in place. It returns the ids it actually changed; only
// those rows are written back. Any error aborts the whole mutation with zero
// rows written.
type MutateFunc func(products map[string]*domain.Product) (touched []string, err error)

// ProductStore is the ledger's view of the product catalog. Implementations
// must make MutateVariants atomic and mutually exclusive per product: two
// concurrent calls touching the same product serialize, so the validate+write
// sequence can never lose an update.
type ProductStore interface {
	// GetVariants loads a single product's variants document.
	GetVariants(ctx context.Context, productID string) ([]domain.Variant, error)

	// MutateVariants loads the given products under mutual exclusion, runs
	// fn against in-memory copies, and persists the touched ones. Either
	// every touched row is written or none is.
	MutateVariants(ctx context.Context, productIDs []string, fn MutateFunc) error

	// ReplaceVariants overwrites a product's variants document with the
	// given pre-mutation value. Used by snapshot restore.
	ReplaceVariants(ctx context.Context, productID string, variants json.RawMessage) error
}

// PendingOrder is an unpaid order visible to the expiry sweeper.
type PendingOrder struct {
	ID        string
	CreatedAt time.Time
}

// OrderStore exposes the order rows the sweeper needs. Order creation and the
// rest of the order lifecycle belong to the order service, not the ledger.
type OrderStore interface {
	// ListExpiredPending returns pending orders created before the cutoff.
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]PendingOrder, error)

	// LoadOrderItems returns the line items of an order.
	LoadOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)

	// MarkCancelled transitions a pending order to cancelled with a reason.
	MarkCancelled(ctx context.Context, orderID, reason string) error
}
