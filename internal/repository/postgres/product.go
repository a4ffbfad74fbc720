package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
	"github.com/leonardoxyz/femisse-stock-ledger/internal/repository"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/apperrors"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
)

// ProductRepository implements repository.ProductStore over PostgreSQL. The
// variants document lives in a JSONB column; mutual exclusion per product
// comes from SELECT ... FOR UPDATE row locks held for the validate+write
// span of MutateVariants.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product store.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetVariants loads a single product's variants document.
func (r *ProductRepository) GetVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	query := `SELECT variants FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetVariants", query)
	var raw json.RawMessage
	err := r.pool.QueryRow(ctx, query, productID).Scan(&raw)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ProductNotFound(productID)
		}
		return nil, fmt.Errorf("get variants for product %s: %w", productID, err)
	}

	variants, err := domain.ParseVariants(raw)
	if err != nil {
		return nil, fmt.Errorf("decode variants for product %s: %w", productID, err)
	}
	return variants, nil
}

// MutateVariants locks the referenced product rows (ordered by id so
// overlapping calls cannot deadlock), hands working copies to fn, and writes
// back only the touched rows. The transaction commits only if fn succeeds
// and every write succeeds, so the mutation is all-or-nothing.
func (r *ProductRepository) MutateVariants(ctx context.Context, productIDs []string, fn repository.MutateFunc) error {
	if len(productIDs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mutate transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockQuery := `
		SELECT id, variants
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "MutateVariants", lockQuery)
	defer func() { end(err) }()

	rows, err := tx.Query(ctx, lockQuery, productIDs)
	if err != nil {
		return fmt.Errorf("lock product rows: %w", err)
	}

	products := make(map[string]*domain.Product, len(productIDs))
	for rows.Next() {
		var id string
		var raw json.RawMessage
		if err = rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("scan product row: %w", err)
		}

		var variants []domain.Variant
		variants, err = domain.ParseVariants(raw)
		if err != nil {
			rows.Close()
			return fmt.Errorf("decode variants for product %s: %w", id, err)
		}

		products[id] = &domain.Product{ID: id, Variants: variants, RawVariants: raw}
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return fmt.Errorf("read product rows: %w", err)
	}

	touched, err := fn(products)
	if err != nil {
		return err
	}

	updateQuery := `
		UPDATE products
		SET variants = $2, updated_at = NOW()
		WHERE id = $1`

	for _, id := range touched {
		product, ok := products[id]
		if !ok {
			err = fmt.Errorf("touched product %s was not loaded", id)
			return err
		}

		var encoded json.RawMessage
		encoded, err = domain.EncodeVariants(product.Variants)
		if err != nil {
			return fmt.Errorf("encode variants for product %s: %w", id, err)
		}

		if _, err = tx.Exec(ctx, updateQuery, id, encoded); err != nil {
			return fmt.Errorf("write variants for product %s: %w", id, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mutate transaction: %w", err)
	}

	return nil
}

// ReplaceVariants overwrites a product's variants document. The single-row
// UPDATE takes its own row lock, so it serializes against MutateVariants.
func (r *ProductRepository) ReplaceVariants(ctx context.Context, productID string, variants json.RawMessage) error {
	query := `
		UPDATE products
		SET variants = $2, updated_at = NOW()
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "ReplaceVariants", query)
	tag, err := r.pool.Exec(ctx, query, productID, variants)
	end(err)
	if err != nil {
		return fmt.Errorf("replace variants for product %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ProductNotFound(productID)
	}

	return nil
}
