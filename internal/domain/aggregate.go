package domain

import (
	"fmt"

	"github.com/leonardoxyz/femisse-stock-ledger/pkg/apperrors"
)

// OrderItem is one raw order line as supplied by the order pipeline. It is
// never persisted by the ledger. Multiple items may reference the same
// (product, color, size); they are merged before any stock check.
type OrderItem struct {
	ProductID    string  `json:"product_id"`
	Quantity     int     `json:"quantity"`
	VariantSize  string  `json:"variant_size"`
	VariantColor *string `json:"variant_color"`
}

// AggregatedItem is one distinct (product, color, size) demand within a
// single request. Color and Size are normalized; ColorLabel and SizeLabel
// keep the caller's original spelling for error reporting.
type AggregatedItem struct {
	ProductID  string
	Color      *string
	Size       string
	ColorLabel string
	SizeLabel  string
	Quantity   int
}

// AggregationMode selects the failure policy for Aggregate.
type AggregationMode int

const (
	// ModeStrict aborts on the first invalid item. Used on the reservation
	// path: no partial reservation may ever happen.
	ModeStrict AggregationMode = iota

	// ModeBestEffort skips invalid items and reports them back for logging.
	// Used on the release path, which runs during failure handling and must
	// not itself fail.
	ModeBestEffort
)

// Aggregate validates raw order items and merges them by
// (product, normalized color, normalized size), summing quantities. Merge
// order follows first appearance in the input. In ModeBestEffort the second
// return value lists the validation errors of skipped items and the third is
// always nil.
func Aggregate(items []OrderItem, mode AggregationMode) ([]AggregatedItem, []error, error) {
	aggregated := make([]AggregatedItem, 0, len(items))
	index := make(map[string]int, len(items))
	var skipped []error

	for _, item := range items {
		if err := validateItem(item); err != nil {
			if mode == ModeStrict {
				return nil, nil, err
			}
			skipped = append(skipped, err)
			continue
		}

		color := Normalize(item.VariantColor)
		size := *Normalize(&item.VariantSize)
		key := fmt.Sprintf("%s\x1f%s\x1f%s", item.ProductID, ColorKey(color), SizeKey(size))

		if i, ok := index[key]; ok {
			aggregated[i].Quantity += item.Quantity
			continue
		}

		colorLabel := ""
		if item.VariantColor != nil {
			colorLabel = *item.VariantColor
		}

		index[key] = len(aggregated)
		aggregated = append(aggregated, AggregatedItem{
			ProductID:  item.ProductID,
			Color:      color,
			Size:       size,
			ColorLabel: colorLabel,
			SizeLabel:  item.VariantSize,
			Quantity:   item.Quantity,
		})
	}

	return aggregated, skipped, nil
}

func validateItem(item OrderItem) error {
	if item.ProductID == "" {
		return apperrors.InvalidProductID()
	}
	if Normalize(&item.VariantSize) == nil {
		return apperrors.MissingVariantSize(item.ProductID)
	}
	if item.Quantity < 1 {
		return apperrors.InvalidQuantity(item.ProductID, item.Quantity)
	}
	return nil
}

// ProductIDs returns the distinct product ids referenced by the aggregated
// items, in first-appearance order.
func ProductIDs(items []AggregatedItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
