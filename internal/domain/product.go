package domain

import (
	"encoding/json"
)

// Product is a catalog row as the ledger sees it: the identifier plus the
// nested variants document. The ledger never creates or deletes products and
// only ever patches the variants payload.
type Product struct {
	ID       string    `json:"id"`
	Variants []Variant `json:"variants"`

	// RawVariants holds the variants document exactly as stored, captured
	// when the row was loaded. Snapshots are cut from this value so a
	// restore writes back the byte-identical pre-mutation document.
	RawVariants json.RawMessage `json:"-"`
}

// Variant is a color-level grouping of sellable sizes. Color is nullable:
// a product may carry a single "no color" variant.
type Variant struct {
	Color *string     `json:"color"`
	Image string      `json:"image,omitempty"`
	Sizes []SizeEntry `json:"sizes"`
}

// SizeEntry is the smallest unit of trackable stock: one size within one
// variant. Stock is the ledger's only mutation target.
type SizeEntry struct {
	Size  string  `json:"size"`
	Stock int     `json:"stock"`
	Price float64 `json:"price"`
}

// ParseVariants decodes a stored variants document.
func ParseVariants(raw json.RawMessage) ([]Variant, error) {
	var variants []Variant
	if len(raw) == 0 {
		return variants, nil
	}
	if err := json.Unmarshal(raw, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

// EncodeVariants serializes a variants document for persistence.
func EncodeVariants(variants []Variant) (json.RawMessage, error) {
	if variants == nil {
		variants = []Variant{}
	}
	return json.Marshal(variants)
}

// Snapshot captures a product's pre-mutation variants document, keyed by
// product id. It is returned to the order pipeline on a successful
// reservation and handed back for compensation if payment fails. Applying a
// snapshot is a full replace: it is safe only when applied at most once and
// before any unrelated mutation of the same product.
type Snapshot struct {
	ProductID string          `json:"product_id"`
	Variants  json.RawMessage `json:"variants"`
}
