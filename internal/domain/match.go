package domain

import (
	"strings"

	"github.com/leonardoxyz/femisse-stock-ledger/pkg/apperrors"
)

// NoColor is the comparable key for "no color specified". It is deliberately
// not the empty string: a lookup without a color must match only variants
// whose color is absent, never a variant whose color happens to be "".
const NoColor = "\x00"

// Normalize trims the value and collapses nil/empty/whitespace-only input to
// nil, so "no color" survives aggregation as an explicit absence.
func Normalize(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ColorKey returns the comparable form of a color value. Nil maps to the
// NoColor sentinel; anything else is trimmed and lowercased.
func ColorKey(s *string) string {
	if s == nil {
		return NoColor
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

// SizeKey returns the comparable form of a size value.
func SizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindVariant returns the first variant whose color matches the given color
// under ColorKey comparison. There is no partial or fuzzy matching: a miss
// reports VariantColorNotFound.
func FindVariant(variants []Variant, productID string, color *string) (*Variant, error) {
	key := ColorKey(color)
	for i := range variants {
		if ColorKey(variants[i].Color) == key {
			return &variants[i], nil
		}
	}

	label := ""
	if color != nil {
		label = *color
	}
	return nil, apperrors.VariantColorNotFound(productID, label)
}

// FindSizeEntry returns the size entry matching the given size within a
// variant, or VariantSizeNotFound.
func FindSizeEntry(variant *Variant, productID, size string) (*SizeEntry, error) {
	key := SizeKey(size)
	for i := range variant.Sizes {
		if SizeKey(variant.Sizes[i].Size) == key {
			return &variant.Sizes[i], nil
		}
	}
	return nil, apperrors.VariantSizeNotFound(productID, size)
}
