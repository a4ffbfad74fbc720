package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the ledger's failure classes. Input-shape and
// referential errors abort a reservation; PersistenceFailure is returned
// when a product write fails after validation passed.
var (
	ErrInvalidProductID     = errors.New("invalid product id")
	ErrMissingVariantSize   = errors.New("missing variant size")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrProductNotFound      = errors.New("product not found")
	ErrVariantColorNotFound = errors.New("variant color not found")
	ErrVariantSizeNotFound  = errors.New("variant size not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPersistenceFailure   = errors.New("persistence failure")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternal             = errors.New("internal error")
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidInput creates a generic 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidProductID reports an order item without a usable product id.
func InvalidProductID() *AppError {
	return &AppError{
		Code:    "INVALID_PRODUCT_ID",
		Message: "order item is missing a product id",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidProductID,
	}
}

// MissingVariantSize reports an order item whose size is absent or blank.
func MissingVariantSize(productID string) *AppError {
	return &AppError{
		Code:    "MISSING_VARIANT_SIZE",
		Message: fmt.Sprintf("order item for product %s has no variant size", productID),
		Status:  http.StatusBadRequest,
		Err:     ErrMissingVariantSize,
	}
}

// InvalidQuantity reports a quantity that is not a positive integer.
func InvalidQuantity(productID string, quantity int) *AppError {
	return &AppError{
		Code:    "INVALID_QUANTITY",
		Message: fmt.Sprintf("order item for product %s has invalid quantity %d", productID, quantity),
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidQuantity,
	}
}

// ProductNotFound reports a referenced product id absent from the catalog.
func ProductNotFound(productID string) *AppError {
	return &AppError{
		Code:    "PRODUCT_NOT_FOUND",
		Message: fmt.Sprintf("product %s not found", productID),
		Status:  http.StatusNotFound,
		Err:     ErrProductNotFound,
	}
}

// VariantColorNotFound reports a color with no matching variant on the product.
// The color is reported as given by the caller, not normalized.
func VariantColorNotFound(productID, color string) *AppError {
	return &AppError{
		Code:    "VARIANT_COLOR_NOT_FOUND",
		Message: fmt.Sprintf("product %s has no variant with color %q", productID, color),
		Status:  http.StatusNotFound,
		Err:     ErrVariantColorNotFound,
	}
}

// VariantSizeNotFound reports a size with no matching entry on the variant.
func VariantSizeNotFound(productID, size string) *AppError {
	return &AppError{
		Code:    "VARIANT_SIZE_NOT_FOUND",
		Message: fmt.Sprintf("product %s has no size %q for the requested variant", productID, size),
		Status:  http.StatusNotFound,
		Err:     ErrVariantSizeNotFound,
	}
}

// InsufficientStock reports a requested quantity exceeding available stock.
// Requested and available counts are carried for the caller's error body.
func InsufficientStock(productID, size string, requested, available int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("insufficient stock for product %s size %q: requested %d, available %d", productID, size, requested, available),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientStock,
	}
}

// PersistenceFailure reports a product write error after validation succeeded.
func PersistenceFailure(err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_FAILURE",
		Message: "failed to persist stock mutation",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrPersistenceFailure, err),
	}
}

// Internal wraps an unexpected error as a 500.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrInvalidProductID),
		errors.Is(err, ErrMissingVariantSize),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrVariantColorNotFound),
		errors.Is(err, ErrVariantSizeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
