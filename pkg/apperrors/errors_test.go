package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarrySentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		status   int
		code     string
	}{
		{"invalid input", InvalidInput("bad"), ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"invalid product id", InvalidProductID(), ErrInvalidProductID, http.StatusBadRequest, "INVALID_PRODUCT_ID"},
		{"missing size", MissingVariantSize("p1"), ErrMissingVariantSize, http.StatusBadRequest, "MISSING_VARIANT_SIZE"},
		{"invalid quantity", InvalidQuantity("p1", -1), ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"product not found", ProductNotFound("p1"), ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"color not found", VariantColorNotFound("p1", "Azul"), ErrVariantColorNotFound, http.StatusNotFound, "VARIANT_COLOR_NOT_FOUND"},
		{"size not found", VariantSizeNotFound("p1", "M"), ErrVariantSizeNotFound, http.StatusNotFound, "VARIANT_SIZE_NOT_FOUND"},
		{"insufficient stock", InsufficientStock("p1", "M", 3, 1), ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"persistence failure", PersistenceFailure(errors.New("boom")), ErrPersistenceFailure, http.StatusInternalServerError, "PERSISTENCE_FAILURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestPersistenceFailureKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := PersistenceFailure(cause)

	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, cause)
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock("prod-1", "M", 3, 1)
	assert.Contains(t, err.Error(), "requested 3")
	assert.Contains(t, err.Error(), "available 1")
}

func TestHTTPStatusForWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("reserve: %w", InsufficientStock("p1", "M", 2, 0))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))

	var appErr *AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
}

func TestHTTPStatusForBareSentinels(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidQuantity))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrProductNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrInsufficientStock))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unknown")))
}
