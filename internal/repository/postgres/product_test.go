package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/apperrors"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
)

func strPtr(s string) *string {
	return &s
}

const sampleDoc = `[{"color":"Azul","sizes":[{"size":"M","stock":5,"price":49.9}]}]`

func TestGetVariants(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT variants FROM products").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"variants"}).AddRow(json.RawMessage(sampleDoc)))

	variants, err := repo.GetVariants(context.Background(), "prod-1")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "Azul", *variants[0].Color)
	assert.Equal(t, 5, variants[0].Sizes[0].Stock)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVariantsNotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT variants FROM products").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"variants"}))

	_, err = repo.GetVariants(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateVariantsLocksValidatesAndWrites(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs([]string{"prod-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "variants"}).
			AddRow("prod-1", json.RawMessage(sampleDoc)))
	mock.ExpectExec("UPDATE products").
		WithArgs("prod-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = repo.MutateVariants(context.Background(), []string{"prod-1"}, func(products map[string]*domain.Product) ([]string, error) {
		product, ok := products["prod-1"]
		require.True(t, ok)
		assert.Equal(t, json.RawMessage(sampleDoc), product.RawVariants)

		product.Variants[0].Sizes[0].Stock--
		return []string{"prod-1"}, nil
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateVariantsRollsBackOnValidationError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs([]string{"prod-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "variants"}).
			AddRow("prod-1", json.RawMessage(sampleDoc)))
	mock.ExpectRollback()

	wantErr := apperrors.InsufficientStock("prod-1", "M", 9, 5)
	err = repo.MutateVariants(context.Background(), []string{"prod-1"}, func(products map[string]*domain.Product) ([]string, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateVariantsNoIDsIsANoOp(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	err = repo.MutateVariants(context.Background(), nil, func(map[string]*domain.Product) ([]string, error) {
		t.Fatal("fn must not be called with no product ids")
		return nil, nil
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateVariantsMissingRowSurfacesToCallback(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs([]string{"ghost"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "variants"}))
	mock.ExpectRollback()

	err = repo.MutateVariants(context.Background(), []string{"ghost"}, func(products map[string]*domain.Product) ([]string, error) {
		_, ok := products["ghost"]
		assert.False(t, ok)
		return nil, apperrors.ProductNotFound("ghost")
	})
	require.ErrorIs(t, err, apperrors.ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateVariantsWriteFailureAborts(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs([]string{"prod-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "variants"}).
			AddRow("prod-1", json.RawMessage(sampleDoc)))
	mock.ExpectExec("UPDATE products").
		WithArgs("prod-1", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = repo.MutateVariants(context.Background(), []string{"prod-1"}, func(products map[string]*domain.Product) ([]string, error) {
		products["prod-1"].Variants[0].Sizes[0].Stock--
		return []string{"prod-1"}, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write variants")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceVariants(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	raw := json.RawMessage(sampleDoc)
	mock.ExpectExec("UPDATE products").
		WithArgs("prod-1", raw).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.ReplaceVariants(context.Background(), "prod-1", raw)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceVariantsUnknownProduct(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepository(mock)

	mock.ExpectExec("UPDATE products").
		WithArgs("ghost", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.ReplaceVariants(context.Background(), "ghost", json.RawMessage(`[]`))
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
