package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardoxyz/femisse-stock-ledger/pkg/database"
)

func TestListExpiredPending(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	created := cutoff.Add(-time.Hour)
	mock.ExpectQuery("SELECT id, created_at").
		WithArgs(OrderStatusPending, cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow("order-1", created).
			AddRow("order-2", created.Add(time.Minute)))

	orders, err := repo.ListExpiredPending(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-1", orders[0].ID)
	assert.Equal(t, created, orders[0].CreatedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpiredPendingEmpty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT id, created_at").
		WithArgs(OrderStatusPending, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}))

	orders, err := repo.ListExpiredPending(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, orders)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadOrderItems(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectQuery("SELECT product_id, quantity, variant_size, variant_color").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "quantity", "variant_size", "variant_color"}).
			AddRow("prod-1", 2, "M", strPtr("Azul")).
			AddRow("prod-2", 1, "U", (*string)(nil)))

	items, err := repo.LoadOrderItems(context.Background(), "order-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "prod-1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	require.NotNil(t, items[0].VariantColor)
	assert.Equal(t, "Azul", *items[0].VariantColor)
	assert.Nil(t, items[1].VariantColor)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelled(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs("order-1", OrderStatusCancelled, "payment window expired", OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.MarkCancelled(context.Background(), "order-1", "payment window expired")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelledSkipsNonPendingOrders(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs("order-1", OrderStatusCancelled, "payment window expired", OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.MarkCancelled(context.Background(), "order-1", "payment window expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not pending")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCancelledQueryError(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs("order-1", OrderStatusCancelled, "expired", OrderStatusPending).
		WillReturnError(errors.New("connection reset"))

	err = repo.MarkCancelled(context.Background(), "order-1", "expired")
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
