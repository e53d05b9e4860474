package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

var (
	orderCols = []string{
		"id", "cart_id", "customer_name", "customer_email", "customer_phone",
		"shipping_address", "shipping_city", "shipping_zip", "total_amount", "status",
		"created_at", "updated_at",
	}
	orderItemCols = []string{"id", "order_id", "product_id", "product_name", "quantity", "price"}
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:              "o-1",
		CartID:          "c-1",
		CustomerName:    "Ana Lima",
		CustomerEmail:   "ana@example.com",
		ShippingAddress: "Rua A 1",
		ShippingCity:    "Lisboa",
		ShippingZip:     "1000-001",
		TotalAmount:     5000,
		Status:          domain.OrderStatusPaid,
		Items: []domain.OrderItem{
			{ID: "oi-1", OrderID: "o-1", ProductID: "p-1", ProductName: "Lamp", Quantity: 2, Price: 2500},
		},
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func orderRow(rows *pgxmock.Rows, o *domain.Order, extra ...any) *pgxmock.Rows {
	vals := append([]any{
		o.ID, o.CartID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.ShippingCity, o.ShippingZip, o.TotalAmount, o.Status,
		o.CreatedAt, o.UpdatedAt,
	}, extra...)
	return rows.AddRow(vals...)
}

func TestOrderRepository_Create_InsertsItems(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.CartID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.ShippingAddress, o.ShippingCity, o.ShippingZip, o.TotalAmount, o.Status,
			o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("oi-1", "o-1", "p-1", "Lamp", 2, int64(2500), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_ItemFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectExec("INSERT INTO orders").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnError(errConnRefused)

	err := repo.Create(context.Background(), o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order item")
}

func TestOrderRepository_GetForUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs(o.ID).
		WillReturnRows(orderRow(pgxmock.NewRows(orderCols), o))
	mock.ExpectQuery("FROM order_items").
		WithArgs([]string{o.ID}).
		WillReturnRows(pgxmock.NewRows(orderItemCols).AddRow("oi-1", "o-1", "p-1", "Lamp", 2, int64(2500)))

	got, err := repo.GetForUpdate(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs("o-1", domain.OrderStatusCancelled, testTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE orders").
		WithArgs("o-2", domain.OrderStatusCancelled, testTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.UpdateStatus(context.Background(), "o-1", domain.OrderStatusCancelled, testTime))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), "o-2", domain.OrderStatusCancelled, testTime), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_FilterAndBatchItems(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()
	o2 := sampleOrder()
	o2.ID = "o-2"
	o2.Items = []domain.OrderItem{}

	status := domain.OrderStatusPaid
	from := testTime.Add(-24 * time.Hour)
	to := testTime

	mock.ExpectQuery("FROM orders").
		WithArgs(status, from, to, 5, 0).
		WillReturnRows(orderRow(orderRow(pgxmock.NewRows(append(orderCols, "total_count")), o, 2), o2, 2))
	mock.ExpectQuery("FROM order_items").
		WithArgs([]string{"o-1", "o-2"}).
		WillReturnRows(pgxmock.NewRows(orderItemCols).AddRow("oi-1", "o-1", "p-1", "Lamp", 2, int64(2500)))

	got, total, err := repo.List(context.Background(), repository.OrderFilter{
		Status: &status,
		From:   &from,
		To:     &to,
		Page:   pagination.Params{Page: 1, PerPage: 5, SortBy: "total_amount"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 2)
	assert.Len(t, got[0].Items, 1)
	assert.NotNil(t, got[1].Items)
	assert.Empty(t, got[1].Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_NoRowsSkipsItemQuery(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders").
		WithArgs(pagination.DefaultPerPage, 0).
		WillReturnRows(pgxmock.NewRows(append(orderCols, "total_count")))

	got, total, err := repo.List(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
