package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	cartCols     = []string{"id", "session_id", "total_amount", "created_at", "updated_at"}
	cartItemCols = []string{"id", "cart_id", "product_id", "product_name", "quantity", "unit_price"}
)

func TestCartRepository_Upsert_CreatesThenLocks(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec("INSERT INTO carts").
		WithArgs(pgxmock.AnyArg(), "sess-1", testTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM carts").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow("c-1", "sess-1", int64(0), testTime, testTime))
	mock.ExpectQuery("FROM cart_items").
		WithArgs("c-1").
		WillReturnRows(pgxmock.NewRows(cartItemCols))

	c, err := repo.Upsert(context.Background(), "sess-1", testTime)
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.NotNil(t, c.Items)
	assert.True(t, c.IsEmpty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_GetBySessionForUpdate_LoadsItemsInOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery("FOR UPDATE").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow("c-1", "sess-1", int64(7000), testTime, testTime))
	mock.ExpectQuery("FROM cart_items").
		WithArgs("c-1").
		WillReturnRows(pgxmock.NewRows(cartItemCols).
			AddRow("i-1", "c-1", "p-1", "Lamp", 2, int64(2500)).
			AddRow("i-2", "c-1", "p-2", "Mug", 1, int64(2000)))

	c, err := repo.GetBySessionForUpdate(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "p-1", c.Items[0].ProductID)
	assert.Equal(t, int64(7000), c.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_GetBySessionForUpdate_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery("FROM carts").
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetBySessionForUpdate(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Save_RewritesItemsWithPosition(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	c := domain.NewCart("sess-1", testTime)
	c.AddItem(&domain.Product{ID: "p-1", Name: "Lamp", Price: 2500}, 2)
	c.AddItem(&domain.Product{ID: "p-2", Name: "Mug", Price: 900}, 1)

	mock.ExpectExec("UPDATE carts").
		WithArgs(c.ID, int64(5900), c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(c.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs(c.Items[0].ID, c.ID, "p-1", "Lamp", 2, int64(2500), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs(c.Items[1].ID, c.ID, "p-2", "Mug", 1, int64(900), 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Save(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Save_MissingCart(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)
	c := domain.NewCart("sess-1", testTime)

	mock.ExpectExec("UPDATE carts").
		WithArgs(c.ID, int64(0), c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Save(context.Background(), c), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec("DELETE FROM carts").
		WithArgs("c-1").
		WillReturnError(errConnRefused)

	err := repo.Delete(context.Background(), "c-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete cart")
}
