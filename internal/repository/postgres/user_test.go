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

var userCols = []string{"id", "email", "password_hash", "role", "created_at", "updated_at"}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	u := &domain.User{ID: "u-1", Email: "admin@example.com", PasswordHash: "h", Role: domain.RoleAdmin, CreatedAt: testTime, UpdatedAt: testTime}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt).
		WillReturnError(errUnique)

	assert.ErrorIs(t, repo.Create(context.Background(), u), apperrors.ErrConflict)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("FROM users WHERE lower").
		WithArgs("Admin@Example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow("u-1", "admin@example.com", "h", domain.RoleAdmin, testTime, testTime))

	u, err := repo.GetByEmail(context.Background(), "Admin@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("u-9").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "u-9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec("UPDATE users").
		WithArgs("u-1", "new-hash", testTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", "new-hash", testTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}
