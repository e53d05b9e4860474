package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var (
	testTime       = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	readCommitted  = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	errConnRefused = &pgconn.PgError{Code: "08006", Message: "connection failure"}
	errUnique      = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	errCheck       = &pgconn.PgError{Code: "23514", Message: "new row violates check constraint"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}
