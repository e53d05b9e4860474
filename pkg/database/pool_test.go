package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := connectBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitterFraction))
		hi := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestRetryBackoff_NegativeAttempt(t *testing.T) {
	d := retryBackoff(-3)
	assert.LessOrEqual(t, d, time.Duration(float64(connectBaseWait)*(1+retryJitterFraction)))
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	sqlErr := errors.New("syntax error at or near")

	err := retry(context.Background(), nil, "migrate", isConnectionError, func() error {
		calls++
		return sqlErr
	})

	assert.ErrorIs(t, err, sqlErr)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), nil, "connect", func(error) bool { return true }, func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, nil, "connect", func(error) bool { return true }, func() error {
		return errors.New("dial tcp: connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:5432: connection refused")))
	assert.True(t, isConnectionError(errors.New("connection reset by peer")))
	assert.True(t, isConnectionError(errors.New("unexpected EOF")))
	assert.False(t, isConnectionError(errors.New("relation \"carts\" does not exist")))
	assert.False(t, isConnectionError(errors.New("duplicate key value violates unique constraint")))
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Host = "db"
	assert.Equal(t, "postgres://storefront:storefront@db:5432/storefront?sslmode=disable", cfg.DSN())
}
