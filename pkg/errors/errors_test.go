package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrBusinessRule, ErrValidation, ErrConflict,
		ErrUnauthorized, ErrForbidden, ErrInternal, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: fmt.Errorf("db connection lost")}
	assert.Equal(t, "INTERNAL_ERROR: something broke: db connection lost", appErr.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "cart not found"}
	assert.Equal(t, "NOT_FOUND: cart not found", bare.Error())
}

func TestAppError_WithCode_DoesNotMutateOriginal(t *testing.T) {
	base := NotFound("order", "o-1")
	coded := base.WithCode("ORDER_NOT_FOUND")

	assert.Equal(t, "NOT_FOUND", base.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", coded.Code)
	assert.True(t, errors.Is(coded, ErrNotFound))
	assert.Equal(t, http.StatusNotFound, coded.Status)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "p-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"business rule", BusinessRule("EMPTY_CART", "cart has no items"), "EMPTY_CART", http.StatusUnprocessableEntity, ErrBusinessRule},
		{"validation", Validation("INVALID_EMAIL", "bad email"), "INVALID_EMAIL", http.StatusBadRequest, ErrValidation},
		{"invalid input", InvalidInput("missing name"), "INVALID_INPUT", http.StatusBadRequest, ErrValidation},
		{"conflict", Conflict("retry"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"unauthorized", Unauthorized("no token"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("admins only"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"unavailable", ServiceUnavailable("gateway down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestInternal_WrapsBoth(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", BusinessRule("INSUFFICIENT_STOCK", "not enough"))
	assert.Equal(t, "INSUFFICIENT_STOCK", CodeOf(wrapped))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", BusinessRule("X", "y"), http.StatusUnprocessableEntity},
		{"wrapped app error", Wrap(NotFound("cart", "s"), "get cart"), http.StatusNotFound},
		{"sentinel not found", fmt.Errorf("x: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel conflict", ErrConflict, http.StatusConflict},
		{"sentinel rule", ErrBusinessRule, http.StatusUnprocessableEntity},
		{"sentinel validation", ErrInvalidInput, http.StatusBadRequest},
		{"sentinel unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"sentinel forbidden", ErrForbidden, http.StatusForbidden},
		{"sentinel unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
