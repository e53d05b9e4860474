package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes v inside the data envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError writes the error envelope for err. AppErrors keep their code and
// message; bare kind sentinels get a generic code. Only 5xx errors are
// logged, with the request-scoped logger when one is installed.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	resp := &ErrorResponse{RequestID: requestID}

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr) && status < http.StatusInternalServerError:
		resp.Code, resp.Message = appErr.Code, appErr.Message
	case status == http.StatusNotFound:
		resp.Code, resp.Message = "NOT_FOUND", "resource not found"
	case status == http.StatusConflict:
		resp.Code, resp.Message = "CONFLICT", "resource was modified concurrently"
	case status == http.StatusUnprocessableEntity:
		resp.Code, resp.Message = "BUSINESS_RULE_VIOLATION", err.Error()
	case status == http.StatusBadRequest:
		resp.Code, resp.Message = "INVALID_INPUT", err.Error()
	case status == http.StatusUnauthorized:
		resp.Code, resp.Message = "UNAUTHORIZED", "authentication required"
	case status == http.StatusForbidden:
		resp.Code, resp.Message = "FORBIDDEN", "access denied"
	case status == http.StatusServiceUnavailable:
		resp.Code, resp.Message = "SERVICE_UNAVAILABLE", "dependency unavailable, retry later"
	default:
		resp.Code, resp.Message = "INTERNAL_ERROR", "an internal error occurred"
	}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
		)
	}

	WriteJSON(w, status, Response{Error: resp})
}

// WriteValidationError writes a 400 for a request that could not be decoded
// or failed tag validation.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteError(w, r, err, nil)
		return
	}
	WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
		Code:      "INVALID_INPUT",
		Message:   err.Error(),
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}})
}

// ParseUUID validates that param is a UUID. On failure it writes a 400 with
// code INVALID_PARAMETER and returns false.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: "invalid UUID: " + param,
		}})
		return uuid.Nil, false
	}
	return id, true
}
