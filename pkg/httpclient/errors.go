package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ServerError is a 5xx answer from a downstream API.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Body)
}

type remoteError struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response and maps it to
// an AppError kind. remote names the dependency in messages.
func ParseResponseError(resp *http.Response, remote string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", remote, resp.StatusCode, err)
	}

	msg := http.StatusText(resp.StatusCode)
	var re remoteError
	if json.Unmarshal(body, &re) == nil && re.Message != "" {
		msg = re.Message
	}
	qualified := fmt.Sprintf("%s: %s", remote, msg)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(remote+" resource", msg)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apperrors.ServiceUnavailable(qualified + " (credentials rejected)")
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		return apperrors.ServiceUnavailable(qualified)
	case resp.StatusCode >= http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	default:
		return fmt.Errorf("%s returned unexpected status %d", remote, resp.StatusCode)
	}
}

// AsUnavailable maps breaker rejections and downstream 5xx errors to a 503
// AppError and returns other errors unchanged.
func AsUnavailable(err error, remote string) error {
	var srvErr *ServerError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.ServiceUnavailable(remote + " circuit open")
	case errors.As(err, &srvErr):
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s returned %d", remote, srvErr.Status))
	default:
		return err
	}
}
