package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrAuth marks operations attempted without a usable API key.
	ErrAuth = errors.New("auth error")
	// ErrInvalidArgument marks requests rejected before any network traffic.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTimeout marks polls that exhausted their deadline.
	ErrTimeout = errors.New("timeout")
	// ErrIO marks local filesystem failures (registry, downloads, config).
	ErrIO = errors.New("io error")
	// ErrNotFound marks lookups that matched nothing locally.
	ErrNotFound = errors.New("not found")
)

// Category names used in the error envelope rendered to callers.
const (
	CategoryAuth            = "AuthError"
	CategoryInvalidArgument = "InvalidArgument"
	CategoryRemote          = "RemoteError"
	CategoryTimeout         = "Timeout"
	CategoryIO              = "IOError"
	CategoryNotFound        = "NotFound"
	CategoryUnknown         = "Error"
)

// RemoteError reports a non-success response from the upstream API. Body
// holds the response text as sent, truncated by the client that produced it.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, body)
}

// Wrap tags an error message with the provided marker for later
// classification. The marker should be one of the exported sentinel errors.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the category name used in the error envelope.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	switch {
	case errors.As(err, &remote):
		return CategoryRemote
	case errors.Is(err, ErrAuth):
		return CategoryAuth
	case errors.Is(err, ErrInvalidArgument):
		return CategoryInvalidArgument
	case errors.Is(err, ErrTimeout), isNetTimeout(err):
		return CategoryTimeout
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrIO):
		return CategoryIO
	default:
		return CategoryUnknown
	}
}

// HTTPStatus maps an error to the status code the HTTP surface responds with.
// Remote failures pass the upstream status through so callers can distinguish
// a missing job from a rejected request.
func HTTPStatus(err error) int {
	var remote *RemoteError
	switch {
	case err == nil:
		return 200
	case errors.As(err, &remote):
		if remote.StatusCode > 0 {
			return remote.StatusCode
		}
		return 502
	case errors.Is(err, ErrAuth):
		return 401
	case errors.Is(err, ErrInvalidArgument):
		return 400
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrTimeout), isNetTimeout(err):
		return 504
	default:
		return 500
	}
}

// Envelope renders err in the {"error": {"type", "message"}} shape the CLI
// and the HTTP API both emit.
func Envelope(err error) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"type":    Classify(err),
			"message": err.Error(),
		},
	}
}

func isNetTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
