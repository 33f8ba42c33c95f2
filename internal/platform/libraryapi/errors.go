package libraryapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedShape is returned when a list response is neither a bare
// array nor an object wrapping the array under the resource key.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// HTTPError is a response received with a non-success status.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return fmt.Sprintf("library api: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("library api: status=%d", e.StatusCode)
}

// NotFound reports whether the backend answered 404.
func (e *HTTPError) NotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("library api: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func newHTTPError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: status, Body: body}
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		httpErr.Message = payload.Message
	}
	return httpErr
}

// MessageOf returns the server-supplied message carried by err, or fallback
// when the failure has none.
func MessageOf(err error, fallback string) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return fallback
}

// IsNetwork reports whether err is a connectivity failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
