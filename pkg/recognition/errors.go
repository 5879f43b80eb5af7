package recognition

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrEmptyFrame is returned when Submit is called without image data.
	ErrEmptyFrame = errors.New("recognition: empty frame")

	// ErrMalformedResponse is returned when the response body cannot be decoded.
	ErrMalformedResponse = errors.New("recognition: malformed response")

	// ErrClearRejected is returned when /clear_text does not report success.
	ErrClearRejected = errors.New("recognition: clear rejected")
)

// APIError represents a non-success HTTP status from the service.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Endpoint is the path that failed.
	Endpoint string

	// Message is a truncated response body.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("recognition %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("recognition %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// TransportError wraps network failures and decode failures for one endpoint.
// All transport errors are treated as "nothing changed" by the feedback loop.
type TransportError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("recognition %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportFailure reports whether err came from a round trip (network, status or decode).
func IsTransportFailure(err error) bool {
	var apiErr *APIError
	var tErr *TransportError
	return errors.As(err, &apiErr) || errors.As(err, &tErr)
}
