package errors

import (
	stdErrors "errors"
	"fmt"
)

// TransportError reports a failed request. StatusCode is zero when the
// request never produced an HTTP response (I/O failure, timeout).
type TransportError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	switch {
	case e.HasStatus() && e.Cause != nil:
		return fmt.Sprintf("request to %s failed with HTTP %d: %v", e.URL, e.StatusCode, e.Cause)
	case e.HasStatus():
		return fmt.Sprintf("request to %s failed with HTTP %d", e.URL, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("request to %s failed", e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HasStatus reports whether an HTTP status code is attached.
func (e *TransportError) HasStatus() bool {
	return e.StatusCode != 0
}

// NewTransportError creates a TransportError carrying an HTTP status.
func NewTransportError(url string, statusCode int) *TransportError {
	return &TransportError{URL: url, StatusCode: statusCode}
}

// NewTransportIOError creates a TransportError for a request that got no response.
func NewTransportIOError(url string, cause error) *TransportError {
	return &TransportError{URL: url, Cause: cause}
}

// IsTransportError reports whether err is a TransportError (even when wrapped).
func IsTransportError(err error) bool {
	var target *TransportError
	return stdErrors.As(err, &target)
}

// TransportStatus returns the HTTP status attached to a wrapped TransportError.
func TransportStatus(err error) (int, bool) {
	var target *TransportError
	if !stdErrors.As(err, &target) || !target.HasStatus() {
		return 0, false
	}
	return target.StatusCode, true
}
