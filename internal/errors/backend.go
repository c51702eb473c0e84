package errors

import (
	stdErrors "errors"
	"fmt"
)

// UnknownEndpointError is returned by catalog lookups for names it does not know.
type UnknownEndpointError struct {
	Name string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint %q", e.Name)
}

// NewUnknownEndpointError creates an UnknownEndpointError for name.
func NewUnknownEndpointError(name string) *UnknownEndpointError {
	return &UnknownEndpointError{Name: name}
}

// IsUnknownEndpointError reports whether err is an UnknownEndpointError (even when wrapped).
func IsUnknownEndpointError(err error) bool {
	var target *UnknownEndpointError
	return stdErrors.As(err, &target)
}

// BackendUnavailableError reports an optional backend that is not configured,
// such as the Zotero web API without credentials.
type BackendUnavailableError struct {
	Backend string
	Reason  string
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s is not available: %s", e.Backend, e.Reason)
}

// NewBackendUnavailableError creates a BackendUnavailableError.
func NewBackendUnavailableError(backend, reason string) *BackendUnavailableError {
	return &BackendUnavailableError{Backend: backend, Reason: reason}
}

// IsBackendUnavailableError reports whether err is a BackendUnavailableError (even when wrapped).
func IsBackendUnavailableError(err error) bool {
	var target *BackendUnavailableError
	return stdErrors.As(err, &target)
}
