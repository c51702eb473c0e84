package errors

import (
	stdErrors "errors"
	"fmt"
)

// InvalidCriteriaError reports search criteria that cannot be turned into a request.
type InvalidCriteriaError struct {
	Reason string
}

func (e *InvalidCriteriaError) Error() string {
	return "invalid search criteria: " + e.Reason
}

// NewInvalidCriteriaError creates an InvalidCriteriaError with the given reason.
func NewInvalidCriteriaError(reason string) *InvalidCriteriaError {
	return &InvalidCriteriaError{Reason: reason}
}

// IsInvalidCriteriaError reports whether err is an InvalidCriteriaError (even when wrapped).
func IsInvalidCriteriaError(err error) bool {
	var target *InvalidCriteriaError
	return stdErrors.As(err, &target)
}

// UnsupportedFieldError reports a search field the target protocol or endpoint cannot express.
type UnsupportedFieldError struct {
	Protocol string
	Endpoint string
	Field    string
}

func (e *UnsupportedFieldError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s endpoint %q does not support searching by %s", e.Protocol, e.Endpoint, e.Field)
	}
	return fmt.Sprintf("%s does not support searching by %s", e.Protocol, e.Field)
}

// NewUnsupportedFieldError creates an UnsupportedFieldError.
func NewUnsupportedFieldError(protocol, endpoint, field string) *UnsupportedFieldError {
	return &UnsupportedFieldError{Protocol: protocol, Endpoint: endpoint, Field: field}
}

// IsUnsupportedFieldError reports whether err is an UnsupportedFieldError (even when wrapped).
func IsUnsupportedFieldError(err error) bool {
	var target *UnsupportedFieldError
	return stdErrors.As(err, &target)
}
