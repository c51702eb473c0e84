package errors

import stdErrors "errors"

// SelectionAbortedError is returned when the user quits an interactive picker.
type SelectionAbortedError struct {
	Reason string
}

func (e *SelectionAbortedError) Error() string {
	return e.Reason
}

// NewSelectionAbortedError creates a SelectionAbortedError with the provided reason.
func NewSelectionAbortedError(reason string) *SelectionAbortedError {
	return &SelectionAbortedError{Reason: reason}
}

// IsSelectionAbortedError reports whether err is a SelectionAbortedError (even when wrapped).
func IsSelectionAbortedError(err error) bool {
	var target *SelectionAbortedError
	return stdErrors.As(err, &target)
}
