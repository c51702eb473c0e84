package errors

import (
	stdErrors "errors"
	"fmt"
)

// MalformedResponseError reports a response body that cannot be parsed as
// the expected schema at all. Problems with single records never produce it.
type MalformedResponseError struct {
	Protocol string
	Cause    error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("malformed %s response", e.Protocol)
	}
	return fmt.Sprintf("malformed %s response: %v", e.Protocol, e.Cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// NewMalformedResponseError creates a MalformedResponseError.
func NewMalformedResponseError(protocol string, cause error) *MalformedResponseError {
	return &MalformedResponseError{Protocol: protocol, Cause: cause}
}

// IsMalformedResponseError reports whether err is a MalformedResponseError (even when wrapped).
func IsMalformedResponseError(err error) bool {
	var target *MalformedResponseError
	return stdErrors.As(err, &target)
}

// ProtocolError is an error the remote service reported inside a well-formed
// response: SRU diagnostics or OAI-PMH <error> elements.
type ProtocolError struct {
	Protocol string
	Code     string
	Message  string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error %s", e.Protocol, e.Code)
	}
	return fmt.Sprintf("%s error %s: %s", e.Protocol, e.Code, e.Message)
}

// NewProtocolError creates a ProtocolError.
func NewProtocolError(protocol, code, message string) *ProtocolError {
	return &ProtocolError{Protocol: protocol, Code: code, Message: message}
}

// IsProtocolError reports whether err is a ProtocolError (even when wrapped).
func IsProtocolError(err error) bool {
	var target *ProtocolError
	return stdErrors.As(err, &target)
}
