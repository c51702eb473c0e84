package errors

import (
	stdErrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestInvalidCriteriaError(t *testing.T) {
	err := NewInvalidCriteriaError("no search field set")
	assert.EqualError(t, err, "invalid search criteria: no search field set")
	assert.True(t, IsInvalidCriteriaError(fmt.Errorf("build: %w", err)))
	assert.False(t, IsInvalidCriteriaError(io.EOF))
}

func TestUnsupportedFieldError(t *testing.T) {
	err := NewUnsupportedFieldError("SRU", "trove", "subject")
	assert.EqualError(t, err, `SRU endpoint "trove" does not support searching by subject`)
	assert.True(t, IsUnsupportedFieldError(stdErrors.Join(err)))

	bare := NewUnsupportedFieldError("IXTHEO", "", "year")
	assert.EqualError(t, bare, "IXTHEO does not support searching by year")
}

func TestUnknownEndpointError(t *testing.T) {
	err := NewUnknownEndpointError("nowhere")
	assert.EqualError(t, err, `unknown endpoint "nowhere"`)
	assert.True(t, IsUnknownEndpointError(fmt.Errorf("lookup: %w", err)))
}

func TestBackendUnavailableError(t *testing.T) {
	err := NewBackendUnavailableError("zotero web API", "no API key configured")
	assert.EqualError(t, err, "zotero web API is not available: no API key configured")
	assert.True(t, IsBackendUnavailableError(err))
}

func TestMalformedResponseErrorUnwraps(t *testing.T) {
	cause := stdErrors.New("XML syntax error on line 1")
	err := NewMalformedResponseError("OAI", cause)

	assert.EqualError(t, err, "malformed OAI response: XML syntax error on line 1")
	assert.True(t, stdErrors.Is(err, cause))
	assert.True(t, IsMalformedResponseError(fmt.Errorf("page 2: %w", err)))
	assert.EqualError(t, NewMalformedResponseError("SRU", nil), "malformed SRU response")
}

func TestProtocolError(t *testing.T) {
	err := NewProtocolError("OAI", "badResumptionToken", "token expired")
	assert.EqualError(t, err, "OAI error badResumptionToken: token expired")
	assert.True(t, IsProtocolError(err))
	assert.EqualError(t, NewProtocolError("SRU", "info:srw/diagnostic/1/7", ""), "SRU error info:srw/diagnostic/1/7")
}

func TestTransportErrorWithStatus(t *testing.T) {
	err := NewTransportError("https://example.org/sru", 503)

	assert.EqualError(t, err, "request to https://example.org/sru failed with HTTP 503")
	assert.True(t, err.HasStatus())

	status, ok := TransportStatus(fmt.Errorf("search: %w", err))
	assert.True(t, ok)
	assert.Equal(t, 503, status)
}

func TestTransportErrorWithoutStatus(t *testing.T) {
	err := NewTransportIOError("https://example.org/oai", io.ErrUnexpectedEOF)

	assert.EqualError(t, err, "request to https://example.org/oai failed: unexpected EOF")
	assert.False(t, err.HasStatus())
	assert.True(t, stdErrors.Is(err, io.ErrUnexpectedEOF))

	_, ok := TransportStatus(err)
	assert.False(t, ok)
	assert.True(t, IsTransportError(err))
}

func TestSelectionAbortedError(t *testing.T) {
	err := NewSelectionAbortedError("user quit set selection")
	assert.EqualError(t, err, "user quit set selection")
	assert.True(t, IsSelectionAbortedError(stdErrors.Join(err)))
}
