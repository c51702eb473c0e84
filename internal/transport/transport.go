// Package transport executes protocol requests. Adapters depend on the
// Transport interface only; retries and throttling live here, never in the
// query/parse pipeline.
package transport

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Request is a protocol request ready to be executed.
type Request struct {
	Method  string
	URL     string
	Params  url.Values
	Headers map[string]string
	// Body is sent as the request body when set.
	Body []byte
	// Timeout overrides the transport default for this request.
	Timeout time.Duration
}

// FullURL returns the URL with the encoded query parameters appended.
// Parameters are encoded in sorted key order.
func (r Request) FullURL() string {
	if len(r.Params) == 0 {
		return r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + r.Params.Encode()
}

// Response is the raw result of a request.
type Response struct {
	StatusCode int
	Body       []byte
	URL        string
}

// Transport executes a request. Any non-2xx status is returned as a
// TransportError carrying the status; failures without a response are
// returned as a TransportError without one.
type Transport interface {
	Execute(ctx context.Context, req Request) (Response, error)
}

// Func adapts an ordinary function to the Transport interface.
type Func func(ctx context.Context, req Request) (Response, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
