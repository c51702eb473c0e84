package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethgrid/pester"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/ratelimit"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "libsearch/1.0 (+https://github.com/lepinkainen/libsearch)"

// Options configures the HTTP transport.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	MaxAttempts int
	Limits      *ratelimit.Registry
}

// HTTP is the network transport. Retries (when MaxAttempts > 1) use
// exponential backoff and also cover HTTP 429 responses.
type HTTP struct {
	client    *pester.Client
	limits    *ratelimit.Registry
	userAgent string
	timeout   time.Duration
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts Options) *HTTP {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = max(1, opts.MaxAttempts)
	client.SetRetryOnHTTP429(opts.MaxAttempts > 1)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTP{
		client:    client,
		limits:    opts.Limits,
		userAgent: userAgent,
		timeout:   opts.Timeout,
	}
}

// Execute performs the request.
func (h *HTTP) Execute(ctx context.Context, req Request) (Response, error) {
	full := req.FullURL()
	parsed, err := url.Parse(full)
	if err != nil {
		return Response{}, liberrors.NewTransportIOError(full, err)
	}

	if h.limits != nil {
		if err := h.limits.ForHost(parsed.Host).Wait(ctx); err != nil {
			return Response{}, liberrors.NewTransportIOError(full, err)
		}
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = h.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var payload io.Reader
	if len(req.Body) > 0 {
		payload = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, full, payload)
	if err != nil {
		return Response{}, liberrors.NewTransportIOError(full, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("User-Agent", h.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return Response{}, liberrors.NewTransportIOError(full, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, liberrors.NewTransportIOError(full, fmt.Errorf("failed to read response body: %w", err))
	}

	slog.Debug("HTTP request", "method", method, "url", full, "status", resp.StatusCode, "elapsed", time.Since(start))

	out := Response{StatusCode: resp.StatusCode, Body: body, URL: full}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, liberrors.NewTransportError(full, resp.StatusCode)
	}
	return out, nil
}
