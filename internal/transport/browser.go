package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/ratelimit"
)

// PageFetcher loads a URL in a browser and returns the rendered HTML.
type PageFetcher func(ctx context.Context, url string) (string, error)

// Browser executes GET requests through a headless browser, for catalogs
// that reject plain HTTP clients. A loaded page is reported as status 200.
type Browser struct {
	fetch   PageFetcher
	limits  *ratelimit.Registry
	timeout time.Duration
}

// NewBrowser creates a browser transport around fetch.
func NewBrowser(fetch PageFetcher, limits *ratelimit.Registry, timeout time.Duration) *Browser {
	return &Browser{fetch: fetch, limits: limits, timeout: timeout}
}

// Execute loads the request URL.
func (b *Browser) Execute(ctx context.Context, req Request) (Response, error) {
	full := req.FullURL()
	if req.Method != "" && req.Method != http.MethodGet {
		return Response{}, liberrors.NewTransportIOError(full, fmt.Errorf("browser transport supports GET only, got %s", req.Method))
	}

	parsed, err := url.Parse(full)
	if err != nil {
		return Response{}, liberrors.NewTransportIOError(full, err)
	}
	if b.limits != nil {
		if err := b.limits.ForHost(parsed.Host).Wait(ctx); err != nil {
			return Response{}, liberrors.NewTransportIOError(full, err)
		}
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = b.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	html, err := b.fetch(ctx, full)
	if err != nil {
		return Response{}, liberrors.NewTransportIOError(full, err)
	}
	slog.Debug("Browser request", "url", full, "bytes", len(html), "elapsed", time.Since(start))

	return Response{StatusCode: http.StatusOK, Body: []byte(html), URL: full}, nil
}
