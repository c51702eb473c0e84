package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/libsearch/internal/config"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

type cachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
	URL        string `json:"url"`
}

// Transport serves repeated requests from the cache and forwards the rest.
// Only successful responses are stored.
type Transport struct {
	next  transport.Transport
	db    *CacheDB
	table string
	ttl   time.Duration
}

// NewTransport wraps next so its responses are cached in table for ttl.
// A zero ttl uses DefaultCacheTTL.
func NewTransport(next transport.Transport, db *CacheDB, table string, ttl time.Duration) *Transport {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Transport{next: next, db: db, table: table, ttl: ttl}
}

// Key identifies a request by method, full URL and body. Headers are left
// out so API keys never reach the cache.
func Key(req transport.Request) string {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}
	key := method + " " + req.FullURL()
	if len(req.Body) > 0 {
		sum := sha256.Sum256(req.Body)
		key += " " + hex.EncodeToString(sum[:])
	}
	return key
}

func (t *Transport) Execute(ctx context.Context, req transport.Request) (transport.Response, error) {
	resp, hit, err := GetOrFetch(t.db, t.table, Key(req), t.ttl, func() (cachedResponse, error) {
		r, err := t.next.Execute(ctx, req)
		if err != nil {
			return cachedResponse{}, err
		}
		return cachedResponse{StatusCode: r.StatusCode, Body: r.Body, URL: r.URL}, nil
	}, func(r cachedResponse) bool {
		return r.StatusCode >= 200 && r.StatusCode < 300
	})
	if err != nil {
		return transport.Response{}, err
	}
	if hit {
		slog.Debug("Served from cache", "url", req.FullURL())
	}
	return transport.Response{StatusCode: resp.StatusCode, Body: resp.Body, URL: resp.URL}, nil
}

// Wrap returns next wrapped in the response cache for protocol when
// config.CacheEnabled is set. If the cache cannot be opened, next is
// returned unchanged.
func Wrap(protocol record.Protocol, next transport.Transport) transport.Transport {
	if !config.CacheEnabled {
		return next
	}
	table, err := TableFor(protocol)
	if err != nil {
		return next
	}
	db, err := GetGlobalCache()
	if err != nil {
		slog.Warn("Failed to open cache, continuing without it", "error", err)
		return next
	}
	return NewTransport(next, db, table, ttl())
}
