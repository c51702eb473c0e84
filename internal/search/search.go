// Package search builds protocol adapters from endpoint descriptors.
package search

import (
	"context"
	"fmt"
	"net/url"

	"github.com/lepinkainen/libsearch/internal/automation"
	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/ixtheo"
	"github.com/lepinkainen/libsearch/internal/oai"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/sru"
	"github.com/lepinkainen/libsearch/internal/transport"
	"github.com/lepinkainen/libsearch/internal/zotero"
)

// Adapter runs one search against one source. On failure the records
// retrieved before the error are returned with it.
type Adapter interface {
	Search(ctx context.Context, c criteria.Criteria) (record.Batch, error)
}

var (
	_ Adapter = (*sru.Adapter)(nil)
	_ Adapter = (*oai.Adapter)(nil)
	_ Adapter = (*ixtheo.Adapter)(nil)
	_ Adapter = (*zotero.Adapter)(nil)
)

// Options configures the transports handed to adapters.
type Options struct {
	HTTP transport.Options
	// Browser routes page requests through a headless browser even when
	// the endpoint does not ask for it.
	Browser        bool
	BrowserOptions automation.Options
	// IxTheoExport enables the per-record RIS export backfill.
	IxTheoExport bool
	// Transport replaces the network transport entirely.
	Transport transport.Transport
	// Wrap, when set, decorates the transport of every adapter built.
	Wrap Wrapper
}

// Wrapper decorates the transport used for one protocol.
type Wrapper func(protocol record.Protocol, t transport.Transport) transport.Transport

func (w Wrapper) apply(protocol record.Protocol, t transport.Transport) transport.Transport {
	if w == nil {
		return t
	}
	return w(protocol, t)
}

func (o Options) usesBrowser(d catalog.Descriptor) bool {
	return o.Transport == nil && (d.Browser || o.Browser)
}

// NewTransport returns the transport for d. The endpoint rate limit is
// registered with the shared host limiter.
func NewTransport(d catalog.Descriptor, opts Options) transport.Transport {
	return opts.Wrap.apply(d.Protocol, newTransport(d, opts))
}

func newTransport(d catalog.Descriptor, opts Options) transport.Transport {
	if opts.Transport != nil {
		return opts.Transport
	}
	if opts.HTTP.Limits != nil && d.RateLimit > 0 {
		if u, err := url.Parse(d.BaseURL); err == nil {
			opts.HTTP.Limits.SetRate(u.Host, d.RateLimit)
		}
	}
	if opts.usesBrowser(d) {
		return transport.NewBrowser(automation.Fetcher(opts.BrowserOptions), opts.HTTP.Limits, opts.HTTP.Timeout)
	}
	return transport.NewHTTP(opts.HTTP)
}

// New builds the adapter for d.
func New(d catalog.Descriptor, opts Options) (Adapter, error) {
	t := NewTransport(d, opts)
	switch d.Protocol {
	case record.ProtocolSRU:
		return sru.NewAdapter(d, t), nil
	case record.ProtocolOAI:
		return oai.NewAdapter(d, t), nil
	case record.ProtocolIxTheo:
		ixOpts := ixtheo.Options{Export: opts.IxTheoExport}
		if opts.usesBrowser(d) {
			ixOpts.ExportTransport = transport.NewHTTP(opts.HTTP)
		}
		return ixtheo.NewAdapter(d, t, ixOpts), nil
	}
	return nil, fmt.Errorf("no adapter for protocol %q", d.Protocol)
}

// Open looks up an endpoint and builds its adapter.
func Open(cat catalog.Catalog, protocol record.Protocol, name string, opts Options) (Adapter, catalog.Descriptor, error) {
	d, err := cat.Get(protocol, name)
	if err != nil {
		return nil, catalog.Descriptor{}, err
	}
	a, err := New(d, opts)
	return a, d, err
}

// ZoteroOptions selects the Zotero backend. A local database path wins over
// web credentials.
type ZoteroOptions struct {
	LocalPath string
	Web       zotero.WebConfig
	HTTP      transport.Options
	Transport transport.Transport
	Wrap      Wrapper
}

// NewZotero builds the Zotero adapter. The returned close function releases
// the local database, if one was opened.
func NewZotero(opts ZoteroOptions) (Adapter, func() error, error) {
	noop := func() error { return nil }
	if opts.LocalPath != "" {
		store, err := zotero.OpenLocal(opts.LocalPath)
		if err != nil {
			return nil, noop, err
		}
		return zotero.NewLocalAdapter(store), store.Close, nil
	}
	t := opts.Transport
	if t == nil {
		t = transport.NewHTTP(opts.HTTP)
	}
	t = opts.Wrap.apply(record.ProtocolZotero, t)
	return zotero.NewWebAdapter(zotero.NewWebAPI(opts.Web, t)), noop, nil
}
