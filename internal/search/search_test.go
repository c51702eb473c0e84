package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/ixtheo"
	"github.com/lepinkainen/libsearch/internal/oai"
	"github.com/lepinkainen/libsearch/internal/ratelimit"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/sru"
	"github.com/lepinkainen/libsearch/internal/transport"
	"github.com/lepinkainen/libsearch/internal/zotero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBuildsProtocolAdapters(t *testing.T) {
	cat := catalog.Default()
	tests := []struct {
		protocol record.Protocol
		name     string
		want     any
	}{
		{record.ProtocolSRU, "dnb", &sru.Adapter{}},
		{record.ProtocolOAI, "arxiv", &oai.Adapter{}},
		{record.ProtocolIxTheo, "ixtheo", &ixtheo.Adapter{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.protocol), func(t *testing.T) {
			a, d, err := Open(cat, tt.protocol, tt.name, Options{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, a)
			assert.Equal(t, tt.name, d.Name)
		})
	}
}

func TestOpenUnknownEndpoint(t *testing.T) {
	_, _, err := Open(catalog.Default(), record.ProtocolSRU, "nowhere", Options{})
	assert.True(t, liberrors.IsUnknownEndpointError(err))
}

func TestNewTransportSelection(t *testing.T) {
	d := catalog.Descriptor{Name: "x", BaseURL: "https://ixtheo.de", Protocol: record.ProtocolIxTheo, RateLimit: 1}

	assert.IsType(t, &transport.HTTP{}, NewTransport(d, Options{}))
	assert.IsType(t, &transport.Browser{}, NewTransport(d, Options{Browser: true}))

	d.Browser = true
	assert.IsType(t, &transport.Browser{}, NewTransport(d, Options{}))

	fake := transport.Func(func(context.Context, transport.Request) (transport.Response, error) {
		return transport.Response{}, nil
	})
	assert.IsType(t, fake, NewTransport(d, Options{Transport: fake}))
}

func TestNewTransportRegistersEndpointRate(t *testing.T) {
	limits := ratelimit.NewRegistry(0)
	d := catalog.Descriptor{Name: "slow", BaseURL: "https://slow.example.org/sru", Protocol: record.ProtocolSRU, RateLimit: 0.001}
	NewTransport(d, Options{HTTP: transport.Options{Limits: limits}})

	l := limits.ForHost("slow.example.org")
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
	assert.True(t, limits.ForHost("other.example.org").Allow())
}

func TestSearchThroughHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "searchRetrieve", r.URL.Query().Get("operation"))
		_, _ = w.Write([]byte(`<searchRetrieveResponse><numberOfRecords>1</numberOfRecords><records><record>
<recordData><dc><title>Served</title></dc></recordData></record></records></searchRetrieveResponse>`))
	}))
	t.Cleanup(srv.Close)

	d := catalog.Descriptor{Name: "local", BaseURL: srv.URL, Protocol: record.ProtocolSRU}
	a, err := New(d, Options{HTTP: transport.Options{Timeout: 5 * time.Second}})
	require.NoError(t, err)

	batch, err := a.Search(context.Background(), criteria.Criteria{Title: "x"})
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "Served", batch.Records[0].Title)
}

func TestNewZotero(t *testing.T) {
	_, closeFn, err := NewZotero(ZoteroOptions{LocalPath: filepath.Join(t.TempDir(), "none.sqlite")})
	assert.True(t, liberrors.IsBackendUnavailableError(err))
	assert.NoError(t, closeFn())

	a, closeFn, err := NewZotero(ZoteroOptions{})
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.IsType(t, &zotero.Adapter{}, a)

	_, err = a.Search(context.Background(), criteria.Criteria{Title: "x"})
	assert.True(t, liberrors.IsBackendUnavailableError(err))
}

func TestWrapDecoratesEveryTransport(t *testing.T) {
	var seen []record.Protocol
	base := transport.Func(func(ctx context.Context, req transport.Request) (transport.Response, error) {
		return transport.Response{StatusCode: 200}, nil
	})
	wrap := func(p record.Protocol, next transport.Transport) transport.Transport {
		seen = append(seen, p)
		return next
	}

	d, err := catalog.Default().Get(record.ProtocolSRU, "dnb")
	require.NoError(t, err)
	NewTransport(d, Options{Transport: base, Wrap: wrap})

	_, closeFn, err := NewZotero(ZoteroOptions{Transport: base, Wrap: wrap})
	require.NoError(t, err)
	require.NoError(t, closeFn())

	assert.Equal(t, []record.Protocol{record.ProtocolSRU, record.ProtocolZotero}, seen)
	assert.NotNil(t, NewTransport(d, Options{Transport: base}))
}
