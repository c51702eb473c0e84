package ixtheo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ixtheo() catalog.Descriptor {
	return catalog.Descriptor{Name: "ixtheo", BaseURL: "https://ixtheo.de/", Protocol: record.ProtocolIxTheo}
}

const resultsHTML = `<!DOCTYPE html>
<html lang="en"><body>
<form id="search-results">
<div class="search-stats js-search-stats">Showing 1 - 5 results of 1,234 for search '<span>Luther</span>'</div>
<ul class="record-list">
  <li class="result" id="result0">
    <input type="hidden" class="hiddenId" value="1612345678"/>
    <a class="title" href="/Record/1612345678">  Martin Luther und
        die Reformation </a>
    <div class="author"><a href="#">Schilling, Heinz</a> (Author)</div>
    <span class="format book">Book</span><span class="format">Electronic</span>
    <span class="publishDate">Published: München : Beck, 2012</span>
    <div class="subject"><a href="#">Luther, Martin</a> <a href="#">Reformation</a></div>
  </li>
  <li class="result" id="result1">
    <input type="checkbox" class="checkbox-select-item" name="ids[]" value="Solr|1700000001"/>
    <a class="title">Gnade und Freiheit</a>
    <div class="author">Müller, Hans; Meier, Eva</div>
  </li>
  <li class="result" id="result2">
    <a class="title">Kirchengeschichte</a>
  </li>
  <li class="result" id="result3">
    <input type="hidden" class="hiddenId" value="1800000003"/>
    <span class="publishDate">1999</span>
  </li>
  <li class="result" id="resultX">
    <a class="title">No identifier</a>
  </li>
</ul>
<input type="hidden" name="idsAll[]" value="Solr|1612345678"/>
<input type="hidden" name="idsAll[]" value="Solr|1700000001"/>
<input type="hidden" name="idsAll[]" value="Solr|1900000002"/>
</form>
</body></html>`

func TestBuildRequestSingleField(t *testing.T) {
	req, err := BuildRequest(criteria.Criteria{Title: "Luther"}, ixtheo(), 1)
	require.NoError(t, err)

	assert.Equal(t, "https://ixtheo.de/Search/Results", req.URL)
	assert.Equal(t, "Luther", req.Params.Get("lookfor"))
	assert.Equal(t, "Title", req.Params.Get("type"))
	assert.Equal(t, "20", req.Params.Get("limit"))
	assert.Equal(t, "relevance, year desc", req.Params.Get("sort"))
	assert.Contains(t, req.Params, "botprotect")
	assert.NotContains(t, req.Params, "page")
	assert.NotContains(t, req.Params, "filter[]")
}

func TestBuildRequestSearchTypes(t *testing.T) {
	tests := []struct {
		c    criteria.Criteria
		want string
	}{
		{criteria.Criteria{Author: "Barth"}, "Author"},
		{criteria.Criteria{Subject: "Ethik"}, "Subject"},
		{criteria.Criteria{ISBN: "9783161484100"}, "ISN"},
		{criteria.Criteria{ISSN: "0044-2674"}, "ISN"},
		{criteria.Criteria{FreeText: "Gnade"}, "AllFields"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			req, err := BuildRequest(tt.c, ixtheo(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Params.Get("type"))
		})
	}
}

func TestBuildRequestAdvancedSearch(t *testing.T) {
	c := criteria.Criteria{Author: "Schilling", Title: "Luther", FormatFilter: "Book", LanguageFilter: "German"}
	req, err := BuildRequest(c, ixtheo(), 3)
	require.NoError(t, err)

	assert.Equal(t, "AND", req.Params.Get("join"))
	assert.Equal(t, []string{"Luther", "Schilling"}, req.Params["lookfor0[]"])
	assert.Equal(t, []string{"Title", "Author"}, req.Params["type0[]"])
	assert.NotContains(t, req.Params, "lookfor")
	assert.Equal(t, []string{`format:"Book"`, `language:"German"`}, req.Params["filter[]"])
	assert.Equal(t, "3", req.Params.Get("page"))
}

func TestBuildRequestErrors(t *testing.T) {
	_, err := BuildRequest(criteria.Criteria{}, ixtheo(), 1)
	assert.True(t, liberrors.IsInvalidCriteriaError(err))

	_, err = BuildRequest(criteria.Criteria{Title: "Luther", Year: "2012"}, ixtheo(), 1)
	assert.True(t, liberrors.IsUnsupportedFieldError(err))
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage([]byte(resultsHTML), "https://ixtheo.de")
	require.NoError(t, err)

	assert.Equal(t, 1234, page.Total)
	require.Len(t, page.Batch.Records, 3)

	first := page.Batch.Records[0]
	assert.Equal(t, "Martin Luther und die Reformation", first.Title)
	assert.Equal(t, []string{"Schilling, Heinz"}, first.Authors)
	assert.Equal(t, "2012", record.Value(first.Year))
	assert.Equal(t, []string{"Luther, Martin", "Reformation"}, first.Subjects)
	assert.Equal(t, "Book | Electronic", first.Extra["ixtheo:format"])
	assert.Equal(t, "1612345678", record.Value(first.RawIdentifier))
	assert.Equal(t, []string{"https://ixtheo.de/Record/1612345678"}, first.URLs)
	assert.Equal(t, record.ProtocolIxTheo, first.Source)

	second := page.Batch.Records[1]
	assert.Equal(t, "1700000001", record.Value(second.RawIdentifier))
	assert.Equal(t, []string{"Müller, Hans", "Meier, Eva"}, second.Authors)
	assert.Nil(t, second.Year)

	assert.Equal(t, "1900000002", record.Value(page.Batch.Records[2].RawIdentifier))

	require.Len(t, page.Batch.Warnings, 2)
	assert.Equal(t, record.Warning{Index: 4, ID: "1800000003", Reason: "record has no title"}, page.Batch.Warnings[0])
	assert.Equal(t, 5, page.Batch.Warnings[1].Index)
	assert.Empty(t, page.Batch.Warnings[1].ID)
}

func TestParsePageWithoutResults(t *testing.T) {
	page, err := ParsePage([]byte(`<html><body><form id="searchForm"></form><p class="no-results">No Results!</p></body></html>`), "")
	require.NoError(t, err)
	assert.Empty(t, page.Batch.Records)
	assert.Zero(t, page.Total)
}

func TestParsePageRejectsOtherPages(t *testing.T) {
	_, err := ParsePage([]byte(`<html><body><h1>Access denied</h1></body></html>`), "")
	require.Error(t, err)
	assert.True(t, liberrors.IsMalformedResponseError(err))
}

func TestParseTotalGerman(t *testing.T) {
	page, err := ParsePage([]byte(`<div class="search-stats">Treffer 1 - 20 von 3.456</div>`), "")
	require.NoError(t, err)
	assert.Equal(t, 3456, page.Total)
}

// pagedCatalog serves total results, PageSize per page, with ids id1..idN.
type pagedCatalog struct {
	mu     sync.Mutex
	total  int
	failOn int
	pages  []string
}

func (p *pagedCatalog) Execute(ctx context.Context, req transport.Request) (transport.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pageParam := req.Params.Get("page")
	p.pages = append(p.pages, pageParam)
	page := 1
	if pageParam != "" {
		page, _ = strconv.Atoi(pageParam)
	}
	if page == p.failOn {
		return transport.Response{StatusCode: 503}, liberrors.NewTransportError(req.FullURL(), 503)
	}

	first := (page-1)*PageSize + 1
	last := min(first+PageSize-1, p.total)
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body><div class="search-stats">Showing %d - %d results of %d</div><ul>`, first, last, p.total)
	for i := first; i <= last; i++ {
		fmt.Fprintf(&b, `<li class="result"><input type="hidden" class="hiddenId" value="id%d"/><a class="title">Title %d</a><div class="author">Author %d</div><span class="publishDate">2001</span></li>`, i, i, i)
	}
	b.WriteString("</ul></body></html>")
	return transport.Response{StatusCode: 200, Body: []byte(b.String())}, nil
}

func TestSearchPaging(t *testing.T) {
	tests := []struct {
		name      string
		c         criteria.Criteria
		wantCount int
		wantFirst string
		wantPages []string
	}{
		{"all pages", criteria.Criteria{Title: "x"}, 45, "id1", []string{"", "2", "3"}},
		{"capped", criteria.Criteria{Title: "x", MaxRecords: 25}, 25, "id1", []string{"", "2"}},
		{"start offset", criteria.Criteria{Title: "x", StartRecord: 23, MaxRecords: 5}, 5, "id23", []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &pagedCatalog{total: 45}
			batch, err := NewAdapter(ixtheo(), cat, Options{}).Search(context.Background(), tt.c)
			require.NoError(t, err)
			require.Len(t, batch.Records, tt.wantCount)
			assert.Equal(t, tt.wantFirst, record.Value(batch.Records[0].RawIdentifier))
			assert.Equal(t, tt.wantPages, cat.pages)
		})
	}
}

func TestSearchFailureKeepsEarlierPages(t *testing.T) {
	cat := &pagedCatalog{total: 100, failOn: 2}
	batch, err := NewAdapter(ixtheo(), cat, Options{}).Search(context.Background(), criteria.Criteria{FreeText: "x"})
	require.Error(t, err)
	status, ok := liberrors.TransportStatus(err)
	assert.True(t, ok)
	assert.Equal(t, 503, status)
	assert.Len(t, batch.Records, 20)
}

func TestSearchValidatesBeforeRequesting(t *testing.T) {
	cat := &pagedCatalog{total: 10}
	_, err := NewAdapter(ixtheo(), cat, Options{}).Search(context.Background(), criteria.Criteria{Year: "2000"})
	assert.True(t, liberrors.IsUnsupportedFieldError(err))
	assert.Empty(t, cat.pages)
}

func TestSearchWithExportBackfill(t *testing.T) {
	var exports []transport.Request
	listing := &pagedCatalog{total: 2}
	tr := transport.Func(func(ctx context.Context, req transport.Request) (transport.Response, error) {
		if !strings.HasSuffix(req.URL, "/Export") {
			return listing.Execute(ctx, req)
		}
		exports = append(exports, req)
		if strings.Contains(req.URL, "/id2/") {
			return transport.Response{StatusCode: 404}, liberrors.NewTransportError(req.FullURL(), 404)
		}
		body := "TY  - JOUR\r\nTI  - Title 1: full\r\nAU  - Export, Author\r\nPY  - 1999\r\n" +
			"SN  - 1234-5678\r\nPB  - Verlag\r\nCY  - Tübingen\r\nKW  - Ethik\r\nER  - \r\n"
		return transport.Response{StatusCode: 200, Body: []byte(body)}, nil
	})

	batch, err := NewAdapter(ixtheo(), tr, Options{Export: true}).Search(context.Background(), criteria.Criteria{Title: "x"})
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)

	r := batch.Records[0]
	assert.Equal(t, "Title 1", r.Title)
	assert.Equal(t, []string{"Author 1"}, r.Authors)
	assert.Equal(t, "2001", record.Value(r.Year))
	assert.Equal(t, "1234-5678", record.Value(r.ISSN))
	assert.Equal(t, "Verlag", record.Value(r.Publisher))
	assert.Equal(t, "Tübingen", record.Value(r.Place))
	assert.Equal(t, []string{"Ethik"}, r.Subjects)
	assert.Equal(t, "JOUR", r.Extra["ris:TY"])

	require.Len(t, batch.Warnings, 1)
	assert.Equal(t, 2, batch.Warnings[0].Index)
	assert.Equal(t, "id2", batch.Warnings[0].ID)
	assert.Contains(t, batch.Warnings[0].Reason, "export not used")

	require.Len(t, exports, 2)
	assert.Equal(t, "https://ixtheo.de/Record/id1/Export", exports[0].URL)
	assert.Equal(t, "RIS", exports[0].Params.Get("style"))
	assert.Equal(t, "XMLHttpRequest", exports[0].Headers["X-Requested-With"])
}

func TestBackfillKeepsListingValues(t *testing.T) {
	r := record.Record{Title: "Listing", Year: record.Some("2010"), URLs: []string{"https://ixtheo.de/Record/1"}}
	Backfill(&r, record.Record{
		Title:    "Export",
		Authors:  []string{"A"},
		Year:     record.Some("2011"),
		Language: record.Some("ger"),
		URLs:     []string{"https://ixtheo.de/Record/1", "https://doi.org/10.1/x"},
		Extra:    map[string]string{"ris:JO": "Journal"},
	})
	assert.Equal(t, "Listing", r.Title)
	assert.Equal(t, "2010", record.Value(r.Year))
	assert.Equal(t, []string{"A"}, r.Authors)
	assert.Equal(t, "ger", record.Value(r.Language))
	assert.Equal(t, []string{"https://ixtheo.de/Record/1", "https://doi.org/10.1/x"}, r.URLs)
	assert.Equal(t, "Journal", r.Extra["ris:JO"])
}
