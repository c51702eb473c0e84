// Package ixtheo searches the Index Theologicus, a VuFind catalog without a
// machine search API. Result pages are scraped; per-record RIS exports fill
// in what the listing omits.
package ixtheo

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/transport"
)

const (
	protocolName = "IxTheo"
	searchPath   = "/Search/Results"
	// PageSize is the number of results requested per page.
	PageSize    = 20
	defaultSort = "relevance, year desc"
)

// searchTypes maps criteria fields to VuFind search types. Year has no
// search type; it can only be narrowed with a facet filter.
var searchTypes = map[criteria.Field]string{
	criteria.FieldTitle:    "Title",
	criteria.FieldAuthor:   "Author",
	criteria.FieldSubject:  "Subject",
	criteria.FieldISBN:     "ISN",
	criteria.FieldISSN:     "ISN",
	criteria.FieldFreeText: "AllFields",
}

func baseURL(d catalog.Descriptor) string {
	return strings.TrimRight(d.BaseURL, "/")
}

// BuildRequest builds the search request for one result page. Pages are
// 1-based. A single field uses the basic search form; several fields use
// the advanced form joined with AND.
func BuildRequest(c criteria.Criteria, d catalog.Descriptor, page int) (transport.Request, error) {
	if err := c.Validate(); err != nil {
		return transport.Request{}, err
	}
	fields := c.SetFields()
	for _, f := range fields {
		if _, ok := searchTypes[f]; !ok {
			return transport.Request{}, liberrors.NewUnsupportedFieldError(protocolName, d.Name, string(f))
		}
	}

	params := url.Values{}
	if len(fields) == 1 {
		params.Set("lookfor", c.Get(fields[0]))
		params.Set("type", searchTypes[fields[0]])
	} else {
		params.Set("join", "AND")
		for _, f := range fields {
			params.Add("lookfor0[]", c.Get(f))
			params.Add("type0[]", searchTypes[f])
		}
		params.Set("bool0[]", "AND")
	}
	params.Set("limit", strconv.Itoa(PageSize))
	params.Set("sort", defaultSort)
	params.Set("botprotect", "")

	if v := strings.TrimSpace(c.FormatFilter); v != "" {
		params.Add("filter[]", fmt.Sprintf("format:%q", v))
	}
	if v := strings.TrimSpace(c.LanguageFilter); v != "" {
		params.Add("filter[]", fmt.Sprintf("language:%q", v))
	}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}

	return transport.Request{
		URL:     baseURL(d) + searchPath,
		Params:  params,
		Headers: map[string]string{"Accept": "text/html,application/xhtml+xml"},
	}, nil
}

// RecordURL returns the public page of a record.
func RecordURL(d catalog.Descriptor, id string) string {
	return recordURL(baseURL(d), id)
}

func recordURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/Record/" + url.PathEscape(id)
}

// ExportRequest builds the request for a record's RIS export.
func ExportRequest(d catalog.Descriptor, id string) transport.Request {
	return transport.Request{
		URL:    RecordURL(d, id) + "/Export",
		Params: url.Values{"style": {"RIS"}},
		Headers: map[string]string{
			"Accept":           "text/plain, */*; q=0.01",
			"Referer":          RecordURL(d, id),
			"X-Requested-With": "XMLHttpRequest",
		},
	}
}
