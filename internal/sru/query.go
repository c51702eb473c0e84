// Package sru implements search over SRU (Search/Retrieve via URL) endpoints.
package sru

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

const (
	defaultVersion  = "1.1"
	defaultPageSize = 10
	operationSearch = "searchRetrieve"
	protocolName    = string(record.ProtocolSRU)
	symbolRelations = "=<>"
)

// QuoteTerm quotes a CQL search term, escaping backslashes and quotes.
func QuoteTerm(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// clause renders one index/relation/term triple. Symbolic relations are
// written without spaces (title="x"), named ones with (bib.title any "x").
func clause(idx catalog.Index, value string) string {
	rel := idx.Rel()
	if strings.Trim(rel, symbolRelations) == "" {
		return idx.Name + rel + QuoteTerm(value)
	}
	return idx.Name + " " + rel + " " + QuoteTerm(value)
}

// BuildQuery composes the CQL query for c, ANDing one clause per field.
func BuildQuery(c criteria.Criteria, d catalog.Descriptor) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var clauses []string
	for _, f := range c.SetFields() {
		idx, ok := d.IndexFor(f)
		if !ok {
			return "", liberrors.NewUnsupportedFieldError(protocolName, d.Name, string(f))
		}
		clauses = append(clauses, clause(idx, c.Get(f)))
	}
	return strings.Join(clauses, " and "), nil
}

// BuildRequest builds a searchRetrieve request for c against d.
func BuildRequest(c criteria.Criteria, d catalog.Descriptor) (transport.Request, error) {
	query, err := BuildQuery(c, d)
	if err != nil {
		return transport.Request{}, err
	}
	return pageRequest(c, d, query, c.Start(), pageSize(c)), nil
}

func pageRequest(c criteria.Criteria, d catalog.Descriptor, query string, start, size int) transport.Request {
	version := d.Version
	if version == "" {
		version = defaultVersion
	}

	params := url.Values{}
	params.Set("operation", operationSearch)
	params.Set("version", version)
	params.Set("query", query)
	params.Set("startRecord", strconv.Itoa(start))
	params.Set("maximumRecords", strconv.Itoa(size))

	schema := c.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}
	if schema != "" {
		params.Set("recordSchema", schema)
	}

	return transport.Request{URL: d.BaseURL, Params: params}
}

func pageSize(c criteria.Criteria) int {
	if c.MaxRecords > 0 {
		return c.MaxRecords
	}
	return defaultPageSize
}
