// Package oai harvests records from OAI-PMH repositories.
package oai

import (
	"net/url"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

// OAI-PMH verbs.
const (
	VerbIdentify            = "Identify"
	VerbListRecords         = "ListRecords"
	VerbListIdentifiers     = "ListIdentifiers"
	VerbListSets            = "ListSets"
	VerbListMetadataFormats = "ListMetadataFormats"
	VerbGetRecord           = "GetRecord"
)

// DefaultMetadataPrefix is used when neither the criteria nor the endpoint
// name one. Every repository must support it.
const DefaultMetadataPrefix = "oai_dc"

const protocolName = "OAI-PMH"

const source = record.ProtocolOAI

func metadataPrefix(c criteria.Criteria, d catalog.Descriptor) string {
	if c.MetadataPrefix != "" {
		return c.MetadataPrefix
	}
	if d.DefaultMetadataPrefix != "" {
		return d.DefaultMetadataPrefix
	}
	return DefaultMetadataPrefix
}

func request(d catalog.Descriptor, params url.Values) transport.Request {
	return transport.Request{URL: d.BaseURL, Params: params}
}

// selectiveRequest builds the first request of a list verb. Search fields
// are not sent: OAI-PMH selects only by set and date range.
func selectiveRequest(verb string, c criteria.Criteria, d catalog.Descriptor) (transport.Request, error) {
	if err := c.ValidateHarvest(); err != nil {
		return transport.Request{}, err
	}
	params := url.Values{}
	params.Set("verb", verb)
	params.Set("metadataPrefix", metadataPrefix(c, d))
	if c.Set != "" {
		params.Set("set", c.Set)
	}
	if c.From != "" {
		params.Set("from", c.From)
	}
	if c.Until != "" {
		params.Set("until", c.Until)
	}
	return request(d, params), nil
}

// ListRecordsRequest builds the initial ListRecords request.
func ListRecordsRequest(c criteria.Criteria, d catalog.Descriptor) (transport.Request, error) {
	return selectiveRequest(VerbListRecords, c, d)
}

// ListIdentifiersRequest builds the initial ListIdentifiers request.
func ListIdentifiersRequest(c criteria.Criteria, d catalog.Descriptor) (transport.Request, error) {
	return selectiveRequest(VerbListIdentifiers, c, d)
}

// ResumeRequest continues a list. Once a token is issued the repository
// accepts only the verb and the token, so nothing else can be passed here.
func ResumeRequest(d catalog.Descriptor, verb, token string) transport.Request {
	params := url.Values{}
	params.Set("verb", verb)
	params.Set("resumptionToken", token)
	return request(d, params)
}

func ListSetsRequest(d catalog.Descriptor) transport.Request {
	return request(d, url.Values{"verb": {VerbListSets}})
}

func ListMetadataFormatsRequest(d catalog.Descriptor) transport.Request {
	return request(d, url.Values{"verb": {VerbListMetadataFormats}})
}

func IdentifyRequest(d catalog.Descriptor) transport.Request {
	return request(d, url.Values{"verb": {VerbIdentify}})
}

// GetRecordRequest fetches a single record by its OAI identifier.
func GetRecordRequest(d catalog.Descriptor, identifier, prefix string) transport.Request {
	if prefix == "" {
		prefix = metadataPrefix(criteria.Criteria{}, d)
	}
	return request(d, url.Values{
		"verb":           {VerbGetRecord},
		"identifier":     {identifier},
		"metadataPrefix": {prefix},
	})
}
