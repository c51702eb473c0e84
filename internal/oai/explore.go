package oai

import (
	"context"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

// Explorer issues the single-shot descriptive verbs. None of them harvest.
type Explorer struct {
	endpoint  catalog.Descriptor
	transport transport.Transport
}

func NewExplorer(d catalog.Descriptor, t transport.Transport) *Explorer {
	return &Explorer{endpoint: d, transport: t}
}

func (e *Explorer) fetch(ctx context.Context, req transport.Request) ([]byte, error) {
	resp, err := e.transport.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Identify describes the repository.
func (e *Explorer) Identify(ctx context.Context) (Identity, error) {
	body, err := e.fetch(ctx, IdentifyRequest(e.endpoint))
	if err != nil {
		return Identity{}, err
	}
	return ParseIdentify(body)
}

// ListSets returns the first page of the repository's sets.
func (e *Explorer) ListSets(ctx context.Context) ([]Set, error) {
	body, err := e.fetch(ctx, ListSetsRequest(e.endpoint))
	if err != nil {
		return nil, err
	}
	return ParseListSets(body)
}

// ListMetadataFormats returns the metadata formats the repository serves.
func (e *Explorer) ListMetadataFormats(ctx context.Context) ([]MetadataFormat, error) {
	body, err := e.fetch(ctx, ListMetadataFormatsRequest(e.endpoint))
	if err != nil {
		return nil, err
	}
	return ParseListMetadataFormats(body)
}

// ListIdentifiers returns the first page of headers matching c and the
// resumption token for the next page, if any.
func (e *Explorer) ListIdentifiers(ctx context.Context, c criteria.Criteria) ([]Header, string, error) {
	req, err := ListIdentifiersRequest(c, e.endpoint)
	if err != nil {
		return nil, "", err
	}
	body, err := e.fetch(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return ParseListIdentifiers(body)
}

// GetRecord fetches one record by identifier. An empty prefix uses the
// endpoint default.
func (e *Explorer) GetRecord(ctx context.Context, identifier, prefix string) (record.Batch, error) {
	body, err := e.fetch(ctx, GetRecordRequest(e.endpoint, identifier, prefix))
	if err != nil {
		return record.Batch{}, err
	}
	return ParseGetRecord(body)
}

// KnownSets returns the sets the catalog lists for the endpoint, for
// repositories that are slow to answer ListSets.
func (e *Explorer) KnownSets() []Set {
	var sets []Set
	for _, spec := range sortedKeys(e.endpoint.Sets) {
		sets = append(sets, Set{Spec: spec, Name: e.endpoint.Sets[spec]})
	}
	return sets
}
