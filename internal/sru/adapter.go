package sru

import (
	"context"
	"log/slog"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

// maxPages bounds how many pages one search follows.
const maxPages = 50

// Adapter searches one SRU endpoint.
type Adapter struct {
	endpoint  catalog.Descriptor
	transport transport.Transport
}

// NewAdapter creates an adapter for endpoint d.
func NewAdapter(d catalog.Descriptor, t transport.Transport) *Adapter {
	return &Adapter{endpoint: d, transport: t}
}

// Endpoint returns the descriptor the adapter searches.
func (a *Adapter) Endpoint() catalog.Descriptor { return a.endpoint }

// SearchPage runs a single searchRetrieve request.
func (a *Adapter) SearchPage(ctx context.Context, c criteria.Criteria) (Result, error) {
	req, err := BuildRequest(c, a.endpoint)
	if err != nil {
		return Result{}, err
	}
	resp, err := a.transport.Execute(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return ParseResponse(resp.Body)
}

// Search returns up to MaxRecords records (one default-sized page when no
// cap is set), following nextRecordPosition while the server reports more.
// On failure the records of earlier pages are returned with the error.
func (a *Adapter) Search(ctx context.Context, c criteria.Criteria) (record.Batch, error) {
	query, err := BuildQuery(c, a.endpoint)
	if err != nil {
		return record.Batch{}, err
	}

	var batch record.Batch
	want := pageSize(c)
	start := c.Start()
	for page := 0; page < maxPages; page++ {
		req := pageRequest(c, a.endpoint, query, start, want-batch.Len())
		resp, err := a.transport.Execute(ctx, req)
		if err != nil {
			return batch, err
		}
		res, err := ParseResponse(resp.Body)
		batch.Merge(res.Batch)
		if err != nil {
			return batch, err
		}

		slog.Debug("SRU page", "endpoint", a.endpoint.Name, "start", start, "records", res.Batch.Len(), "total", res.NumberOfRecords)

		if batch.Len() >= want || res.NextRecordPosition <= start || res.Batch.Len()+len(res.Batch.Warnings) == 0 {
			break
		}
		start = res.NextRecordPosition
	}

	if len(batch.Records) > want {
		batch.Records = batch.Records[:want]
	}
	return batch, nil
}
