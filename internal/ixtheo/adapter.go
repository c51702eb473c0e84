package ixtheo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

// maxPages bounds an uncapped search.
const maxPages = 50

// Options controls optional adapter behaviour.
type Options struct {
	// Export fetches the RIS export of every result to backfill fields.
	Export bool
	// ExportTransport executes export requests. Nil uses the search
	// transport; a browser transport cannot return plain RIS text.
	ExportTransport transport.Transport
}

// Adapter searches IxTheo.
type Adapter struct {
	endpoint  catalog.Descriptor
	transport transport.Transport
	opts      Options
}

func NewAdapter(d catalog.Descriptor, t transport.Transport, opts Options) *Adapter {
	return &Adapter{endpoint: d, transport: t, opts: opts}
}

func (a *Adapter) Endpoint() catalog.Descriptor { return a.endpoint }

// SearchPage fetches and parses one result page.
func (a *Adapter) SearchPage(ctx context.Context, c criteria.Criteria, page int) (Page, error) {
	req, err := BuildRequest(c, a.endpoint, page)
	if err != nil {
		return Page{}, err
	}
	resp, err := a.transport.Execute(ctx, req)
	if err != nil {
		return Page{}, err
	}
	return ParsePage(resp.Body, a.endpoint.BaseURL)
}

// Search walks result pages until MaxRecords results are collected, the
// reported total is reached, or a page comes back short. StartRecord skips
// into the list. On error the results of earlier pages are returned with it.
func (a *Adapter) Search(ctx context.Context, c criteria.Criteria) (record.Batch, error) {
	var all record.Batch
	if _, err := BuildRequest(c, a.endpoint, 1); err != nil {
		return all, err
	}

	offset := c.Start() - 1
	page := offset/PageSize + 1
	skip := offset % PageSize
	want := c.MaxRecords

	for n := 0; n < maxPages; n, page = n+1, page+1 {
		p, err := a.SearchPage(ctx, c, page)
		if err != nil {
			return all, err
		}
		recs := p.Batch.Records
		if skip > 0 {
			recs = recs[min(skip, len(recs)):]
			skip = 0
		}
		all.Records = append(all.Records, recs...)
		all.Warnings = append(all.Warnings, p.Batch.Warnings...)

		slog.Debug("IxTheo page", "page", page, "results", len(p.Batch.Records), "total", p.Total)

		// A short page is the last one.
		if len(p.Batch.Records)+len(p.Batch.Warnings) < PageSize {
			break
		}
		if want > 0 && len(all.Records) >= want {
			break
		}
		if p.Total > 0 && page*PageSize >= p.Total {
			break
		}
	}
	if want > 0 && len(all.Records) > want {
		all.Records = all.Records[:want]
	}

	if a.opts.Export {
		a.backfill(ctx, &all)
	}
	return all, nil
}

// backfill enriches every record from its RIS export. Export failures are
// recorded as warnings; the listing data is kept.
func (a *Adapter) backfill(ctx context.Context, batch *record.Batch) {
	for i := range batch.Records {
		r := &batch.Records[i]
		id := record.Value(r.RawIdentifier)
		if id == "" {
			continue
		}
		exported, err := a.Export(ctx, id)
		if err != nil {
			batch.Warn(i+1, id, fmt.Sprintf("export not used: %v", err))
			continue
		}
		Backfill(r, exported)
	}
}

// Export fetches and parses the RIS export of one record.
func (a *Adapter) Export(ctx context.Context, id string) (record.Record, error) {
	t := a.opts.ExportTransport
	if t == nil {
		t = a.transport
	}
	resp, err := t.Execute(ctx, ExportRequest(a.endpoint, id))
	if err != nil {
		return record.Record{}, err
	}
	return ParseExport(resp.Body)
}
