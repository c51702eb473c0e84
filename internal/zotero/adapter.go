package zotero

import (
	"context"

	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Adapter searches a Zotero library through the local store when one is
// open, otherwise through the web API.
type Adapter struct {
	local *LocalStore
	web   WebAPI
}

// NewLocalAdapter searches the local database.
func NewLocalAdapter(store *LocalStore) *Adapter {
	return &Adapter{local: store}
}

// NewWebAdapter searches through the web API.
func NewWebAdapter(api WebAPI) *Adapter {
	return &Adapter{web: api}
}

// Search returns the library items matching c, at most c.MaxRecords.
func (a *Adapter) Search(ctx context.Context, c criteria.Criteria) (record.Batch, error) {
	if err := c.Validate(); err != nil {
		return record.Batch{}, err
	}

	var (
		batch record.Batch
		err   error
	)
	switch {
	case a.local != nil:
		var rows []Row
		rows, err = a.local.Query(ctx, c)
		batch = ParseRows(rows)
	case a.web != nil:
		var body []byte
		body, err = a.web.Items(ctx, c)
		if err == nil {
			batch, err = ParseItems(body)
		}
	default:
		err = liberrors.NewBackendUnavailableError("zotero", "neither a local database nor the web API is configured")
	}
	if err != nil {
		return batch, err
	}

	if c.MaxRecords > 0 && len(batch.Records) > c.MaxRecords {
		batch.Records = batch.Records[:c.MaxRecords]
	}
	return batch, nil
}
