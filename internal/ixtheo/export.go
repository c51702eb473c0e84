package ixtheo

import (
	"errors"
	"maps"
	"slices"

	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/ris"
)

// ParseExport reads the RIS export block of one record.
func ParseExport(body []byte) (record.Record, error) {
	batch, err := ris.Parse(body, record.ProtocolIxTheo)
	if err != nil {
		return record.Record{}, err
	}
	if len(batch.Records) == 0 {
		return record.Record{}, errors.New("export has no usable record")
	}
	return batch.Records[0], nil
}

// Backfill copies the fields the result listing lacks from an exported
// record. Values already taken from the listing are kept.
func Backfill(r *record.Record, export record.Record) {
	if len(r.Authors) == 0 {
		r.Authors = slices.Clone(export.Authors)
	}
	if len(r.Subjects) == 0 {
		r.Subjects = slices.Clone(export.Subjects)
	}
	for _, f := range []struct{ dst, src **string }{
		{&r.Year, &export.Year},
		{&r.Publisher, &export.Publisher},
		{&r.Place, &export.Place},
		{&r.ISBN, &export.ISBN},
		{&r.ISSN, &export.ISSN},
		{&r.Language, &export.Language},
		{&r.Abstract, &export.Abstract},
	} {
		record.SetIfEmpty(f.dst, record.Value(*f.src))
	}
	for _, u := range export.URLs {
		if !slices.Contains(r.URLs, u) {
			r.AddURL(u)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(export.Extra)) {
		if _, ok := r.Extra[k]; !ok {
			r.SetExtra(k, export.Extra[k])
		}
	}
}
