package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lepinkainen/libsearch/internal/marcxml"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/ris"
	"github.com/lepinkainen/libsearch/internal/zotero"
)

// RIS renders records as RIS with CRLF line endings.
type RIS struct{}

func (RIS) Name() string      { return "ris" }
func (RIS) Extension() string { return "ris" }

func (RIS) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	return ris.Write(records), nil
}

// MARC renders records as a MARCXML collection.
type MARC struct{}

func (MARC) Name() string      { return "marc" }
func (MARC) Extension() string { return "xml" }

func (MARC) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	return marcxml.Write(records)
}

// Zotero renders records as a JSON array of Zotero item objects, ready for
// the Zotero import API.
type Zotero struct{}

func (Zotero) Name() string      { return "zotero" }
func (Zotero) Extension() string { return "json" }

type zoteroItem struct {
	zotero.ItemData
	Notes []string `json:"notes"`
}

var zoteroTypes = map[kind]string{
	kindBook:       zotero.TypeBook,
	kindArticle:    zotero.TypeJournalArticle,
	kindSection:    zotero.TypeBookSection,
	kindConference: zotero.TypeConferencePaper,
}

func (Zotero) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	items := make([]zoteroItem, 0, len(records))
	for _, r := range records {
		items = append(items, toZoteroItem(r))
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode Zotero items: %w", err)
	}
	return append(data, '\n'), nil
}

func toZoteroItem(r record.Record) zoteroItem {
	d := zotero.ItemData{
		ItemType:     zoteroTypes[kindOf(r)],
		Title:        r.Title,
		Creators:     make([]zotero.Creator, 0, len(r.Authors)),
		Date:         record.Value(r.Year),
		Publisher:    record.Value(r.Publisher),
		Place:        record.Value(r.Place),
		ISBN:         record.Value(r.ISBN),
		ISSN:         record.Value(r.ISSN),
		Language:     record.Value(r.Language),
		AbstractNote: record.Value(r.Abstract),
		Tags:         make([]zotero.Tag, 0, len(r.Subjects)),
	}
	if r.Source == record.ProtocolZotero {
		d.Key = record.Value(r.RawIdentifier)
	}
	for _, a := range r.Authors {
		d.Creators = append(d.Creators, splitCreator(a))
	}
	if len(r.URLs) > 0 {
		d.URL = r.URLs[0]
	}
	for _, s := range r.Subjects {
		d.Tags = append(d.Tags, zotero.Tag{Tag: s})
	}
	return zoteroItem{ItemData: d, Notes: []string{}}
}

// splitCreator splits "Last, First" on the comma and "First Last" on the
// last space. A single word becomes the last name.
func splitCreator(name string) zotero.Creator {
	c := zotero.Creator{CreatorType: "author"}
	if last, first, ok := strings.Cut(name, ","); ok {
		c.LastName = strings.TrimSpace(last)
		c.FirstName = strings.TrimSpace(first)
		return c
	}
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, " "); i > 0 {
		c.FirstName = strings.TrimSpace(name[:i])
		c.LastName = name[i+1:]
		return c
	}
	c.LastName = name
	return c
}
