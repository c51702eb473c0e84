// Package zotero reads Zotero libraries, either from the local zotero.sqlite
// database or through the Zotero web API, and maps Zotero items onto
// canonical records.
package zotero

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

const protocolName = "Zotero"

// Item types that map onto canonical records.
const (
	TypeBook            = "book"
	TypeJournalArticle  = "journalArticle"
	TypeBookSection     = "bookSection"
	TypeConferencePaper = "conferencePaper"
)

// SupportedTypes lists the item types searches return.
var SupportedTypes = []string{TypeBook, TypeJournalArticle, TypeBookSection, TypeConferencePaper}

// Creator is an entry of an item's creators array. Single-field creators
// (institutions) use Name.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// DisplayName renders the creator as "Last, First".
func (c Creator) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	last, first := strings.TrimSpace(c.LastName), strings.TrimSpace(c.FirstName)
	switch {
	case last == "":
		return first
	case first == "":
		return last
	}
	return last + ", " + first
}

// Tag is a Zotero tag.
type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// ItemData holds the item fields used by the mapping. Other fields of the
// item are kept in Other.
type ItemData struct {
	Key          string    `json:"key,omitempty"`
	ItemType     string    `json:"itemType"`
	Title        string    `json:"title"`
	Creators     []Creator `json:"creators"`
	Date         string    `json:"date,omitempty"`
	Publisher    string    `json:"publisher,omitempty"`
	Place        string    `json:"place,omitempty"`
	ISBN         string    `json:"ISBN,omitempty"`
	ISSN         string    `json:"ISSN,omitempty"`
	URL          string    `json:"url,omitempty"`
	AbstractNote string    `json:"abstractNote,omitempty"`
	Language     string    `json:"language,omitempty"`
	Tags         []Tag     `json:"tags"`

	Other map[string]string `json:"-"`
}

// mappedFields are the JSON names decoded into ItemData fields, plus the
// bookkeeping fields that are not bibliographic data.
var mappedFields = map[string]bool{
	"key": true, "itemType": true, "title": true, "creators": true, "date": true,
	"publisher": true, "place": true, "ISBN": true, "ISSN": true, "url": true,
	"abstractNote": true, "language": true, "tags": true,
	"version": true, "collections": true, "relations": true, "dateAdded": true,
	"dateModified": true, "accessDate": true, "notes": true,
}

// UnmarshalJSON decodes the known fields and keeps every other non-empty
// string field in Other.
func (d *ItemData) UnmarshalJSON(data []byte) error {
	type plain ItemData
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*d = ItemData(known)
	for name, raw := range all {
		if mappedFields[name] {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
			continue
		}
		if d.Other == nil {
			d.Other = make(map[string]string)
		}
		d.Other[name] = s
	}
	return nil
}

// Item is one element of a web API items response.
type Item struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    ItemData `json:"data"`
}

// Supported reports whether items of type t are returned by searches.
func Supported(t string) bool {
	return slices.Contains(SupportedTypes, t)
}

// ToRecord maps the item onto a canonical record. The item key becomes the
// raw identifier; the item type and unmapped fields go to Extra.
func (d ItemData) ToRecord() record.Record {
	r := record.Record{
		Title:         strings.TrimSpace(d.Title),
		Source:        record.ProtocolZotero,
		RawIdentifier: record.Some(d.Key),
		Publisher:     record.Some(d.Publisher),
		Place:         record.Some(d.Place),
		ISBN:          record.Some(d.ISBN),
		ISSN:          record.Some(d.ISSN),
		Language:      record.Some(d.Language),
		Abstract:      record.Some(d.AbstractNote),
	}
	for _, c := range d.Creators {
		r.AddAuthor(c.DisplayName())
	}
	if date := strings.TrimSpace(d.Date); date != "" {
		r.Year = record.Some(record.ExtractYear(date))
	}
	r.AddURL(d.URL)
	for _, t := range d.Tags {
		r.AddSubject(t.Tag)
	}
	r.SetExtra("zotero:itemType", d.ItemType)
	for name, v := range d.Other {
		r.SetExtra("zotero:"+name, v)
	}
	return r
}

// ParseItems reads a JSON array of items. Both the web API shape
// ({"key", "data": {...}}) and flat item objects are accepted. Items of
// unsupported types and items without a title are skipped with a warning.
func ParseItems(body []byte) (record.Batch, error) {
	var batch record.Batch

	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		return batch, liberrors.NewMalformedResponseError(protocolName, err)
	}
	for i, msg := range raw {
		index := i + 1
		data, err := decodeItem(msg)
		if err != nil {
			batch.Warn(index, "", err.Error())
			continue
		}
		if !Supported(data.ItemType) {
			batch.Warn(index, data.Key, fmt.Sprintf("unsupported item type %q", data.ItemType))
			continue
		}
		batch.Add(index, data.Key, data.ToRecord())
	}
	return batch, nil
}

func decodeItem(msg json.RawMessage) (ItemData, error) {
	var wrapped struct {
		Key  string          `json:"key"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &wrapped); err != nil {
		return ItemData{}, fmt.Errorf("invalid item: %w", err)
	}
	payload := msg
	if len(wrapped.Data) > 0 {
		payload = wrapped.Data
	}
	var data ItemData
	if err := json.Unmarshal(payload, &data); err != nil {
		return ItemData{}, fmt.Errorf("invalid item data: %w", err)
	}
	if data.Key == "" {
		data.Key = wrapped.Key
	}
	if data.ItemType == "" {
		return ItemData{}, errors.New("item has no itemType")
	}
	return data, nil
}
