// Package dublincore maps simple Dublin Core records (oai_dc, srw_dc) onto
// canonical records.
package dublincore

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Element is one child element of a dc record, in document order.
type Element struct {
	Name  string
	Value string
}

// Record is a decoded dc container element.
type Record struct {
	Elements []Element
}

// UnmarshalXML collects every child element with its text content.
func (d *Record) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var text struct {
				Value string `xml:",chardata"`
			}
			if err := dec.DecodeElement(&text, &t); err != nil {
				return err
			}
			d.Elements = append(d.Elements, Element{Name: t.Name.Local, Value: strings.TrimSpace(text.Value)})
		case xml.EndElement:
			return nil
		}
	}
}

var (
	issnPattern    = regexp.MustCompile(`^\d{4}-?\d{3}[\dXx]$`)
	isbnPrefix     = regexp.MustCompile(`(?i)^(urn:isbn:|isbn[:\s]*)`)
	issnPrefix     = regexp.MustCompile(`(?i)^(urn:issn:|issn[:\s]*)`)
	isbnCharsStrip = strings.NewReplacer("-", "", " ", "")
)

type identifierKind int

const (
	identifierOther identifierKind = iota
	identifierURL
	identifierISBN
	identifierISSN
)

// classifyIdentifier decides what a dc:identifier value is. The returned
// value has any ISBN/ISSN prefix removed.
func classifyIdentifier(v string) (identifierKind, string) {
	lower := strings.ToLower(v)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return identifierURL, v
	}
	if s := strings.TrimSpace(issnPrefix.ReplaceAllString(v, "")); issnPattern.MatchString(s) {
		return identifierISSN, s
	}
	s := strings.TrimSpace(isbnPrefix.ReplaceAllString(v, ""))
	if isISBN(isbnCharsStrip.Replace(s)) {
		return identifierISBN, s
	}
	return identifierOther, v
}

func isISBN(s string) bool {
	switch len(s) {
	case 13:
		for _, c := range s {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	case 10:
		for i, c := range s {
			if c >= '0' && c <= '9' {
				continue
			}
			if i == 9 && (c == 'X' || c == 'x') {
				continue
			}
			return false
		}
		return true
	}
	return false
}

// ToRecord maps the dc elements onto a canonical record. Only the first
// title, date, publisher, language and description are mapped; repeats and
// unmapped elements are kept in Extra under "dc:<name>".
func (d Record) ToRecord(source record.Protocol) record.Record {
	r := record.Record{Source: source}
	extra := func(name, v string) { r.SetExtra("dc:"+name, v) }

	for _, el := range d.Elements {
		v := el.Value
		if v == "" {
			continue
		}
		switch el.Name {
		case "title":
			if r.Title == "" {
				r.Title = v
			} else {
				extra(el.Name, v)
			}
		case "creator":
			r.AddAuthor(v)
		case "date":
			if r.Year == nil {
				r.Year = record.Some(record.ExtractYear(v))
			} else {
				extra(el.Name, v)
			}
		case "subject":
			r.AddSubject(v)
		case "description":
			if r.Abstract == nil {
				r.Abstract = record.Some(v)
			} else {
				extra(el.Name, v)
			}
		case "publisher":
			if r.Publisher == nil {
				r.Publisher = record.Some(v)
			} else {
				extra(el.Name, v)
			}
		case "language":
			if r.Language == nil {
				r.Language = record.Some(v)
			} else {
				extra(el.Name, v)
			}
		case "identifier":
			kind, value := classifyIdentifier(v)
			switch {
			case kind == identifierURL:
				r.AddURL(value)
			case kind == identifierISBN && r.ISBN == nil:
				r.ISBN = record.Some(value)
			case kind == identifierISSN && r.ISSN == nil:
				r.ISSN = record.Some(value)
			default:
				extra(el.Name, v)
			}
		default:
			extra(el.Name, v)
		}
	}
	return r
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// ParseRecord decodes the first dc element in data.
func ParseRecord(data []byte, source record.Protocol) (record.Record, error) {
	dec := newDecoder(data)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return record.Record{}, errors.New("no Dublin Core record element")
		}
		if err != nil {
			return record.Record{}, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "dc" {
			continue
		}
		var raw Record
		if err := dec.DecodeElement(&raw, &se); err != nil {
			return record.Record{}, err
		}
		r := raw.ToRecord(source)
		return r, r.Validate()
	}
}

// Parse reads every dc element in a document. Records without a title are
// skipped with a warning.
func Parse(data []byte, source record.Protocol) (record.Batch, error) {
	var batch record.Batch

	dec := newDecoder(data)
	sawElement := false
	index := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return batch, liberrors.NewMalformedResponseError("Dublin Core", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true
		if se.Name.Local != "dc" {
			continue
		}
		var raw Record
		if err := dec.DecodeElement(&raw, &se); err != nil {
			return batch, liberrors.NewMalformedResponseError("Dublin Core", err)
		}
		index++
		batch.Add(index, "", raw.ToRecord(source))
	}

	if !sawElement {
		return batch, liberrors.NewMalformedResponseError("Dublin Core", errors.New("document has no elements"))
	}
	return batch, nil
}
