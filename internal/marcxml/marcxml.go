// Package marcxml reads and writes MARC 21 records in MARCXML form.
//
// Parsing and writing share one tag table (tags.go), so a record written by
// Write parses back to the same canonical values.
package marcxml

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

// Namespace is the MARC21 slim namespace.
const Namespace = "http://www.loc.gov/MARC21/slim"

// Record is one MARCXML record element. Element names are matched without
// regard to namespace, so marcxchange records decode as well.
type Record struct {
	XMLName       xml.Name       `xml:"record"`
	Leader        string         `xml:"leader,omitempty"`
	ControlFields []ControlField `xml:"controlfield"`
	DataFields    []DataField    `xml:"datafield"`
}

type ControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type DataField struct {
	Tag       string     `xml:"tag,attr"`
	Ind1      string     `xml:"ind1,attr"`
	Ind2      string     `xml:"ind2,attr"`
	Subfields []Subfield `xml:"subfield"`
}

type Subfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// First returns the first value of subfield code, or "".
func (d DataField) First(code string) string {
	for _, sf := range d.Subfields {
		if sf.Code == code {
			return sf.Value
		}
	}
	return ""
}

// ControlNumber returns the 001 value, or "".
func (m Record) ControlNumber() string {
	for _, cf := range m.ControlFields {
		if cf.Tag == tagControlNumber {
			return strings.TrimSpace(cf.Value)
		}
	}
	return ""
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

// Parse reads every record element in a MARCXML document (a collection or a
// bare record). Records without a title are skipped with a warning; only a
// document that is not well-formed XML fails as a whole.
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
			return batch, liberrors.NewMalformedResponseError("MARCXML", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true
		if se.Name.Local != "record" {
			continue
		}

		var raw Record
		if err := dec.DecodeElement(&raw, &se); err != nil {
			return batch, liberrors.NewMalformedResponseError("MARCXML", err)
		}
		index++
		batch.Add(index, raw.ControlNumber(), raw.ToRecord(source))
	}

	if !sawElement {
		return batch, liberrors.NewMalformedResponseError("MARCXML", errors.New("document has no elements"))
	}
	return batch, nil
}

// ParseRecord decodes the first record element in data and maps it.
func ParseRecord(data []byte, source record.Protocol) (record.Record, error) {
	dec := newDecoder(data)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return record.Record{}, errors.New("no MARC record element")
		}
		if err != nil {
			return record.Record{}, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "record" {
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

var isbnPattern = regexp.MustCompile(`\d[\d\-Xx]+`)

func trimPunct(s string) string {
	return strings.Trim(strings.TrimSpace(s), " /:;,=.[]")
}

func trimTitle(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " /:;,=")
}

// ToRecord maps the MARC fields onto a canonical record.
func (m Record) ToRecord(source record.Protocol) record.Record {
	r := record.Record{Source: source}

	if m.Leader != "" {
		setRawExtra(&r, extraLeader, m.Leader)
	}

	var fixed string
	for _, cf := range m.ControlFields {
		if cf.Tag == tagControlNumber {
			r.RawIdentifier = record.Some(cf.Value)
			continue
		}
		if cf.Tag == tagFixedData && fixed == "" {
			fixed = cf.Value
		}
		setRawExtra(&r, cf.Tag, cf.Value)
	}

	for _, df := range m.DataFields {
		mp, mapped := lookup(df.Tag)
		for _, sf := range df.Subfields {
			if !mapped || !mp.consumes(sf.Code) {
				r.SetExtra(df.Tag+"$"+sf.Code, sf.Value)
			}
		}
		if mapped && apply(&r, mp, df) {
			r.SetExtra(extraFields, layoutEntry(df))
		}
	}

	if r.Language == nil && len(fixed) >= 38 {
		if lang := strings.TrimSpace(fixed[35:38]); lang != "" && !strings.Contains(lang, "|") {
			r.Language = record.Some(lang)
		}
	}
	if r.Year == nil && len(fixed) >= 11 {
		r.Year = record.Some(record.FindYear(fixed[7:11]))
	}
	return r
}

// apply maps one datafield and reports whether it fed a canonical attribute.
// Consumed values that find their attribute already taken go to Extra under
// their own tag and code.
func apply(r *record.Record, mp mapping, df DataField) bool {
	switch mp.Target {
	case targetTitle:
		if r.Title != "" {
			keepInExtra(r, df, "ab")
			return false
		}
		title := trimTitle(df.First("a"))
		if sub := trimTitle(df.First("b")); sub != "" {
			title += ": " + sub
		}
		r.Title = strings.TrimSpace(title)
		return r.Title != ""
	case targetAuthor:
		n := len(r.Authors)
		r.AddAuthor(strings.TrimRight(strings.TrimSpace(df.First("a")), " ,"))
		return len(r.Authors) > n
	case targetPublication:
		used := false
		for _, sf := range df.Subfields {
			var ok bool
			switch sf.Code {
			case "a":
				ok = claim(&r.Place, trimPunct(sf.Value))
			case "b":
				ok = claim(&r.Publisher, trimPunct(sf.Value))
			case "c":
				ok = claim(&r.Year, record.ExtractYear(sf.Value))
			default:
				continue
			}
			if ok {
				used = true
			} else {
				r.SetExtra(df.Tag+"$"+sf.Code, sf.Value)
			}
		}
		return used
	case targetISBN:
		return claimEach(r, df, &r.ISBN, func(v string) string { return isbnPattern.FindString(v) })
	case targetISSN:
		return claimEach(r, df, &r.ISSN, strings.TrimSpace)
	case targetLanguage:
		return claimEach(r, df, &r.Language, strings.TrimSpace)
	case targetAbstract:
		return claimEach(r, df, &r.Abstract, strings.TrimSpace)
	case targetSubject:
		var parts []string
		for _, sf := range df.Subfields {
			if mp.consumes(sf.Code) {
				if v := strings.TrimRight(strings.TrimSpace(sf.Value), " ."); v != "" {
					parts = append(parts, v)
				}
			}
		}
		n := len(r.Subjects)
		r.AddSubject(strings.Join(parts, subjectSeparator))
		return len(r.Subjects) > n
	case targetURL:
		n := len(r.URLs)
		for _, sf := range df.Subfields {
			if sf.Code == "u" {
				r.AddURL(sf.Value)
			}
		}
		return len(r.URLs) > n
	}
	return false
}

// claim sets an unset attribute to a non-blank value.
func claim(field **string, v string) bool {
	if *field != nil || strings.TrimSpace(v) == "" {
		return false
	}
	*field = record.Some(v)
	return true
}

// claimEach feeds the $a values of df to a single-valued attribute. The
// first usable value wins; the others are kept verbatim in Extra.
func claimEach(r *record.Record, df DataField, field **string, norm func(string) string) bool {
	used := false
	for _, sf := range df.Subfields {
		if sf.Code != "a" {
			continue
		}
		if claim(field, norm(sf.Value)) {
			used = true
			continue
		}
		r.SetExtra(df.Tag+"$a", sf.Value)
	}
	return used
}

func keepInExtra(r *record.Record, df DataField, codes string) {
	for _, sf := range df.Subfields {
		if sf.Code != "" && strings.Contains(codes, sf.Code) {
			r.SetExtra(df.Tag+"$"+sf.Code, sf.Value)
		}
	}
}

// layoutEntry records the tag and indicators of a mapped field as "tag/12",
// with "#" standing for a blank indicator.
func layoutEntry(df DataField) string {
	return df.Tag + "/" + indicator(df.Ind1) + indicator(df.Ind2)
}

func indicator(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "#"
	}
	return s[:1]
}

// setRawExtra stores positional values (leader, 008) without trimming.
func setRawExtra(r *record.Record, key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	if prev, ok := r.Extra[key]; ok {
		r.Extra[key] = prev + record.ExtraSeparator + value
		return
	}
	r.Extra[key] = value
}
