package marcxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/lepinkainen/libsearch/internal/record"
)

// defaultLeader is used for records that did not come from a MARC source:
// new record, language material, monograph, Unicode.
const defaultLeader = "00000nam a2200000 u 4500"

type collection struct {
	XMLName xml.Name `xml:"collection"`
	Xmlns   string   `xml:"xmlns,attr"`
	Records []Record `xml:"record"`
}

// Write renders records as a MARCXML collection.
func Write(records []record.Record) ([]byte, error) {
	c := collection{Xmlns: Namespace, Records: make([]Record, 0, len(records))}
	for _, r := range records {
		c.Records = append(c.Records, FromRecord(r))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode MARCXML: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// FromRecord maps a canonical record back onto MARC fields. Records that
// came from a MARC source (their Extra carries a leader) get their mapped
// fields written under the source tags and indicators, and their unmapped
// control and data fields restored from Extra.
func FromRecord(r record.Record) Record {
	leader, fromMARC := r.Extra[extraLeader]
	if !fromMARC {
		leader = defaultLeader
	}
	out := Record{Leader: leader}

	if r.RawIdentifier != nil {
		out.ControlFields = append(out.ControlFields, ControlField{Tag: tagControlNumber, Value: *r.RawIdentifier})
	}

	w := fieldWriter{r: r, done: make(map[target]bool)}
	if fromMARC {
		for _, entry := range splitExtra(r.Extra[extraFields]) {
			tag, inds, ok := strings.Cut(entry, "/")
			if !ok || len(inds) != 2 {
				continue
			}
			if mp, mapped := lookup(tag); mapped {
				w.write(mp, unblank(inds[:1]), unblank(inds[1:]))
			}
		}
	}
	w.writeRemaining()

	fields := w.fields
	if fromMARC {
		out.ControlFields = append(out.ControlFields, extraControlFields(r.Extra)...)
		fields = mergeExtraDataFields(fields, r.Extra)
	}

	sort.SliceStable(out.ControlFields, func(i, j int) bool { return out.ControlFields[i].Tag < out.ControlFields[j].Tag })
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Tag < fields[j].Tag })
	out.DataFields = fields
	return out
}

// fieldWriter emits the canonical attributes of r as datafields. Multi-valued
// attributes are consumed in order; single-valued ones are written once.
type fieldWriter struct {
	r        record.Record
	fields   []DataField
	done     map[target]bool
	authors  int
	subjects int
	urls     int
}

func (w *fieldWriter) add(tag, ind1, ind2 string, subfields ...Subfield) {
	var kept []Subfield
	for _, sf := range subfields {
		if sf.Value != "" {
			kept = append(kept, sf)
		}
	}
	if len(kept) > 0 {
		w.fields = append(w.fields, DataField{Tag: tag, Ind1: ind1, Ind2: ind2, Subfields: kept})
	}
}

// write emits the next value for mp's attribute under mp's tag.
func (w *fieldWriter) write(mp mapping, ind1, ind2 string) {
	r := w.r
	switch mp.Target {
	case targetAuthor:
		if w.authors < len(r.Authors) {
			w.add(mp.Tag, ind1, ind2, Subfield{Code: "a", Value: r.Authors[w.authors]})
			w.authors++
		}
		return
	case targetSubject:
		if w.subjects < len(r.Subjects) {
			w.add(mp.Tag, ind1, ind2, subjectSubfields(mp, r.Subjects[w.subjects])...)
			w.subjects++
		}
		return
	case targetURL:
		if w.urls < len(r.URLs) {
			w.add(mp.Tag, ind1, ind2, Subfield{Code: "u", Value: r.URLs[w.urls]})
			w.urls++
		}
		return
	}

	if w.done[mp.Target] {
		return
	}
	w.done[mp.Target] = true
	switch mp.Target {
	case targetTitle:
		main, sub, _ := strings.Cut(r.Title, ": ")
		w.add(mp.Tag, ind1, ind2, Subfield{Code: "a", Value: main}, Subfield{Code: "b", Value: sub})
	case targetPublication:
		w.add(mp.Tag, ind1, ind2,
			Subfield{Code: "a", Value: record.Value(r.Place)},
			Subfield{Code: "b", Value: record.Value(r.Publisher)},
			Subfield{Code: "c", Value: record.Value(r.Year)},
		)
	case targetISBN:
		w.add(mp.Tag, ind1, ind2, Subfield{Code: "a", Value: record.Value(r.ISBN)})
	case targetISSN:
		w.add(mp.Tag, ind1, ind2, Subfield{Code: "a", Value: record.Value(r.ISSN)})
	case targetLanguage:
		w.add(mp.Tag, ind1, ind2, Subfield{Code: "a", Value: record.Value(r.Language)})
	case targetAbstract:
		w.add(mp.Tag, ind1, ind2, Subfield{Code: "a", Value: record.Value(r.Abstract)})
	}
}

// writeRemaining emits whatever the source layout did not place, under the
// default tags.
func (w *fieldWriter) writeRemaining() {
	def := func(tag string) mapping {
		mp, _ := lookup(tag)
		return mp
	}
	w.write(def(tagISBN), " ", " ")
	w.write(def(tagISSN), " ", " ")
	w.write(def(tagLanguage), " ", " ")
	for w.authors < len(w.r.Authors) {
		tag := tagAddedAuthor
		if w.authors == 0 {
			tag = tagMainAuthor
		}
		w.write(def(tag), "1", " ")
	}

	titleInd := "0"
	if len(w.r.Authors) > 0 {
		titleInd = "1"
	}
	w.write(def(tagTitle), titleInd, "0")
	w.write(def(tagPublication), " ", "1")
	w.write(def(tagAbstract), " ", " ")
	for w.subjects < len(w.r.Subjects) {
		w.write(def(tagTopic), " ", "4")
	}
	for w.urls < len(w.r.URLs) {
		w.write(def(tagURL), "4", "0")
	}
}

// subjectSubfields splits a subject heading into $a and $x subdivisions, or
// keeps it whole for tags that only take $a.
func subjectSubfields(mp mapping, subject string) []Subfield {
	if !mp.consumes("x") {
		return []Subfield{{Code: "a", Value: subject}}
	}
	parts := strings.Split(subject, subjectSeparator)
	subfields := []Subfield{{Code: "a", Value: parts[0]}}
	for _, p := range parts[1:] {
		subfields = append(subfields, Subfield{Code: "x", Value: p})
	}
	return subfields
}

func unblank(ind string) string {
	if ind == "#" {
		return " "
	}
	return ind
}

func splitExtra(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, record.ExtraSeparator)
}

func (d DataField) has(code string) bool {
	for _, sf := range d.Subfields {
		if sf.Code == code {
			return true
		}
	}
	return false
}

func isTag(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extraControlFields(extra map[string]string) []ControlField {
	var out []ControlField
	for _, key := range sortedKeys(extra) {
		if !isTag(key) || key >= "010" || key == tagControlNumber {
			continue
		}
		for _, v := range strings.Split(extra[key], record.ExtraSeparator) {
			out = append(out, ControlField{Tag: key, Value: v})
		}
	}
	return out
}

type extraSubfields struct {
	code   string
	values []string
}

// mergeExtraDataFields restores "tag$code" entries from Extra. Subfields of
// tags in the tag table go to the first field of that tag still lacking the
// code, and open a new field of that tag when none does. Other tags become
// new datafields; when every code of such a tag carries the same number of
// values, value i goes to field i.
func mergeExtraDataFields(fields []DataField, extra map[string]string) []DataField {
	byTagCodes := make(map[string][]extraSubfields)
	var tags []string
	for _, key := range sortedKeys(extra) {
		tag, code, ok := strings.Cut(key, "$")
		if !ok || !isTag(tag) || code == "" {
			continue
		}
		if _, seen := byTagCodes[tag]; !seen {
			tags = append(tags, tag)
		}
		byTagCodes[tag] = append(byTagCodes[tag], extraSubfields{
			code:   code,
			values: strings.Split(extra[key], record.ExtraSeparator),
		})
	}

	for _, tag := range tags {
		codes := byTagCodes[tag]

		if _, mapped := lookup(tag); mapped {
			for _, c := range codes {
				for _, v := range c.values {
					target := -1
					for i := range fields {
						if fields[i].Tag == tag && !fields[i].has(c.code) {
							target = i
							break
						}
					}
					if target < 0 {
						fields = append(fields, DataField{Tag: tag, Ind1: " ", Ind2: " "})
						target = len(fields) - 1
					}
					fields[target].Subfields = append(fields[target].Subfields, Subfield{Code: c.code, Value: v})
				}
			}
			continue
		}

		n := uniformCount(codes)
		if n > 1 {
			for i := 0; i < n; i++ {
				df := DataField{Tag: tag, Ind1: " ", Ind2: " "}
				for _, c := range codes {
					df.Subfields = append(df.Subfields, Subfield{Code: c.code, Value: c.values[i]})
				}
				fields = append(fields, df)
			}
			continue
		}
		df := DataField{Tag: tag, Ind1: " ", Ind2: " "}
		for _, c := range codes {
			for _, v := range c.values {
				df.Subfields = append(df.Subfields, Subfield{Code: c.code, Value: v})
			}
		}
		fields = append(fields, df)
	}
	return fields
}

// uniformCount returns the shared value count of codes, or 0 when they differ.
func uniformCount(codes []extraSubfields) int {
	n := -1
	for _, c := range codes {
		if n == -1 {
			n = len(c.values)
		} else if n != len(c.values) {
			return 0
		}
	}
	return max(n, 0)
}
