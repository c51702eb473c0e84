// Package record defines the normalized bibliographic record every source
// adapter produces and every serializer consumes.
package record

import (
	"fmt"
	"strings"
)

// Protocol identifies the source a record was retrieved from.
type Protocol string

const (
	ProtocolSRU    Protocol = "SRU"
	ProtocolOAI    Protocol = "OAI"
	ProtocolIxTheo Protocol = "IXTHEO"
	ProtocolZotero Protocol = "ZOTERO"
)

// ParseProtocol maps a case-insensitive protocol name to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SRU":
		return ProtocolSRU, nil
	case "OAI", "OAI-PMH", "OAIPMH":
		return ProtocolOAI, nil
	case "IXTHEO":
		return ProtocolIxTheo, nil
	case "ZOTERO":
		return ProtocolZotero, nil
	}
	return "", fmt.Errorf("unknown protocol %q", s)
}

// Record is the canonical bibliographic record.
//
// Optional scalar fields are pointers: nil means the source supplied no
// value. Use Some to build them so blank strings never stand in for a value.
type Record struct {
	Title         string            `json:"title"`
	Authors       []string          `json:"authors"`
	Year          *string           `json:"year"`
	Publisher     *string           `json:"publisher"`
	Place         *string           `json:"place"`
	ISBN          *string           `json:"isbn"`
	ISSN          *string           `json:"issn"`
	Language      *string           `json:"language"`
	Abstract      *string           `json:"abstract"`
	Subjects      []string          `json:"subjects"`
	URLs          []string          `json:"urls"`
	Source        Protocol          `json:"source_protocol"`
	RawIdentifier *string           `json:"raw_identifier"`
	Extra         map[string]string `json:"extra"`
}

// Some returns a pointer to the trimmed value, or nil when nothing is left.
func Some(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// Value dereferences an optional field, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Validate reports whether r may be passed to a serializer.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record has no title")
	}
	return nil
}

// AddAuthor appends a non-blank author name.
func (r *Record) AddAuthor(name string) {
	if name = strings.TrimSpace(name); name != "" {
		r.Authors = append(r.Authors, name)
	}
}

// AddSubject appends a non-blank subject. Duplicates are kept.
func (r *Record) AddSubject(subject string) {
	if subject = strings.TrimSpace(subject); subject != "" {
		r.Subjects = append(r.Subjects, subject)
	}
}

// AddURL appends a non-blank URL.
func (r *Record) AddURL(u string) {
	if u = strings.TrimSpace(u); u != "" {
		r.URLs = append(r.URLs, u)
	}
}

// SetExtra stores an unmapped source value. Repeated keys are joined with " | ".
func (r *Record) SetExtra(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	if prev, ok := r.Extra[key]; ok {
		r.Extra[key] = prev + ExtraSeparator + value
		return
	}
	r.Extra[key] = value
}

// ExtraSeparator joins repeated values stored under one extra key.
const ExtraSeparator = " | "

// SetIfEmpty assigns v to *field only if the field holds no value yet.
func SetIfEmpty(field **string, v string) {
	if *field == nil {
		*field = Some(v)
	}
}

// Warning describes a record that was skipped while parsing a response.
type Warning struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.ID != "" {
		return fmt.Sprintf("record %d (%s): %s", w.Index, w.ID, w.Reason)
	}
	return fmt.Sprintf("record %d: %s", w.Index, w.Reason)
}

// Batch is the result of parsing one or more responses.
type Batch struct {
	Records  []Record
	Warnings []Warning
}

// Add validates r and either appends it or records a warning.
func (b *Batch) Add(index int, id string, r Record) {
	if err := r.Validate(); err != nil {
		b.Warn(index, id, err.Error())
		return
	}
	b.Records = append(b.Records, r)
}

// Warn records a skipped record.
func (b *Batch) Warn(index int, id, reason string) {
	b.Warnings = append(b.Warnings, Warning{Index: index, ID: id, Reason: reason})
}

// Merge appends the records and warnings of other.
func (b *Batch) Merge(other Batch) {
	b.Records = append(b.Records, other.Records...)
	b.Warnings = append(b.Warnings, other.Warnings...)
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int { return len(b.Records) }
