// Package criteria holds the protocol-independent search request.
package criteria

import (
	"fmt"
	"strings"
	"time"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
)

// Field names a searchable attribute. The names double as the keys of
// endpoint index maps in the catalog.
type Field string

const (
	FieldTitle    Field = "title"
	FieldAuthor   Field = "author"
	FieldISBN     Field = "isbn"
	FieldISSN     Field = "issn"
	FieldYear     Field = "year"
	FieldSubject  Field = "subject"
	FieldFreeText Field = "free_text"
)

// Fields lists the searchable fields in the order builders combine them.
var Fields = []Field{FieldTitle, FieldAuthor, FieldISBN, FieldISSN, FieldYear, FieldSubject, FieldFreeText}

// Criteria is a search request. It is a plain value: builders and adapters
// receive copies and never modify it.
type Criteria struct {
	Title    string
	Author   string
	ISBN     string
	ISSN     string
	Year     string
	Subject  string
	FreeText string

	// StartRecord is 1-based; zero means the first record.
	StartRecord int
	// MaxRecords caps the number of records returned; zero means no cap.
	MaxRecords int

	// SRU
	Schema string

	// OAI-PMH
	Set            string
	MetadataPrefix string
	From           string
	Until          string

	// IxTheo
	FormatFilter   string
	LanguageFilter string
}

// Get returns the trimmed value of a search field.
func (c Criteria) Get(f Field) string {
	var v string
	switch f {
	case FieldTitle:
		v = c.Title
	case FieldAuthor:
		v = c.Author
	case FieldISBN:
		v = c.ISBN
	case FieldISSN:
		v = c.ISSN
	case FieldYear:
		v = c.Year
	case FieldSubject:
		v = c.Subject
	case FieldFreeText:
		v = c.FreeText
	}
	return strings.TrimSpace(v)
}

// SetFields returns the search fields that carry a value, in Fields order.
func (c Criteria) SetFields() []Field {
	var out []Field
	for _, f := range Fields {
		if c.Get(f) != "" {
			out = append(out, f)
		}
	}
	return out
}

// HasSearchField reports whether at least one search field is set.
func (c Criteria) HasSearchField() bool {
	return len(c.SetFields()) > 0
}

// Start returns the 1-based start position.
func (c Criteria) Start() int {
	if c.StartRecord < 1 {
		return 1
	}
	return c.StartRecord
}

// Validate checks the fields every protocol relies on.
func (c Criteria) Validate() error {
	if !c.HasSearchField() {
		return liberrors.NewInvalidCriteriaError("at least one search field must be set")
	}
	return c.validateCommon()
}

func (c Criteria) validateCommon() error {
	if c.StartRecord < 0 {
		return liberrors.NewInvalidCriteriaError(fmt.Sprintf("start record must not be negative, got %d", c.StartRecord))
	}
	if c.MaxRecords < 0 {
		return liberrors.NewInvalidCriteriaError(fmt.Sprintf("max records must not be negative, got %d", c.MaxRecords))
	}
	dates := []struct{ name, value string }{{"from", c.From}, {"until", c.Until}}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := ParseDatestamp(d.value); err != nil {
			return liberrors.NewInvalidCriteriaError(fmt.Sprintf("%s date %q is not YYYY-MM-DD or YYYY-MM-DDThh:mm:ssZ", d.name, d.value))
		}
	}
	if c.From != "" && c.Until != "" {
		from, _ := ParseDatestamp(c.From)
		until, _ := ParseDatestamp(c.Until)
		if until.Before(from) {
			return liberrors.NewInvalidCriteriaError("until date is before from date")
		}
	}
	return nil
}

// ValidateHarvest validates criteria for an OAI-PMH harvest, where a set or
// date range alone is enough to select records.
func (c Criteria) ValidateHarvest() error {
	if !c.HasSearchField() && c.Set == "" && c.From == "" && c.Until == "" {
		return liberrors.NewInvalidCriteriaError("a search field, set, or date range must be set")
	}
	return c.validateCommon()
}

// ParseDatestamp parses an OAI-PMH datestamp in day or second granularity.
func ParseDatestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05Z", s)
}
