// Package export renders canonical records in the supported output formats.
// Every serializer is deterministic: the same records always produce the
// same bytes.
package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lepinkainen/libsearch/internal/record"
)

// Serializer renders a sequence of records.
type Serializer interface {
	// Name is the format name used on the command line.
	Name() string
	// Extension is the file extension for saved output, without the dot.
	Extension() string
	Serialize(records []record.Record) ([]byte, error)
}

var registry = map[string]Serializer{}

func register(s Serializer) {
	registry[s.Name()] = s
}

func init() {
	register(Text{})
	register(JSON{})
	register(BibTeX{})
	register(RIS{})
	register(MARC{})
	register(Zotero{})
	register(Markdown{})
}

// Get returns the serializer registered under name.
func Get(name string) (Serializer, error) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the registered format names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Serialize renders records with the named format.
func Serialize(name string, records []record.Record) ([]byte, error) {
	s, err := Get(name)
	if err != nil {
		return nil, err
	}
	return s.Serialize(records)
}

// validate rejects the whole batch if any record lacks a required field.
func validate(records []record.Record) error {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return nil
}

// kind is the bibliographic type inferred for typed formats.
type kind int

const (
	kindBook kind = iota
	kindArticle
	kindSection
	kindConference
)

// kindOf infers the item type. A source-declared type (RIS TY or Zotero
// itemType) wins; otherwise an ISSN marks a journal article and anything
// else is a book.
func kindOf(r record.Record) kind {
	switch r.Extra["ris:TY"] {
	case "JOUR", "JFULL", "MGZN", "NEWS":
		return kindArticle
	case "CHAP":
		return kindSection
	case "CONF", "CPAPER":
		return kindConference
	case "BOOK", "EBOOK":
		return kindBook
	}
	switch r.Extra["zotero:itemType"] {
	case "journalArticle":
		return kindArticle
	case "bookSection":
		return kindSection
	case "conferencePaper":
		return kindConference
	case "book":
		return kindBook
	}
	if r.ISSN != nil {
		return kindArticle
	}
	return kindBook
}

// container returns the journal or book title a part was published in.
func container(r record.Record) string {
	for _, k := range []string{"ris:JO", "ris:JF", "ris:T2", "zotero:publicationTitle", "zotero:bookTitle", "zotero:proceedingsTitle"} {
		if v := r.Extra[k]; v != "" {
			return v
		}
	}
	return ""
}
