package export

import (
	"strings"

	"github.com/lepinkainen/libsearch/internal/fileutil"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Markdown renders each record as an Obsidian-style note with YAML
// frontmatter. Notes are separated by a blank line.
type Markdown struct{}

func (Markdown) Name() string      { return "markdown" }
func (Markdown) Extension() string { return "md" }

func (Markdown) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	notes := make([]string, len(records))
	for i, r := range records {
		notes[i] = Note(r)
	}
	return []byte(strings.Join(notes, "\n")), nil
}

var noteTypes = map[kind]string{
	kindBook:       "book",
	kindArticle:    "article",
	kindSection:    "chapter",
	kindConference: "paper",
}

// Note renders a single record as a markdown note.
func Note(r record.Record) string {
	year := record.Value(r.Year)
	mb := fileutil.NewMarkdownBuilder().
		AddTitle(r.Title).
		AddType(noteTypes[kindOf(r)]).
		AddStringArray("authors", r.Authors).
		AddField("year", year).
		AddField("publisher", record.Value(r.Publisher)).
		AddField("place", record.Value(r.Place)).
		AddField("isbn", record.Value(r.ISBN)).
		AddField("issn", record.Value(r.ISSN)).
		AddField("language", record.Value(r.Language)).
		AddStringArray("subjects", r.Subjects).
		AddField("source", string(r.Source)).
		AddField("source_id", record.Value(r.RawIdentifier)).
		AddTags(noteTags(r, year)...)

	mb.AddHeading(r.Title)
	if len(r.Authors) > 0 {
		mb.AddParagraph("*" + strings.Join(r.Authors, "; ") + "*")
	}
	mb.AddCallout("abstract", "Abstract", record.Value(r.Abstract))
	mb.AddLinksCallout("Links", r.URLs)
	return mb.Build()
}

func noteTags(r record.Record, year string) []string {
	return fileutil.NewTagSet().
		Add("library/"+strings.ToLower(string(r.Source))).
		Add(fileutil.DecadeTag(record.FindYear(year))).
		AddPrefixed("subject", r.Subjects).
		Sorted()
}
