package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lepinkainen/libsearch/internal/record"
)

const (
	maxSubjects    = 5
	maxAbstract    = 300
	abstractCutoff = 297
)

// Text renders records as labelled lines for the terminal.
type Text struct{}

func (Text) Name() string      { return "text" }
func (Text) Extension() string { return "txt" }

func (Text) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- Result %d of %d ---\n", i+1, len(records))
		writeText(&b, r)
	}
	return []byte(b.String()), nil
}

func writeText(b *strings.Builder, r record.Record) {
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(b, "%s: %s\n", label, v)
		}
	}
	line("Title", r.Title)
	line("Author(s)", strings.Join(r.Authors, ", "))
	line("Year", record.Value(r.Year))
	line("Place of Publication", record.Value(r.Place))
	line("Publisher", record.Value(r.Publisher))
	line("ISBN", record.Value(r.ISBN))
	line("ISSN", record.Value(r.ISSN))
	line("Language", record.Value(r.Language))

	if n := len(r.Subjects); n > maxSubjects {
		line("Subjects", fmt.Sprintf("%s, ... (%d more)", strings.Join(r.Subjects[:maxSubjects], ", "), n-maxSubjects))
	} else {
		line("Subjects", strings.Join(r.Subjects, ", "))
	}

	switch len(r.URLs) {
	case 0:
	case 1:
		line("URL", r.URLs[0])
	default:
		b.WriteString("URLs:\n")
		for _, u := range r.URLs {
			fmt.Fprintf(b, "  - %s\n", u)
		}
	}

	line("Abstract", truncate(record.Value(r.Abstract)))
	line("Source", string(r.Source))
	line("ID", record.Value(r.RawIdentifier))
	line("Extra", joinExtra(r.Extra))
}

// joinExtra renders extra values as key=value pairs in key order.
func joinExtra(extra map[string]string) string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+extra[k])
	}
	return strings.Join(pairs, record.ExtraSeparator)
}

// truncate shortens long abstracts, counting characters rather than bytes.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxAbstract {
		return s
	}
	return string(runes[:abstractCutoff]) + "..."
}
