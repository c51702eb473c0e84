package export

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/lepinkainen/libsearch/internal/record"
)

const maxBibAbstract = 1000

// BibTeX renders records as BibTeX entries. Citation keys are the first
// author's surname plus the year; collisions within one output get the
// suffixes a, b, c and so on.
type BibTeX struct{}

func (BibTeX) Name() string      { return "bibtex" }
func (BibTeX) Extension() string { return "bib" }

func (BibTeX) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	var b strings.Builder
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		key := uniqueKey(citationKey(r), seen)
		writeEntry(&b, key, r)
	}
	return []byte(b.String()), nil
}

var bibEntryTypes = map[kind]string{
	kindBook:       "book",
	kindArticle:    "article",
	kindSection:    "incollection",
	kindConference: "inproceedings",
}

func writeEntry(b *strings.Builder, key string, r record.Record) {
	k := kindOf(r)
	var fields [][2]string
	add := func(name, v string) {
		if v != "" {
			fields = append(fields, [2]string{name, v})
		}
	}

	add("title", escapeBib(r.Title))
	add("author", escapeBib(strings.Join(r.Authors, " and ")))
	add("year", record.Value(r.Year))
	switch k {
	case kindArticle:
		add("journal", escapeBib(container(r)))
	case kindSection, kindConference:
		add("booktitle", escapeBib(container(r)))
	}
	add("publisher", escapeBib(record.Value(r.Publisher)))
	add("address", escapeBib(record.Value(r.Place)))
	add("isbn", record.Value(r.ISBN))
	add("issn", record.Value(r.ISSN))
	add("language", escapeBib(record.Value(r.Language)))
	if len(r.URLs) > 0 {
		add("url", r.URLs[0])
	}
	add("keywords", escapeBib(strings.Join(r.Subjects, ", ")))
	abstract := record.Value(r.Abstract)
	if rs := []rune(abstract); len(rs) > maxBibAbstract {
		abstract = string(rs[:maxBibAbstract]) + "..."
	}
	add("abstract", escapeBib(abstract))
	if id := record.Value(r.RawIdentifier); id != "" {
		add("note", escapeBib(fmt.Sprintf("%s ID: %s", r.Source, id)))
	}

	fmt.Fprintf(b, "@%s{%s,\n", bibEntryTypes[k], key)
	for i, f := range fields {
		fmt.Fprintf(b, "  %s = {%s}", f[0], f[1])
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
}

var bibEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"{", `\{`,
	"}", `\}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
)

func escapeBib(s string) string {
	return bibEscaper.Replace(strings.Join(strings.Fields(s), " "))
}

// citationKey builds surname+year, folded to lowercase ASCII. Missing parts
// fall back to "anon" and "nd".
func citationKey(r record.Record) string {
	surname := ""
	if len(r.Authors) > 0 {
		surname = foldKey(surnameOf(r.Authors[0]))
	}
	if surname == "" {
		surname = "anon"
	}
	year := record.FindYear(record.Value(r.Year))
	if year == "" {
		year = "nd"
	}
	return surname + year
}

// surnameOf takes the part before the comma of "Last, First", or the last
// word of "First Last".
func surnameOf(name string) string {
	if last, _, ok := strings.Cut(name, ","); ok {
		return strings.TrimSpace(last)
	}
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKey strips diacritics and keeps lowercase ASCII letters and digits.
func foldKey(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, c := range strings.ToLower(folded) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func uniqueKey(base string, seen map[string]bool) string {
	key := base
	for n := 0; seen[key]; n++ {
		key = base + suffix(n)
	}
	seen[key] = true
	return key
}

// suffix maps 0, 1, ... to a, b, ..., z, aa, ab, ...
func suffix(n int) string {
	s := ""
	for n >= 0 {
		s = string(rune('a'+n%26)) + s
		n = n/26 - 1
	}
	return s
}
