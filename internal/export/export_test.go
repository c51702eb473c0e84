package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book() record.Record {
	return record.Record{
		Title:         "Die Kirchliche Dogmatik",
		Authors:       []string{"Barth, Karl"},
		Year:          record.Some("1932"),
		Publisher:     record.Some("Kaiser"),
		Place:         record.Some("München"),
		ISBN:          record.Some("9783290116"),
		Language:      record.Some("ger"),
		Subjects:      []string{"Dogmatik"},
		URLs:          []string{"https://example.org/kd"},
		Source:        record.ProtocolSRU,
		RawIdentifier: record.Some("kd-1"),
		Extra:         map[string]string{"marc:leader": "x"},
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"bibtex", "json", "markdown", "marc", "ris", "text", "zotero"}, Names())

	s, err := Get(" BibTeX ")
	require.NoError(t, err)
	assert.Equal(t, "bib", s.Extension())

	_, err = Get("endnote")
	assert.ErrorContains(t, err, `unknown output format "endnote"`)
}

func TestSerializersRejectUntitledRecords(t *testing.T) {
	bad := []record.Record{book(), {Authors: []string{"Nobody"}}}
	for _, name := range Names() {
		_, err := Serialize(name, bad)
		assert.ErrorContains(t, err, "record 2", name)
	}
}

func TestSerializersAreDeterministic(t *testing.T) {
	recs := []record.Record{book(), book()}
	recs[1].Extra = map[string]string{"b": "2", "a": "1", "c": "3"}
	for _, name := range Names() {
		first, err := Serialize(name, recs)
		require.NoError(t, err, name)
		for range 5 {
			again, err := Serialize(name, recs)
			require.NoError(t, err)
			assert.Equal(t, first, again, name)
		}
	}
}

func TestTextLayout(t *testing.T) {
	second := record.Record{
		Title:    "Untitled Notes",
		Subjects: []string{"a", "b", "c", "d", "e", "f", "g"},
		URLs:     []string{"https://one.example", "https://two.example"},
		Abstract: record.Some(strings.Repeat("x", 301)),
		Source:   record.ProtocolOAI,
	}
	out, err := Text{}.Serialize([]record.Record{book(), second})
	require.NoError(t, err)

	want := `--- Result 1 of 2 ---
Title: Die Kirchliche Dogmatik
Author(s): Barth, Karl
Year: 1932
Place of Publication: München
Publisher: Kaiser
ISBN: 9783290116
Language: ger
Subjects: Dogmatik
URL: https://example.org/kd
Source: SRU
ID: kd-1
Extra: marc:leader=x

--- Result 2 of 2 ---
Title: Untitled Notes
Subjects: a, b, c, d, e, ... (2 more)
URLs:
  - https://one.example
  - https://two.example
Abstract: ` + strings.Repeat("x", 297) + `...
Source: OAI
`
	assert.Equal(t, want, string(out))
}

func TestTextExtraInKeyOrder(t *testing.T) {
	r := book()
	r.Extra = map[string]string{"ris:JO": "Journal", "500$a": "Notes | More notes", "dc:type": "Text"}
	out, err := Text{}.Serialize([]record.Record{r})
	require.NoError(t, err)
	assert.Contains(t, string(out), "ID: kd-1\nExtra: 500$a=Notes | More notes | dc:type=Text | ris:JO=Journal\n")
}

func TestTextKeepsShortAbstract(t *testing.T) {
	assert.Equal(t, strings.Repeat("ä", 300), truncate(strings.Repeat("ä", 300)))
	assert.Equal(t, strings.Repeat("ä", 297)+"...", truncate(strings.Repeat("ä", 301)))
}

func TestJSONShape(t *testing.T) {
	r := book()
	r.Subjects = nil
	r.Abstract = nil
	out, err := JSON{}.Serialize([]record.Record{r})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, []any{}, decoded[0]["subjects"])
	assert.Nil(t, decoded[0]["abstract"])
	assert.Equal(t, "SRU", decoded[0]["source_protocol"])
	assert.Equal(t, map[string]any{"marc:leader": "x"}, decoded[0]["extra"])
}

func TestBibTeXEntry(t *testing.T) {
	r := book()
	r.Title = "Sin & Grace: 100% {Pure}"
	out, err := BibTeX{}.Serialize([]record.Record{r})
	require.NoError(t, err)

	want := `@book{barth1932,
  title = {Sin \& Grace: 100\% \{Pure\}},
  author = {Barth, Karl},
  year = {1932},
  publisher = {Kaiser},
  address = {München},
  isbn = {9783290116},
  language = {ger},
  url = {https://example.org/kd},
  keywords = {Dogmatik},
  note = {SRU ID: kd-1}
}
`
	assert.Equal(t, want, string(out))
}

func TestBibTeXKeys(t *testing.T) {
	mk := func(author, year string) record.Record {
		r := record.Record{Title: "T", Year: record.Some(year)}
		if author != "" {
			r.Authors = []string{author}
		}
		return r
	}
	recs := []record.Record{
		mk("Smith, John", "2020"),
		mk("Jane Smith", "2020"),
		mk("Smith, A.", "c2020"),
		mk("Gödel, Kurt", "1931"),
		mk("", ""),
		mk("Smith, John", "2021"),
	}
	out, err := BibTeX{}.Serialize(recs)
	require.NoError(t, err)

	var keys []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "@") {
			keys = append(keys, line[strings.Index(line, "{")+1:len(line)-1])
		}
	}
	assert.Equal(t, []string{"smith2020", "smith2020a", "smith2020b", "godel1931", "anonnd", "smith2021"}, keys)
}

func TestBibTeXEntryTypes(t *testing.T) {
	article := record.Record{Title: "A", ISSN: record.Some("1234-5678"), Extra: map[string]string{"ris:JO": "Journal of Things"}}
	chapter := record.Record{Title: "C", Extra: map[string]string{"zotero:itemType": "bookSection", "zotero:bookTitle": "Collected"}}
	out, err := BibTeX{}.Serialize([]record.Record{article, chapter})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "@article{anonnd,\n")
	assert.Contains(t, s, "  journal = {Journal of Things},\n")
	assert.Contains(t, s, "@incollection{anonnda,\n")
	assert.Contains(t, s, "  booktitle = {Collected}\n")
}

func TestSuffix(t *testing.T) {
	assert.Equal(t, "a", suffix(0))
	assert.Equal(t, "z", suffix(25))
	assert.Equal(t, "aa", suffix(26))
	assert.Equal(t, "ab", suffix(27))
}

func TestZoteroItems(t *testing.T) {
	article := record.Record{
		Title:         "On Things",
		Authors:       []string{"Jane Q. Public", "Plato"},
		ISSN:          record.Some("1234-5678"),
		Source:        record.ProtocolZotero,
		Extra:         map[string]string{},
		RawIdentifier: record.Some("ABCD2345"),
	}
	out, err := Zotero{}.Serialize([]record.Record{book(), article})
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(out, &items))
	require.Len(t, items, 2)

	assert.Equal(t, "book", items[0]["itemType"])
	assert.Equal(t, []any{map[string]any{"creatorType": "author", "firstName": "Karl", "lastName": "Barth"}}, items[0]["creators"])
	assert.Equal(t, "1932", items[0]["date"])
	assert.Equal(t, "München", items[0]["place"])
	assert.Equal(t, "9783290116", items[0]["ISBN"])
	assert.Equal(t, "https://example.org/kd", items[0]["url"])
	assert.Equal(t, []any{map[string]any{"tag": "Dogmatik"}}, items[0]["tags"])
	assert.Equal(t, []any{}, items[0]["notes"])
	assert.NotContains(t, items[0], "key")

	assert.Equal(t, "journalArticle", items[1]["itemType"])
	assert.Equal(t, "ABCD2345", items[1]["key"])
	assert.Equal(t, []any{
		map[string]any{"creatorType": "author", "firstName": "Jane Q.", "lastName": "Public"},
		map[string]any{"creatorType": "author", "lastName": "Plato"},
	}, items[1]["creators"])
	assert.True(t, strings.HasPrefix(string(out), "[\n  {\n    \"itemType\""))
}

func TestRISAndMARCWrap(t *testing.T) {
	out, err := RIS{}.Serialize([]record.Record{book()})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "TY  - BOOK\r\n"))

	out, err = MARC{}.Serialize([]record.Record{book()})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<collection")
}

func TestMarkdownNotes(t *testing.T) {
	second := record.Record{Title: "Loose Leaf", Source: record.ProtocolOAI}
	out, err := Markdown{}.Serialize([]record.Record{book(), second})
	require.NoError(t, err)

	want := `---
title: "Die Kirchliche Dogmatik"
type: book
authors:
  - "Barth, Karl"
year: "1932"
publisher: "Kaiser"
place: "München"
isbn: "9783290116"
language: "ger"
subjects:
  - "Dogmatik"
source: "SRU"
source_id: "kd-1"
tags:
  - library/sru
  - subject/Dogmatik
  - year/1930s
---

# Die Kirchliche Dogmatik

*Barth, Karl*

>[!info]- Links
> <https://example.org/kd>


---
title: "Loose Leaf"
type: book
source: "OAI"
tags:
  - library/oai
---

# Loose Leaf

`
	assert.Equal(t, want, string(out))
}
