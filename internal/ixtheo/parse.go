package ixtheo

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Selectors of the VuFind result list markup.
const (
	selResult   = ".result"
	selHiddenID = ".hiddenId"
	selCheckbox = "input.checkbox-select-item"
	selIDsAll   = `input[name="idsAll[]"]`
	selTitle    = ".title"
	selAuthor   = ".author"
	selFormat   = ".format"
	selDate     = ".publishDate"
	selSubject  = ".subject a"
	selStats    = ".search-stats, .js-search-stats"
	// A page matching none of these is not a search result page.
	selPageMarkers = ".result, .search-stats, .js-search-stats, .no-results, #searchForm, .searchForm"
)

var totalPattern = regexp.MustCompile(`(?i)(?:results of|von)\s*(\d[\d.,]*)`)

// Page is one parsed result page.
type Page struct {
	Batch record.Batch
	// Total is the hit count reported by the page, zero if absent.
	Total int
}

// ParsePage extracts the result entries of a search page. base is the
// catalog URL used to build record links.
func ParsePage(body []byte, base string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, liberrors.NewMalformedResponseError(protocolName, err)
	}
	if doc.Find(selPageMarkers).Length() == 0 {
		return Page{}, liberrors.NewMalformedResponseError(protocolName, errors.New("page has no search result markup"))
	}

	page := Page{Total: parseTotal(doc)}
	doc.Find(selResult).Each(func(i int, item *goquery.Selection) {
		index := i + 1
		id := resultID(doc, item)
		if id == "" {
			page.Batch.Warn(index, "", "result has no record id")
			return
		}
		page.Batch.Add(index, id, mapResult(item, id, base))
	})
	return page, nil
}

func parseTotal(doc *goquery.Document) int {
	total := 0
	doc.Find(selStats).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := totalPattern.FindStringSubmatch(s.Text())
		if m == nil {
			return true
		}
		n, err := strconv.Atoi(digitsOnly(m[1]))
		if err != nil {
			return true
		}
		total = n
		return false
	})
	return total
}

// resultID finds the record id of a result entry: the hidden id input, the
// "Solr|ID" checkbox value, or the idsAll[] input matching a "resultN" id.
func resultID(doc *goquery.Document, item *goquery.Selection) string {
	if v := strings.TrimSpace(item.Find(selHiddenID).First().AttrOr("value", "")); v != "" {
		return v
	}
	if v := afterPipe(item.Find(selCheckbox).First().AttrOr("value", "")); v != "" {
		return v
	}
	if li, ok := item.Attr("id"); ok && strings.HasPrefix(li, "result") {
		n, err := strconv.Atoi(strings.TrimPrefix(li, "result"))
		if err == nil {
			return afterPipe(doc.Find(selIDsAll).Eq(n).AttrOr("value", ""))
		}
	}
	return ""
}

func afterPipe(v string) string {
	_, id, ok := strings.Cut(v, "|")
	if !ok {
		return ""
	}
	return strings.TrimSpace(id)
}

func mapResult(item *goquery.Selection, id, base string) record.Record {
	r := record.Record{
		Title:         text(item.Find(selTitle).First()),
		Source:        record.ProtocolIxTheo,
		RawIdentifier: record.Some(id),
	}

	for _, a := range splitAuthors(text(item.Find(selAuthor).First())) {
		r.AddAuthor(a)
	}
	if y := record.FindYear(text(item.Find(selDate).First())); y != "" {
		r.Year = record.Some(y)
	}
	item.Find(selSubject).Each(func(_ int, s *goquery.Selection) {
		r.AddSubject(text(s))
	})
	item.Find(selFormat).Each(func(_ int, s *goquery.Selection) {
		r.SetExtra("ixtheo:format", text(s))
	})
	if base != "" {
		r.AddURL(recordURL(base, id))
	}
	return r
}

// splitAuthors handles "Name (Author)" role suffixes and ";" separated lists.
func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if name, _, ok := strings.Cut(part, "("); ok && strings.Contains(part, ")") {
			part = name
		}
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// text returns the selection text with whitespace runs collapsed.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
