package oai

import (
	"strings"

	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Filter keeps the records matching every search field of c. OAI-PMH has no
// search, so harvested records are narrowed on the client.
func Filter(records []record.Record, c criteria.Criteria) []record.Record {
	fields := c.SetFields()
	if len(fields) == 0 {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if Matches(r, c) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r satisfies every search field of c. Text fields
// match case-insensitive substrings; ISBN and ISSN compare digits only.
func Matches(r record.Record, c criteria.Criteria) bool {
	for _, f := range c.SetFields() {
		want := c.Get(f)
		var ok bool
		switch f {
		case criteria.FieldTitle:
			ok = contains(r.Title, want)
		case criteria.FieldAuthor:
			ok = anyContains(r.Authors, want)
		case criteria.FieldSubject:
			ok = anyContains(r.Subjects, want)
		case criteria.FieldYear:
			ok = contains(record.Value(r.Year), want)
		case criteria.FieldISBN:
			ok = sameDigits(record.Value(r.ISBN), want)
		case criteria.FieldISSN:
			ok = sameDigits(record.Value(r.ISSN), want)
		case criteria.FieldFreeText:
			ok = contains(r.Title, want) || anyContains(r.Authors, want) ||
				anyContains(r.Subjects, want) || contains(record.Value(r.Abstract), want)
		}
		if !ok {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func anyContains(values []string, sub string) bool {
	for _, v := range values {
		if contains(v, sub) {
			return true
		}
	}
	return false
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			return r
		}
		return -1
	}, strings.ToUpper(s))
}

func sameDigits(have, want string) bool {
	h := digits(have)
	return h != "" && h == digits(want)
}
