// Package ris reads and writes RIS citation records.
package ris

import (
	"bufio"
	"bytes"
	"errors"
	"regexp"
	"strings"

	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Reference types written by Write.
const (
	TypeBook    = "BOOK"
	TypeJournal = "JOUR"
)

const lineEnding = "\r\n"

var (
	linePattern = regexp.MustCompile(`^([A-Z][A-Z0-9])  -(?: (.*))?$`)
	issnPattern = regexp.MustCompile(`^\d{4}-?\d{3}[\dXx]$`)
)

// TypeOf returns the reference type written for r: journal material when an
// ISSN is present, a book otherwise.
func TypeOf(r record.Record) string {
	if r.ISSN != nil {
		return TypeJournal
	}
	return TypeBook
}

// Write renders records in RIS. Tags appear in a fixed order and every line
// ends in CRLF; each record is closed by an ER line and a blank line.
func Write(records []record.Record) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		writeRecord(&buf, r)
	}
	return buf.Bytes()
}

func writeRecord(buf *bytes.Buffer, r record.Record) {
	line := func(tag, value string) {
		buf.WriteString(tag)
		buf.WriteString("  - ")
		buf.WriteString(singleLine(value))
		buf.WriteString(lineEnding)
	}
	// Embedded line breaks continue on untagged lines.
	text := func(tag, value string) {
		lines := strings.Split(strings.ReplaceAll(value, "\r\n", "\n"), "\n")
		line(tag, lines[0])
		for _, l := range lines[1:] {
			buf.WriteString(strings.TrimSpace(l))
			buf.WriteString(lineEnding)
		}
	}
	optional := func(tag string, v *string) {
		if v != nil {
			line(tag, *v)
		}
	}

	line("TY", TypeOf(r))
	optional("ID", r.RawIdentifier)
	line("TI", r.Title)
	for _, a := range r.Authors {
		line("AU", a)
	}
	if r.Year != nil {
		line("PY", *r.Year)
		line("Y1", dateField(*r.Year))
	}
	optional("PB", r.Publisher)
	optional("CY", r.Place)
	optional("SN", r.ISBN)
	optional("SN", r.ISSN)
	optional("LA", r.Language)
	if r.Abstract != nil {
		text("AB", *r.Abstract)
	}
	for _, u := range r.URLs {
		line("UR", u)
	}
	for _, s := range r.Subjects {
		line("KW", s)
	}
	line("ER", "")
	buf.WriteString(lineEnding)
}

// dateField renders a year as a Y1 date. Anything beyond a plain year goes
// to the free-text part after the third slash.
func dateField(year string) string {
	found := record.FindYear(year)
	if found == year {
		return year + "///"
	}
	return found + "///" + year
}

func singleLine(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	return strings.Join(strings.Fields(v), " ")
}

// Parse reads every TY..ER block in data. Lines that do not start with a tag
// continue the previous value. A body without a single TY line is malformed.
func Parse(data []byte, source record.Protocol) (record.Batch, error) {
	var batch record.Batch

	var (
		current  *record.Record
		lastTag  string
		started  int
		yearFrom string
	)
	flush := func() {
		if current == nil {
			return
		}
		if current.Abstract != nil {
			trimmed := strings.TrimRight(*current.Abstract, "\n")
			current.Abstract = &trimmed
		}
		batch.Add(started, record.Value(current.RawIdentifier), *current)
		current = nil
		lastTag = ""
		yearFrom = ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := strings.TrimRight(strings.TrimPrefix(scanner.Text(), "\ufeff"), "\r")
		m := linePattern.FindStringSubmatch(text)
		if m == nil {
			if current != nil && lastTag != "" {
				appendContinuation(current, lastTag, strings.TrimSpace(text))
			}
			continue
		}

		tag, value := m[1], strings.TrimSpace(m[2])
		switch {
		case tag == "TY":
			flush()
			started++
			current = &record.Record{Source: source}
			current.SetExtra("ris:TY", value)
		case current == nil:
			continue
		case tag == "ER":
			flush()
			continue
		default:
			apply(current, tag, value, &yearFrom)
		}
		lastTag = tag
	}
	if err := scanner.Err(); err != nil {
		return batch, liberrors.NewMalformedResponseError("RIS", err)
	}
	flush()

	if started == 0 {
		return batch, liberrors.NewMalformedResponseError("RIS", errors.New("no TY line found"))
	}
	return batch, nil
}

func apply(r *record.Record, tag, value string, yearFrom *string) {
	if value == "" {
		return
	}
	switch tag {
	case "TI", "T1":
		if r.Title == "" {
			r.Title = value
		} else {
			r.SetExtra("ris:"+tag, value)
		}
	case "AU", "A1":
		r.AddAuthor(value)
	case "PY":
		// PY is kept as written and wins over Y1 and DA regardless of order.
		if *yearFrom != "PY" {
			r.Year = record.Some(value)
			*yearFrom = tag
		}
	case "Y1", "DA":
		if r.Year == nil {
			r.Year = record.Some(record.ExtractYear(value))
			*yearFrom = tag
		}
	case "PB":
		record.SetIfEmpty(&r.Publisher, value)
	case "CY":
		record.SetIfEmpty(&r.Place, value)
	case "SN":
		if issnPattern.MatchString(value) {
			record.SetIfEmpty(&r.ISSN, value)
		} else {
			record.SetIfEmpty(&r.ISBN, value)
		}
	case "LA":
		record.SetIfEmpty(&r.Language, value)
	case "AB", "N2":
		record.SetIfEmpty(&r.Abstract, value)
	case "UR", "L2":
		r.AddURL(value)
	case "KW":
		r.AddSubject(value)
	case "ID":
		record.SetIfEmpty(&r.RawIdentifier, value)
	default:
		r.SetExtra("ris:"+tag, value)
	}
}

// appendContinuation extends the value of tag with an untagged line. Titles
// are joined with a space; abstracts keep their line breaks, blank lines
// included.
func appendContinuation(r *record.Record, tag, text string) {
	switch tag {
	case "TI", "T1":
		if text != "" {
			r.Title += " " + text
		}
	case "AB", "N2":
		if r.Abstract != nil {
			joined := *r.Abstract + "\n" + text
			r.Abstract = &joined
		}
	}
}
