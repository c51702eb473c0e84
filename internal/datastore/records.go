package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lepinkainen/libsearch/internal/record"
)

// RecordsTable is the table search results are written to.
const RecordsTable = "records"

// Run describes the search a batch of records came from.
type Run struct {
	ID       string
	Protocol record.Protocol
	Endpoint string
	Query    string
	At       time.Time
}

// NewRun stamps a run with the current time and derives its ID.
func NewRun(protocol record.Protocol, endpoint, query string) Run {
	at := time.Now().UTC()
	return Run{
		ID:       fmt.Sprintf("%s-%s-%d", strings.ToLower(string(protocol)), endpoint, at.UnixNano()),
		Protocol: protocol,
		Endpoint: endpoint,
		Query:    query,
		At:       at,
	}
}

// Rows flattens records into table rows. List fields and extra are stored
// as JSON text; absent optional fields are NULL.
func Rows(run Run, records []record.Record) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(records))
	for i, r := range records {
		authors, err := jsonText(r.Authors)
		if err != nil {
			return nil, err
		}
		subjects, err := jsonText(r.Subjects)
		if err != nil {
			return nil, err
		}
		urls, err := jsonText(r.URLs)
		if err != nil {
			return nil, err
		}
		extra, err := jsonText(r.Extra)
		if err != nil {
			return nil, err
		}
		rows = append(rows, map[string]any{
			"search_id":      run.ID,
			"protocol":       string(run.Protocol),
			"endpoint":       run.Endpoint,
			"query":          run.Query,
			"position":       i + 1,
			"title":          r.Title,
			"authors":        authors,
			"year":           nullable(r.Year),
			"publisher":      nullable(r.Publisher),
			"place":          nullable(r.Place),
			"isbn":           nullable(r.ISBN),
			"issn":           nullable(r.ISSN),
			"language":       nullable(r.Language),
			"abstract":       nullable(r.Abstract),
			"subjects":       subjects,
			"urls":           urls,
			"raw_identifier": nullable(r.RawIdentifier),
			"extra":          extra,
			"fetched_at":     run.At,
		})
	}
	return rows, nil
}

// Save creates the records table if needed and inserts the batch.
func Save(ctx context.Context, s Store, run Run, records []record.Record) error {
	if err := s.CreateTable(ctx); err != nil {
		return err
	}
	rows, err := Rows(run, records)
	if err != nil {
		return err
	}
	return s.BatchInsert(ctx, RecordsTable, rows)
}

func jsonText(v any) (string, error) {
	switch x := v.(type) {
	case []string:
		if x == nil {
			return "[]", nil
		}
	case map[string]string:
		if x == nil {
			return "{}", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(data), nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// columnsOf returns the row's column names in sorted order.
func columnsOf(row map[string]any) []string {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	slices.Sort(columns)
	return columns
}

func valuesOf(row map[string]any, columns []string) []any {
	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = row[col]
	}
	return values
}
