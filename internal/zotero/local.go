package zotero

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

const backendLocal = "zotero local database"

// Row is one item read from the local database, already grouped: field
// values by field name, creators in order, tag names.
type Row struct {
	ItemID   int64
	Key      string
	ItemType string
	Fields   map[string]string
	Creators []Creator
	Tags     []string
}

// ItemData converts the row into the item schema shared with the web API.
func (r Row) ItemData() ItemData {
	d := ItemData{
		Key:          r.Key,
		ItemType:     r.ItemType,
		Title:        r.Fields["title"],
		Creators:     r.Creators,
		Date:         r.Fields["date"],
		Publisher:    r.Fields["publisher"],
		Place:        r.Fields["place"],
		ISBN:         r.Fields["ISBN"],
		ISSN:         r.Fields["ISSN"],
		URL:          r.Fields["url"],
		AbstractNote: r.Fields["abstractNote"],
		Language:     r.Fields["language"],
	}
	for _, t := range r.Tags {
		d.Tags = append(d.Tags, Tag{Tag: t})
	}
	for name, v := range r.Fields {
		if mappedFields[name] || strings.TrimSpace(v) == "" {
			continue
		}
		if d.Other == nil {
			d.Other = make(map[string]string)
		}
		d.Other[name] = v
	}
	return d
}

// LocalStore queries a zotero.sqlite file read-only.
type LocalStore struct {
	db   *sql.DB
	path string
}

// OpenLocal opens the database at path. A missing file is reported as
// BackendUnavailableError.
func OpenLocal(path string) (*LocalStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, liberrors.NewBackendUnavailableError(backendLocal, "no database path configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, liberrors.NewBackendUnavailableError(backendLocal, fmt.Sprintf("database not found at %s", path))
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open zotero database: %w", err)
	}
	return &LocalStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *LocalStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const itemValueExists = `EXISTS (SELECT 1 FROM itemData d
	JOIN fields f ON f.fieldID = d.fieldID
	JOIN itemDataValues v ON v.valueID = d.valueID
	WHERE d.itemID = i.itemID AND f.fieldName = ? AND v.value LIKE ?)`

const creatorExists = `EXISTS (SELECT 1 FROM itemCreators ic
	JOIN creators c ON c.creatorID = ic.creatorID
	WHERE ic.itemID = i.itemID AND (c.lastName LIKE ? OR c.firstName LIKE ?))`

const tagExists = `EXISTS (SELECT 1 FROM itemTags it
	JOIN tags t ON t.tagID = it.tagID
	WHERE it.itemID = i.itemID AND t.name LIKE ?)`

// buildQuery returns the item selection for c. Every set field must match.
func buildQuery(c criteria.Criteria) (string, []any) {
	var (
		conds []string
		args  []any
	)
	field := func(name, v string) {
		conds = append(conds, itemValueExists)
		args = append(args, name, like(v))
	}
	for _, f := range c.SetFields() {
		v := c.Get(f)
		switch f {
		case criteria.FieldTitle:
			field("title", v)
		case criteria.FieldAuthor:
			conds = append(conds, creatorExists)
			args = append(args, like(v), like(v))
		case criteria.FieldISBN:
			field("ISBN", v)
		case criteria.FieldISSN:
			field("ISSN", v)
		case criteria.FieldYear:
			field("date", v)
		case criteria.FieldSubject:
			conds = append(conds, tagExists)
			args = append(args, like(v))
		case criteria.FieldFreeText:
			conds = append(conds, "("+strings.Join([]string{
				strings.Replace(itemValueExists, "f.fieldName = ?", "f.fieldName IN ('title', 'abstractNote')", 1),
				creatorExists, tagExists,
			}, " OR ")+")")
			args = append(args, like(v), like(v), like(v), like(v))
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(SupportedTypes)), ", ")
	query := `SELECT i.itemID, i.key, it.typeName
FROM items i
JOIN itemTypes it ON it.itemTypeID = i.itemTypeID
WHERE it.typeName IN (` + placeholders + `)
  AND i.itemID NOT IN (SELECT itemID FROM deletedItems)`
	typeArgs := make([]any, 0, len(SupportedTypes))
	for _, t := range SupportedTypes {
		typeArgs = append(typeArgs, t)
	}
	for _, cond := range conds {
		query += "\n  AND " + cond
	}
	query += "\nORDER BY i.itemID\nLIMIT ? OFFSET ?"

	limit := c.MaxRecords
	if limit <= 0 {
		limit = -1
	}
	args = append(typeArgs, args...)
	args = append(args, limit, c.Start()-1)
	return query, args
}

func like(v string) string {
	return "%" + v + "%"
}

// Query returns the items matching c, at most c.MaxRecords of them.
func (s *LocalStore) Query(ctx context.Context, c criteria.Criteria) ([]Row, error) {
	query, args := buildQuery(c)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	var items []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ItemID, &r.Key, &r.ItemType); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range items {
		if err := s.load(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	slog.Debug("Zotero local query", "path", s.path, "items", len(items))
	return items, nil
}

func (s *LocalStore) load(ctx context.Context, r *Row) error {
	r.Fields = make(map[string]string)
	err := s.each(ctx, `SELECT f.fieldName, v.value
FROM itemData d
JOIN fields f ON f.fieldID = d.fieldID
JOIN itemDataValues v ON v.valueID = d.valueID
WHERE d.itemID = ?`, r.ItemID, func(rows *sql.Rows) error {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		r.Fields[name] = value
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load fields of item %s: %w", r.Key, err)
	}

	err = s.each(ctx, `SELECT COALESCE(ct.creatorType, 'author'), COALESCE(c.firstName, ''), COALESCE(c.lastName, ''), COALESCE(c.fieldMode, 0)
FROM itemCreators ic
JOIN creators c ON c.creatorID = ic.creatorID
LEFT JOIN creatorTypes ct ON ct.creatorTypeID = ic.creatorTypeID
WHERE ic.itemID = ?
ORDER BY ic.orderIndex`, r.ItemID, func(rows *sql.Rows) error {
		var cr Creator
		var fieldMode int
		if err := rows.Scan(&cr.CreatorType, &cr.FirstName, &cr.LastName, &fieldMode); err != nil {
			return err
		}
		// fieldMode 1 stores a single-field name in lastName.
		if fieldMode == 1 {
			cr.Name, cr.LastName, cr.FirstName = cr.LastName, "", ""
		}
		r.Creators = append(r.Creators, cr)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load creators of item %s: %w", r.Key, err)
	}

	err = s.each(ctx, `SELECT t.name
FROM itemTags it
JOIN tags t ON t.tagID = it.tagID
WHERE it.itemID = ?
ORDER BY t.name`, r.ItemID, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		r.Tags = append(r.Tags, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load tags of item %s: %w", r.Key, err)
	}
	return nil
}

func (s *LocalStore) each(ctx context.Context, query string, id int64, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ParseRows maps local database rows onto canonical records.
func ParseRows(rows []Row) record.Batch {
	var batch record.Batch
	for i, row := range rows {
		batch.Add(i+1, row.Key, row.ItemData().ToRecord())
	}
	return batch
}
