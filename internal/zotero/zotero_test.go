package zotero

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webItems = `[
  {
    "key": "ABCD2345",
    "version": 12,
    "library": {"type": "user", "id": 475425},
    "data": {
      "key": "ABCD2345",
      "version": 12,
      "itemType": "book",
      "title": "Dogmatik im Grundriss",
      "creators": [
        {"creatorType": "author", "firstName": "Karl", "lastName": "Barth"},
        {"creatorType": "editor", "name": "Evangelischer Verlag"}
      ],
      "date": "1947-03",
      "publisher": "Evangelischer Verlag",
      "place": "Zürich",
      "ISBN": "978-3-290-17196-1",
      "url": "https://example.org/barth",
      "abstractNote": "Lectures held in Bonn.",
      "language": "de",
      "edition": "3",
      "numPages": "",
      "tags": [{"tag": "Dogmatik"}, {"tag": "Theologie", "type": 1}],
      "collections": ["X1"],
      "dateAdded": "2020-01-01T00:00:00Z"
    }
  },
  {"key": "NOTE0001", "data": {"itemType": "note", "note": "<p>text</p>"}},
  {"key": "NOTITLE1", "data": {"itemType": "journalArticle", "title": " "}},
  {"key": "FLAT0001", "itemType": "journalArticle", "title": "Flat item", "ISSN": "0044-2674", "tags": []}
]`

func TestParseItems(t *testing.T) {
	batch, err := ParseItems([]byte(webItems))
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)

	r := batch.Records[0]
	assert.Equal(t, "Dogmatik im Grundriss", r.Title)
	assert.Equal(t, []string{"Barth, Karl", "Evangelischer Verlag"}, r.Authors)
	assert.Equal(t, "1947", record.Value(r.Year))
	assert.Equal(t, "Evangelischer Verlag", record.Value(r.Publisher))
	assert.Equal(t, "Zürich", record.Value(r.Place))
	assert.Equal(t, "978-3-290-17196-1", record.Value(r.ISBN))
	assert.Nil(t, r.ISSN)
	assert.Equal(t, "de", record.Value(r.Language))
	assert.Equal(t, "Lectures held in Bonn.", record.Value(r.Abstract))
	assert.Equal(t, []string{"https://example.org/barth"}, r.URLs)
	assert.Equal(t, []string{"Dogmatik", "Theologie"}, r.Subjects)
	assert.Equal(t, "ABCD2345", record.Value(r.RawIdentifier))
	assert.Equal(t, record.ProtocolZotero, r.Source)
	assert.Equal(t, map[string]string{"zotero:itemType": "book", "zotero:edition": "3"}, r.Extra)

	flat := batch.Records[1]
	assert.Equal(t, "Flat item", flat.Title)
	assert.Equal(t, "FLAT0001", record.Value(flat.RawIdentifier))
	assert.Equal(t, "0044-2674", record.Value(flat.ISSN))

	require.Len(t, batch.Warnings, 2)
	assert.Equal(t, record.Warning{Index: 2, ID: "NOTE0001", Reason: `unsupported item type "note"`}, batch.Warnings[0])
	assert.Equal(t, 3, batch.Warnings[1].Index)
}

func TestParseItemsMalformed(t *testing.T) {
	_, err := ParseItems([]byte(`{"message": "not an array"`))
	require.Error(t, err)
	assert.True(t, liberrors.IsMalformedResponseError(err))
}

func TestCreatorDisplayName(t *testing.T) {
	assert.Equal(t, "Barth, Karl", Creator{FirstName: "Karl", LastName: "Barth"}.DisplayName())
	assert.Equal(t, "Barth", Creator{LastName: "Barth"}.DisplayName())
	assert.Equal(t, "Karl", Creator{FirstName: "Karl"}.DisplayName())
	assert.Equal(t, "WHO", Creator{Name: "WHO", LastName: "ignored"}.DisplayName())
}

var zoteroSchema = []string{
	`CREATE TABLE itemTypes (itemTypeID INTEGER PRIMARY KEY, typeName TEXT)`,
	`CREATE TABLE items (itemID INTEGER PRIMARY KEY, itemTypeID INT, key TEXT)`,
	`CREATE TABLE fields (fieldID INTEGER PRIMARY KEY, fieldName TEXT)`,
	`CREATE TABLE itemDataValues (valueID INTEGER PRIMARY KEY, value)`,
	`CREATE TABLE itemData (itemID INT, fieldID INT, valueID INT)`,
	`CREATE TABLE creators (creatorID INTEGER PRIMARY KEY, firstName TEXT, lastName TEXT, fieldMode INT)`,
	`CREATE TABLE creatorTypes (creatorTypeID INTEGER PRIMARY KEY, creatorType TEXT)`,
	`CREATE TABLE itemCreators (itemID INT, creatorID INT, creatorTypeID INT, orderIndex INT)`,
	`CREATE TABLE tags (tagID INTEGER PRIMARY KEY, name TEXT)`,
	`CREATE TABLE itemTags (itemID INT, tagID INT, type INT)`,
	`CREATE TABLE deletedItems (itemID INTEGER PRIMARY KEY)`,
}

type testItem struct {
	id       int64
	typeID   int
	key      string
	fields   map[string]string
	creators [][3]string // first, last, fieldMode
	tags     []string
}

func newLocalDB(t *testing.T, items []testItem, deleted ...int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zotero.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	exec := func(q string, args ...any) {
		_, err := db.Exec(q, args...)
		require.NoError(t, err)
	}
	for _, stmt := range zoteroSchema {
		exec(stmt)
	}
	for id, name := range map[int]string{1: "book", 2: "journalArticle", 3: "bookSection", 14: "note", 11: "conferencePaper"} {
		exec(`INSERT INTO itemTypes VALUES (?, ?)`, id, name)
	}
	exec(`INSERT INTO creatorTypes VALUES (1, 'author'), (2, 'editor')`)

	fieldIDs := map[string]int{}
	nextValue, nextCreator, nextTag := 1, 1, 1
	tagIDs := map[string]int{}
	for _, it := range items {
		exec(`INSERT INTO items VALUES (?, ?, ?)`, it.id, it.typeID, it.key)
		for name, value := range it.fields {
			fid, ok := fieldIDs[name]
			if !ok {
				fid = len(fieldIDs) + 1
				fieldIDs[name] = fid
				exec(`INSERT INTO fields VALUES (?, ?)`, fid, name)
			}
			exec(`INSERT INTO itemDataValues VALUES (?, ?)`, nextValue, value)
			exec(`INSERT INTO itemData VALUES (?, ?, ?)`, it.id, fid, nextValue)
			nextValue++
		}
		// Inserted in reverse so ordering must come from orderIndex.
		for i := len(it.creators) - 1; i >= 0; i-- {
			c := it.creators[i]
			exec(`INSERT INTO creators VALUES (?, ?, ?, ?)`, nextCreator, c[0], c[1], c[2])
			exec(`INSERT INTO itemCreators VALUES (?, ?, 1, ?)`, it.id, nextCreator, i)
			nextCreator++
		}
		for _, tag := range it.tags {
			tid, ok := tagIDs[tag]
			if !ok {
				tid = nextTag
				nextTag++
				tagIDs[tag] = tid
				exec(`INSERT INTO tags VALUES (?, ?)`, tid, tag)
			}
			exec(`INSERT INTO itemTags VALUES (?, ?, 0)`, it.id, tid)
		}
	}
	for _, id := range deleted {
		exec(`INSERT INTO deletedItems VALUES (?)`, id)
	}
	return path
}

func library() []testItem {
	return []testItem{
		{
			id: 1, typeID: 1, key: "BOOK0001",
			fields: map[string]string{
				"title": "Kirchliche Dogmatik", "date": "1932", "publisher": "Kaiser",
				"place": "München", "ISBN": "3-290-11612-0", "series": "KD",
			},
			creators: [][3]string{{"Karl", "Barth", "0"}, {"", "Theologischer Verlag", "1"}},
			tags:     []string{"Theologie", "Dogmatik"},
		},
		{
			id: 2, typeID: 2, key: "ART00002",
			fields:   map[string]string{"title": "Barth and the Reformers", "date": "2001-05-01", "ISSN": "0040-5671", "abstractNote": "On Luther and Calvin."},
			creators: [][3]string{{"John", "Webster", "0"}},
			tags:     []string{"Reformation"},
		},
		{
			id: 3, typeID: 14, key: "NOTE0003",
			fields: map[string]string{"title": "Barth note"},
		},
		{
			id: 4, typeID: 1, key: "GONE0004",
			fields: map[string]string{"title": "Deleted Barth book"},
		},
	}
}

func TestOpenLocalMissingFile(t *testing.T) {
	_, err := OpenLocal(filepath.Join(t.TempDir(), "missing.sqlite"))
	assert.True(t, liberrors.IsBackendUnavailableError(err))

	_, err = OpenLocal("")
	assert.True(t, liberrors.IsBackendUnavailableError(err))
}

func TestLocalStoreQuery(t *testing.T) {
	store, err := OpenLocal(newLocalDB(t, library(), 4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tests := []struct {
		name string
		c    criteria.Criteria
		keys []string
	}{
		{"title", criteria.Criteria{Title: "barth"}, []string{"ART00002"}},
		{"author", criteria.Criteria{Author: "Barth"}, []string{"BOOK0001"}},
		{"author and year", criteria.Criteria{Author: "Webster", Year: "2001"}, []string{"ART00002"}},
		{"subject", criteria.Criteria{Subject: "reform"}, []string{"ART00002"}},
		{"isbn", criteria.Criteria{ISBN: "3-290"}, []string{"BOOK0001"}},
		{"free text", criteria.Criteria{FreeText: "Calvin"}, []string{"ART00002"}},
		{"free text matches creators", criteria.Criteria{FreeText: "Barth"}, []string{"BOOK0001", "ART00002"}},
		{"capped", criteria.Criteria{FreeText: "Barth", MaxRecords: 1}, []string{"BOOK0001"}},
		{"offset", criteria.Criteria{FreeText: "Barth", StartRecord: 2}, []string{"ART00002"}},
		{"no match", criteria.Criteria{Title: "Schleiermacher"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := store.Query(context.Background(), tt.c)
			require.NoError(t, err)
			var keys []string
			for _, r := range rows {
				keys = append(keys, r.Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestLocalRowsMapToRecords(t *testing.T) {
	store, err := OpenLocal(newLocalDB(t, library(), 4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	batch, err := NewLocalAdapter(store).Search(context.Background(), criteria.Criteria{Author: "Barth"})
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)

	r := batch.Records[0]
	assert.Equal(t, "Kirchliche Dogmatik", r.Title)
	assert.Equal(t, []string{"Barth, Karl", "Theologischer Verlag"}, r.Authors)
	assert.Equal(t, "1932", record.Value(r.Year))
	assert.Equal(t, "München", record.Value(r.Place))
	assert.Equal(t, []string{"Dogmatik", "Theologie"}, r.Subjects)
	assert.Equal(t, "BOOK0001", record.Value(r.RawIdentifier))
	assert.Equal(t, "KD", r.Extra["zotero:series"])
	assert.Equal(t, "book", r.Extra["zotero:itemType"])
}

func TestWebClientRequest(t *testing.T) {
	var got transport.Request
	tr := transport.Func(func(ctx context.Context, req transport.Request) (transport.Response, error) {
		got = req
		return transport.Response{StatusCode: 200, Body: []byte(webItems)}, nil
	})
	api := NewWebAPI(WebConfig{APIKey: "secret", LibraryID: "475425", LibraryType: "user"}, tr)

	batch, err := NewWebAdapter(api).Search(context.Background(), criteria.Criteria{Title: "Dogmatik", Author: "Barth", Subject: "Theologie", MaxRecords: 1})
	require.NoError(t, err)
	assert.Len(t, batch.Records, 1)

	assert.Equal(t, "https://api.zotero.org/users/475425/items", got.URL)
	assert.Equal(t, "Dogmatik Barth", got.Params.Get("q"))
	assert.Equal(t, "titleCreatorYear", got.Params.Get("qmode"))
	assert.Equal(t, "Theologie", got.Params.Get("tag"))
	assert.Equal(t, "1", got.Params.Get("limit"))
	assert.Equal(t, "json", got.Params.Get("format"))
	assert.Equal(t, "book || journalArticle || bookSection || conferencePaper", got.Params.Get("itemType"))
	assert.Equal(t, "secret", got.Headers["Zotero-API-Key"])
	assert.Equal(t, "3", got.Headers["Zotero-API-Version"])
}

func TestWebClientEverythingMode(t *testing.T) {
	c := NewWebAPI(WebConfig{APIKey: "k", LibraryID: "9", LibraryType: "group", BaseURL: "http://localhost:8080/"}, nil).(*WebClient)
	req := c.ItemsRequest(criteria.Criteria{ISBN: "9783290171961", StartRecord: 11})
	assert.Equal(t, "http://localhost:8080/groups/9/items", req.URL)
	assert.Equal(t, "everything", req.Params.Get("qmode"))
	assert.Equal(t, "10", req.Params.Get("start"))
	assert.Equal(t, "100", req.Params.Get("limit"))
}

func TestWebClientRejectedKey(t *testing.T) {
	tr := transport.Func(func(ctx context.Context, req transport.Request) (transport.Response, error) {
		return transport.Response{StatusCode: 403}, liberrors.NewTransportError(req.FullURL(), 403)
	})
	api := NewWebAPI(WebConfig{APIKey: "bad", LibraryID: "1", LibraryType: "user"}, tr)
	_, err := NewWebAdapter(api).Search(context.Background(), criteria.Criteria{Title: "x"})
	assert.True(t, liberrors.IsBackendUnavailableError(err))
}

func TestNotConfigured(t *testing.T) {
	tests := []struct {
		cfg    WebConfig
		reason string
	}{
		{WebConfig{}, "missing API key, library ID, library type"},
		{WebConfig{APIKey: "k", LibraryID: "1"}, "missing library type"},
		{WebConfig{APIKey: "k", LibraryID: "1", LibraryType: "team"}, `library type must be user or group, got "team"`},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			api := NewWebAPI(tt.cfg, nil)
			require.IsType(t, NotConfigured{}, api)
			assert.Equal(t, tt.reason, api.(NotConfigured).Reason)

			_, err := NewWebAdapter(api).Search(context.Background(), criteria.Criteria{Title: "x"})
			require.Error(t, err)
			assert.True(t, liberrors.IsBackendUnavailableError(err))
		})
	}
}

func TestAdapterValidatesCriteria(t *testing.T) {
	_, err := NewWebAdapter(NotConfigured{}).Search(context.Background(), criteria.Criteria{})
	assert.True(t, liberrors.IsInvalidCriteriaError(err))

	_, err = (&Adapter{}).Search(context.Background(), criteria.Criteria{Title: "x"})
	assert.True(t, liberrors.IsBackendUnavailableError(err))
}
