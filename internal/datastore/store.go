// Package datastore persists search results in a local SQLite file, a
// PostgreSQL database or a remote Datasette instance.
package datastore

import (
	"context"
	"fmt"
	"strings"
)

// Kinds of store accepted by New.
const (
	KindNone      = "none"
	KindSQLite    = "sqlite"
	KindPostgres  = "postgres"
	KindDatasette = "datasette"
)

// Config selects and addresses a store. DSN is a file path for SQLite, a
// connection string for PostgreSQL and the base URL for Datasette.
type Config struct {
	Kind     string
	DSN      string
	Token    string
	Database string
}

// Store defines the interface for result storage
type Store interface {
	// Connect establishes a connection to the data store
	Connect(ctx context.Context) error

	// CreateTable creates the records table if it doesn't exist
	CreateTable(ctx context.Context) error

	// BatchInsert inserts rows into the specified table in one transaction
	BatchInsert(ctx context.Context, table string, rows []map[string]any) error

	// Close closes the connection to the data store
	Close() error
}

// New returns the configured store, or nil for "none" and "".
func New(cfg Config) (Store, error) {
	dsn := cfg.DSN
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindNone:
		return nil, nil
	case KindSQLite:
		if dsn == "" {
			dsn = "libsearch.db"
		}
		return NewSQLiteStore(dsn), nil
	case KindPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres datastore needs a DSN")
		}
		return NewPostgresStore(dsn), nil
	case KindDatasette:
		if dsn == "" {
			return nil, fmt.Errorf("datasette datastore needs a base URL")
		}
		return NewDatasetteClient(dsn, cfg.Token, cfg.Database, nil), nil
	}
	return nil, fmt.Errorf("unknown datastore %q (use sqlite, postgres, datasette or none)", cfg.Kind)
}
