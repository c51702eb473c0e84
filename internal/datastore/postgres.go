package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS ` + RecordsTable + ` (
	id BIGSERIAL PRIMARY KEY,
	search_id TEXT NOT NULL,
	protocol TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	query TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	authors TEXT NOT NULL,
	year TEXT,
	publisher TEXT,
	place TEXT,
	isbn TEXT,
	issn TEXT,
	language TEXT,
	abstract TEXT,
	subjects TEXT NOT NULL,
	urls TEXT NOT NULL,
	raw_identifier TEXT,
	extra TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
)`

const pingTimeout = 5 * time.Second

// PostgresStore implements the Store interface on a pgx connection pool.
type PostgresStore struct {
	dsn  string
	pool *pgxpool.Pool
}

func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

// Connect creates the pool and checks the server answers.
func (s *PostgresStore) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("cannot ping database: %w", err)
	}
	s.pool = pool
	return nil
}

func (s *PostgresStore) CreateTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// BatchInsert copies rows into table with the COPY protocol.
func (s *PostgresStore) BatchInsert(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	columns := columnsOf(rows[0])
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = valuesOf(row, columns)
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(values))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
