// Package cache keeps protocol responses in SQLite so repeated searches
// against the same endpoint do not hit the network again.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/libsearch/internal/config"
)

// DefaultCacheTTL is the default time-to-live for cached responses
const DefaultCacheTTL = 24 * time.Hour

// FetchFunc represents a function that fetches data from an external source
type FetchFunc[T any] func() (T, error)

// CacheDB manages the SQLite database connection for caching
type CacheDB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

var (
	globalCache     *CacheDB
	globalCacheOnce sync.Once
	globalCacheErr  error
)

// ResetGlobalCache closes the current global cache and resets the singleton
// so the next call to GetGlobalCache will create a new instance.
func ResetGlobalCache() error {
	var err error
	if globalCache != nil {
		err = globalCache.Close()
	}
	globalCache = nil
	globalCacheErr = nil
	globalCacheOnce = sync.Once{}
	return err
}

// GetGlobalCache returns the cache database named by config.CacheDBFile,
// opening it and creating every cache table on first use.
func GetGlobalCache() (*CacheDB, error) {
	globalCacheOnce.Do(func() {
		dbPath := config.CacheDBFile
		if dbPath == "" {
			dbPath = "./cache.db"
		}
		c, err := NewCacheDB(dbPath)
		if err != nil {
			globalCacheErr = err
			return
		}
		for _, schema := range AllCacheSchemas {
			if err := c.CreateTable(schema); err != nil {
				globalCacheErr = errors.Join(fmt.Errorf("failed to create cache table: %w", err), c.Close())
				return
			}
		}
		globalCache = c
	})
	return globalCache, globalCacheErr
}

// NewCacheDB creates a new CacheDB instance and opens the database connection
func NewCacheDB(dbPath string) (*CacheDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	return &CacheDB{
		db:   db,
		path: dbPath,
	}, nil
}

// Path returns the database file the cache was opened on
func (c *CacheDB) Path() string {
	return c.path
}

// CreateTable creates a table using the provided schema
func (c *CacheDB) CreateTable(schema string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *CacheDB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// validateTableName checks the table against the whitelist, since table
// names are interpolated into the SQL
func validateTableName(tableName string) error {
	if !ValidCacheTableNames[tableName] {
		return fmt.Errorf("invalid cache table name: %s", tableName)
	}
	return nil
}

// Get retrieves a cached value from the specified table.
// Returns the cached data, whether it was from cache, and any error.
func (c *CacheDB) Get(tableName, key string, ttl time.Duration) (string, bool, error) {
	if err := validateTableName(tableName); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	query := fmt.Sprintf(`SELECT data, cached_at FROM %s WHERE cache_key = ?`, tableName)

	var data string
	var cachedAt time.Time
	err := c.db.QueryRow(query, key).Scan(&data, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	if age := time.Now().UTC().Sub(cachedAt); age > ttl {
		slog.Debug("Cache expired", "table", tableName, "key", key, "age", age)
		return "", false, nil
	}
	return data, true, nil
}

// Set stores a value in the cache
func (c *CacheDB) Set(tableName, key, data string) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, data, cached_at) VALUES (?, ?, ?)`, tableName)
	if _, err := c.db.Exec(query, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// ClearExpired removes entries older than ttl and returns how many went
func (c *CacheDB) ClearExpired(tableName string, ttl time.Duration) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().UTC().Add(-ttl)
	result, err := c.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE cached_at < ?`, tableName), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("Cleared expired cache entries", "table", tableName, "count", rows)
	}
	return rows, nil
}

// InvalidateSource deletes all entries from the specified cache table and
// returns the number of rows deleted
func (c *CacheDB) InvalidateSource(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	slog.Debug("Cache table cleared", "table", tableName, "rows_deleted", rowsAffected)
	return rowsAffected, nil
}

// GetOrFetch returns the cached value for key, or calls fetch and stores
// its result. shouldCache, when set, decides whether a fetched value is
// stored. Cache failures are logged and never fail the fetch.
func GetOrFetch[T any](c *CacheDB, tableName, key string, ttl time.Duration, fetch FetchFunc[T], shouldCache func(T) bool) (T, bool, error) {
	var zero T

	cached, fromCache, err := c.Get(tableName, key, ttl)
	if err != nil {
		slog.Warn("Failed to read cache, fetching directly", "table", tableName, "error", err)
	}
	if err == nil && fromCache {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "table", tableName, "key", key)
			return result, true, nil
		}
		slog.Warn("Failed to unmarshal cached data, will refetch", "table", tableName, "key", key, "error", err)
	}

	slog.Debug("Cache miss, fetching data", "table", tableName, "key", key)
	data, err := fetch()
	if err != nil {
		return zero, false, err
	}

	if shouldCache != nil && !shouldCache(data) {
		return data, false, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "table", tableName, "key", key, "error", err)
		return data, false, nil
	}
	if err := c.Set(tableName, key, string(jsonData)); err != nil {
		slog.Warn("Failed to cache data", "table", tableName, "key", key, "error", err)
	}
	return data, false, nil
}
