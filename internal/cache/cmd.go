package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/libsearch/internal/config"
)

// ClearCacheCmd represents the cache clear subcommand
type ClearCacheCmd struct {
	Source  string `arg:"" help:"Cache source to clear: sru, oai, ixtheo, zotero or all" required:""`
	Expired bool   `help:"Only remove entries older than the cache TTL"`
}

func (c *ClearCacheCmd) Run() error {
	tables, err := Tables(c.Source)
	if err != nil {
		return err
	}

	slog.Info("Clearing cache", "source", c.Source, "database", config.CacheDBFile)

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	var total int64
	for _, table := range tables {
		var rows int64
		if c.Expired {
			rows, err = cacheInstance.ClearExpired(table, ttl())
		} else {
			rows, err = cacheInstance.InvalidateSource(table)
		}
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		total += rows
	}

	slog.Info("Cache cleared", "source", c.Source, "rows_deleted", total)
	return nil
}

func ttl() time.Duration {
	if config.CacheTTL > 0 {
		return config.CacheTTL
	}
	return DefaultCacheTTL
}
