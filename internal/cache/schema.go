package cache

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/libsearch/internal/record"
)

// All cache tables share one layout keyed by "cache_key"
const tableSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_cached_at ON %[1]s(cached_at);
`

var sourceTables = map[record.Protocol]string{
	record.ProtocolSRU:    "sru_cache",
	record.ProtocolOAI:    "oai_cache",
	record.ProtocolIxTheo: "ixtheo_cache",
	record.ProtocolZotero: "zotero_cache",
}

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas []string

// ValidCacheTableNames is the whitelist of allowed cache table names
var ValidCacheTableNames = map[string]bool{}

func init() {
	for _, table := range sourceTables {
		AllCacheSchemas = append(AllCacheSchemas, fmt.Sprintf(tableSchema, table))
		ValidCacheTableNames[table] = true
	}
}

// TableFor returns the cache table holding responses of protocol
func TableFor(protocol record.Protocol) (string, error) {
	table, ok := sourceTables[protocol]
	if !ok {
		return "", fmt.Errorf("no cache for protocol %q", protocol)
	}
	return table, nil
}

// Tables resolves a source name ("sru", "oai", "ixtheo", "zotero" or
// "all") to cache tables
func Tables(source string) ([]string, error) {
	if strings.EqualFold(strings.TrimSpace(source), "all") {
		return []string{"ixtheo_cache", "oai_cache", "sru_cache", "zotero_cache"}, nil
	}
	protocol, err := record.ParseProtocol(source)
	if err != nil {
		return nil, fmt.Errorf("invalid cache source %q; valid sources are: sru, oai, ixtheo, zotero, all", source)
	}
	table, err := TableFor(protocol)
	if err != nil {
		return nil, err
	}
	return []string{table}, nil
}
