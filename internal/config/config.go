package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// OverwriteFiles controls whether an existing output file may be replaced
	OverwriteFiles bool

	// RequestTimeout bounds a single protocol request
	RequestTimeout time.Duration
	// UserAgent is sent with every HTTP request
	UserAgent string
	// MaxAttempts is the number of tries per request, including the first
	MaxAttempts int
	// DefaultRateLimit is the requests per second allowed for hosts without
	// their own limit; zero disables throttling
	DefaultRateLimit float64

	// EndpointsFile is an optional YAML file overriding built-in endpoints
	EndpointsFile string

	ZoteroAPIKey      string
	ZoteroLibraryID   string
	ZoteroLibraryType string
	// ZoteroDB is the path to a local zotero.sqlite
	ZoteroDB string

	// IxTheoBrowser fetches IxTheo result pages through a headless browser
	IxTheoBrowser bool
	// IxTheoExport backfills IxTheo results from the RIS export
	IxTheoExport bool
	// BrowserHeadless runs the browser without a window
	BrowserHeadless bool

	// CacheEnabled serves repeated protocol requests from CacheDBFile
	CacheEnabled bool
	CacheDBFile  string
	CacheTTL     time.Duration

	// Datastore selects where results are persisted: none, sqlite,
	// postgres or datasette
	Datastore         string
	DatastoreDSN      string
	DatastoreToken    string
	DatastoreDatabase string
)

// SetDefaults registers default values for every key read by InitConfig
func SetDefaults() {
	viper.SetDefault("OverwriteFiles", false)
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.user_agent", "")
	viper.SetDefault("http.max_attempts", 3)
	viper.SetDefault("http.rate_limit", 0.0)
	viper.SetDefault("endpoints.file", "endpoints.yaml")
	viper.SetDefault("zotero.library_type", "user")
	viper.SetDefault("ixtheo.browser", false)
	viper.SetDefault("ixtheo.export", false)
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("datastore.kind", "none")
	viper.SetDefault("datastore.database", "libsearch")
}

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	OverwriteFiles = viper.GetBool("OverwriteFiles")
	RequestTimeout = viper.GetDuration("http.timeout")
	UserAgent = viper.GetString("http.user_agent")
	MaxAttempts = viper.GetInt("http.max_attempts")
	DefaultRateLimit = viper.GetFloat64("http.rate_limit")
	EndpointsFile = viper.GetString("endpoints.file")

	ZoteroAPIKey = viper.GetString("zotero.api_key")
	ZoteroLibraryID = viper.GetString("zotero.library_id")
	ZoteroLibraryType = viper.GetString("zotero.library_type")
	ZoteroDB = viper.GetString("zotero.db")

	IxTheoBrowser = viper.GetBool("ixtheo.browser")
	IxTheoExport = viper.GetBool("ixtheo.export")
	BrowserHeadless = viper.GetBool("browser.headless")

	CacheEnabled = viper.GetBool("cache.enabled")
	CacheDBFile = viper.GetString("cache.dbfile")
	CacheTTL = viper.GetDuration("cache.ttl")

	Datastore = viper.GetString("datastore.kind")
	DatastoreDSN = viper.GetString("datastore.dsn")
	DatastoreToken = viper.GetString("datastore.token")
	DatastoreDatabase = viper.GetString("datastore.database")
}

// SetOverwriteFiles sets the OverwriteFiles flag
func SetOverwriteFiles(overwrite bool) {
	OverwriteFiles = overwrite
}
