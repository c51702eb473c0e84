package testutil

import (
	"testing"
	"time"

	"github.com/lepinkainen/libsearch/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	OverwriteFiles    bool
	RequestTimeout    time.Duration
	UserAgent         string
	MaxAttempts       int
	DefaultRateLimit  float64
	EndpointsFile     string
	ZoteroAPIKey      string
	ZoteroLibraryID   string
	ZoteroLibraryType string
	ZoteroDB          string
	IxTheoBrowser     bool
	IxTheoExport      bool
	BrowserHeadless   bool
	CacheEnabled      bool
	CacheDBFile       string
	CacheTTL          time.Duration
	Datastore         string
	DatastoreDSN      string
	DatastoreToken    string
	DatastoreDatabase string
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		OverwriteFiles:    config.OverwriteFiles,
		RequestTimeout:    config.RequestTimeout,
		UserAgent:         config.UserAgent,
		MaxAttempts:       config.MaxAttempts,
		DefaultRateLimit:  config.DefaultRateLimit,
		EndpointsFile:     config.EndpointsFile,
		ZoteroAPIKey:      config.ZoteroAPIKey,
		ZoteroLibraryID:   config.ZoteroLibraryID,
		ZoteroLibraryType: config.ZoteroLibraryType,
		ZoteroDB:          config.ZoteroDB,
		IxTheoBrowser:     config.IxTheoBrowser,
		IxTheoExport:      config.IxTheoExport,
		BrowserHeadless:   config.BrowserHeadless,
		CacheEnabled:      config.CacheEnabled,
		CacheDBFile:       config.CacheDBFile,
		CacheTTL:          config.CacheTTL,
		Datastore:         config.Datastore,
		DatastoreDSN:      config.DatastoreDSN,
		DatastoreToken:    config.DatastoreToken,
		DatastoreDatabase: config.DatastoreDatabase,
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.OverwriteFiles = state.OverwriteFiles
	config.RequestTimeout = state.RequestTimeout
	config.UserAgent = state.UserAgent
	config.MaxAttempts = state.MaxAttempts
	config.DefaultRateLimit = state.DefaultRateLimit
	config.EndpointsFile = state.EndpointsFile
	config.ZoteroAPIKey = state.ZoteroAPIKey
	config.ZoteroLibraryID = state.ZoteroLibraryID
	config.ZoteroLibraryType = state.ZoteroLibraryType
	config.ZoteroDB = state.ZoteroDB
	config.IxTheoBrowser = state.IxTheoBrowser
	config.IxTheoExport = state.IxTheoExport
	config.BrowserHeadless = state.BrowserHeadless
	config.CacheEnabled = state.CacheEnabled
	config.CacheDBFile = state.CacheDBFile
	config.CacheTTL = state.CacheTTL
	config.Datastore = state.Datastore
	config.DatastoreDSN = state.DatastoreDSN
	config.DatastoreToken = state.DatastoreToken
	config.DatastoreDatabase = state.DatastoreDatabase
}

// ResetConfig saves the current config state, resets viper and schedules
// restoration when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetTestConfigOption is a functional option for configuring test config.
type SetTestConfigOption func()

// WithOverwriteFiles sets the OverwriteFiles option.
func WithOverwriteFiles(v bool) SetTestConfigOption {
	return func() { config.OverwriteFiles = v }
}

// WithZoteroDB points the Zotero backend at a local database.
func WithZoteroDB(path string) SetTestConfigOption {
	return func() { config.ZoteroDB = path }
}

// WithDatastore selects a datastore for the test.
func WithDatastore(kind, dsn string) SetTestConfigOption {
	return func() {
		config.Datastore = kind
		config.DatastoreDSN = dsn
	}
}

// WithCache enables the response cache on dbPath.
func WithCache(dbPath string) SetTestConfigOption {
	return func() {
		config.CacheEnabled = true
		config.CacheDBFile = dbPath
	}
}

// WithEndpointsFile sets the endpoint override file.
func WithEndpointsFile(path string) SetTestConfigOption {
	return func() { config.EndpointsFile = path }
}

// SetTestConfig resets the configuration to offline-friendly test values
// (short timeout, single attempt, no throttling, no cache, no datastore) and applies
// opts on top. Everything is restored when the test completes.
func SetTestConfig(t *testing.T, opts ...SetTestConfigOption) {
	t.Helper()

	ResetConfig(t)
	config.InitConfig()

	config.RequestTimeout = 5 * time.Second
	config.MaxAttempts = 1
	config.DefaultRateLimit = 0
	config.EndpointsFile = ""
	config.ZoteroAPIKey = ""
	config.ZoteroLibraryID = ""
	config.ZoteroDB = ""
	config.CacheEnabled = false
	config.Datastore = "none"

	for _, opt := range opts {
		opt()
	}
}

// SetViperValue sets a viper configuration value and schedules cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)
	viper.Set(key, value)

	t.Cleanup(func() {
		// viper has no Unset, so an unset key keeps the test value.
		if hadValue {
			viper.Set(key, oldValue)
		}
	})
}
