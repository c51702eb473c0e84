package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/libsearch/internal/cache"
	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/config"
	"github.com/lepinkainen/libsearch/internal/search"
	"github.com/lepinkainen/libsearch/internal/tui"
)

var (
	loadCatalog = catalog.Load
	openAdapter = search.Open
	openZotero  = search.NewZotero
	selectSet   = tui.SelectSet

	stdout io.Writer = os.Stdout
)

// Globals holds the flags shared by every command
type Globals struct {
	Format    string `short:"f" help:"Output format: text, json, bibtex, ris, marc, zotero or markdown" default:"text"`
	Output    string `short:"o" help:"Write results to this file instead of stdout"`
	Overwrite bool   `help:"Overwrite an existing output file or note"`
	NotesDir  string `name:"notes-dir" help:"Also write every record as a markdown note into this directory"`
	Verbose   bool   `short:"v" help:"Enable debug logging"`

	Datastore    string `help:"Persist results: none, sqlite, postgres or datasette (default from config)"`
	DatastoreDSN string `name:"datastore-dsn" help:"SQLite path, PostgreSQL connection string or Datasette URL"`

	EndpointsFile string `name:"endpoints-file" help:"YAML file with additional or replacement endpoints (default from config)"`

	Cache       bool   `help:"Serve repeated requests from the response cache"`
	CacheDBFile string `name:"cache-db-file" help:"Path to the response cache database (default from config)"`

	ctx context.Context `kong:"-"`
}

// CLI represents the complete command structure for the libsearch application
type CLI struct {
	Globals

	SRU        SRUCmd        `cmd:"" name:"sru" help:"Search an SRU catalog"`
	OAI        OAICmd        `cmd:"" name:"oai" help:"Harvest records from an OAI-PMH repository"`
	OAIExplore OAIExploreCmd `cmd:"" name:"oai-explore" help:"Show what an OAI-PMH repository offers"`
	IxTheo     IxTheoCmd     `cmd:"" name:"ixtheo" help:"Search the Index Theologicus"`
	Zotero     ZoteroCmd     `cmd:"" name:"zotero" help:"Search a Zotero library"`
	Endpoints  EndpointsCmd  `cmd:"" name:"endpoints" help:"List the known endpoints"`
	CacheCmd   CacheCmd      `cmd:"" name:"cache" help:"Manage the response cache"`
}

// CacheCmd groups the cache maintenance commands
type CacheCmd struct {
	Clear cache.ClearCacheCmd `cmd:"" help:"Remove cached responses for a source"`
}

func (g *Globals) context() context.Context {
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}

func kongOptions(cli *CLI) []kong.Option {
	return []kong.Option{
		kong.Name("libsearch"),
		kong.Description("Search library catalogs over SRU, OAI-PMH, IxTheo and Zotero."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	}
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(slog.LevelInfo)
	initConfig()

	var cli CLI
	ctx := kong.Parse(&cli, kongOptions(&cli)...)

	updateGlobalConfig(&cli)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cli.ctx = sigCtx

	err := ctx.Run()
	if cerr := cache.ResetGlobalCache(); cerr != nil {
		slog.Warn("Failed to close cache", "error", cerr)
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	config.SetDefaults()

	viper.AutomaticEnv()
	bindings := map[string]string{
		"zotero.api_key":      "ZOTERO_API_KEY",
		"zotero.library_id":   "ZOTERO_LIBRARY_ID",
		"zotero.library_type": "ZOTERO_LIBRARY_TYPE",
		"zotero.db":           "ZOTERO_DB",
		"datastore.dsn":       "LIBSEARCH_DATASTORE_DSN",
		"datastore.token":     "LIBSEARCH_DATASTORE_TOKEN",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
		slog.Debug("No config file found, using defaults")
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	if cli.Verbose {
		initLogging(slog.LevelDebug)
	}
	config.SetOverwriteFiles(cli.Overwrite)
	if cli.Datastore != "" {
		config.Datastore = cli.Datastore
	}
	if cli.DatastoreDSN != "" {
		config.DatastoreDSN = cli.DatastoreDSN
	}
	if cli.EndpointsFile != "" {
		config.EndpointsFile = cli.EndpointsFile
	}
	if cli.Cache {
		config.CacheEnabled = true
	}
	if cli.CacheDBFile != "" {
		config.CacheDBFile = cli.CacheDBFile
	}
}

// initLogging sends logs to stderr so results on stdout stay clean
func initLogging(level slog.Level) {
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
