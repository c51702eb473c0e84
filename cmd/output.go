package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lepinkainen/libsearch/internal/automation"
	"github.com/lepinkainen/libsearch/internal/cache"
	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/config"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/datastore"
	"github.com/lepinkainen/libsearch/internal/export"
	"github.com/lepinkainen/libsearch/internal/fileutil"
	"github.com/lepinkainen/libsearch/internal/ratelimit"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/search"
	"github.com/lepinkainen/libsearch/internal/transport"
)

func httpOptions() transport.Options {
	return transport.Options{
		Timeout:     config.RequestTimeout,
		UserAgent:   config.UserAgent,
		MaxAttempts: config.MaxAttempts,
		Limits:      ratelimit.NewRegistry(config.DefaultRateLimit),
	}
}

func searchOptions() search.Options {
	http := httpOptions()
	return search.Options{
		HTTP:    http,
		Browser: config.IxTheoBrowser,
		BrowserOptions: automation.Options{
			Headless:  config.BrowserHeadless,
			UserAgent: http.UserAgent,
		},
		IxTheoExport: config.IxTheoExport,
		Wrap:         cache.Wrap,
	}
}

// open resolves an endpoint against the built-in catalog and the endpoints
// file, then builds its adapter.
func open(protocol record.Protocol, name string, opts search.Options) (search.Adapter, catalog.Descriptor, error) {
	cat, err := loadCatalog(config.EndpointsFile)
	if err != nil {
		return nil, catalog.Descriptor{}, err
	}
	return openAdapter(cat, protocol, name, opts)
}

// runSearch executes one search and emits whatever came back. A search error is
// returned after the partial results have been written.
func runSearch(ctx context.Context, g *Globals, a search.Adapter, protocol record.Protocol, endpoint string, c criteria.Criteria) error {
	slog.Debug("Searching", "protocol", protocol, "endpoint", endpoint, "query", describe(c))
	batch, searchErr := a.Search(ctx, c)
	if searchErr != nil && len(batch.Records) == 0 && len(batch.Warnings) == 0 {
		return searchErr
	}
	if searchErr != nil {
		slog.Warn("Search stopped early, writing partial results", "error", searchErr, "records", len(batch.Records))
	}
	if err := emit(ctx, g, datastore.NewRun(protocol, endpoint, describe(c)), batch); err != nil {
		return errors.Join(searchErr, err)
	}
	return searchErr
}

// emit logs the skipped records, writes the serialized batch to the output
// file or stdout, writes notes and persists the records.
func emit(ctx context.Context, g *Globals, run datastore.Run, batch record.Batch) error {
	for _, w := range batch.Warnings {
		slog.Warn("Skipped record", "index", w.Index, "id", w.ID, "reason", w.Reason)
	}

	data, err := export.Serialize(g.Format, batch.Records)
	if err != nil {
		return err
	}
	if g.Output != "" {
		if err := fileutil.WriteOutput(g.Output, data, config.OverwriteFiles); err != nil {
			return err
		}
	} else if _, err := stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if g.NotesDir != "" {
		if err := writeNotes(g.NotesDir, batch.Records); err != nil {
			return err
		}
	}

	return persist(ctx, run, batch.Records)
}

func writeNotes(dir string, recs []record.Record) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}
	for _, r := range recs {
		path := fileutil.GetMarkdownFilePath(r.Title, dir)
		if err := fileutil.WriteMarkdownFile(path, export.Note(r), config.OverwriteFiles); err != nil {
			return err
		}
	}
	slog.Info("Wrote notes", "directory", dir, "count", len(recs))
	return nil
}

func persist(ctx context.Context, run datastore.Run, recs []record.Record) error {
	store, err := datastore.New(datastore.Config{
		Kind:     config.Datastore,
		DSN:      config.DatastoreDSN,
		Token:    config.DatastoreToken,
		Database: config.DatastoreDatabase,
	})
	if err != nil || store == nil {
		return err
	}
	if err := store.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s datastore: %w", config.Datastore, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close datastore", "error", err)
		}
	}()
	if err := datastore.Save(ctx, store, run, recs); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	slog.Info("Saved records", "datastore", config.Datastore, "run", run.ID, "count", len(recs))
	return nil
}

// describe renders the search fields as a stable field=value list.
func describe(c criteria.Criteria) string {
	var parts []string
	for _, f := range c.SetFields() {
		parts = append(parts, fmt.Sprintf("%s=%s", f, c.Get(f)))
	}
	if c.Set != "" {
		parts = append(parts, "set="+c.Set)
	}
	if c.From != "" {
		parts = append(parts, "from="+c.From)
	}
	if c.Until != "" {
		parts = append(parts, "until="+c.Until)
	}
	return strings.Join(parts, " ")
}
