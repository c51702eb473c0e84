package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/datastore"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/oai"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/tui"
)

// OAICmd groups the OAI-PMH retrieval commands. Without a subcommand it
// harvests.
type OAICmd struct {
	Harvest     OAIHarvestCmd     `cmd:"" default:"withargs" help:"Harvest records, optionally filtered by set, date range and search fields"`
	Get         OAIGetCmd         `cmd:"" help:"Fetch a single record by identifier"`
	Identifiers OAIIdentifiersCmd `cmd:"" help:"List the first page of record identifiers"`
}

// HarvestFlags select what an OAI-PMH list request covers
type HarvestFlags struct {
	Set    string `help:"Set spec to harvest"`
	Prefix string `help:"Metadata prefix (default from the endpoint)"`
	From   string `help:"Harvest records changed on or after this date (YYYY-MM-DD)"`
	Until  string `help:"Harvest records changed on or before this date (YYYY-MM-DD)"`
}

func (f HarvestFlags) apply(c criteria.Criteria) criteria.Criteria {
	c.Set = f.Set
	c.MetadataPrefix = f.Prefix
	c.From = f.From
	c.Until = f.Until
	return c
}

// OAIHarvestCmd harvests records from an OAI-PMH endpoint
type OAIHarvestCmd struct {
	Endpoint string `short:"e" help:"OAI-PMH endpoint name (see 'endpoints --protocol oai')" required:""`

	HarvestFlags `embed:""`
	SearchFlags  `embed:""`
}

func (c *OAIHarvestCmd) Run(g *Globals) error {
	a, d, err := open(record.ProtocolOAI, c.Endpoint, searchOptions())
	if err != nil {
		return err
	}
	return runSearch(g.context(), g, a, record.ProtocolOAI, d.Name, c.apply(c.Criteria()))
}

// OAIGetCmd fetches one record by its OAI identifier
type OAIGetCmd struct {
	Endpoint   string `short:"e" help:"OAI-PMH endpoint name" required:""`
	Identifier string `short:"i" help:"OAI identifier of the record" required:""`
	Prefix     string `help:"Metadata prefix (default from the endpoint)"`
}

func (c *OAIGetCmd) Run(g *Globals) error {
	a, d, err := openOAI(c.Endpoint)
	if err != nil {
		return err
	}
	ctx := g.context()
	batch, err := a.Explorer().GetRecord(ctx, c.Identifier, c.Prefix)
	if err != nil {
		return err
	}
	return emit(ctx, g, datastore.NewRun(record.ProtocolOAI, d.Name, "identifier="+c.Identifier), batch)
}

// OAIIdentifiersCmd lists record headers without fetching metadata
type OAIIdentifiersCmd struct {
	Endpoint string `short:"e" help:"OAI-PMH endpoint name" required:""`

	HarvestFlags `embed:""`
}

func (c *OAIIdentifiersCmd) Run(g *Globals) error {
	a, _, err := openOAI(c.Endpoint)
	if err != nil {
		return err
	}
	headers, token, err := a.Explorer().ListIdentifiers(g.context(), c.apply(criteria.Criteria{}))
	if err != nil {
		return err
	}

	w := newTable(stdout)
	fmt.Fprintln(w, "IDENTIFIER\tDATESTAMP\tSETS\tSTATUS")
	for _, h := range headers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Identifier, h.Datestamp, strings.Join(h.SetSpecs, ","), h.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if token != "" {
		slog.Info("More identifiers available", "resumption_token", token)
	}
	return nil
}

// OAIExploreCmd describes an OAI-PMH repository and optionally harvests a
// set picked interactively
type OAIExploreCmd struct {
	Endpoint    string `short:"e" help:"OAI-PMH endpoint name" required:""`
	Interactive bool   `short:"i" help:"Pick a set to harvest from a list"`

	HarvestFlags `embed:""`
	SearchFlags  `embed:""`
}

func (c *OAIExploreCmd) Run(g *Globals) error {
	a, d, err := openOAI(c.Endpoint)
	if err != nil {
		return err
	}
	ctx := g.context()

	sets, err := describeRepository(ctx, stdout, a.Explorer())
	if err != nil {
		return err
	}
	if !c.Interactive {
		return nil
	}

	result, err := selectSet(d.Name, sets)
	if err != nil {
		return fmt.Errorf("set selection failed: %w", err)
	}
	crit := c.apply(c.Criteria())
	switch result.Action {
	case tui.ActionSelected:
		crit.Set = result.Selection.Spec
	case tui.ActionSkipped:
		if crit.ValidateHarvest() != nil {
			slog.Info("No set selected, nothing to harvest")
			return nil
		}
	default:
		return nil
	}

	return runSearch(ctx, g, a, record.ProtocolOAI, d.Name, crit)
}

func openOAI(name string) (*oai.Adapter, catalog.Descriptor, error) {
	a, d, err := open(record.ProtocolOAI, name, searchOptions())
	if err != nil {
		return nil, d, err
	}
	oa, ok := a.(*oai.Adapter)
	if !ok {
		return nil, d, fmt.Errorf("endpoint %q is not an OAI-PMH repository", name)
	}
	return oa, d, nil
}

// describeRepository prints the identity, metadata formats and sets of a
// repository and returns the sets. Repositories without set support fall
// back to the sets the catalog knows about.
func describeRepository(ctx context.Context, w io.Writer, ex *oai.Explorer) ([]oai.Set, error) {
	id, err := ex.Identify(ctx)
	if err != nil {
		return nil, err
	}
	t := newTable(w)
	fmt.Fprintf(t, "Repository:\t%s\n", id.RepositoryName)
	fmt.Fprintf(t, "Base URL:\t%s\n", id.BaseURL)
	fmt.Fprintf(t, "Protocol version:\t%s\n", id.ProtocolVersion)
	fmt.Fprintf(t, "Earliest datestamp:\t%s\n", id.EarliestDatestamp)
	fmt.Fprintf(t, "Deleted records:\t%s\n", id.DeletedRecord)
	fmt.Fprintf(t, "Granularity:\t%s\n", id.Granularity)
	if len(id.AdminEmails) > 0 {
		fmt.Fprintf(t, "Admin:\t%s\n", strings.Join(id.AdminEmails, ", "))
	}
	if err := t.Flush(); err != nil {
		return nil, err
	}

	formats, err := ex.ListMetadataFormats(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w, "\nMetadata formats:")
	t = newTable(w)
	for _, f := range formats {
		fmt.Fprintf(t, "  %s\t%s\n", f.Prefix, f.Namespace)
	}
	if err := t.Flush(); err != nil {
		return nil, err
	}

	sets, err := ex.ListSets(ctx)
	if err != nil && !liberrors.IsProtocolError(err) {
		return nil, err
	}
	if len(sets) == 0 {
		slog.Debug("Repository did not list sets, using known sets", "error", err)
		sets = ex.KnownSets()
	}
	fmt.Fprintln(w, "\nSets:")
	t = newTable(w)
	for _, s := range sets {
		fmt.Fprintf(t, "  %s\t%s\n", s.Spec, s.Name)
	}
	if len(sets) == 0 {
		fmt.Fprintln(t, "  (none)")
	}
	return sets, t.Flush()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
