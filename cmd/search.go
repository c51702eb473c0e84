package cmd

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/libsearch/internal/cache"
	"github.com/lepinkainen/libsearch/internal/config"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/search"
	"github.com/lepinkainen/libsearch/internal/zotero"
)

// SearchFlags are the search fields shared by the protocol commands
type SearchFlags struct {
	Title      string `help:"Title words"`
	Author     string `help:"Author name"`
	ISBN       string `name:"isbn" help:"ISBN"`
	ISSN       string `name:"issn" help:"ISSN"`
	Year       string `help:"Publication year"`
	Subject    string `help:"Subject heading or keyword"`
	Query      string `short:"q" help:"Free text query"`
	Start      int    `help:"1-based position of the first record" default:"1"`
	MaxRecords int    `name:"max-records" short:"n" help:"Maximum number of records to return (0 for no limit)" default:"10"`
}

// Criteria converts the flags into search criteria
func (f SearchFlags) Criteria() criteria.Criteria {
	return criteria.Criteria{
		Title:       f.Title,
		Author:      f.Author,
		ISBN:        f.ISBN,
		ISSN:        f.ISSN,
		Year:        f.Year,
		Subject:     f.Subject,
		FreeText:    f.Query,
		StartRecord: f.Start,
		MaxRecords:  f.MaxRecords,
	}
}

// SRUCmd searches an SRU endpoint
type SRUCmd struct {
	Endpoint string `short:"e" help:"SRU endpoint name (see 'endpoints --protocol sru')" required:""`
	Schema   string `help:"Record schema to request instead of the endpoint default"`

	SearchFlags `embed:""`
}

func (c *SRUCmd) Run(g *Globals) error {
	a, d, err := open(record.ProtocolSRU, c.Endpoint, searchOptions())
	if err != nil {
		return err
	}
	crit := c.Criteria()
	crit.Schema = c.Schema
	return runSearch(g.context(), g, a, record.ProtocolSRU, d.Name, crit)
}

// IxTheoCmd searches the Index Theologicus
type IxTheoCmd struct {
	Endpoint       string `short:"e" help:"IxTheo endpoint name" default:"ixtheo"`
	FormatFilter   string `name:"format-filter" help:"Only return this format (e.g. Book, Article)"`
	LanguageFilter string `name:"language-filter" help:"Only return this language (e.g. German)"`
	Export         bool   `help:"Complete each result from its RIS export"`
	Browser        bool   `help:"Fetch result pages through a headless browser"`

	SearchFlags `embed:""`
}

func (c *IxTheoCmd) Run(g *Globals) error {
	opts := searchOptions()
	opts.IxTheoExport = opts.IxTheoExport || c.Export
	opts.Browser = opts.Browser || c.Browser
	a, d, err := open(record.ProtocolIxTheo, c.Endpoint, opts)
	if err != nil {
		return err
	}
	crit := c.Criteria()
	crit.FormatFilter = c.FormatFilter
	crit.LanguageFilter = c.LanguageFilter
	return runSearch(g.context(), g, a, record.ProtocolIxTheo, d.Name, crit)
}

// ZoteroCmd searches a local Zotero database or the Zotero web API
type ZoteroCmd struct {
	Local string `help:"Path to zotero.sqlite (default from config)" type:"path"`
	Web   bool   `help:"Use the Zotero web API even when a local database is configured"`

	SearchFlags `embed:""`
}

func (c *ZoteroCmd) Run(g *Globals) error {
	opts := search.ZoteroOptions{
		LocalPath: c.Local,
		Web: zotero.WebConfig{
			APIKey:      config.ZoteroAPIKey,
			LibraryID:   config.ZoteroLibraryID,
			LibraryType: config.ZoteroLibraryType,
		},
		HTTP: httpOptions(),
		Wrap: cache.Wrap,
	}
	if opts.LocalPath == "" {
		opts.LocalPath = config.ZoteroDB
	}
	if c.Web {
		opts.LocalPath = ""
	}

	a, closeFn, err := openZotero(opts)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	endpoint := "web"
	if opts.LocalPath != "" {
		endpoint = "local"
	}
	return runSearch(g.context(), g, a, record.ProtocolZotero, endpoint, c.Criteria())
}

// EndpointsCmd lists the known endpoints
type EndpointsCmd struct {
	Protocol string `short:"p" help:"Only list endpoints of this protocol (sru, oai, ixtheo)"`
}

func (c *EndpointsCmd) Run(g *Globals) error {
	var protocol record.Protocol
	if c.Protocol != "" {
		p, err := record.ParseProtocol(c.Protocol)
		if err != nil {
			return err
		}
		protocol = p
	}
	cat, err := loadCatalog(config.EndpointsFile)
	if err != nil {
		return err
	}

	w := newTable(stdout)
	fmt.Fprintln(w, "PROTOCOL\tNAME\tTITLE\tURL")
	for _, d := range cat.List(protocol) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", strings.ToLower(string(d.Protocol)), d.Name, d.Title, d.BaseURL)
	}
	return w.Flush()
}
