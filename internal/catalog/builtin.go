package catalog

import (
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
)

var dnbIndexes = map[criteria.Field]Index{
	criteria.FieldTitle:    {Name: "TIT"},
	criteria.FieldAuthor:   {Name: "PER"},
	criteria.FieldISBN:     {Name: "ISBN"},
	criteria.FieldISSN:     {Name: "ISS"},
	criteria.FieldYear:     {Name: "JHR"},
	criteria.FieldSubject:  {Name: "SW"},
	criteria.FieldFreeText: {Name: "WOE"},
}

var bnfIndexes = map[criteria.Field]Index{
	criteria.FieldTitle:    {Name: "bib.title", Relation: "any"},
	criteria.FieldAuthor:   {Name: "bib.author", Relation: "any"},
	criteria.FieldISBN:     {Name: "bib.isbn", Relation: "any"},
	criteria.FieldISSN:     {Name: "bib.issn", Relation: "any"},
	criteria.FieldYear:     {Name: "bib.date", Relation: "any"},
	criteria.FieldSubject:  {Name: "bib.subject", Relation: "any"},
	criteria.FieldFreeText: {Name: "bib.anywhere", Relation: "all"},
}

func builtinSRU() []Descriptor {
	return []Descriptor{
		{
			Name: "dnb", Title: "Deutsche Nationalbibliothek", Protocol: record.ProtocolSRU,
			BaseURL:     "https://services.dnb.de/sru/dnb",
			Description: "The German National Library",
			Version:     "1.1", DefaultSchema: "MARC21-xml",
			Indexes:  dnbIndexes,
			Examples: map[string]string{"title": "TIT=Python", "author": "PER=Einstein", "isbn": "ISBN=9783658310844"},
		},
		{
			Name: "bnf", Title: "Bibliothèque nationale de France", Protocol: record.ProtocolSRU,
			BaseURL:     "http://catalogue.bnf.fr/api/SRU",
			Description: "The French National Library",
			Version:     "1.2", DefaultSchema: "dublincore",
			Indexes:  bnfIndexes,
			Examples: map[string]string{"title": `bib.title any "Python"`, "author": `bib.author any "Einstein"`},
		},
		{
			Name: "zdb", Title: "ZDB - German Union Catalogue of Serials", Protocol: record.ProtocolSRU,
			BaseURL:     "https://services.dnb.de/sru/zdb",
			Description: "German Union Catalogue of Serials",
			Version:     "1.1", DefaultSchema: "MARC21-xml",
			Indexes: map[criteria.Field]Index{
				criteria.FieldTitle:    {Name: "TIT"},
				criteria.FieldISSN:     {Name: "ISS"},
				criteria.FieldYear:     {Name: "JHR"},
				criteria.FieldSubject:  {Name: "SW"},
				criteria.FieldFreeText: {Name: "WOE"},
			},
			Examples: map[string]string{"title": "TIT=Journal", "issn": "ISS=0740-171x"},
		},
		{
			Name: "loc", Title: "Library of Congress", Protocol: record.ProtocolSRU,
			BaseURL:     "https://lccn.loc.gov/sru",
			Description: "Library of Congress catalog",
			Version:     "1.1", DefaultSchema: "marcxml",
			Examples: map[string]string{"title": `title="Python"`, "author": `author="Einstein"`},
		},
		{
			Name: "trove", Title: "Trove (National Library of Australia)", Protocol: record.ProtocolSRU,
			BaseURL:     "http://www.nla.gov.au/apps/srw/search/peopleaustralia",
			Description: "Australia's cultural collections",
			Version:     "1.1", DefaultSchema: "dc",
			Indexes: map[criteria.Field]Index{
				criteria.FieldAuthor:   {Name: "bath.name"},
				criteria.FieldFreeText: {Name: "cql.anywhere"},
			},
			Examples: map[string]string{"name": `bath.name="Smith"`},
		},
		{
			Name: "kb", Title: "KB - National Library of the Netherlands", Protocol: record.ProtocolSRU,
			BaseURL:     "http://jsru.kb.nl/sru",
			Description: "Dutch National Library",
			Version:     "1.1", DefaultSchema: "dc",
			Indexes: map[criteria.Field]Index{
				criteria.FieldTitle:    {Name: "dc.title"},
				criteria.FieldAuthor:   {Name: "dc.creator"},
				criteria.FieldYear:     {Name: "dc.date"},
				criteria.FieldSubject:  {Name: "dc.subject"},
				criteria.FieldFreeText: {Name: "cql.serverChoice"},
			},
			Examples: map[string]string{"title": "dc.title=Python"},
		},
		{
			Name: "bibsys", Title: "BIBSYS - Norwegian Library Service", Protocol: record.ProtocolSRU,
			BaseURL:     "http://sru.bibsys.no/search/biblio",
			Description: "Norwegian academic libraries",
			Version:     "1.1", DefaultSchema: "dc",
			Examples: map[string]string{"title": `title="Python"`, "author": `author="Einstein"`},
		},
	}
}

func builtinOAI() []Descriptor {
	oai := func(name, title, url, prefix, desc string, sets map[string]string) Descriptor {
		return Descriptor{
			Name: name, Title: title, BaseURL: url, Protocol: record.ProtocolOAI,
			Description: desc, DefaultMetadataPrefix: prefix, Sets: sets,
		}
	}
	return []Descriptor{
		oai("dnb", "Deutsche Nationalbibliothek", "https://services.dnb.de/oai/repository", "oai_dc",
			"The German National Library", map[string]string{
				"dnb:reiheA": "German National Bibliography Series A (new publications)",
				"dnb:reiheB": "German National Bibliography Series B (new serials)",
				"dnb:reiheH": "University Publications",
				"dnb:reiheO": "Online Publications",
			}),
		oai("dnb_digital", "Deutsche Nationalbibliothek (Digital Objects)", "https://services.dnb.de/oai2", "oai_dc",
			"Digital objects from the German National Library", map[string]string{
				"dnb:digitalisate-oa": "Digitized Public Domain Works",
			}),
		oai("loc", "Library of Congress", "https://memory.loc.gov/cgi-bin/oai2_0", "oai_dc",
			"Library of Congress digital collections", map[string]string{
				"lcbooks": "Library of Congress Books",
				"lcmaps":  "Library of Congress Maps",
				"lcmss":   "Library of Congress Manuscripts",
			}),
		oai("europeana", "Europeana", "https://api.europeana.eu/oai/record", "edm",
			"European digital cultural heritage", nil),
		oai("ddb", "Deutsche Digitale Bibliothek", "https://oai.deutsche-digitale-bibliothek.de", "edm",
			"German Digital Library OAI-PMH interface", nil),
		oai("harvard", "Harvard University Library", "https://dash.harvard.edu/oai/request", "oai_dc",
			"Harvard Digital Access to Scholarship", nil),
		oai("mit", "MIT DSpace", "https://dspace.mit.edu/oai/request", "oai_dc",
			"MIT Open Access Articles", nil),
		oai("kitopen", "KITopen (Karlsruher Institut für Technologie)", "https://dbkit.bibliothek.kit.edu/oai/", "oai_dc",
			"Publications from Karlsruhe Institute of Technology", nil),
		oai("arxiv", "arXiv", "http://export.arxiv.org/oai2", "oai_dc",
			"arXiv open-access archive of scientific papers", map[string]string{
				"physics": "Physics",
				"math":    "Mathematics",
				"cs":      "Computer Science",
			}),
		oai("doaj", "Directory of Open Access Journals", "https://www.doaj.org/oai", "oai_dc",
			"Directory of Open Access Journals", nil),
	}
}

func builtinIxTheo() []Descriptor {
	return []Descriptor{{
		Name: "ixtheo", Title: "Index Theologicus", Protocol: record.ProtocolIxTheo,
		BaseURL:     "https://ixtheo.de",
		Description: "International bibliography for theology and religious studies",
		RateLimit:   1,
	}}
}

// Builtin returns the descriptors shipped with the tool.
func Builtin() []Descriptor {
	var out []Descriptor
	out = append(out, builtinSRU()...)
	out = append(out, builtinOAI()...)
	out = append(out, builtinIxTheo()...)
	return out
}

// Default returns a catalog holding only the built-in endpoints.
func Default() Catalog {
	c, err := New(Builtin()...)
	if err != nil {
		panic("catalog: invalid built-in endpoint: " + err.Error())
	}
	return c
}
