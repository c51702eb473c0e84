// Package catalog describes the known search endpoints. A Catalog is built
// once at startup and passed to the adapters; it is never modified afterwards.
package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Index is the CQL index and relation an SRU endpoint uses for one field.
type Index struct {
	Name     string `yaml:"name"`
	Relation string `yaml:"relation"`
}

// Rel returns the relation, defaulting to "=".
func (i Index) Rel() string {
	if i.Relation == "" {
		return "="
	}
	return i.Relation
}

// Descriptor is the read-only description of one endpoint.
type Descriptor struct {
	Name        string
	Title       string
	BaseURL     string
	Protocol    record.Protocol
	Description string

	// SRU
	Version       string
	DefaultSchema string
	// Indexes maps search fields to CQL indexes. A nil map means the
	// endpoint understands the generic indexes in DefaultIndexes.
	Indexes map[criteria.Field]Index

	// OAI-PMH
	DefaultMetadataPrefix string
	Sets                  map[string]string

	Examples map[string]string

	// RateLimit is the request budget in requests per second; zero uses
	// the transport default.
	RateLimit float64
	// Browser routes requests through a headless browser.
	Browser bool
}

// DefaultIndexes are the CQL indexes used when an SRU endpoint declares none.
var DefaultIndexes = map[criteria.Field]Index{
	criteria.FieldTitle:    {Name: "title"},
	criteria.FieldAuthor:   {Name: "author"},
	criteria.FieldISBN:     {Name: "isbn"},
	criteria.FieldISSN:     {Name: "issn"},
	criteria.FieldYear:     {Name: "date"},
	criteria.FieldSubject:  {Name: "subject"},
	criteria.FieldFreeText: {Name: "cql.serverChoice"},
}

// IndexFor returns the index for f and whether the endpoint supports it.
func (d Descriptor) IndexFor(f criteria.Field) (Index, bool) {
	indexes := d.Indexes
	if indexes == nil {
		indexes = DefaultIndexes
	}
	idx, ok := indexes[f]
	return idx, ok && idx.Name != ""
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.Indexes = maps.Clone(d.Indexes)
	d.Sets = maps.Clone(d.Sets)
	d.Examples = maps.Clone(d.Examples)
	return d
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("endpoint without a name")
	}
	if strings.TrimSpace(d.BaseURL) == "" {
		return fmt.Errorf("endpoint %q has no URL", d.Name)
	}
	if !strings.HasPrefix(d.BaseURL, "http://") && !strings.HasPrefix(d.BaseURL, "https://") {
		return fmt.Errorf("endpoint %q URL must start with http:// or https://", d.Name)
	}
	switch d.Protocol {
	case record.ProtocolSRU, record.ProtocolOAI, record.ProtocolIxTheo:
	default:
		return fmt.Errorf("endpoint %q has unsupported protocol %q", d.Name, d.Protocol)
	}
	if d.RateLimit < 0 {
		return fmt.Errorf("endpoint %q has a negative rate limit", d.Name)
	}
	return nil
}

type key struct {
	protocol record.Protocol
	name     string
}

// Catalog is an immutable set of endpoint descriptors keyed by protocol and name.
type Catalog struct {
	endpoints map[key]Descriptor
}

// New builds a catalog. Later descriptors replace earlier ones with the
// same protocol and name.
func New(descriptors ...Descriptor) (Catalog, error) {
	c := Catalog{endpoints: make(map[key]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return Catalog{}, err
		}
		c.endpoints[key{d.Protocol, strings.ToLower(d.Name)}] = d.Clone()
	}
	return c, nil
}

// Get looks up an endpoint. It fails with UnknownEndpointError if absent.
func (c Catalog) Get(protocol record.Protocol, name string) (Descriptor, error) {
	d, ok := c.endpoints[key{protocol, strings.ToLower(strings.TrimSpace(name))}]
	if !ok {
		return Descriptor{}, liberrors.NewUnknownEndpointError(name)
	}
	return d.Clone(), nil
}

// List returns the endpoints for protocol sorted by name. An empty
// protocol lists every endpoint, grouped by protocol.
func (c Catalog) List(protocol record.Protocol) []Descriptor {
	var out []Descriptor
	for k, d := range c.endpoints {
		if protocol == "" || k.protocol == protocol {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Descriptor) int {
		if a.Protocol != b.Protocol {
			return strings.Compare(string(a.Protocol), string(b.Protocol))
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len returns the number of endpoints.
func (c Catalog) Len() int {
	return len(c.endpoints)
}
