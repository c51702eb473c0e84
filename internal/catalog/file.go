package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
)

type fileEndpoint struct {
	Name           string            `yaml:"name"`
	Protocol       string            `yaml:"protocol"`
	URL            string            `yaml:"url"`
	Title          string            `yaml:"title"`
	Description    string            `yaml:"description"`
	Version        string            `yaml:"version"`
	Schema         string            `yaml:"schema"`
	MetadataPrefix string            `yaml:"metadata_prefix"`
	Indexes        map[string]Index  `yaml:"indexes"`
	Sets           map[string]string `yaml:"sets"`
	Examples       map[string]string `yaml:"examples"`
	RateLimit      float64           `yaml:"rate_limit"`
	Browser        bool              `yaml:"browser"`
}

type fileFormat struct {
	Endpoints []fileEndpoint `yaml:"endpoints"`
}

// Decode reads endpoint definitions from YAML. Unknown keys are rejected.
func Decode(data []byte) ([]Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f fileFormat
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode endpoints: %w", err)
	}

	out := make([]Descriptor, 0, len(f.Endpoints))
	for i, fe := range f.Endpoints {
		d, err := fe.descriptor()
		if err != nil {
			return nil, fmt.Errorf("endpoint #%d: %w", i+1, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (fe fileEndpoint) descriptor() (Descriptor, error) {
	protocol, err := record.ParseProtocol(fe.Protocol)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		Name:                  fe.Name,
		Title:                 fe.Title,
		BaseURL:               fe.URL,
		Protocol:              protocol,
		Description:           fe.Description,
		Version:               fe.Version,
		DefaultSchema:         fe.Schema,
		DefaultMetadataPrefix: fe.MetadataPrefix,
		Sets:                  fe.Sets,
		Examples:              fe.Examples,
		RateLimit:             fe.RateLimit,
		Browser:               fe.Browser,
	}
	if d.Title == "" {
		d.Title = d.Name
	}

	if len(fe.Indexes) > 0 {
		d.Indexes = make(map[criteria.Field]Index, len(fe.Indexes))
		for name, idx := range fe.Indexes {
			field := criteria.Field(name)
			if !isField(field) {
				return Descriptor{}, fmt.Errorf("unknown search field %q in indexes", name)
			}
			d.Indexes[field] = idx
		}
	}
	return d, d.validate()
}

func isField(f criteria.Field) bool {
	for _, known := range criteria.Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Load returns the built-in endpoints merged with the definitions in path.
// A missing file yields the built-in catalog.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Catalog{}, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	custom, err := Decode(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return New(append(Builtin(), custom...)...)
}
