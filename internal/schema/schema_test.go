package schema

import (
	"testing"

	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDispatchesByRootElement(t *testing.T) {
	marc := `<marc:record xmlns:marc="http://www.loc.gov/MARC21/slim">
  <marc:datafield tag="245" ind1="0" ind2="0"><marc:subfield code="a">From MARC</marc:subfield></marc:datafield>
</marc:record>`
	r, err := Parse([]byte(marc), record.ProtocolSRU)
	require.NoError(t, err)
	assert.Equal(t, "From MARC", r.Title)

	dc := `<srw_dc:dc xmlns:srw_dc="info:srw/schema/1/dc-schema" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>From DC</dc:title>
</srw_dc:dc>`
	r, err = Parse([]byte(dc), record.ProtocolSRU)
	require.NoError(t, err)
	assert.Equal(t, "From DC", r.Title)
}

func TestParseRejectsUnknownSchema(t *testing.T) {
	_, err := Parse([]byte(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/>`), record.ProtocolSRU)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported record schema "RDF"`)
}

func TestRootElement(t *testing.T) {
	root, err := RootElement([]byte("\n  <!-- comment -->\n<dc/>"))
	require.NoError(t, err)
	assert.Equal(t, "dc", root)

	_, err = RootElement([]byte("   "))
	assert.ErrorIs(t, err, ErrEmpty)
}
