// Package schema picks the record parser for an embedded metadata record by
// its root element, so protocol parsers stay free of schema branching.
package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/lepinkainen/libsearch/internal/dublincore"
	"github.com/lepinkainen/libsearch/internal/marcxml"
	"github.com/lepinkainen/libsearch/internal/record"
)

// Parser maps one serialized metadata record onto a canonical record.
type Parser func(data []byte, source record.Protocol) (record.Record, error)

var parsers = map[string]Parser{
	"record": marcxml.ParseRecord,
	"dc":     dublincore.ParseRecord,
}

// ErrEmpty is returned for a record payload without any element.
var ErrEmpty = errors.New("empty record payload")

// RootElement returns the local name of the first element in data.
func RootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", ErrEmpty
		}
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

// For returns the parser registered for a root element name.
func For(root string) (Parser, bool) {
	p, ok := parsers[root]
	return p, ok
}

// Parse dispatches data to the parser matching its root element.
func Parse(data []byte, source record.Protocol) (record.Record, error) {
	root, err := RootElement(data)
	if err != nil {
		return record.Record{}, err
	}
	p, ok := For(root)
	if !ok {
		return record.Record{}, fmt.Errorf("unsupported record schema %q", root)
	}
	return p(data, source)
}
