package export

import (
	"encoding/json"
	"fmt"

	"github.com/lepinkainen/libsearch/internal/record"
)

// JSON renders records as an indented JSON array. Empty lists are written
// as [] and extra as a nested object.
type JSON struct{}

func (JSON) Name() string      { return "json" }
func (JSON) Extension() string { return "json" }

func (JSON) Serialize(records []record.Record) ([]byte, error) {
	if err := validate(records); err != nil {
		return nil, err
	}
	out := make([]record.Record, len(records))
	for i, r := range records {
		out[i] = normalize(r)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return append(data, '\n'), nil
}

func normalize(r record.Record) record.Record {
	if r.Authors == nil {
		r.Authors = []string{}
	}
	if r.Subjects == nil {
		r.Subjects = []string{}
	}
	if r.URLs == nil {
		r.URLs = []string{}
	}
	if r.Extra == nil {
		r.Extra = map[string]string{}
	}
	return r
}
