package oai

import (
	"context"
	"slices"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

// Adapter harvests one OAI-PMH endpoint.
type Adapter struct {
	endpoint  catalog.Descriptor
	transport transport.Transport
}

func NewAdapter(d catalog.Descriptor, t transport.Transport) *Adapter {
	return &Adapter{endpoint: d, transport: t}
}

func (a *Adapter) Endpoint() catalog.Descriptor { return a.endpoint }

// Search harvests the records selected by c. Each call owns its Harvester.
func (a *Adapter) Search(ctx context.Context, c criteria.Criteria) (record.Batch, error) {
	h, err := NewHarvester(a.endpoint, a.transport, c)
	if err != nil {
		return record.Batch{}, err
	}
	return h.Run(ctx)
}

// Explorer returns an explorer for the same endpoint.
func (a *Adapter) Explorer() *Explorer {
	return NewExplorer(a.endpoint, a.transport)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
