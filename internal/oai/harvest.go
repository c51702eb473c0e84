package oai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/libsearch/internal/catalog"
	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/record"
	"github.com/lepinkainen/libsearch/internal/transport"
)

// State is a harvest state.
type State int

const (
	StateInitial State = iota
	StateFetching
	StateHasMore
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateFetching:
		return "FETCHING"
	case StateHasMore:
		return "HAS_MORE"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// HarvestState is the progress of one harvest.
type HarvestState struct {
	ResumptionToken string
	RecordsSeen     int
	Completed       bool
}

// ErrHarvestFinished is returned by Step once the harvest is DONE or FAILED.
var ErrHarvestFinished = errors.New("harvest already finished")

// Harvester walks a ListRecords result list page by page.
//
// The first request carries the selective parameters; every following
// request is built by ResumeRequest from the last token alone. MaxRecords
// is enforced here, since OAI-PMH has no way to ask a repository for fewer
// records.
type Harvester struct {
	endpoint  catalog.Descriptor
	transport transport.Transport
	criteria  criteria.Criteria

	state    State
	progress HarvestState
	pending  transport.Request
	tokens   map[string]struct{}
	err      error
	// listed counts record entries on earlier pages; warning indices
	// continue from it.
	listed int
}

// NewHarvester validates c and prepares the first request.
func NewHarvester(d catalog.Descriptor, t transport.Transport, c criteria.Criteria) (*Harvester, error) {
	first, err := ListRecordsRequest(c, d)
	if err != nil {
		return nil, err
	}
	return &Harvester{
		endpoint:  d,
		transport: t,
		criteria:  c,
		state:     StateInitial,
		pending:   first,
		tokens:    make(map[string]struct{}),
	}, nil
}

func (h *Harvester) State() State { return h.state }

func (h *Harvester) Progress() HarvestState { return h.progress }

// Err returns the error that failed the harvest.
func (h *Harvester) Err() error { return h.err }

// Pending returns the request the next Step will execute.
func (h *Harvester) Pending() transport.Request { return h.pending }

func (h *Harvester) fail(err error) error {
	h.state = StateFailed
	h.err = err
	h.pending = transport.Request{}
	slog.Debug("Harvest failed", "endpoint", h.endpoint.Name, "records", h.progress.RecordsSeen, "error", err)
	return err
}

func (h *Harvester) finish() {
	h.state = StateDone
	h.progress.Completed = true
	h.progress.ResumptionToken = ""
	h.pending = transport.Request{}
}

// remaining returns how many more records the cap allows, or -1 for no cap.
func (h *Harvester) remaining() int {
	if h.criteria.MaxRecords <= 0 {
		return -1
	}
	return h.criteria.MaxRecords - h.progress.RecordsSeen
}

// Step fetches and parses one page and returns the records it contributed.
func (h *Harvester) Step(ctx context.Context) (record.Batch, error) {
	if h.state.Terminal() {
		return record.Batch{}, ErrHarvestFinished
	}

	h.state = StateFetching
	resp, err := h.transport.Execute(ctx, h.pending)
	if err != nil {
		return record.Batch{}, h.fail(err)
	}
	page, err := ParseListRecords(resp.Body)
	if err != nil {
		return record.Batch{}, h.fail(err)
	}

	batch := page.Batch
	for i := range batch.Warnings {
		batch.Warnings[i].Index += h.listed
	}
	h.listed += page.Size
	if h.criteria.HasSearchField() {
		batch.Records = Filter(batch.Records, h.criteria)
	}
	if left := h.remaining(); left >= 0 && len(batch.Records) > left {
		batch.Records = batch.Records[:left]
	}
	h.progress.RecordsSeen += len(batch.Records)

	slog.Debug("Harvested page", "endpoint", h.endpoint.Name, "records", len(batch.Records),
		"total", h.progress.RecordsSeen, "complete_list_size", page.CompleteListSize, "has_token", page.Token != "")

	switch {
	case h.remaining() == 0:
		h.finish()
	case page.Token == "":
		h.finish()
	default:
		if _, seen := h.tokens[page.Token]; seen {
			return batch, h.fail(liberrors.NewMalformedResponseError(protocolName,
				fmt.Errorf("resumption token %q repeated", page.Token)))
		}
		h.tokens[page.Token] = struct{}{}
		h.state = StateHasMore
		h.progress.ResumptionToken = page.Token
		h.pending = ResumeRequest(h.endpoint, VerbListRecords, page.Token)
	}
	return batch, nil
}

// Run steps until the harvest is DONE or FAILED. A failed harvest returns the
// records of every earlier page together with the error.
func (h *Harvester) Run(ctx context.Context) (record.Batch, error) {
	var all record.Batch
	for !h.state.Terminal() {
		batch, err := h.Step(ctx)
		all.Merge(batch)
		if err != nil {
			return all, err
		}
	}
	return all, h.err
}
