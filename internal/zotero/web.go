package zotero

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/libsearch/internal/criteria"
	liberrors "github.com/lepinkainen/libsearch/internal/errors"
	"github.com/lepinkainen/libsearch/internal/transport"
)

const (
	backendWeb = "zotero web API"
	// DefaultAPIURL is the Zotero web API v3 root.
	DefaultAPIURL = "https://api.zotero.org"
	apiVersion    = "3"
	// maxLimit is the largest page the web API serves.
	maxLimit = 100
)

// WebAPI searches a Zotero library online and returns the raw items JSON.
type WebAPI interface {
	Items(ctx context.Context, c criteria.Criteria) ([]byte, error)
}

// WebConfig holds the web API credentials.
type WebConfig struct {
	APIKey      string
	LibraryID   string
	LibraryType string // "user" or "group"
	BaseURL     string
}

func (c WebConfig) missing() string {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "API key")
	}
	if strings.TrimSpace(c.LibraryID) == "" {
		missing = append(missing, "library ID")
	}
	switch c.LibraryType {
	case "user", "group":
	case "":
		missing = append(missing, "library type")
	default:
		return fmt.Sprintf("library type must be user or group, got %q", c.LibraryType)
	}
	if len(missing) > 0 {
		return "missing " + strings.Join(missing, ", ")
	}
	return ""
}

// NotConfigured is the WebAPI used when no credentials are available. Every
// call fails with BackendUnavailableError.
type NotConfigured struct {
	Reason string
}

func (n NotConfigured) Items(context.Context, criteria.Criteria) ([]byte, error) {
	return nil, liberrors.NewBackendUnavailableError(backendWeb, n.Reason)
}

// WebClient calls the Zotero web API v3.
type WebClient struct {
	cfg       WebConfig
	transport transport.Transport
}

// NewWebAPI returns a client for cfg, or NotConfigured when the
// credentials are incomplete.
func NewWebAPI(cfg WebConfig, t transport.Transport) WebAPI {
	if reason := cfg.missing(); reason != "" {
		return NotConfigured{Reason: reason}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIURL
	}
	return &WebClient{cfg: cfg, transport: t}
}

// ItemsRequest builds the items search. Title, author and year narrow with
// the titleCreatorYear mode; any other field switches to full-text mode.
func (w *WebClient) ItemsRequest(c criteria.Criteria) transport.Request {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("itemType", strings.Join(SupportedTypes, " || "))

	var terms []string
	mode := "titleCreatorYear"
	for _, f := range c.SetFields() {
		switch f {
		case criteria.FieldSubject:
			params.Add("tag", c.Get(f))
			continue
		case criteria.FieldISBN, criteria.FieldISSN, criteria.FieldFreeText:
			mode = "everything"
		}
		terms = append(terms, c.Get(f))
	}
	if len(terms) > 0 {
		params.Set("q", strings.Join(terms, " "))
		params.Set("qmode", mode)
	}

	limit := maxLimit
	if c.MaxRecords > 0 && c.MaxRecords < limit {
		limit = c.MaxRecords
	}
	params.Set("limit", strconv.Itoa(limit))
	if start := c.Start() - 1; start > 0 {
		params.Set("start", strconv.Itoa(start))
	}

	return transport.Request{
		URL:    fmt.Sprintf("%s/%ss/%s/items", strings.TrimRight(w.cfg.BaseURL, "/"), w.cfg.LibraryType, url.PathEscape(w.cfg.LibraryID)),
		Params: params,
		Headers: map[string]string{
			"Zotero-API-Key":     w.cfg.APIKey,
			"Zotero-API-Version": apiVersion,
		},
	}
}

// Items executes the search and returns the response body.
func (w *WebClient) Items(ctx context.Context, c criteria.Criteria) ([]byte, error) {
	resp, err := w.transport.Execute(ctx, w.ItemsRequest(c))
	if err != nil {
		if status, ok := liberrors.TransportStatus(err); ok && (status == 401 || status == 403) {
			return nil, liberrors.NewBackendUnavailableError(backendWeb, fmt.Sprintf("API key rejected (HTTP %d)", status))
		}
		return nil, err
	}
	return resp.Body, nil
}
