package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/lepinkainen/libsearch/internal/transport"
)

// DatasetteClient implements the Store interface for remote Datasette
// instances running the datasette-insert plugin.
type DatasetteClient struct {
	baseURL   string
	apiToken  string
	database  string
	transport transport.Transport
}

// NewDatasetteClient creates a client posting rows to database on baseURL.
func NewDatasetteClient(baseURL, apiToken, database string, t transport.Transport) *DatasetteClient {
	if database == "" {
		database = "libsearch"
	}
	if t == nil {
		t = transport.NewHTTP(transport.Options{Timeout: 30 * time.Second})
	}
	return &DatasetteClient{
		baseURL:   baseURL,
		apiToken:  apiToken,
		database:  database,
		transport: t,
	}
}

// Connect validates the base URL
func (c *DatasetteClient) Connect(context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid Datasette URL %q", c.baseURL)
	}
	return nil
}

// CreateTable is a no-op; the insert API creates tables on first use
func (c *DatasetteClient) CreateTable(context.Context) error {
	return nil
}

// BatchInsert posts rows to the Datasette insert API
func (c *DatasetteClient) BatchInsert(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path.Join(u.Path, "-/insert", c.database, table)

	body, err := json.Marshal(map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("failed to marshal JSON payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.apiToken != "" {
		headers["Authorization"] = "Bearer " + c.apiToken
	}

	resp, err := c.transport.Execute(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     u.String(),
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		var errResp map[string]any
		if json.Unmarshal(resp.Body, &errResp) == nil {
			return fmt.Errorf("API error %v: %w", errResp, err)
		}
		return err
	}
	return nil
}

// Close is a no-op for the HTTP client
func (c *DatasetteClient) Close() error {
	return nil
}
