// Package extract fetches a dataset from the UCI ML Repository: one request
// for the dataset metadata (name, counts, variable descriptions, CSV URL) and
// one for the data CSV itself, parsed into an in-memory table preserving the
// source column order and original column names.
//
// Transient HTTP failures are retried with exponential backoff. Everything
// that prevents a complete extraction (unreachable source, unknown id,
// malformed payloads) surfaces as an *ExtractionError; no partial table is
// ever returned.
package extract

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"heartetl/pkg/records"
)

// DefaultBaseURL is the UCI ML Repository API root.
const DefaultBaseURL = "https://archive.ics.uci.edu"

// ExtractionError wraps any failure during the extract stage.
type ExtractionError struct {
	DatasetID int
	Op        string // "metadata", "data", "parse"
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract dataset %d: %s: %v", e.DatasetID, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Variable describes one dataset column as reported by the repository.
type Variable struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Metadata is the descriptive information returned alongside the data.
type Metadata struct {
	ID           int        `json:"uci_id"`
	Name         string     `json:"name"`
	NumInstances int        `json:"num_instances"`
	NumFeatures  int        `json:"num_features"`
	DataURL      string     `json:"data_url"`
	Variables    []Variable `json:"variables"`
}

// apiEnvelope is the wire shape of the metadata endpoint.
type apiEnvelope struct {
	Status int      `json:"status"`
	Data   Metadata `json:"data"`
}

// Config configures the Client. Zero values get sensible defaults.
type Config struct {
	BaseURL        string
	Timeout        time.Duration // per-request; default 30s
	MaxRetries     int           // retries after the initial attempt; default 3
	InitialBackoff time.Duration // default 200ms, doubled per retry
	MaxBackoff     time.Duration // default 5s
	Transport      http.RoundTripper
}

// Client fetches datasets over HTTP.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger

	// sleep is injectable to make retry tests fast and deterministic.
	sleep func(time.Duration)
}

// NewClient constructs a Client, applying defaults for zero values.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger,
		sleep:          time.Sleep,
	}
}

// Extract fetches the dataset's metadata and rows. On success it logs the
// dataset name, row/column counts, and variable descriptions.
func (c *Client) Extract(ctx context.Context, datasetID int) (*records.Table, Metadata, error) {
	meta, err := c.fetchMetadata(ctx, datasetID)
	if err != nil {
		return nil, Metadata{}, &ExtractionError{DatasetID: datasetID, Op: "metadata", Err: err}
	}

	dataURL := meta.DataURL
	if dataURL == "" {
		return nil, Metadata{}, &ExtractionError{
			DatasetID: datasetID, Op: "metadata", Err: fmt.Errorf("no data URL for dataset"),
		}
	}
	if strings.HasPrefix(dataURL, "/") {
		dataURL = c.baseURL + dataURL
	}

	table, err := c.fetchCSV(ctx, dataURL)
	if err != nil {
		return nil, Metadata{}, &ExtractionError{DatasetID: datasetID, Op: "data", Err: err}
	}

	c.logger.Info("extracted dataset",
		"dataset_id", datasetID,
		"name", meta.Name,
		"rows", table.NumRows(),
		"columns", table.NumColumns(),
	)
	for _, v := range meta.Variables {
		c.logger.Debug("dataset variable",
			"name", v.Name, "role", v.Role, "type", v.Type, "description", v.Description)
	}
	c.logMissing(table)

	return table, meta, nil
}

// logMissing reports per-column counts of empty raw values, mirroring the
// dataset statistics the extract stage has historically logged.
func (c *Client) logMissing(t *records.Table) {
	for _, col := range t.Columns {
		missing := 0
		for _, row := range t.Rows {
			s, _ := row[col].(string)
			if s == "" || s == "?" {
				missing++
			}
		}
		if missing > 0 {
			c.logger.Info("column has missing raw values", "column", col, "count", missing)
		}
	}
}

func (c *Client) fetchMetadata(ctx context.Context, datasetID int) (Metadata, error) {
	url := fmt.Sprintf("%s/api/dataset?id=%d", c.baseURL, datasetID)
	body, err := c.get(ctx, url)
	if err != nil {
		return Metadata{}, err
	}
	defer body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if env.Status != 0 && env.Status != http.StatusOK {
		return Metadata{}, fmt.Errorf("repository returned status %d", env.Status)
	}
	if env.Data.Name == "" {
		return Metadata{}, fmt.Errorf("unknown dataset id %d", datasetID)
	}
	return env.Data, nil
}

func (c *Client) fetchCSV(ctx context.Context, url string) (*records.Table, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	r := csv.NewReader(body)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	table := records.NewTable(columns)
	for {
		raw, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec := make(records.Record, len(columns))
		for i, col := range columns {
			rec[col] = strings.TrimSpace(raw[i])
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// get issues a GET with retry/backoff. Responses with 5xx status are retried;
// 4xx are terminal. The returned body must be closed by the caller.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	backoff := c.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			c.logger.Debug("retrying request", "url", url, "attempt", attempt, "backoff", backoff)
			c.sleep(backoff)
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("GET %s: %s", url, resp.Status)
			continue
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
		}
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}
