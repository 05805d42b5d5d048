// Package search provides a web search gateway backed by a Serper-style
// search API. Lookups degrade rather than fail: any transport error,
// non-2xx status, or malformed payload yields an empty result set so
// that downstream analysis can proceed on partial evidence.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultEndpoint    = "https://google.serper.dev/search"
	defaultResultCount = 8
	maxResponseSize    = 5 * 1024 * 1024
)

// Result is a single organic search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// QueryResults pairs a query with the hits it produced. Results is
// empty, never nil, when the lookup degraded.
type QueryResults struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`

	// TopPage holds the extracted content of the first hit when deep
	// evidence gathering is enabled.
	TopPage *Page `json:"top_page,omitempty"`
}

// Searcher performs a single web search query.
type Searcher interface {
	Search(ctx context.Context, query string) QueryResults
}

// Client talks to a Serper-compatible search endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	resultCount int
	httpClient  *http.Client
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint overrides the search API endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithResultCount sets the number of results requested per query.
func WithResultCount(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.resultCount = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a search client. An empty apiKey is allowed; every
// query will then degrade to empty results with a warning.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    defaultEndpoint,
		apiKey:      apiKey,
		resultCount: defaultResultCount,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Search runs one query against the search API. It never returns an
// error: failures are logged and produce an empty result set. A single
// attempt is made per query; retries are left to a later rescan.
func (c *Client) Search(ctx context.Context, query string) QueryResults {
	empty := QueryResults{Query: query, Results: []Result{}}

	if c.apiKey == "" {
		c.logger.Warn("search skipped, no api key configured", "query", query)
		return empty
	}

	body, err := json.Marshal(searchRequest{Query: query, Num: c.resultCount})
	if err != nil {
		c.logger.Warn("search request encode failed", "query", query, "error", err)
		return empty
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("search request build failed", "query", query, "error", err)
		return empty
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("search request failed", "query", query, "error", err)
		return empty
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("search returned non-success status",
			"query", query,
			"status", resp.StatusCode)
		return empty
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Warn("search response read failed", "query", query, "error", err)
		return empty
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		c.logger.Warn("search response decode failed", "query", query, "error", err)
		return empty
	}

	results := parsed.Organic
	if results == nil {
		results = []Result{}
	}

	c.logger.Debug("search completed", "query", query, "results", len(results))
	return QueryResults{Query: query, Results: results}
}

// FormatCitation renders a hit as a one-line citation suitable for
// inclusion in an analysis prompt.
func FormatCitation(r Result) string {
	return fmt.Sprintf("- [%s](%s): %s", r.Title, r.Link, r.Snippet)
}
