// Package firecrawl provides a Firecrawl REST client implementing
// medprice.SearchProvider and medprice.Scraper with inline JSON extraction.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
)

// DefaultBaseURL is the Firecrawl API endpoint.
const DefaultBaseURL = "https://api.firecrawl.dev"

// DefaultTimeout bounds a single API call. Search with inline extraction
// scrapes every result server-side, so it is much slower than a plain fetch.
const DefaultTimeout = 2 * time.Minute

// Ensure Client implements the provider interfaces at compile time.
var (
	_ medprice.SearchProvider = (*Client)(nil)
	_ medprice.Scraper        = (*Client)(nil)
)

// Client calls the Firecrawl v2 API.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the timeout for API calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a new Client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{
		Timeout: c.timeout,
	}

	return c
}

type jsonFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema"`
	Prompt string         `json:"prompt"`
}

func extractionFormats() []jsonFormat {
	return []jsonFormat{{
		Type:   "json",
		Schema: medprice.RecordSchema(),
		Prompt: medprice.ExtractionPrompt,
	}}
}

type searchRequest struct {
	Query         string `json:"query"`
	Limit         int    `json:"limit"`
	ScrapeOptions struct {
		Formats []jsonFormat `json:"formats"`
	} `json:"scrapeOptions"`
}

type document struct {
	URL      string          `json:"url"`
	Title    string          `json:"title"`
	JSON     json.RawMessage `json:"json"`
	Metadata struct {
		SourceURL string `json:"sourceURL"`
		Title     string `json:"title"`
	} `json:"metadata"`
}

type searchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Web []document `json:"web"`
	} `json:"data"`
}

type scrapeRequest struct {
	URL     string       `json:"url"`
	Formats []jsonFormat `json:"formats"`
}

type scrapeResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Data    document `json:"data"`
}

// Search runs a web search and extracts a record from every result.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*medprice.Candidate, error) {
	req := searchRequest{Query: query, Limit: limit}
	req.ScrapeOptions.Formats = extractionFormats()

	var resp searchResponse
	if err := c.post(ctx, "/v2/search", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("firecrawl search: %s", resp.Error)
	}

	candidates := make([]*medprice.Candidate, 0, len(resp.Data.Web))
	for _, doc := range resp.Data.Web {
		cand := doc.candidate()
		if cand.URL == "" {
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// Scrape extracts a record from a single page.
// Returns nil without error when the page yields no record.
func (c *Client) Scrape(ctx context.Context, url string) (*medprice.Record, error) {
	var resp scrapeResponse
	if err := c.post(ctx, "/v2/scrape", scrapeRequest{URL: url, Formats: extractionFormats()}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("firecrawl scrape: %s", resp.Error)
	}
	return resp.Data.record(), nil
}

func (d *document) candidate() *medprice.Candidate {
	url := d.URL
	if url == "" {
		url = d.Metadata.SourceURL
	}
	title := d.Title
	if title == "" {
		title = d.Metadata.Title
	}
	return &medprice.Candidate{URL: url, Title: title, Record: d.record()}
}

// record decodes the extracted JSON. Malformed or empty extraction yields nil.
func (d *document) record() *medprice.Record {
	raw := bytes.TrimSpace(d.JSON)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var rec medprice.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return &rec
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func statusError(path string, code int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return medprice.Errorf(medprice.EUNAVAILABLE, "firecrawl rejected credentials: %s", msg)
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired || code >= 500:
		return medprice.Errorf(medprice.EUNAVAILABLE, "firecrawl %s: HTTP %d: %s", path, code, msg)
	}
	return fmt.Errorf("firecrawl %s: HTTP %d: %s", path, code, msg)
}
