// Package jina is a client for the Jina AI Reader (r.jina.ai) and Search
// (s.jina.ai) APIs, which return web pages and search results as markdown.
package jina

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/resilience"
)

const (
	defaultReaderURL = "https://r.jina.ai"
	defaultSearchURL = "https://s.jina.ai"
)

// Client reads pages and searches the web.
type Client interface {
	// Read fetches a URL through the reader and returns its markdown content.
	Read(ctx context.Context, targetURL string) (*ReadResponse, error)
	// Search runs a web search and returns the result pages.
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// ReadResponse is the reader's reply for one page.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData is the rendered page.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage counts the tokens billed for a read.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// SearchResponse is the search reply. A query with no hits yields an empty
// Data slice, not an error.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one hit with its page rendered as markdown.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the reader endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.readerURL = strings.TrimRight(u, "/")
		}
	}
}

// WithSearchBaseURL sets the search endpoint.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.policy = p }
}

// WithRemoveSelectors drops matching elements (e.g. "nav", ".cookie-banner")
// before pages are rendered.
func WithRemoveSelectors(selectors ...string) Option {
	return func(c *httpClient) {
		var keep []string
		for _, s := range selectors {
			if s = strings.TrimSpace(s); s != "" {
				keep = append(keep, s)
			}
		}
		c.removeSelectors = strings.Join(keep, ", ")
	}
}

// WithPageTimeout bounds how long the service waits for a page to load.
func WithPageTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.pageTimeout = d }
}

type httpClient struct {
	apiKey          string
	readerURL       string
	searchURL       string
	removeSelectors string
	pageTimeout     time.Duration
	http            *http.Client
	policy          resilience.Policy
}

// NewClient creates a client. An empty apiKey uses the anonymous tier.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		readerURL: defaultReaderURL,
		searchURL: defaultSearchURL,
		http: &http.Client{
			Timeout: 45 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy: resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy.OnRetry = resilience.LogRetry("jina", "request")
	return c
}

func (c *httpClient) headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-Return-Format", "markdown")
	h.Set("X-Retain-Images", "none")
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.removeSelectors != "" {
		h.Set("X-Remove-Selector", c.removeSelectors)
	}
	if c.pageTimeout > 0 {
		h.Set("X-Timeout", strconv.Itoa(int(c.pageTimeout.Seconds())))
	}
	return h
}

// call GETs endpoint with retries on transient statuses and decodes a 200
// reply into out. Statuses listed in empty return false without error.
func (c *httpClient) call(ctx context.Context, service, endpoint string, out any, empty ...int) (bool, error) {
	type reply struct {
		status int
		body   []byte
	}
	r, err := resilience.DoVal(ctx, c.policy, func(ctx context.Context) (reply, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return reply{}, eris.Wrapf(err, "%s: create request", service)
		}
		req.Header = c.headers()

		resp, err := c.http.Do(req)
		if err != nil {
			return reply{}, eris.Wrapf(err, "%s: request failed", service)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return reply{}, eris.Wrapf(err, "%s: read body", service)
		}
		if resilience.IsTransientStatus(resp.StatusCode) {
			return reply{}, resilience.StatusError(service, resp.StatusCode, body)
		}
		return reply{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return false, err
	}

	for _, s := range empty {
		if r.status == s {
			return false, nil
		}
	}
	if r.status != http.StatusOK {
		return false, resilience.StatusError(service, r.status, r.body)
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return false, eris.Wrapf(err, "%s: decode response", service)
	}
	return true, nil
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*ReadResponse, error) {
	var out ReadResponse
	if _, err := c.call(ctx, "jina", c.readerURL+"/"+targetURL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, eris.New("jina search: empty query")
	}
	var out SearchResponse
	// 422 is the service's answer for a query with no hits.
	found, err := c.call(ctx, "jina search", c.searchURL+"/"+url.PathEscape(query), &out, http.StatusUnprocessableEntity)
	if err != nil {
		return nil, err
	}
	if !found {
		return &SearchResponse{Code: http.StatusUnprocessableEntity}, nil
	}
	return &out, nil
}
