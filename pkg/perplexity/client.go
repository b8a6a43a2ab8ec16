// Package perplexity asks the Perplexity Sonar API web questions and returns
// the answer with the sources it cited.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/resilience"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar"
)

// Recency limits how old the searched pages may be.
type Recency string

const (
	RecencyAny   Recency = ""
	RecencyDay   Recency = "day"
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
	RecencyYear  Recency = "year"
)

// Question is one web question.
type Question struct {
	Query string
	// System, when set, replaces the default answering instruction.
	System string
	// Model overrides the client's model for this question.
	Model   string
	Recency Recency
	// Domains restricts (or with a "-" prefix, excludes) searched sites.
	Domains   []string
	MaxTokens int
}

// Source is a page consulted for an answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date,omitempty"`
}

// Answer is Perplexity's reply to a Question.
type Answer struct {
	ID        string
	Model     string
	Text      string
	Citations []string
	Sources   []Source
	Tokens    int
}

// URLs returns the cited URLs followed by any other consulted sources,
// without duplicates.
func (a *Answer) URLs() []string {
	if a == nil {
		return nil
	}
	seen := make(map[string]bool, len(a.Citations)+len(a.Sources))
	var out []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, u := range a.Citations {
		add(u)
	}
	for _, s := range a.Sources {
		add(s.URL)
	}
	return out
}

// Client answers web questions.
type Client interface {
	Ask(ctx context.Context, q Question) (*Answer, error)
}

const defaultSystem = "You are a web research assistant. Answer with the facts found on the web, quoting names, addresses and numbers exactly."

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string    `json:"model"`
	Messages      []message `json:"messages"`
	Temperature   float64   `json:"temperature"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	Recency       Recency   `json:"search_recency_filter,omitempty"`
	DomainFilter  []string  `json:"search_domain_filter,omitempty"`
	ReturnSources bool      `json:"return_citations"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []Source `json:"search_results"`
	Usage         struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.policy = p }
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	policy  resilience.Policy
}

// NewClient creates a client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
		policy:  resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	c.policy.OnRetry = resilience.LogRetry("perplexity", "ask")
	return c
}

func (c *httpClient) request(q Question) chatRequest {
	req := chatRequest{
		Model:         q.Model,
		MaxTokens:     q.MaxTokens,
		Recency:       q.Recency,
		DomainFilter:  q.Domains,
		ReturnSources: true,
	}
	if req.Model == "" {
		req.Model = c.model
	}
	system := q.System
	if system == "" {
		system = defaultSystem
	}
	req.Messages = []message{{Role: "system", Content: system}, {Role: "user", Content: q.Query}}
	return req
}

func (c *httpClient) Ask(ctx context.Context, q Question) (*Answer, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, eris.New("perplexity: empty query")
	}
	body, err := json.Marshal(c.request(q))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}

	resp, err := resilience.DoVal(ctx, c.policy, func(ctx context.Context) (*chatResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	a := &Answer{
		ID:        resp.ID,
		Model:     resp.Model,
		Citations: resp.Citations,
		Sources:   resp.SearchResults,
		Tokens:    resp.Usage.TotalTokens,
	}
	if len(resp.Choices) > 0 {
		a.Text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return a, nil
}

func (c *httpClient) post(ctx context.Context, body []byte) (*chatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("perplexity", resp.StatusCode, raw)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "perplexity: unmarshal response")
	}
	return &out, nil
}
