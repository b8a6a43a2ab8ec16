// Package duckduckgo queries the DuckDuckGo HTML endpoint and parses the
// organic results.
package duckduckgo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/sells-group/atlas/internal/resilience"
)

const (
	defaultBaseURL   = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 2 << 20
	redirectPrefix   = "//duckduckgo.com/l/?"
)

// ErrChallenged is returned when DuckDuckGo serves its bot challenge page
// instead of results.
var ErrChallenged = eris.New("duckduckgo: challenge page served")

// Result is one organic search result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client searches DuckDuckGo.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit throttles requests to rps per second. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithMaxResults caps the number of parsed results.
func WithMaxResults(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.policy = p }
}

type httpClient struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxResults int
	policy     resilience.Policy
}

// NewClient creates a DuckDuckGo client. Requests are throttled to one per
// second by default.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:    defaultBaseURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		maxResults: 10,
		policy:     resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	c.policy.OnRetry = resilience.LogRetry("duckduckgo", "search")
	return c
}

func (c *httpClient) Search(ctx context.Context, query string) ([]Result, error) {
	return resilience.DoVal(ctx, c.policy, func(ctx context.Context) ([]Result, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "duckduckgo: rate limit")
			}
		}

		form := url.Values{"q": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, eris.Wrap(err, "duckduckgo: create request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", defaultUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "duckduckgo: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, eris.Wrap(err, "duckduckgo: read response")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resilience.StatusError("duckduckgo", resp.StatusCode, body)
		}

		results, challenged, err := Parse(strings.NewReader(string(body)), c.maxResults)
		if err != nil {
			return nil, err
		}
		if challenged {
			return nil, resilience.NewTransientError(ErrChallenged, resp.StatusCode)
		}
		return results, nil
	})
}

// Parse extracts up to max results from a DuckDuckGo HTML results page. It
// also reports whether the page is the bot challenge.
func Parse(r io.Reader, max int) ([]Result, bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, false, eris.Wrap(err, "duckduckgo: parse html")
	}

	var (
		results    []Result
		challenged bool
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if max > 0 && len(results) >= max {
			return
		}
		if n.Type == html.ElementNode {
			class := attr(n, "class")
			if strings.Contains(class, "anomaly-modal") || (n.Data == "form" && strings.Contains(attr(n, "id"), "challenge")) {
				challenged = true
			}
			if n.Data == "div" && hasClass(class, "result") && !hasClass(class, "result--ad") {
				if res := parseResult(n); res.URL != "" && res.Title != "" {
					results = append(results, res)
				}
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return results, challenged && len(results) == 0, nil
}

func parseResult(n *html.Node) Result {
	var res Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case hasClass(class, "result__a"):
				res.URL = ResolveURL(attr(n, "href"))
				res.Title = text(n)
			case hasClass(class, "result__snippet"):
				res.Snippet = text(n)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return res
}

// ResolveURL unwraps DuckDuckGo redirect links to their target.
func ResolveURL(href string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(href, "https:"), "http:")
	if !strings.HasPrefix(trimmed, redirectPrefix) {
		return href
	}
	q, err := url.ParseQuery(strings.TrimPrefix(trimmed, redirectPrefix))
	if err != nil {
		return href
	}
	if target := q.Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(class, name string) bool {
	for _, c := range strings.Fields(class) {
		if c == name {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(s)
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return sb.String()
}
