package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; AtlasResearch/1.0)"

// skippedElements never contribute text. Footers are kept because they
// usually carry addresses, phone numbers and social links.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
	"nav":      true,
}

// blockElements end the current line of text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "address": true,
	"table": true, "ul": true, "ol": true, "dd": true, "dt": true, "blockquote": true,
}

// LocalScraper fetches HTML via net/http, detects blocks, and converts to
// plaintext. Falls through to Jina when blocked.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// LocalOption configures a LocalScraper.
type LocalOption func(*LocalScraper)

// WithLocalHTTPClient overrides the http.Client.
func WithLocalHTTPClient(hc *http.Client) LocalOption {
	return func(l *LocalScraper) { l.client = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) LocalOption {
	return func(l *LocalScraper) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// NewLocalScraper creates a LocalScraper with sensible defaults.
func NewLocalScraper(opts ...LocalOption) *LocalScraper {
	l := &LocalScraper{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, detects blocks and renders the body as plaintext.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if kind := Classify(resp, body); kind != BlockNone {
		return nil, BlockedError("local_http", kind)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	title, text, err := ExtractText(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(text) < 50 {
		return nil, eris.New("local_http: empty page")
	}

	return &Result{
		Page: Page{
			URL:        targetURL,
			Title:      title,
			Text:       text,
			StatusCode: resp.StatusCode,
		},
		Source: "local_http",
	}, nil
}

// ExtractText parses an HTML document and returns its title and visible
// text. Script, style and navigation content is dropped, whitespace within
// a line is collapsed and blank lines are removed.
func ExtractText(r io.Reader) (title, text string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", eris.Wrap(err, "scrape: parse html")
	}

	var (
		lines []string
		line  strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "head" {
				title = findTitle(n)
				return
			}
			if skippedElements[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode {
			line.WriteString(n.Data)
			line.WriteByte(' ')
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	return title, strings.Join(lines, "\n"), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.Join(strings.Fields(n.FirstChild.Data), " ")
		}
		return ""
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if t := findTitle(ch); t != "" {
			return t
		}
	}
	return ""
}
