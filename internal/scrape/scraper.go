package scrape

import "context"

// MaxPageChars is the ceiling, in runes, on text returned for one page.
const MaxPageChars = 12000

// Page is the plain-text rendering of one fetched URL.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	StatusCode int    `json:"status_code"`
}

// Result holds a scraped page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "jina"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
