// Package scrape fetches company web pages as plain text through an ordered
// chain of scrapers.
package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrExcluded is returned for URLs the path matcher rules out.
	ErrExcluded = eris.New("scrape: url excluded")
	// ErrNoScraper is returned when no scraper in the chain accepts a URL.
	ErrNoScraper = eris.New("scrape: no scraper available")
)

// Chain tries scrapers in order and returns the first page with text.
type Chain struct {
	matcher  *PathMatcher
	scrapers []Scraper
}

// NewChain creates a chain. A nil matcher uses the default exclusions.
func NewChain(matcher *PathMatcher, scrapers ...Scraper) *Chain {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	return &Chain{matcher: matcher, scrapers: scrapers}
}

// Names lists the scrapers in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.scrapers))
	for _, s := range c.scrapers {
		names = append(names, s.Name())
	}
	return names
}

// Scrape returns the first non-empty page any scraper produces for
// targetURL. When all fail, the error lists each scraper's failure.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.matcher.IsExcluded(targetURL) {
		return nil, eris.Wrapf(ErrExcluded, "scrape: %s", targetURL)
	}

	var failures []string
	for _, s := range c.scrapers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: context done")
		}
		if !s.Supports(targetURL) {
			continue
		}

		result, err := s.Scrape(ctx, targetURL)
		if err == nil && (result == nil || strings.TrimSpace(result.Page.Text) == "") {
			err = eris.New("empty page")
		}
		if err == nil {
			return result, nil
		}

		zap.L().Debug("scrape: falling through",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		failures = append(failures, s.Name()+": "+err.Error())
	}

	if len(failures) == 0 {
		return nil, eris.Wrapf(ErrNoScraper, "scrape: %s", targetURL)
	}
	return nil, eris.Errorf("scrape: all scrapers failed for %s (%s)", targetURL, strings.Join(failures, "; "))
}
