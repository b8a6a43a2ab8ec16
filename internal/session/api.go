// Package session provides a browsing session built on HTTP search and
// reader APIs, for hosts without a browser.
package session

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/scrape"
)

// ErrClosed is returned by every call on a closed session.
var ErrClosed = eris.New("session: closed")

// ErrNoIsolatedContext is returned when closing a context that was never opened.
var ErrNoIsolatedContext = eris.New("session: no isolated context open")

// PageScraper reads one page as text.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// LogoSource finds a site's logo.
type LogoSource interface {
	FindLogo(ctx context.Context, siteURL string) (string, error)
}

// APISession implements a research browsing session over search and reader
// APIs. HTTP is stateless, so isolated contexts are tracked as a depth
// counter only. Not safe for concurrent use.
type APISession struct {
	primary   SearchEngine
	secondary SearchEngine
	scraper   PageScraper
	logos     LogoSource
	limiter   *rate.Limiter

	depth  int
	closed bool
}

var _ evidence.Session = (*APISession)(nil)

// Option configures an APISession.
type Option func(*APISession)

// WithRateLimit throttles searches and scrapes to rps per second.
func WithRateLimit(rps float64) Option {
	return func(s *APISession) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			s.limiter = nil
		}
	}
}

// WithLogoSource enables FindLogo.
func WithLogoSource(l LogoSource) Option {
	return func(s *APISession) { s.logos = l }
}

// NewAPISession creates a session. The secondary engine falls back to the
// primary when nil.
func NewAPISession(primary, secondary SearchEngine, scraper PageScraper, opts ...Option) (*APISession, error) {
	if primary == nil {
		return nil, eris.New("session: primary search engine is required")
	}
	if scraper == nil {
		return nil, eris.New("session: scraper is required")
	}
	if secondary == nil {
		secondary = primary
	}
	s := &APISession{primary: primary, secondary: secondary, scraper: scraper}
	for _, o := range opts {
		o(s)
	}
	zap.L().Debug("session: api session opened",
		zap.String("primary", primary.Name()),
		zap.String("secondary", secondary.Name()),
	)
	return s, nil
}

func (s *APISession) wait(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "session: rate limit")
	}
	return nil
}

func (s *APISession) engine(e model.Engine) SearchEngine {
	if e == model.EngineSecondary {
		return s.secondary
	}
	return s.primary
}

// Search runs query on the engine mapped to e.
func (s *APISession) Search(ctx context.Context, e model.Engine, query string) evidence.SearchResult {
	if err := s.wait(ctx); err != nil {
		return evidence.SearchResult{Err: err}
	}
	engine := s.engine(e)
	hits, err := engine.Search(ctx, query)
	if err != nil {
		zap.L().Debug("session: search failed",
			zap.String("engine", engine.Name()),
			zap.String("query", query),
			zap.Error(err),
		)
		return evidence.SearchResult{Err: err}
	}
	return evidence.SearchResult{Text: strings.TrimSpace(hits.Text), URLs: hits.URLs}
}

// Scrape reads url through the scraper chain.
func (s *APISession) Scrape(ctx context.Context, url string) evidence.ScrapeResult {
	if err := s.wait(ctx); err != nil {
		return evidence.ScrapeResult{Err: err}
	}
	res, err := s.scraper.Scrape(ctx, url)
	if err != nil {
		return evidence.ScrapeResult{Err: err}
	}
	return evidence.ScrapeResult{Text: evidence.Truncate(res.Page.Text, scrape.MaxPageChars)}
}

// FindLogo returns the site's logo when a logo source is configured.
func (s *APISession) FindLogo(ctx context.Context, siteURL string) (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	if s.logos == nil {
		return "", nil
	}
	return s.logos.FindLogo(ctx, siteURL)
}

// OpenIsolatedContext opens a nested context.
func (s *APISession) OpenIsolatedContext(_ context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.depth++
	return nil
}

// CloseIsolatedContext closes the innermost context.
func (s *APISession) CloseIsolatedContext(_ context.Context) error {
	if s.depth == 0 {
		return ErrNoIsolatedContext
	}
	s.depth--
	return nil
}

// Depth is the number of open isolated contexts.
func (s *APISession) Depth() int { return s.depth }

// Close ends the session. It is safe to call more than once.
func (s *APISession) Close() error {
	if !s.closed && s.depth > 0 {
		zap.L().Warn("session: closed with isolated contexts open", zap.Int("depth", s.depth))
	}
	s.closed = true
	s.depth = 0
	return nil
}
