// Package evidence executes a strategy plan against a browsing session and
// gathers the search and page text used for extraction.
package evidence

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/model"
)

// SearchResult is the outcome of one search. A non-nil Err means the search
// failed and Text/URLs should be treated as empty.
type SearchResult struct {
	Text string
	URLs []string
	Err  error
}

// ScrapeResult is the outcome of reading one page.
type ScrapeResult struct {
	Text string
	Err  error
}

// Session is a single-owner browsing session. Implementations are not
// required to be safe for concurrent use.
type Session interface {
	Search(ctx context.Context, engine model.Engine, query string) SearchResult
	Scrape(ctx context.Context, url string) ScrapeResult
	OpenIsolatedContext(ctx context.Context) error
	CloseIsolatedContext(ctx context.Context) error
}

// WithIsolatedContext runs fn inside a freshly opened isolated context. The
// context is closed on every exit path, including a panic in fn.
func WithIsolatedContext(ctx context.Context, s Session, fn func(ctx context.Context) error) (err error) {
	if openErr := s.OpenIsolatedContext(ctx); openErr != nil {
		return eris.Wrap(openErr, "evidence: open isolated context")
	}
	defer func() {
		if closeErr := s.CloseIsolatedContext(ctx); closeErr != nil {
			zap.L().Warn("evidence: close isolated context failed", zap.Error(closeErr))
			if err == nil {
				err = eris.Wrap(closeErr, "evidence: close isolated context")
			}
		}
	}()
	return fn(ctx)
}
