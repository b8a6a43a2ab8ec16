package evidence

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/model"
)

// Defaults for the page surf.
const (
	MaxURLsPerSearch = 4
	MaxSurf          = 3
)

// Aggregator gathers evidence for one attempt using a single session.
type Aggregator struct {
	session  Session
	progress model.ProgressFunc

	maxURLsPerSearch int
	maxSurf          int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithProgress sets the progress callback.
func WithProgress(fn model.ProgressFunc) AggregatorOption {
	return func(a *Aggregator) { a.progress = fn }
}

// WithMaxSurf overrides the number of pages surfed per attempt.
func WithMaxSurf(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxSurf = n
		}
	}
}

// NewAggregator creates an Aggregator over session.
func NewAggregator(session Session, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		session:          session,
		maxURLsPerSearch: MaxURLsPerSearch,
		maxSurf:          MaxSurf,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Gather runs every search step of plan, then surfs up to the surf limit of
// the discovered URLs. Failures degrade to missing text and never surface as
// errors.
func (a *Aggregator) Gather(ctx context.Context, plan model.StrategyPlan, field model.FieldName) model.Evidence {
	log := zap.L().With(
		zap.String("field", string(field)),
		zap.Int("attempt", plan.Attempt),
		zap.String("strategy", plan.Name),
	)

	var (
		searchParts  []string
		browsedParts []string
		sources      []string
		candidates   []string
	)
	seen := make(map[string]bool)

	for _, u := range plan.DirectURLs {
		seen[u] = true
		a.progress.Notify(fmt.Sprintf("Reading: %s", u))
		text := a.scrape(ctx, u, log)
		if text == "" {
			continue
		}
		browsedParts = append(browsedParts, sourceBlock(u, text))
		sources = append(sources, u)
	}

	for _, step := range plan.Steps {
		res := a.search(ctx, step, log)
		if step.KeepText && res.Text != "" {
			searchParts = append(searchParts, fmt.Sprintf("%s (Query: %s):\n%s", step.Label, step.Query, res.Text))
		}
		for i, u := range res.URLs {
			if i >= a.maxURLsPerSearch {
				break
			}
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			candidates = append(candidates, u)
		}
	}

	surfed := 0
	for _, u := range candidates {
		if surfed >= a.maxSurf {
			break
		}
		if !plan.AllowsSurf(u) {
			log.Debug("evidence: skipping url", zap.String("url", u))
			continue
		}
		a.progress.Notify(fmt.Sprintf("Reading: %s", u))
		text := a.scrape(ctx, u, log)
		if text == "" {
			continue
		}
		browsedParts = append(browsedParts, sourceBlock(u, text))
		sources = append(sources, u)
		surfed++
	}

	ev := model.Evidence{
		SearchText:  strings.Join(searchParts, "\n\n"),
		BrowsedText: strings.Join(browsedParts, "\n\n"),
		SourceURLs:  sources,
	}
	log.Debug("evidence: gathered",
		zap.Int("search_chars", utf8.RuneCountInString(ev.SearchText)),
		zap.Int("browsed_chars", utf8.RuneCountInString(ev.BrowsedText)),
		zap.Int("candidates", len(candidates)),
		zap.Int("sources", len(sources)),
	)
	return ev
}

func (a *Aggregator) search(ctx context.Context, step model.SearchStep, log *zap.Logger) SearchResult {
	var res SearchResult
	if step.NewTab {
		err := WithIsolatedContext(ctx, a.session, func(ctx context.Context) error {
			res = a.session.Search(ctx, step.Engine, step.Query)
			return nil
		})
		if err != nil {
			log.Warn("evidence: isolated search failed",
				zap.String("engine", string(step.Engine)),
				zap.String("query", step.Query),
				zap.Error(err),
			)
			if res.Err == nil && res.Text == "" && len(res.URLs) == 0 {
				return SearchResult{Err: err}
			}
		}
	} else {
		res = a.session.Search(ctx, step.Engine, step.Query)
	}

	if res.Err != nil {
		log.Warn("evidence: search failed",
			zap.String("engine", string(step.Engine)),
			zap.String("query", step.Query),
			zap.Error(res.Err),
		)
		return SearchResult{Err: res.Err}
	}
	return res
}

func (a *Aggregator) scrape(ctx context.Context, url string, log *zap.Logger) string {
	res := a.session.Scrape(ctx, url)
	if res.Err != nil {
		log.Warn("evidence: scrape failed", zap.String("url", url), zap.Error(res.Err))
		return ""
	}
	return strings.TrimSpace(res.Text)
}

func sourceBlock(url, text string) string {
	return fmt.Sprintf("--- SOURCE: %s ---\n%s", url, text)
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
