package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/browser"
	"github.com/sells-group/atlas/internal/config"
	"github.com/sells-group/atlas/internal/extract"
	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/profile"
	"github.com/sells-group/atlas/internal/report"
	"github.com/sells-group/atlas/internal/scrape"
	"github.com/sells-group/atlas/internal/session"
	"github.com/sells-group/atlas/internal/store"
	anthropicpkg "github.com/sells-group/atlas/pkg/anthropic"
	"github.com/sells-group/atlas/pkg/duckduckgo"
	"github.com/sells-group/atlas/pkg/jina"
	"github.com/sells-group/atlas/pkg/perplexity"
)

// researchEnv holds the store, report writer and runner shared by the
// research, batch and serve commands.
type researchEnv struct {
	Store  store.Store
	Runner *runner
}

// Close releases resources held by the environment.
func (e *researchEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initResearch validates the config for mode and builds the environment.
// Callers should defer env.Close().
func initResearch(ctx context.Context, c *config.Config, mode string) (*researchEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}

	reports, err := report.NewWriter(c.Report.Dir, c.Report.Formats)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	builder := newBuilder(c, newSessionFactory(c), newExtractor(c))
	return &researchEnv{
		Store: st,
		Runner: &runner{
			store:   st,
			build:   builder,
			reports: reports,
			reuse:   c.ReuseWindow(),
		},
	}, nil
}

// newExtractor builds the extraction contract over the Anthropic API.
func newExtractor(c *config.Config) *extract.Contract {
	var opts []anthropicpkg.Option
	if c.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
	}
	client := anthropicpkg.NewClient(c.Anthropic.Key, opts...)
	return extract.NewContract(extract.NewAnthropicExtractor(client, c.Anthropic.Model, c.Anthropic.MaxTokens, c.RetryPolicy()))
}

// newBuilder returns a build function that researches one company with a
// fresh session and the given progress callback.
func newBuilder(c *config.Config, sessions profile.SessionFactory, extractor *extract.Contract) buildFunc {
	fields := make([]model.FieldName, 0, len(c.Research.Fields))
	for _, f := range c.Research.Fields {
		fields = append(fields, model.FieldName(f))
	}
	return func(ctx context.Context, company string, progress model.ProgressFunc) (*model.CompanyProfile, error) {
		b := &profile.Builder{
			NewSession:  sessions,
			Extractor:   extractor,
			Progress:    progress,
			MaxAttempts: c.Research.MaxAttempts,
			Fields:      fields,
		}
		return b.Build(ctx, company)
	}
}

// newSessionFactory opens a browser session or an API session per the
// search.session setting.
func newSessionFactory(c *config.Config) profile.SessionFactory {
	if c.Search.Session == "api" {
		return apiSessionFactory(c)
	}
	bcfg := browser.Config{
		Bin:               c.Browser.Bin,
		ControlURL:        c.Browser.ControlURL,
		Headless:          c.Browser.Headless,
		NavigationTimeout: time.Duration(c.Browser.NavigationTimeoutSecs) * time.Second,
	}
	return func(ctx context.Context) (profile.Session, error) {
		s, err := browser.Launch(ctx, bcfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func apiSessionFactory(c *config.Config) profile.SessionFactory {
	policy := c.RetryPolicy()

	jinaClient := jina.NewClient(c.Jina.Key,
		jina.WithBaseURL(c.Jina.BaseURL),
		jina.WithSearchBaseURL(c.Jina.SearchBaseURL),
		jina.WithRemoveSelectors(c.Jina.RemoveSelectors...),
		jina.WithPageTimeout(time.Duration(c.Scrape.TimeoutSecs)*time.Second),
		jina.WithRetryPolicy(policy),
	)

	var secondary session.SearchEngine
	switch c.Search.Secondary {
	case "perplexity":
		secondary = &session.PerplexityEngine{
			Client: perplexity.NewClient(c.Perplexity.Key,
				perplexity.WithBaseURL(c.Perplexity.BaseURL),
				perplexity.WithModel(c.Perplexity.Model),
				perplexity.WithRetryPolicy(policy),
			),
			Recency: perplexity.Recency(c.Perplexity.Recency),
		}
	default:
		secondary = &session.DuckDuckGoEngine{
			Client: duckduckgo.NewClient(
				duckduckgo.WithBaseURL(c.DuckDuckGo.BaseURL),
				duckduckgo.WithRateLimit(c.DuckDuckGo.RatePerSec),
				duckduckgo.WithMaxResults(c.DuckDuckGo.MaxResults),
				duckduckgo.WithRetryPolicy(policy),
			),
		}
	}

	localOpts := []scrape.LocalOption{scrape.WithUserAgent(c.Scrape.UserAgent)}
	if c.Scrape.TimeoutSecs > 0 {
		localOpts = append(localOpts, scrape.WithLocalHTTPClient(&http.Client{
			Timeout: time.Duration(c.Scrape.TimeoutSecs) * time.Second,
		}))
	}
	local := scrape.NewLocalScraper(localOpts...)
	chain := scrape.NewChain(scrape.NewPathMatcher(c.Scrape.ExcludePaths), local, scrape.NewJinaAdapter(jinaClient))

	primary := &session.JinaEngine{Client: jinaClient}
	zap.L().Debug("api session configured",
		zap.String("primary", primary.Name()),
		zap.String("secondary", secondary.Name()),
		zap.Strings("scrapers", chain.Names()),
	)

	return func(context.Context) (profile.Session, error) {
		s, err := session.NewAPISession(primary, secondary, chain,
			session.WithRateLimit(c.Search.RatePerSec),
			session.WithLogoSource(local),
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
