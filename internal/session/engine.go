package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/pkg/duckduckgo"
	"github.com/sells-group/atlas/pkg/jina"
	"github.com/sells-group/atlas/pkg/perplexity"
)

// maxResultContent caps the page content carried per Jina search result.
const maxResultContent = 1500

// Hits is the text and candidate URLs returned by one engine query.
type Hits struct {
	Text string
	URLs []string
}

// SearchEngine runs web searches for an APISession.
type SearchEngine interface {
	Name() string
	Search(ctx context.Context, query string) (Hits, error)
}

// JinaEngine searches through the Jina search endpoint.
type JinaEngine struct {
	Client jina.Client
}

func (e *JinaEngine) Name() string { return "jina" }

func (e *JinaEngine) Search(ctx context.Context, query string) (Hits, error) {
	resp, err := e.Client.Search(ctx, query)
	if err != nil {
		return Hits{}, eris.Wrap(err, "session: jina search")
	}
	var (
		sb   strings.Builder
		urls []string
	)
	for i, r := range resp.Data {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s\n%s", r.Title, r.URL)
		if d := strings.TrimSpace(r.Description); d != "" {
			sb.WriteString("\n" + d)
		}
		if c := strings.TrimSpace(r.Content); c != "" {
			sb.WriteString("\n" + evidence.Truncate(c, maxResultContent))
		}
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return Hits{Text: sb.String(), URLs: urls}, nil
}

// DuckDuckGoEngine searches the DuckDuckGo HTML endpoint.
type DuckDuckGoEngine struct {
	Client duckduckgo.Client
}

func (e *DuckDuckGoEngine) Name() string { return "duckduckgo" }

func (e *DuckDuckGoEngine) Search(ctx context.Context, query string) (Hits, error) {
	results, err := e.Client.Search(ctx, query)
	if err != nil {
		return Hits{}, eris.Wrap(err, "session: duckduckgo search")
	}
	var (
		sb   strings.Builder
		urls []string
	)
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%s\n%s", r.Title, r.URL)
		if r.Snippet != "" {
			sb.WriteString("\n" + r.Snippet)
		}
		urls = append(urls, r.URL)
	}
	return Hits{Text: sb.String(), URLs: urls}, nil
}

// PerplexityEngine asks Perplexity to answer the query from the web and
// uses its citations as candidate URLs.
type PerplexityEngine struct {
	Client perplexity.Client
	// Recency optionally limits how old the searched pages may be.
	Recency perplexity.Recency
}

func (e *PerplexityEngine) Name() string { return "perplexity" }

func (e *PerplexityEngine) Search(ctx context.Context, query string) (Hits, error) {
	a, err := e.Client.Ask(ctx, perplexity.Question{Query: query, Recency: e.Recency})
	if err != nil {
		return Hits{}, eris.Wrap(err, "session: perplexity search")
	}

	urls := a.URLs()
	text := a.Text
	if len(urls) > 0 {
		text += "\n\nSources:\n" + strings.Join(urls, "\n")
	}
	return Hits{Text: text, URLs: urls}, nil
}
