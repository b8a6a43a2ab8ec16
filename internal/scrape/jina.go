package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/resilience"
	"github.com/sells-group/atlas/pkg/jina"
)

const (
	// minReaderChars is the shortest reader output treated as a real page.
	minReaderChars = 100

	jinaBreakerThreshold = 3
	jinaBreakerCooldown  = time.Minute
)

// JinaAdapter reads pages through the Jina Reader. Consecutive failures trip
// a breaker that takes the adapter out of the chain until it cools down.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates an adapter over client.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker("jina_reader", jinaBreakerThreshold, jinaBreakerCooldown),
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports reports false while the breaker is open.
func (j *JinaAdapter) Supports(string) bool {
	return j.breaker.State() != resilience.StateOpen
}

// Scrape reads targetURL and rejects reader output that is not a usable page.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.Call(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if err := checkReadResponse(resp); err != nil {
			return nil, err
		}

		page := Page{
			URL:        resp.Data.URL,
			Title:      resp.Data.Title,
			Text:       strings.TrimSpace(resp.Data.Content),
			StatusCode: resp.Code,
		}
		if page.URL == "" {
			page.URL = targetURL
		}
		return &Result{Page: page, Source: j.Name()}, nil
	})
}

// checkReadResponse returns why a reader response cannot stand in for the
// page, or nil when it can.
func checkReadResponse(resp *jina.ReadResponse) error {
	if resp == nil {
		return eris.New("jina: empty read")
	}
	if resp.Code != 0 && resp.Code != 200 {
		return eris.Errorf("jina: reader status %d", resp.Code)
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minReaderChars {
		return eris.Errorf("jina: thin content (%d chars)", len(content))
	}
	if kind := ClassifyText(content); kind != BlockNone {
		return BlockedError("jina", kind)
	}
	return nil
}
