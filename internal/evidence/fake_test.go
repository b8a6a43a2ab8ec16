package evidence

import (
	"context"
	"errors"

	"github.com/sells-group/atlas/internal/model"
)

type searchCall struct {
	engine   model.Engine
	query    string
	isolated bool
}

// fakeSession is a scripted Session that records its calls.
type fakeSession struct {
	searches map[string]SearchResult
	pages    map[string]string
	openErr  error
	closeErr error
	panicOn  string

	depth    int
	opened   int
	closed   int
	calls    []searchCall
	scraped  []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		searches: make(map[string]SearchResult),
		pages:    make(map[string]string),
	}
}

func (f *fakeSession) Search(_ context.Context, engine model.Engine, query string) SearchResult {
	f.calls = append(f.calls, searchCall{engine: engine, query: query, isolated: f.depth > 0})
	if query == f.panicOn {
		panic("search exploded")
	}
	return f.searches[query]
}

func (f *fakeSession) Scrape(_ context.Context, url string) ScrapeResult {
	f.scraped = append(f.scraped, url)
	text, ok := f.pages[url]
	if !ok {
		return ScrapeResult{Err: errors.New("404")}
	}
	return ScrapeResult{Text: text}
}

func (f *fakeSession) OpenIsolatedContext(context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.depth++
	f.opened++
	return nil
}

func (f *fakeSession) CloseIsolatedContext(context.Context) error {
	f.depth--
	f.closed++
	return f.closeErr
}
