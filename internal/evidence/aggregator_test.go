package evidence

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/strategy"
)

func planFor(t *testing.T, attempt int, field model.FieldName) model.StrategyPlan {
	t.Helper()
	plan, err := strategy.Default().PlanFor(attempt, field, "Acme", "offices")
	require.NoError(t, err)
	return plan
}

func TestGather_DualEngine(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["Acme offices"] = SearchResult{
		Text: "primary text",
		URLs: []string{"https://acme.com/a", "https://acme.com/b"},
	}
	s.searches["Acme locations official data"] = SearchResult{
		Text: "secondary text",
		URLs: []string{"https://acme.com/b", "https://acme.com/c"},
	}
	s.pages["https://acme.com/a"] = "page a"
	s.pages["https://acme.com/b"] = "page b"
	s.pages["https://acme.com/c"] = "page c"

	var progress []string
	agg := NewAggregator(s, WithProgress(func(m string) { progress = append(progress, m) }))
	ev := agg.Gather(context.Background(), planFor(t, 1, model.FieldLocations), model.FieldLocations)

	assert.Equal(t,
		"GOOGLE RESULTS (Query: Acme offices):\nprimary text\n\nDUCKDUCKGO RESULTS (Query: Acme locations official data):\nsecondary text",
		ev.SearchText)
	assert.Equal(t,
		"--- SOURCE: https://acme.com/a ---\npage a\n\n--- SOURCE: https://acme.com/b ---\npage b\n\n--- SOURCE: https://acme.com/c ---\npage c",
		ev.BrowsedText)
	assert.Equal(t, []string{"https://acme.com/a", "https://acme.com/b", "https://acme.com/c"}, ev.SourceURLs)
	assert.Equal(t, []string{
		"Reading: https://acme.com/a",
		"Reading: https://acme.com/b",
		"Reading: https://acme.com/c",
	}, progress)

	require.Len(t, s.calls, 2)
	assert.False(t, s.calls[0].isolated)
	assert.True(t, s.calls[1].isolated)
	assert.Equal(t, model.EngineSecondary, s.calls[1].engine)
	assert.Equal(t, 1, s.opened)
	assert.Equal(t, 1, s.closed)
}

func TestGather_SurfLimit(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["Acme business profile info"] = SearchResult{
		Text: "results",
		URLs: []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com", "https://e.com"},
	}
	for _, u := range []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com", "https://e.com"} {
		s.pages[u] = "text of " + u
	}

	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 4, model.FieldDescription), model.FieldDescription)

	assert.Len(t, ev.SourceURLs, MaxSurf)
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, s.scraped)
}

func TestGather_URLsPerSearchCapped(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["Acme business profile info"] = SearchResult{
		URLs: []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com", "https://e.com"},
	}
	s.pages["https://e.com"] = "fifth"

	ev := NewAggregator(s, WithMaxSurf(10)).Gather(context.Background(), planFor(t, 4, model.FieldDescription), model.FieldDescription)

	assert.Empty(t, ev.SourceURLs)
	assert.NotContains(t, s.scraped, "https://e.com")
	assert.Len(t, s.scraped, MaxURLsPerSearch)
}

func TestGather_EmptyScrapesDoNotCount(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["Acme offices"] = SearchResult{URLs: []string{"https://a.com", "https://b.com"}}
	s.searches["Acme locations official data"] = SearchResult{URLs: []string{"https://c.com", "https://d.com"}}
	s.pages["https://a.com"] = "   "
	s.pages["https://c.com"] = "c"
	s.pages["https://d.com"] = "d"

	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 1, model.FieldLocations), model.FieldLocations)

	assert.Equal(t, []string{"https://c.com", "https://d.com"}, ev.SourceURLs)
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com"}, s.scraped)
}

func TestGather_SkipsSocialUnlessSocialField(t *testing.T) {
	t.Parallel()

	urls := []string{"https://www.facebook.com/acme", "https://acme.com", "https://x.com/acme"}
	setup := func() *fakeSession {
		s := newFakeSession()
		s.searches["Acme business profile info"] = SearchResult{URLs: urls}
		for _, u := range urls {
			s.pages[u] = "page"
		}
		return s
	}

	s := setup()
	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 4, model.FieldLocations), model.FieldLocations)
	assert.Equal(t, []string{"https://acme.com"}, ev.SourceURLs)

	s = setup()
	ev = NewAggregator(s).Gather(context.Background(), planFor(t, 4, model.FieldSocialMedia), model.FieldSocialMedia)
	assert.Equal(t, urls, ev.SourceURLs)
}

func TestGather_OfficialSite(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.pages["https://www.acme.com"] = "official home"
	s.pages["https://acme.com/team"] = "team page"
	s.searches["Acme contact about us management team"] = SearchResult{
		Text: "harvest only",
		URLs: []string{"https://www.acme.com", "https://acme.com/team"},
	}

	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 3, model.FieldKeyPeople), model.FieldKeyPeople)

	assert.Empty(t, ev.SearchText)
	assert.True(t, strings.HasPrefix(ev.BrowsedText, "--- SOURCE: https://www.acme.com ---\nofficial home"))
	assert.Contains(t, ev.BrowsedText, "--- SOURCE: https://acme.com/team ---\nteam page")
	assert.Equal(t, []string{"https://www.acme.com", "https://acme.com/team"}, ev.SourceURLs)
	assert.Equal(t, []string{"https://www.acme.com", "https://acme.com/team"}, s.scraped)
}

func TestGather_FailuresDegradeToEmpty(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["Acme offices"] = SearchResult{Text: "stale", URLs: []string{"https://a.com"}, Err: errors.New("timeout")}
	s.openErr = errors.New("browser gone")

	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 1, model.FieldLocations), model.FieldLocations)

	assert.True(t, ev.IsEmpty())
	assert.Empty(t, ev.SourceURLs)
	assert.Empty(t, s.scraped)
	require.Len(t, s.calls, 1, "isolated step is skipped when the context cannot open")
}

func TestGather_AllEmpty(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 1, model.FieldLocations), model.FieldLocations)

	assert.Equal(t, model.Evidence{}, ev)
	assert.Equal(t, 1, s.opened)
	assert.Equal(t, 1, s.closed)
}

func TestGather_CloseErrorKeepsResult(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.closeErr = errors.New("tab crashed")
	s.searches["Acme locations official data"] = SearchResult{Text: "found"}

	ev := NewAggregator(s).Gather(context.Background(), planFor(t, 1, model.FieldLocations), model.FieldLocations)
	assert.Contains(t, ev.SearchText, "found")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "日本", Truncate("日本語", 2))

	long := strings.Repeat("x", 20000)
	assert.Len(t, Truncate(long, model.MaxBrowsedTextChars), model.MaxBrowsedTextChars)
}
