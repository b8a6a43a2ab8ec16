package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas/internal/resilience"
)

const resultsPage = `<html><body>
<div class="serp__results">
  <div class="result results_links result--ad">
    <a class="result__a" href="https://ads.example.com">Sponsored</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <div class="links_main links_deep result__body">
      <h2 class="result__title">
        <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2Fabout&amp;rut=abc">Acme <b>Corp</b> About</a>
      </h2>
      <a class="result__snippet" href="#">Acme builds rockets in Austin.</a>
    </div>
  </div>
  <div class="result results_links web-result">
    <a class="result__a" href="https://www.linkedin.com/company/acme">Acme | LinkedIn</a>
    <a class="result__snippet" href="#">Acme on LinkedIn</a>
  </div>
  <div class="result results_links web-result">
    <a class="result__a" href="https://acme.com/careers"></a>
  </div>
</div>
</body></html>`

func fastRetry() Option {
	return WithRetryPolicy(resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
}

func TestParse(t *testing.T) {
	t.Parallel()

	results, challenged, err := Parse(strings.NewReader(resultsPage), 10)
	require.NoError(t, err)
	assert.False(t, challenged)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "Acme Corp About", URL: "https://acme.com/about", Snippet: "Acme builds rockets in Austin."}, results[0])
	assert.Equal(t, "https://www.linkedin.com/company/acme", results[1].URL)
}

func TestParse_MaxResults(t *testing.T) {
	t.Parallel()

	results, _, err := Parse(strings.NewReader(resultsPage), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://acme.com/about", results[0].URL)
}

func TestParse_Challenge(t *testing.T) {
	t.Parallel()

	page := `<html><body><div class="anomaly-modal__title">Unfortunately, bots use DuckDuckGo too.</div></body></html>`
	results, challenged, err := Parse(strings.NewReader(page), 10)
	require.NoError(t, err)
	assert.True(t, challenged)
	assert.Empty(t, results)
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2F&rut=x", "https://acme.com/"},
		{"https://duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2Fteam", "https://acme.com/team"},
		{"https://acme.com", "https://acme.com"},
		{"//duckduckgo.com/l/?rut=x", "//duckduckgo.com/l/?rut=x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(tt.in), tt.in)
	}
}

func TestSearch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Acme Corp headquarters", r.PostForm.Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0))
	results, err := c.Search(context.Background(), "Acme Corp headquarters")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Acme Corp About", results[0].Title)
}

func TestSearch_ChallengeRetriedThenFails(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<div class="anomaly-modal">challenge</div>`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0), fastRetry())
	_, err := c.Search(context.Background(), "acme")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChallenged)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_PermanentStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0), fastRetry())
	_, err := c.Search(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_RateLimitRespectsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0.001))
	_, err := c.Search(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Search(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient().(*httpClient)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, 10, c.maxResults)
	assert.NotNil(t, c.limiter)

	c = NewClient(WithMaxResults(3), WithMaxResults(-1)).(*httpClient)
	assert.Equal(t, 3, c.maxResults)
}
