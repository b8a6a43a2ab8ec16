package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseIsolatedContext_WithoutOpen(t *testing.T) {
	t.Parallel()
	s := &RodSession{}
	assert.ErrorIs(t, s.CloseIsolatedContext(context.Background()), ErrNoIsolatedContext)
	assert.Equal(t, 0, s.Depth())
}

func TestClosedSession(t *testing.T) {
	t.Parallel()
	s := &RodSession{}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Error(t, s.Search(context.Background(), "primary", "acme").Err)
	assert.Error(t, s.Scrape(context.Background(), "https://acme.com").Err)
	assert.Error(t, s.OpenIsolatedContext(context.Background()))
	_, err := s.FindLogo(context.Background(), "https://acme.com")
	assert.Error(t, err)
}

// TestRodSession_Live needs a local Chromium; set ATLAS_BROWSER_TEST=1 to run.
func TestRodSession_Live(t *testing.T) {
	if os.Getenv("ATLAS_BROWSER_TEST") == "" || testing.Short() {
		t.Skip("set ATLAS_BROWSER_TEST=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><link rel="icon" href="/favicon.ico">
<script>var hidden = "do not read";</script></head>
<body><img alt="Acme Logo" src="/img/logo.png"><h1>Acme   Corp</h1>
<p>Rockets
and satellites</p></body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := Launch(ctx, Config{Headless: true, NavigationTimeout: 20 * time.Second})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	res := s.Scrape(ctx, srv.URL)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Text, "Acme Corp")
	assert.Contains(t, res.Text, "Rockets and satellites")
	assert.NotContains(t, res.Text, "do not read")

	require.NoError(t, s.OpenIsolatedContext(ctx))
	assert.Equal(t, 1, s.Depth())
	logo, err := s.FindLogo(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/logo.png", logo)
	require.NoError(t, s.CloseIsolatedContext(ctx))
	assert.Equal(t, 0, s.Depth())
}
