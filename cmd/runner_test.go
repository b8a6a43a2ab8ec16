package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas/internal/config"
	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/internal/extract"
	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/profile"
	"github.com/sells-group/atlas/internal/report"
	"github.com/sells-group/atlas/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "atlas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func stubBuild(p *model.CompanyProfile, err error, calls *atomic.Int32) buildFunc {
	return func(_ context.Context, company string, progress model.ProgressFunc) (*model.CompanyProfile, error) {
		if calls != nil {
			calls.Add(1)
		}
		progress.Notify("Starting research for " + company)
		return p, err
	}
}

func TestRunner_RunComplete(t *testing.T) {
	st := newTestStore(t)
	dir := t.TempDir()
	reports, err := report.NewWriter(dir, []string{report.FormatJSON})
	require.NoError(t, err)

	r := &runner{
		store:   st,
		build:   stubBuild(&model.CompanyProfile{Name: "Acme Corp", Domain: "acmecorp.com"}, nil, nil),
		reports: reports,
	}

	var msgs []string
	run, err := r.Run(context.Background(), "Acme Corp", func(m string) { msgs = append(msgs, m) })
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, []string{"Starting research for Acme Corp"}, msgs)

	stored, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, stored.Status)
	require.NotNil(t, stored.Profile)
	assert.Equal(t, "acmecorp.com", stored.Profile.Domain)

	_, err = os.Stat(filepath.Join(dir, "Acme_Corp_profile.json"))
	assert.NoError(t, err)
}

func TestRunner_RunFailed(t *testing.T) {
	st := newTestStore(t)
	r := &runner{
		store: st,
		build: stubBuild(nil, eris.New("profile: open session: no chrome"), nil),
	}

	run, err := r.Run(context.Background(), "Acme Corp", nil)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)

	stored, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "no chrome")
}

func TestRunner_ReusesRecentProfile(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	r := &runner{
		store: st,
		build: stubBuild(&model.CompanyProfile{Name: "Acme Corp"}, nil, &calls),
		reuse: 24 * time.Hour,
	}

	first, err := r.Run(context.Background(), "Acme Corp", nil)
	require.NoError(t, err)

	var msgs []string
	second, err := r.Run(context.Background(), "acme corp", func(m string) { msgs = append(msgs, m) })
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.RunStatusComplete, second.Status)
	require.NotNil(t, second.Profile)
	assert.Equal(t, "Acme Corp", second.Profile.Name)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], first.ID)
}

func TestRunner_NoReuseWhenDisabled(t *testing.T) {
	st := newTestStore(t)
	var calls atomic.Int32
	r := &runner{
		store: st,
		build: stubBuild(&model.CompanyProfile{Name: "Acme Corp"}, nil, &calls),
	}

	for range 2 {
		_, err := r.Run(context.Background(), "Acme Corp", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

// scriptedSession answers every search and page read with fixed text.
type scriptedSession struct {
	closed atomic.Int32
}

func (s *scriptedSession) Search(_ context.Context, _ model.Engine, query string) evidence.SearchResult {
	return evidence.SearchResult{Text: "results for " + query, URLs: []string{"https://acme.example/about"}}
}

func (s *scriptedSession) Scrape(context.Context, string) evidence.ScrapeResult {
	return evidence.ScrapeResult{Text: "Acme builds industrial widgets in Austin."}
}

func (s *scriptedSession) OpenIsolatedContext(context.Context) error  { return nil }
func (s *scriptedSession) CloseIsolatedContext(context.Context) error { return nil }
func (s *scriptedSession) Close() error                               { s.closed.Add(1); return nil }

type constantExtractor struct{}

func (constantExtractor) ExtractJSON(context.Context, string) (map[string]any, error) {
	return map[string]any{"data": "Industrial widgets"}, nil
}

func TestNewBuilder_EndToEnd(t *testing.T) {
	c := &config.Config{}
	c.Research.MaxAttempts = 5
	c.Research.Fields = []string{"description", "tech_stack"}

	sess := &scriptedSession{}
	factory := func(context.Context) (profile.Session, error) { return sess, nil }
	build := newBuilder(c, factory, extract.NewContract(constantExtractor{}))

	p, err := build(context.Background(), "Acme Corp", nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", p.Name)
	assert.Equal(t, "Industrial widgets", p.DescriptionLong)
	require.Len(t, p.Fields, 2)
	assert.Equal(t, model.FieldResult{Attempts: 1, Accepted: true}, p.Fields[model.FieldDescription])
	assert.Equal(t, int32(1), sess.closed.Load())
	assert.NotEmpty(t, p.GraphNodes)
}
