package profile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/internal/model"
)

type fakeSession struct {
	logo    string
	logoErr error
	closed  int
}

func (s *fakeSession) Search(context.Context, model.Engine, string) evidence.SearchResult {
	return evidence.SearchResult{Text: "results"}
}
func (s *fakeSession) Scrape(context.Context, string) evidence.ScrapeResult {
	return evidence.ScrapeResult{}
}
func (s *fakeSession) OpenIsolatedContext(context.Context) error  { return nil }
func (s *fakeSession) CloseIsolatedContext(context.Context) error { return nil }
func (s *fakeSession) Close() error                               { s.closed++; return nil }

type logoSession struct {
	fakeSession
}

func (s *logoSession) FindLogo(_ context.Context, siteURL string) (string, error) {
	if s.logoErr != nil {
		return "", s.logoErr
	}
	return s.logo, nil
}

// fieldExtractor answers by field and counts calls per field.
type fieldExtractor struct {
	mu     sync.Mutex
	values map[model.FieldName]model.Value
	calls  map[model.FieldName]int
}

func (e *fieldExtractor) Extract(_ context.Context, field model.FieldName, _ string) model.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calls == nil {
		e.calls = make(map[model.FieldName]int)
	}
	e.calls[field]++
	return e.values[field]
}

func obj(kv ...string) model.Value {
	m := make(map[string]model.Value)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = model.Text(kv[i+1])
	}
	return model.Object(m)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	session := &logoSession{fakeSession{logo: "https://stripe.com/logo.png"}}
	ex := &fieldExtractor{values: map[model.FieldName]model.Value{
		model.FieldDescription: model.Text("Stripe builds payments infrastructure."),
		model.FieldIndustryDetails: model.Object(map[string]model.Value{
			"industry": model.Text("Financial Services"),
			"sector":   model.Text("Fintech"),
			"tags":     model.Strings("payments", "api"),
		}),
		model.FieldProductsServices: model.Object(map[string]model.Value{
			"data": model.Strings("Payments", "Billing"),
			"type": model.Text("SaaS"),
		}),
		model.FieldLocations:   model.Strings("Dublin, Ireland", "South San Francisco, CA"),
		model.FieldHQIndicator: model.Text("South San Francisco"),
		model.FieldKeyPeople: model.List(
			model.Object(map[string]model.Value{"name": model.Text("Patrick Collison"), "title": model.Text("CEO")}),
			model.Text("not a record"),
		),
		model.FieldTechStack:           model.Strings("Ruby", "Go"),
		model.FieldContactGranular:     obj("phone", "+1 888", "email", "sales@stripe.com"),
		model.FieldSocialMedia:         obj("twitter", "https://x.com/stripe"),
		model.FieldRegistrationDetails: obj("year_founded", "2010"),
		model.FieldCertifications:      model.Strings("PCI DSS"),
	}}

	var progress []string
	b := &Builder{
		NewSession: func(context.Context) (Session, error) { return session, nil },
		Extractor:  ex,
		Progress:   func(m string) { progress = append(progress, m) },
	}

	p, err := b.Build(context.Background(), "stripe.com")
	require.NoError(t, err)

	assert.Equal(t, "Stripe", p.Name)
	assert.Equal(t, "stripe.com", p.Domain)
	assert.Equal(t, "https://stripe.com/logo.png", p.LogoURL)
	assert.Equal(t, "Stripe builds payments infrastructure.", p.DescriptionLong)
	assert.Equal(t, "Financial Services", p.Industry)
	assert.Equal(t, []string{"payments", "api"}, p.Tags)
	assert.Equal(t, []string{"Payments", "Billing"}, p.ProductsServices)
	assert.Equal(t, "SaaS", p.ServiceType)
	assert.Equal(t, "South San Francisco", p.HQIndicator)
	require.Len(t, p.KeyPeople, 1)
	assert.Equal(t, "Patrick Collison", p.KeyPeople[0].Name)
	assert.Equal(t, "sales@stripe.com", p.Contact.Email)
	assert.Equal(t, "https://x.com/stripe", p.Social.Twitter)
	assert.Equal(t, "2010", p.Registration.YearFounded)
	assert.Equal(t, []string{"PCI DSS"}, p.Certifications)

	for _, f := range model.KnownFields() {
		assert.Equal(t, 1, ex.calls[f], "field %s researched once", f)
		assert.Equal(t, model.FieldResult{Attempts: 1, Accepted: true}, p.Fields[f])
	}

	assert.Equal(t, 1, session.closed)
	assert.Contains(t, progress, "Research complete. Closing session...")
	assert.Equal(t, "Building knowledge graph...", progress[len(progress)-1])
	assert.NotEmpty(t, p.GraphNodes)
}

func TestBuild_FieldsExhausted(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	ex := &fieldExtractor{values: map[model.FieldName]model.Value{}}
	b := &Builder{
		NewSession: func(context.Context) (Session, error) { return session, nil },
		Extractor:  ex,
		Fields:     []model.FieldName{model.FieldLocations, model.FieldKeyPeople},
	}

	p, err := b.Build(context.Background(), "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", p.Name)
	assert.Equal(t, "acmecorp.com", p.Domain)
	assert.Equal(t, "https://logo.clearbit.com/acmecorp.com", p.LogoURL)
	assert.Equal(t, model.FieldResult{Attempts: 5, Accepted: false}, p.Fields[model.FieldLocations])
	assert.Equal(t, 5, ex.calls[model.FieldKeyPeople])
	assert.Empty(t, p.Locations)
	assert.Len(t, p.GraphNodes, 1)
	assert.Equal(t, 1, session.closed)
}

func TestBuild_LogoFallbackOnError(t *testing.T) {
	t.Parallel()

	session := &logoSession{fakeSession{logoErr: errors.New("no page")}}
	b := &Builder{
		NewSession:  func(context.Context) (Session, error) { return session, nil },
		Extractor:   &fieldExtractor{},
		Fields:      []model.FieldName{model.FieldDescription},
		MaxAttempts: 1,
	}

	p, err := b.Build(context.Background(), "acme.io")
	require.NoError(t, err)
	assert.Equal(t, "https://logo.clearbit.com/acme.io", p.LogoURL)
	assert.Equal(t, 1, p.Fields[model.FieldDescription].Attempts)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	b := &Builder{
		NewSession: func(context.Context) (Session, error) { return nil, errors.New("chrome missing") },
		Extractor:  &fieldExtractor{},
	}

	_, err := b.Build(context.Background(), "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile: open session")

	_, err = b.Build(context.Background(), "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company is required")
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, name, domain string
	}{
		{"stripe.com", "Stripe", "stripe.com"},
		{"https://www.notion.so/", "Notion", "notion.so"},
		{"Acme", "Acme", "acme.com"},
		{"Société Générale", "Société Générale", "societegenerale.com"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			name, domain := Identity(tt.in)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.domain, domain)
		})
	}
}
