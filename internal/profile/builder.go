// Package profile assembles a company profile by researching every field
// through one browsing session and deriving a relationship graph.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/atlas/internal/evidence"
	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/research"
	"github.com/sells-group/atlas/internal/strategy"
)

// Session is a browsing session owned by one profile build.
type Session interface {
	evidence.Session
	Close() error
}

// LogoFinder is implemented by sessions that can read a site's logo.
type LogoFinder interface {
	FindLogo(ctx context.Context, siteURL string) (string, error)
}

// SessionFactory opens a new session.
type SessionFactory func(ctx context.Context) (Session, error)

// Builder researches whole profiles.
type Builder struct {
	NewSession  SessionFactory
	Planner     research.Planner
	Extractor   research.FieldExtractor
	Progress    model.ProgressFunc
	MaxAttempts int
	// Fields overrides the researched fields; defaults to model.KnownFields.
	Fields []model.FieldName
}

// Build researches company and returns its profile. Only a failure to open
// the session is returned as an error; field-level failures leave the
// corresponding profile fields empty.
func (b *Builder) Build(ctx context.Context, company string) (*model.CompanyProfile, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, eris.New("profile: company is required")
	}
	log := zap.L().With(zap.String("company", company))

	p := &model.CompanyProfile{Fields: make(map[model.FieldName]model.FieldResult)}
	p.Name, p.Domain = Identity(company)
	b.Progress.Notify(fmt.Sprintf("Starting research for %s", company))

	session, err := b.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "profile: open session")
	}
	closed := false
	closeSession := func() {
		if closed {
			return
		}
		closed = true
		if cerr := session.Close(); cerr != nil {
			log.Warn("profile: close session", zap.Error(cerr))
		}
	}
	defer closeSession()

	p.LogoURL = b.logo(ctx, session, p.Domain)

	r := &research.Researcher{
		Company:     company,
		Planner:     b.planner(),
		Gatherer:    evidence.NewAggregator(session, evidence.WithProgress(b.Progress)),
		Extractor:   b.Extractor,
		Progress:    b.Progress,
		MaxAttempts: b.MaxAttempts,
	}

	fields := b.Fields
	if len(fields) == 0 {
		fields = model.KnownFields()
	}
	for _, field := range fields {
		out := r.Research(ctx, field, field.DefaultDescription())
		p.Fields[field] = model.FieldResult{Attempts: out.Attempts, Accepted: out.Accepted}
		Apply(p, field, out.Value)
	}

	b.Progress.Notify("Research complete. Closing session...")
	closeSession()

	b.Progress.Notify("Building knowledge graph...")
	BuildGraph(p)

	log.Info("profile: build complete",
		zap.Int("key_people", len(p.KeyPeople)),
		zap.Int("locations", len(p.Locations)),
		zap.Int("graph_nodes", len(p.GraphNodes)),
	)
	return p, nil
}

func (b *Builder) planner() research.Planner {
	if b.Planner != nil {
		return b.Planner
	}
	return strategy.Default()
}

func (b *Builder) logo(ctx context.Context, session Session, domain string) string {
	b.Progress.Notify(fmt.Sprintf("Fetching logo for %s...", domain))
	if finder, ok := session.(LogoFinder); ok {
		logo, err := finder.FindLogo(ctx, "https://"+domain)
		if err == nil && logo != "" {
			return logo
		}
		if err != nil {
			zap.L().Debug("profile: logo lookup failed", zap.String("domain", domain), zap.Error(err))
		}
	}
	b.Progress.Notify("Dynamic logo failed. Using fallback.")
	return FallbackLogo(domain)
}

// FallbackLogo returns the logo service URL for domain.
func FallbackLogo(domain string) string {
	return "https://logo.clearbit.com/" + domain
}

// Identity derives the display name and domain of a company input. Inputs
// containing a dot are treated as domains and named after their first label.
func Identity(company string) (name, domain string) {
	if strings.Contains(company, ".") {
		domain = strings.TrimPrefix(strategy.GuessDomain(company), "https://www.")
		label := strings.SplitN(domain, ".", 2)[0]
		return cases.Title(language.English).String(label), domain
	}
	return company, strings.TrimPrefix(strategy.GuessDomain(company), "https://www.")
}
