// Package strategy holds the ordered catalog of research strategies. Each
// attempt number maps to exactly one plan-generating strategy, consumed in
// order and never revisited within one field's research.
package strategy

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/model"
)

// Labels used to tag search text by engine.
const (
	PrimaryLabel   = "GOOGLE RESULTS"
	SecondaryLabel = "DUCKDUCKGO RESULTS"
)

// ErrNoStrategy is returned for attempt numbers outside the table.
var ErrNoStrategy = eris.New("strategy: no strategy for attempt")

// Strategy turns a field request into the plan for one attempt.
type Strategy struct {
	Name string
	Plan func(req model.FieldRequest) model.StrategyPlan
}

// Table is an ordered list of strategies indexed by attempt number - 1.
type Table struct {
	strategies []Strategy
}

// New builds a table from strategies in attempt order.
func New(strategies ...Strategy) *Table {
	return &Table{strategies: strategies}
}

// Default returns the five-strategy table, ordered from the most precise and
// expensive plan to the cheapest and most generic.
func Default() *Table {
	return New(
		Strategy{Name: "dual_engine", Plan: dualEngine},
		Strategy{Name: "engine_swap", Plan: engineSwap},
		Strategy{Name: "official_site", Plan: officialSite},
		Strategy{Name: "broad_primary", Plan: broadPrimary},
		Strategy{Name: "last_resort_secondary", Plan: lastResortSecondary},
	)
}

// Len returns the number of strategies, which is also the attempt ceiling.
func (t *Table) Len() int { return len(t.strategies) }

// Names returns strategy names in attempt order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.strategies))
	for _, s := range t.strategies {
		names = append(names, s.Name)
	}
	return names
}

// PlanFor returns the plan for the given 1-based attempt number.
func (t *Table) PlanFor(attempt int, field model.FieldName, company, description string) (model.StrategyPlan, error) {
	if attempt < 1 || attempt > len(t.strategies) {
		return model.StrategyPlan{}, eris.Wrapf(ErrNoStrategy, "attempt %d of %d", attempt, len(t.strategies))
	}
	s := t.strategies[attempt-1]
	req := model.FieldRequest{Company: company, Field: field, Description: description}
	if req.Description == "" {
		req.Description = field.DefaultDescription()
	}

	plan := s.Plan(req)
	plan.Attempt = attempt
	if plan.Name == "" {
		plan.Name = s.Name
	}
	if plan.SurfFilter == nil {
		plan.SurfFilter = SurfFilter(field)
	}
	return plan, nil
}

func primaryStep(query string) model.SearchStep {
	return model.SearchStep{Engine: model.EnginePrimary, Query: query, KeepText: true, Label: PrimaryLabel}
}

func secondaryStep(query string) model.SearchStep {
	return model.SearchStep{Engine: model.EngineSecondary, Query: query, KeepText: true, Label: SecondaryLabel}
}

// dualEngine runs the base query on the primary engine and a field-specialized
// query on the secondary engine in a separate tab.
func dualEngine(req model.FieldRequest) model.StrategyPlan {
	special := secondaryStep(SpecialQuery(req.Field, req.Company))
	special.NewTab = true
	return model.StrategyPlan{
		Steps: []model.SearchStep{
			primaryStep(fmt.Sprintf("%s %s", req.Company, req.Description)),
			special,
		},
	}
}

// engineSwap reverses the engine roles and restricts the second query to
// business directories and the company's own site.
func engineSwap(req model.FieldRequest) model.StrategyPlan {
	plan := model.StrategyPlan{}
	query := fmt.Sprintf("site:linkedin.com OR site:crunchbase.com OR site:%s.com %s", siteToken(req.Company), req.Description)
	if req.Field == model.FieldKeyPeople {
		query = fmt.Sprintf("site:linkedin.com %s CEO CTO Director", req.Company)
		plan.SpecialCase = string(model.FieldKeyPeople)
	}
	site := primaryStep(query)
	site.NewTab = true
	plan.Steps = []model.SearchStep{
		secondaryStep(fmt.Sprintf("%s %s", req.Company, req.Description)),
		site,
	}
	return plan
}

// officialSite browses the guessed company domain and harvests extra URLs
// from a contact/about search without keeping its text.
func officialSite(req model.FieldRequest) model.StrategyPlan {
	harvest := primaryStep(fmt.Sprintf("%s contact about us management team", req.Company))
	harvest.KeepText = false
	return model.StrategyPlan{
		DirectURLs: []string{GuessDomain(req.Company)},
		Steps:      []model.SearchStep{harvest},
	}
}

func broadPrimary(req model.FieldRequest) model.StrategyPlan {
	return model.StrategyPlan{
		Steps: []model.SearchStep{primaryStep(fmt.Sprintf("%s business profile info", req.Company))},
	}
}

func lastResortSecondary(req model.FieldRequest) model.StrategyPlan {
	return model.StrategyPlan{
		Steps: []model.SearchStep{secondaryStep(fmt.Sprintf("%s %s", req.Company, req.Field))},
	}
}
