package model

// Ceilings applied to evidence text before it is embedded in an extraction
// instruction. Counted in runes.
const (
	MaxSearchTextChars  = 8000
	MaxBrowsedTextChars = 15000
)

// Engine selects which of the two search engines a step runs on.
type Engine string

const (
	EnginePrimary   Engine = "primary"
	EngineSecondary Engine = "secondary"
)

// SearchStep is one query issued during an attempt.
type SearchStep struct {
	Engine Engine `json:"engine"`
	Query  string `json:"query"`
	// NewTab runs the step inside an isolated browsing context.
	NewTab bool `json:"new_tab"`
	// KeepText keeps the result page text as evidence. When false the step
	// only harvests candidate URLs.
	KeepText bool   `json:"keep_text"`
	Label    string `json:"label"`
}

// StrategyPlan is the query/engine/tab plan for one attempt.
type StrategyPlan struct {
	Attempt     int          `json:"attempt"`
	Name        string       `json:"name"`
	Steps       []SearchStep `json:"steps"`
	DirectURLs  []string     `json:"direct_urls,omitempty"`
	SpecialCase string       `json:"special_case,omitempty"`
	// SurfFilter reports whether a candidate URL may be surfed.
	SurfFilter func(url string) bool `json:"-"`
}

// AllowsSurf applies the plan's surf filter; a nil filter allows everything.
func (p StrategyPlan) AllowsSurf(url string) bool {
	if p.SurfFilter == nil {
		return true
	}
	return p.SurfFilter(url)
}

// Evidence is the text gathered by one attempt.
type Evidence struct {
	SearchText  string   `json:"search_text"`
	BrowsedText string   `json:"browsed_text"`
	SourceURLs  []string `json:"source_urls"`
}

// IsEmpty reports whether no text at all was gathered.
func (e Evidence) IsEmpty() bool {
	return e.SearchText == "" && e.BrowsedText == ""
}

// Outcome is the result of researching one field.
type Outcome struct {
	Attempts int   `json:"attempts"`
	Value    Value `json:"value"`
	Accepted bool  `json:"accepted"`
}

// ProgressFunc receives human-readable progress messages.
type ProgressFunc func(message string)

// Notify calls f when it is set.
func (f ProgressFunc) Notify(message string) {
	if f != nil {
		f(message)
	}
}
