package model

import "time"

// RunStatus represents the current state of a research run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusResearching RunStatus = "researching"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run represents a single research run for a company.
type Run struct {
	ID        string          `json:"id"`
	Company   string          `json:"company"`
	Status    RunStatus       `json:"status"`
	Profile   *CompanyProfile `json:"profile,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RunFilter narrows a run listing.
type RunFilter struct {
	Status  RunStatus
	Company string
	Limit   int
	Offset  int
}
