// Package store persists research runs and their profiles.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// defaultListLimit applies when a filter sets no limit.
const defaultListLimit = 100

// Store defines the persistence interface for research runs.
type Store interface {
	CreateRun(ctx context.Context, company string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, profile *model.CompanyProfile) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error)
	// LatestProfile returns the newest completed run for company finished
	// after since, or nil when there is none.
	LatestProfile(ctx context.Context, company string, since time.Time) (*model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(f model.RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// runSelect selects the columns scanned into a model.Run, in order.
const runSelect = `SELECT id, company, status, profile, error, created_at, updated_at FROM runs`

// dialect renders the run queries shared by the SQL stores.
type dialect struct {
	// bind renders the nth (1-based) parameter.
	bind func(n int) string
	// companyEq compares the company column case-insensitively against %s.
	companyEq string
}

var (
	sqliteDialect = dialect{
		bind:      func(int) string { return "?" },
		companyEq: "company = %s COLLATE NOCASE",
	}
	postgresDialect = dialect{
		bind:      func(n int) string { return "$" + strconv.Itoa(n) },
		companyEq: "lower(company) = lower(%s)",
	}
)

type assignment struct {
	column string
	value  any
}

// update renders an UPDATE of one run's columns.
func (d dialect) update(runID string, set ...assignment) (string, []any) {
	cols := make([]string, len(set))
	args := make([]any, 0, len(set)+1)
	for i, a := range set {
		cols[i] = a.column + " = " + d.bind(i+1)
		args = append(args, a.value)
	}
	args = append(args, runID)
	return "UPDATE runs SET " + strings.Join(cols, ", ") + " WHERE id = " + d.bind(len(args)), args
}

// list renders a filtered, newest-first run listing.
func (d dialect) list(f model.RunFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, "status = "+d.bind(len(args)))
	}
	if f.Company != "" {
		args = append(args, f.Company)
		where = append(where, fmt.Sprintf(d.companyEq, d.bind(len(args))))
	}

	var b strings.Builder
	b.WriteString(runSelect)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, listLimit(f))
	b.WriteString(" ORDER BY created_at DESC, id LIMIT " + d.bind(len(args)))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		b.WriteString(" OFFSET " + d.bind(len(args)))
	}
	return b.String(), args
}

// latest renders the lookup of a company's newest completed run since a
// cutoff.
func (d dialect) latest(company string, since any) (string, []any) {
	q := runSelect + " WHERE " + fmt.Sprintf(d.companyEq, d.bind(1)) +
		" AND status = " + d.bind(2) + " AND updated_at >= " + d.bind(3) +
		" ORDER BY updated_at DESC LIMIT 1"
	return q, []any{company, string(model.RunStatusComplete), since}
}
