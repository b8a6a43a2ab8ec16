// Package research drives the bounded per-field retry loop: each attempt
// runs the next strategy, gathers fresh evidence, extracts, cleans and
// validates, stopping at the first acceptable value.
package research

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/extract"
	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/validate"
)

// DefaultMaxAttempts is the attempt ceiling per field.
const DefaultMaxAttempts = 5

// Planner yields the plan for a 1-based attempt number.
type Planner interface {
	Len() int
	PlanFor(attempt int, field model.FieldName, company, description string) (model.StrategyPlan, error)
}

// Gatherer collects evidence for a plan.
type Gatherer interface {
	Gather(ctx context.Context, plan model.StrategyPlan, field model.FieldName) model.Evidence
}

// FieldExtractor reads a field value from an instruction.
type FieldExtractor interface {
	Extract(ctx context.Context, field model.FieldName, instruction string) model.Value
}

// Researcher researches fields of one company. It is used by a single
// goroutine at a time and keeps no state between Research calls.
type Researcher struct {
	Company     string
	Planner     Planner
	Gatherer    Gatherer
	Extractor   FieldExtractor
	Progress    model.ProgressFunc
	MaxAttempts int
}

func (r *Researcher) maxAttempts() int {
	n := r.MaxAttempts
	if n <= 0 {
		n = DefaultMaxAttempts
	}
	if l := r.Planner.Len(); l < n {
		n = l
	}
	return max(n, 1)
}

// Research runs up to MaxAttempts attempts for field and returns the first
// accepted value, or the last attempt's cleaned value when every attempt was
// rejected.
func (r *Researcher) Research(ctx context.Context, field model.FieldName, description string) model.Outcome {
	log := zap.L().With(zap.String("company", r.Company), zap.String("field", string(field)))
	limit := r.maxAttempts()

	var out model.Outcome
	for attempt := 1; attempt <= limit; attempt++ {
		out.Attempts = attempt
		r.Progress.Notify(fmt.Sprintf("Attempt %d/%d for '%s'", attempt, limit, field))

		plan, err := r.Planner.PlanFor(attempt, field, r.Company, description)
		if err != nil {
			log.Error("research: no plan for attempt", zap.Int("attempt", attempt), zap.Error(err))
			break
		}
		r.Progress.Notify(fmt.Sprintf("Strategy: %s", plan.Name))

		ev := r.Gatherer.Gather(ctx, plan, field)
		instruction := extract.BuildInstruction(field, r.Company, ev)
		out.Value = validate.Clean(r.Extractor.Extract(ctx, field, instruction))
		out.Accepted = !validate.NeedsRetry(extract.Payload(field, out.Value))

		log.Info("research: attempt complete",
			zap.Int("attempt", attempt),
			zap.String("strategy", plan.Name),
			zap.Bool("accepted", out.Accepted),
			zap.Int("search_chars", utf8.RuneCountInString(ev.SearchText)),
			zap.Int("browsed_chars", utf8.RuneCountInString(ev.BrowsedText)),
			zap.Int("sources", len(ev.SourceURLs)),
		)

		if out.Accepted {
			r.Progress.Notify(fmt.Sprintf("Data found for '%s' in attempt %d", field, attempt))
			return out
		}
		r.Progress.Notify(fmt.Sprintf("Data missing/poor for '%s'. Retrying...", field))
	}

	r.Progress.Notify(fmt.Sprintf("Exhausted attempts for '%s'", field))
	return out
}
