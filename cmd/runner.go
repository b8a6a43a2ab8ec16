package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/report"
	"github.com/sells-group/atlas/internal/store"
)

// buildFunc researches one company into a profile.
type buildFunc func(ctx context.Context, company string, progress model.ProgressFunc) (*model.CompanyProfile, error)

// runner drives one company through the run lifecycle:
// queued -> researching -> complete | failed.
type runner struct {
	store   store.Store
	build   buildFunc
	reports *report.Writer
	// reuse serves a stored profile younger than this instead of researching.
	reuse time.Duration
	now   func() time.Time
}

func (r *runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Start records a queued run for company.
func (r *runner) Start(ctx context.Context, company string) (*model.Run, error) {
	run, err := r.store.CreateRun(ctx, company)
	if err != nil {
		return nil, eris.Wrap(err, "runner: create run")
	}
	return run, nil
}

// Execute researches a started run to completion. The returned run reflects
// the final stored state; a failed build is recorded on the run and also
// returned as an error.
func (r *runner) Execute(ctx context.Context, run *model.Run, progress model.ProgressFunc) (*model.Run, error) {
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("company", run.Company))

	if r.reuse > 0 {
		prev, err := r.store.LatestProfile(ctx, run.Company, r.clock().Add(-r.reuse))
		if err != nil {
			log.Warn("runner: profile lookup failed", zap.Error(err))
		} else if prev != nil && prev.Profile != nil {
			progress.Notify(fmt.Sprintf("Reusing profile from run %s", prev.ID))
			return r.complete(ctx, run, prev.Profile, log)
		}
	}

	if err := r.store.UpdateRunStatus(ctx, run.ID, model.RunStatusResearching); err != nil {
		return nil, eris.Wrap(err, "runner: mark researching")
	}
	run.Status = model.RunStatusResearching

	start := r.clock()
	p, err := r.build(ctx, run.Company, progress)
	if err != nil {
		log.Error("runner: research failed", zap.Error(err))
		if ferr := r.store.FailRun(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			log.Error("runner: record failure", zap.Error(ferr))
		}
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		return run, err
	}
	log.Info("runner: research complete", zap.Duration("elapsed", r.clock().Sub(start)))

	return r.complete(ctx, run, p, log)
}

func (r *runner) complete(ctx context.Context, run *model.Run, p *model.CompanyProfile, log *zap.Logger) (*model.Run, error) {
	if err := r.store.CompleteRun(ctx, run.ID, p); err != nil {
		return nil, eris.Wrap(err, "runner: complete run")
	}
	run.Status = model.RunStatusComplete
	run.Profile = p

	if r.reports != nil {
		if _, err := r.reports.Write(p); err != nil {
			log.Warn("runner: write reports", zap.Error(err))
		}
	}
	return run, nil
}

// Run starts and executes a run for company.
func (r *runner) Run(ctx context.Context, company string, progress model.ProgressFunc) (*model.Run, error) {
	run, err := r.Start(ctx, company)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, run, progress)
}
