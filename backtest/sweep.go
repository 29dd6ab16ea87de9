package backtest

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one run in a sweep.
type Job struct {
	Name    string
	Request Request
}

// JobResult pairs a job with its outcome. Err is set when the run failed.
type JobResult struct {
	Job    Job
	Result *Result
	Err    error
}

// Sweep runs jobs on at most workers goroutines (GOMAXPROCS when <= 0).
// Each job builds a fresh strategy with Registry.New and its own ledger, so
// runs share nothing but the Sink. Results come back in job order. A failed
// job does not stop the others; Sweep itself only fails on ctx cancellation.
func Sweep(ctx context.Context, e *Engine, jobs []Job, workers int) ([]JobResult, error) {
	if e == nil || e.Registry == nil {
		return nil, errors.New("backtest: engine with registry is required")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		results[i].Job = job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			strat, err := e.Registry.New(gctx, job.Request.StrategyID)
			if err != nil {
				results[i].Err = err
				return nil
			}
			res, err := e.RunWith(gctx, job.Request, strat)
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
