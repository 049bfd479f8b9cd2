// Package parallel runs independent jobs with bounded concurrency.
package parallel

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one job.
type Result[T any, R any] struct {
	Input    T
	Value    R
	Err      error
	Duration time.Duration
}

// Map runs fn over every input with at most workers jobs in flight and
// returns the results in input order. A failing job does not cancel the
// others; only ctx does. Jobs not started before ctx is done report its
// error.
func Map[T any, R any](ctx context.Context, workers int, inputs []T, fn func(ctx context.Context, input T) (R, error)) []Result[T, R] {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result[T, R], len(inputs))

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, in := range inputs {
		results[i].Input = in
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			start := time.Now()
			v, err := fn(ctx, in)
			results[i].Value = v
			results[i].Err = err
			results[i].Duration = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed counts the results that carry an error.
func Failed[T any, R any](results []Result[T, R]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
