package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Job builds and runs one loop of a sweep. Build must return fresh block
// instances: jobs run concurrently and blocks are not safe to share.
type Job struct {
	Name   string
	Build  func() (*Loop, error)
	Config Config
}

type SweepResult struct {
	Name  string
	Trace *Trace
}

// Sweep runs jobs concurrently, at most limit at a time (limit <= 0 means
// no limit). Results keep the order of jobs. The first failure cancels the
// remaining runs.
func Sweep(ctx context.Context, jobs []Job, limit int) ([]SweepResult, error) {
	results := make([]SweepResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			loop, err := job.Build()
			if err != nil {
				return fmt.Errorf("%s: build: %w", job.Name, err)
			}
			trace, err := loop.Run(ctx, job.Config)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			results[i] = SweepResult{Name: job.Name, Trace: trace}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
