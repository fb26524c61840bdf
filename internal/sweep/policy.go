package sweep

import (
	"context"
	"fmt"
	"iter"

	"github.com/deixis/dfsbench/internal/config"
	"github.com/deixis/dfsbench/internal/matrix"
	"golang.org/x/sync/errgroup"
)

// Policy decides how many combinations are in flight at once.
// Execute calls run once per combination it dispatches and returns
// ctx.Err() if it stopped dispatching because ctx was done.
type Policy interface {
	Name() string
	Execute(ctx context.Context, combos iter.Seq[matrix.Combination], run func(context.Context, matrix.Combination)) error
}

// Sequential runs one combination at a time: run N+1 starts only after
// run N has been reaped. It is the default because concurrent load on a
// shared filesystem skews the measurements.
type Sequential struct{}

func (Sequential) Name() string { return config.Sequential }

func (Sequential) Execute(ctx context.Context, combos iter.Seq[matrix.Combination], run func(context.Context, matrix.Combination)) error {
	for c := range combos {
		if err := ctx.Err(); err != nil {
			return err
		}
		run(ctx, c)
	}
	return ctx.Err()
}

// BoundedParallel keeps at most Limit combinations in flight.
// Completion order is arbitrary.
type BoundedParallel struct {
	Limit int
}

func (p BoundedParallel) Name() string {
	return fmt.Sprintf("%s(%d)", config.Parallel, p.limit())
}

func (p BoundedParallel) limit() int {
	return max(p.Limit, 1)
}

func (p BoundedParallel) Execute(ctx context.Context, combos iter.Seq[matrix.Combination], run func(context.Context, matrix.Combination)) error {
	var g errgroup.Group
	g.SetLimit(p.limit())
	for c := range combos {
		if ctx.Err() != nil {
			break
		}
		// Go blocks while Limit runs are in flight.
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// PolicyFor returns the policy called name.
func PolicyFor(name string, limit int) (Policy, error) {
	switch name {
	case "", config.Sequential:
		return Sequential{}, nil
	case config.Parallel:
		if limit < 1 {
			return nil, matrix.Invalid("parallel", "limit must be at least 1, got %d", limit)
		}
		return BoundedParallel{Limit: limit}, nil
	default:
		return nil, matrix.Invalid("policy", "unknown policy %q", name)
	}
}

// LimitPolicy returns the policy that keeps n runs in flight: Sequential
// for 1, BoundedParallel above that.
func LimitPolicy(n int) (Policy, error) {
	switch {
	case n < 1:
		return nil, matrix.Invalid("parallel", "limit must be at least 1, got %d", n)
	case n == 1:
		return Sequential{}, nil
	default:
		return BoundedParallel{Limit: n}, nil
	}
}
