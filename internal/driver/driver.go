package driver

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ember/internal/ir"
	"ember/internal/opt"
)

// Options configures an optimization run.
type Options struct {
	Passes []opt.Pass
	// Jobs caps the number of functions optimized concurrently;
	// 0 means GOMAXPROCS.
	Jobs int
	// Verify re-validates every function after its pipeline finishes.
	Verify bool
}

// Optimize runs the pass pipeline over every function of m. Functions are
// independent units: each is owned exclusively by one worker, so the passes
// themselves stay single-threaded. Returns whether anything changed.
func Optimize(ctx context.Context, m *ir.Module, opts Options) (bool, error) {
	passes := opts.Passes
	if passes == nil {
		passes = opt.DefaultPipeline()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var changed atomic.Bool
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		f := f
		g.Go(func() error {
			for _, p := range passes {
				if p.Run(f) {
					changed.Store(true)
				}
			}
			if opts.Verify {
				if err := ir.ValidateFunc(f); err != nil {
					return fmt.Errorf("function %s: graph invalid after pipeline: %w", f.Name, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return changed.Load(), err
	}
	return changed.Load(), nil
}
