package plugin

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent loads when no limit is configured.
const DefaultWorkers = 5

// Pool runs load jobs on a bounded number of goroutines. A failing or
// panicking job is logged and never cancels the others.
type Pool struct {
	ctx    context.Context
	group  errgroup.Group
	logger *slog.Logger
}

// NewPool creates a pool with at most workers concurrent jobs.
func NewPool(ctx context.Context, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{ctx: ctx, logger: logger}
	p.group.SetLimit(workers)
	return p
}

// Go schedules fn. It blocks while the pool is full.
func (p *Pool) Go(name string, fn func(ctx context.Context) error) {
	p.group.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic recovered", "job", name, "panic", r)
			}
		}()
		if err := p.ctx.Err(); err != nil {
			return nil
		}
		if err := fn(p.ctx); err != nil {
			p.logger.Error("job failed", "job", name, "error", err)
		}
		return nil
	})
}

// Wait blocks until every scheduled job has returned.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}
