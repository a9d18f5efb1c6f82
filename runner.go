package factextract

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultRunner returns the default implementation backed by errgroup.Group.
// Tasks are not limited; generation calls are gated separately so that a
// task waiting on its split halves never holds a slot.
func DefaultRunner(ctx context.Context) Runner {
	return newErrGroupRunner(ctx, -1)
}

// NewLimitedRunner creates a runner with bounded concurrency. Go blocks while
// maxConcurrency tasks are running.
func NewLimitedRunner(ctx context.Context, maxConcurrency int) Runner {
	return newErrGroupRunner(ctx, maxConcurrency)
}

// errGroupRunner is the default implementation backed by errgroup.Group.
type errGroupRunner struct {
	ctx context.Context // derived ctx shared by all tasks
	eg  *errgroup.Group
}

func newErrGroupRunner(parent context.Context, limit int) *errGroupRunner {
	eg, ctx := errgroup.WithContext(parent)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &errGroupRunner{ctx: ctx, eg: eg}
}

func (r *errGroupRunner) Go(fn func() error) { r.eg.Go(fn) }

func (r *errGroupRunner) Wait() error { return r.eg.Wait() }

// runnerContext returns the derived ctx if r is the default runner, so that a
// failing task cancels its siblings; otherwise it falls back to ctx.
func runnerContext(r Runner, ctx context.Context) context.Context {
	if d, ok := r.(*errGroupRunner); ok {
		return d.ctx
	}
	return ctx
}

// gate bounds the number of in-flight generation calls. A nil gate is
// unlimited.
type gate chan struct{}

func newGate(n int) gate {
	if n <= 0 {
		return nil
	}
	return make(gate, n)
}

func (g gate) acquire(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	select {
	case g <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g gate) release() {
	if g != nil {
		<-g
	}
}
