// Package fanout runs named tasks concurrently under one cancellation
// scope and collects every failure.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Option configures a Group.
type Option func(*Group)

// WithLimit bounds how many tasks run at once. n <= 0 means no limit.
func WithLimit(n int) Option {
	return func(g *Group) { g.limit = n }
}

// FailFast cancels the remaining tasks after the first failure.
func FailFast() Option {
	return func(g *Group) { g.failFast = true }
}

// Group is a set of tasks sharing a context. Unlike a bare errgroup it
// never drops errors: Wait joins all of them.
type Group struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	eg       *errgroup.Group
	limit    int
	failFast bool

	mu      sync.Mutex
	results []Result
}

// New returns a Group bound to a child of parent.
func New(parent context.Context, opts ...Option) *Group {
	ctx, cancel := context.WithCancelCause(parent)
	g := &Group{ctx: ctx, cancel: cancel}
	for _, opt := range opts {
		opt(g)
	}
	g.eg = &errgroup.Group{}
	if g.limit > 0 {
		g.eg.SetLimit(g.limit)
	}
	return g
}

// Context returns the context every task receives.
func (g *Group) Context() context.Context { return g.ctx }

// Go starts fn as a task named name. It blocks while the group is at its
// limit. A task queued after cancellation fails with the context error
// without running.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		start := time.Now()
		var err error
		if g.ctx.Err() != nil {
			err = g.ctx.Err()
		} else {
			err = fn(g.ctx)
		}
		g.record(Result{Name: name, Err: err, Duration: time.Since(start)})
		if err != nil && g.failFast {
			g.cancel(fmt.Errorf("%s: %w", name, err))
		}
		return nil
	})
}

func (g *Group) record(r Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results = append(g.results, r)
}

// Cancel stops every task that observes the group context.
func (g *Group) Cancel() {
	g.cancel(context.Canceled)
}

// Wait blocks until all tasks finish and returns every failure joined,
// each prefixed with its task name. It returns nil when all succeeded.
func (g *Group) Wait() error {
	_ = g.eg.Wait()
	defer g.cancel(nil)

	var errs []error
	for _, r := range g.Results() {
		if r.Err != nil {
			errs = append(errs, &TaskError{Name: r.Name, Err: r.Err})
		}
	}
	return errors.Join(errs...)
}

// Results returns the outcomes recorded so far, in completion order.
func (g *Group) Results() []Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Result(nil), g.results...)
}

// TaskError ties a failure to the task that produced it.
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e *TaskError) Unwrap() error { return e.Err }
