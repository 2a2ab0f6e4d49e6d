package apiclient

import (
	"context"
	"errors"
	"sync"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// errCanceledByCaller is the cancel cause recorded by Call.Cancel.
var errCanceledByCaller = errors.New("canceled by caller")

// Call is a pending API request. It settles exactly once, either with a
// decoded result or with an error of one of the three kinds.
type Call[T any] struct {
	op     string
	cancel context.CancelCauseFunc
	done   chan struct{}

	mu        sync.Mutex
	settled   bool
	cancelled bool
	result    T
	err       error
}

func newCall[T any](op string) *Call[T] {
	return &Call[T]{op: op, done: make(chan struct{})}
}

// Failed returns a Call that has already settled with err. Façades use it
// for input rejected before dispatch.
func Failed[T any](op string, err error) *Call[T] {
	c := newCall[T](op)
	var zero T
	c.settle(zero, err)
	return c
}

// Start dispatches req on its own goroutine and returns the handle.
// Validation errors settle the call before any network activity.
func Start[T any](ctx context.Context, client *Client, req *Request) *Call[T] {
	call := newCall[T](req.Op)

	url, err := req.URL(client.baseURL)
	if err != nil {
		var zero T
		call.settle(zero, err)
		return call
	}

	cctx, cancel := context.WithCancelCause(ctx)
	call.cancel = cancel

	go func() {
		defer cancel(nil)
		var out T
		err := client.do(cctx, req, url, &out)
		if err != nil && cctx.Err() != nil {
			err = &clierrors.CanceledError{Op: req.Op, Cause: context.Cause(cctx)}
		}
		call.settle(out, err)
	}()

	return call
}

// settle records the outcome unless the call already settled. A Cancel that
// won the race turns any outcome into a cancellation error.
func (c *Call[T]) settle(result T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled {
		return
	}
	c.settled = true
	if c.cancelled {
		var zero T
		result = zero
		err = &clierrors.CanceledError{Op: c.op, Cause: context.Canceled}
	}
	c.result = result
	c.err = err
	close(c.done)
}

// Cancel aborts the request if it has not completed. The call then settles
// with a cancellation error. After completion Cancel does nothing.
func (c *Call[T]) Cancel() {
	c.mu.Lock()
	if c.settled || c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel(errCanceledByCaller)
	}
}

// Done is closed once the call has settled.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call settles and returns its outcome. It may be
// called any number of times.
func (c *Call[T]) Wait() (T, error) {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// Op returns the operation name.
func (c *Call[T]) Op() string { return c.op }

// Settled reports whether the call has completed.
func (c *Call[T]) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}
