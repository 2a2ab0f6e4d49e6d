package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_AllSucceed(t *testing.T) {
	g := New(context.Background())
	var n atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		g.Go(name, func(ctx context.Context) error {
			n.Add(1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(3), n.Load())
	assert.Len(t, g.Results(), 3)
}

func TestGroup_JoinsEveryFailure(t *testing.T) {
	errA := errors.New("boom a")
	errC := errors.New("boom c")

	g := New(context.Background())
	g.Go("a", func(ctx context.Context) error { return errA })
	g.Go("b", func(ctx context.Context) error { return nil })
	g.Go("c", func(ctx context.Context) error { return errC })

	err := g.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	assert.Contains(t, err.Error(), "a: boom a")
	assert.Contains(t, err.Error(), "c: boom c")

	var te *TaskError
	require.ErrorAs(t, err, &te)
}

func TestGroup_ParentCancelPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g := New(parent)

	started := make(chan struct{}, 2)
	for _, name := range []string{"x", "y"} {
		g.Go(name, func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		})
	}
	<-started
	<-started
	cancel()

	err := g.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	for _, r := range g.Results() {
		assert.ErrorIs(t, r.Err, context.Canceled, r.Name)
	}
}

func TestGroup_Cancel(t *testing.T) {
	g := New(context.Background())
	started := make(chan struct{})
	g.Go("wait", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started
	g.Cancel()
	assert.ErrorIs(t, g.Wait(), context.Canceled)
}

func TestGroup_FailFast(t *testing.T) {
	g := New(context.Background(), FailFast())
	boom := errors.New("boom")

	g.Go("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})
	g.Go("fails", func(ctx context.Context) error { return boom })

	err := g.Wait()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroup_WithoutFailFastSiblingsFinish(t *testing.T) {
	g := New(context.Background())
	var finished atomic.Bool

	g.Go("fails", func(ctx context.Context) error { return errors.New("boom") })
	g.Go("ok", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() == nil {
			finished.Store(true)
		}
		return nil
	})

	require.Error(t, g.Wait())
	assert.True(t, finished.Load())
}

func TestGroup_Limit(t *testing.T) {
	g := New(context.Background(), WithLimit(2))
	var running, peak atomic.Int32

	for i := 0; i < 8; i++ {
		g.Go("task", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, g.Results(), 8)
}
