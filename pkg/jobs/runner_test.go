package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/splitkit/pkg/jobs"
	"github.com/dmitrymomot/splitkit/pkg/logger"
)

func newRunner() *jobs.Runner {
	return jobs.NewRunner(jobs.WithLogger(logger.Discard()))
}

func TestAddTask(t *testing.T) {
	t.Parallel()

	r := newRunner()
	noop := func(context.Context) error { return nil }

	require.NoError(t, r.AddTask("b", time.Second, noop))
	require.NoError(t, r.AddTask("a", time.Second, noop))
	assert.ErrorIs(t, r.AddTask("a", time.Second, noop), jobs.ErrTaskAlreadyRegistered)
	assert.ErrorIs(t, r.AddTask("c", 0, noop), jobs.ErrInvalidInterval)
	assert.ErrorIs(t, r.AddTask("d", time.Second, nil), jobs.ErrHandlerNil)

	assert.Equal(t, []string{"a", "b"}, r.ListTasks())
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("no tasks", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, newRunner().Start(context.Background()), jobs.ErrRunnerNotConfigured)
	})

	t.Run("runs immediately and periodically", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		var calls atomic.Int32
		require.NoError(t, r.AddTask("tick", 10*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return errors.New("ignored")
		}))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- r.Run(ctx)() }()

		require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("runner did not stop")
		}
		assert.ErrorIs(t, r.Start(context.Background()), jobs.ErrRunnerStarted)
	})

	t.Run("survives panics", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		var calls atomic.Int32
		require.NoError(t, r.AddTask("boom", 10*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			panic("boom")
		}))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = r.Start(ctx) }()

		require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	})
}

func TestRunTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns handler error", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		want := errors.New("failed")
		require.NoError(t, r.AddTask("a", time.Second, func(context.Context) error { return want }))

		assert.ErrorIs(t, r.RunTask(ctx, "a"), want)
		assert.ErrorIs(t, r.RunTask(ctx, "missing"), jobs.ErrTaskNotFound)
	})

	t.Run("overlapping runs are skipped", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, r.AddTask("slow", time.Second, func(context.Context) error {
			close(started)
			<-release
			return nil
		}))

		done := make(chan error, 1)
		go func() { done <- r.RunTask(ctx, "slow") }()
		<-started

		assert.ErrorIs(t, r.RunTask(ctx, "slow"), jobs.ErrTaskBusy)
		close(release)
		assert.NoError(t, <-done)
	})

	t.Run("panic becomes error", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		require.NoError(t, r.AddTask("boom", time.Second, func(context.Context) error { panic("boom") }))

		assert.ErrorIs(t, r.RunTask(ctx, "boom"), jobs.ErrTaskPanicked)
		// the busy flag is released after a panic
		assert.ErrorIs(t, r.RunTask(ctx, "boom"), jobs.ErrTaskPanicked)
	})

	t.Run("timeout bounds a run", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		require.NoError(t, r.AddTask("wait", time.Second, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}, jobs.WithTimeout(10*time.Millisecond)))

		assert.ErrorIs(t, r.RunTask(ctx, "wait"), context.DeadlineExceeded)
	})

	t.Run("run all joins errors", func(t *testing.T) {
		t.Parallel()
		r := newRunner()
		var order []string
		require.NoError(t, r.AddTask("b", time.Second, func(context.Context) error {
			order = append(order, "b")
			return errors.New("b failed")
		}))
		require.NoError(t, r.AddTask("a", time.Second, jobs.Void(func(context.Context) {
			order = append(order, "a")
		})))

		err := r.RunAll(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "b failed")
		assert.Equal(t, []string{"a", "b"}, order)
	})
}
