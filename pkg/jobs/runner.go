package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/splitkit/pkg/logger"
)

// Handler is the work a periodic task performs.
type Handler func(ctx context.Context) error

// Void adapts a handler that cannot fail.
func Void(fn func(ctx context.Context)) Handler {
	return func(ctx context.Context) error {
		fn(ctx)
		return nil
	}
}

// Runner runs registered tasks on fixed intervals.
type Runner struct {
	mu      sync.RWMutex
	tasks   map[string]*task
	started bool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

type task struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	handler  Handler
	running  atomic.Bool
}

// NewRunner creates a runner with no tasks.
func NewRunner(opts ...RunnerOption) *Runner {
	options := &runnerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	return &Runner{
		tasks:  make(map[string]*task),
		logger: options.logger.With(logger.Component("jobs")),
	}
}

// AddTask registers a task to run every interval.
func (r *Runner) AddTask(name string, interval time.Duration, h Handler, opts ...TaskOption) error {
	if h == nil {
		return ErrHandlerNil
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}

	taskOpts := &taskOptions{}
	for _, opt := range opts {
		opt(taskOpts)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRegistered, name)
	}

	r.tasks[name] = &task{
		name:     name,
		interval: interval,
		timeout:  taskOpts.timeout,
		handler:  h,
	}

	r.logger.Info("registered periodic task",
		logger.Task(name),
		slog.Duration("interval", interval))

	return nil
}

// ListTasks returns registered task names, sorted.
func (r *Runner) ListTasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tasks))
}

// Start runs every task immediately and then on its interval, until ctx is
// done. It waits for in-flight runs before returning ctx.Err().
// A run that is still going when its next tick fires is skipped.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrRunnerStarted
	}
	if len(r.tasks) == 0 {
		r.mu.Unlock()
		return ErrRunnerNotConfigured
	}
	r.started = true
	tasks := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.Unlock()

	for _, t := range tasks {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.loop(ctx, t)
		}()
	}

	r.logger.Info("runner started", logger.Count(len(tasks)))
	<-ctx.Done()
	r.wg.Wait()
	r.logger.Info("runner stopped")

	return ctx.Err()
}

// Run starts the runner and returns a function suitable for errgroup.
// Cancellation of ctx is a clean shutdown.
func (r *Runner) Run(ctx context.Context) func() error {
	return func() error {
		err := r.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// RunTask runs one task now and returns its error.
func (r *Runner) RunTask(ctx context.Context, name string) error {
	r.mu.RLock()
	t, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return r.execute(ctx, t)
}

// RunAll runs every task once, in name order.
func (r *Runner) RunAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.ListTasks() {
		if err := r.RunTask(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) loop(ctx context.Context, t *task) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// run immediately on start
	r.tick(ctx, t)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, t)
		}
	}
}

func (r *Runner) tick(ctx context.Context, t *task) {
	err := r.execute(ctx, t)
	switch {
	case err == nil:
	case errors.Is(err, ErrTaskBusy):
		r.logger.DebugContext(ctx, "task still running, skipping tick", logger.Task(t.name))
	default:
		r.logger.ErrorContext(ctx, "task failed", logger.Task(t.name), logger.Error(err))
	}
}

// execute runs t unless it is already running.
func (r *Runner) execute(ctx context.Context, t *task) (retErr error) {
	if !t.running.CompareAndSwap(false, true) {
		return ErrTaskBusy
	}
	defer t.running.Store(false)

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("%w: %v", ErrTaskPanicked, rec)
			r.logger.ErrorContext(ctx, "task handler panicked",
				logger.Task(t.name),
				slog.Any("panic", rec))
		}
	}()

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	err := t.handler(ctx)
	r.logger.DebugContext(ctx, "task finished",
		logger.Task(t.name),
		logger.Duration(time.Since(start)))
	return err
}
