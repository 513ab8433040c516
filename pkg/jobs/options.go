package jobs

import (
	"log/slog"
	"time"
)

// RunnerOption is a functional option for configuring a runner
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger for the runner
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// TaskOption is a functional option for configuring a task
type TaskOption func(*taskOptions)

type taskOptions struct {
	timeout time.Duration
}

// WithTimeout bounds a single run of the task
func WithTimeout(d time.Duration) TaskOption {
	return func(o *taskOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}
