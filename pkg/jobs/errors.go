package jobs

import "errors"

var (
	// ErrHandlerNil is returned when a task is registered without a handler
	ErrHandlerNil = errors.New("task handler cannot be nil")

	// ErrInvalidInterval is returned when a task interval is not positive
	ErrInvalidInterval = errors.New("task interval must be positive")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrTaskNotFound is returned when running a task that was never registered
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskBusy is returned when a task is already running
	ErrTaskBusy = errors.New("task is already running")

	// ErrRunnerNotConfigured is returned when the runner has no tasks
	ErrRunnerNotConfigured = errors.New("runner has no registered tasks")

	// ErrRunnerStarted is returned when Start is called twice
	ErrRunnerStarted = errors.New("runner already started")

	// ErrTaskPanicked wraps a panic recovered from a handler
	ErrTaskPanicked = errors.New("task handler panicked")
)
