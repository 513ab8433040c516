package synchronizer

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed wraps any error returned by a change fetcher.
	ErrFetchFailed = errors.New("failed to fetch changes")

	// ErrEmptyResponse is returned when a fetcher returns neither changes nor an error.
	ErrEmptyResponse = errors.New("fetcher returned an empty response")

	// ErrCacheOperation wraps store failures hit while reconciling.
	ErrCacheOperation = errors.New("cache operation failed")

	// ErrPanicked is returned when a collaborator panics during a run.
	ErrPanicked = errors.New("synchronization panicked")
)

// recoverTo turns a panic into ErrPanicked so the usual disable path runs.
func recoverTo(err *error) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%w: %v", ErrPanicked, rec)
	}
}
