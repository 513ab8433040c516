package telemetry

import "errors"

var (
	// ErrSendFailed wraps any error returned by the telemetry API.
	ErrSendFailed = errors.New("failed to send telemetry")

	// ErrDevSink is returned when the development sink cannot persist a batch.
	ErrDevSink = errors.New("failed to write telemetry batch")

	// ErrPanicked is returned when a collaborator panics during a report.
	ErrPanicked = errors.New("telemetry report panicked")
)
