package split

import "errors"

var (
	// ErrInvalidSplit marks a definition that cannot be parsed. Synchronizers
	// drop such splits from the cache and keep going.
	ErrInvalidSplit = errors.New("invalid split definition")

	// ErrSegmentRegistration is returned when a referenced segment could not
	// be registered for tracking.
	ErrSegmentRegistration = errors.New("failed to register segment")
)
