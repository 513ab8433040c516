package splitcache

import "errors"

var (
	// ErrCorruptedEntry is returned when a stored value cannot be decoded.
	// Readers should treat the entry as a cache miss.
	ErrCorruptedEntry = errors.New("corrupted cache entry")

	// ErrEmptyName is returned when a split, segment or metric name is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidBucket is returned for latency bucket indexes outside [0, LatencyBuckets).
	ErrInvalidBucket = errors.New("latency bucket index out of range")
)
