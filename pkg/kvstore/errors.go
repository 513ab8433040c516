package kvstore

import "errors"

var (
	// ErrEmptyKey is returned when an operation is called with an empty key.
	ErrEmptyKey = errors.New("kvstore: empty key")

	// ErrInvalidMutation is returned when a mutation kind is not supported.
	ErrInvalidMutation = errors.New("kvstore: invalid mutation")

	// ErrWrongType is returned when a key holds a value of another kind.
	ErrWrongType = errors.New("kvstore: operation against a key holding the wrong kind of value")

	// ErrNoSuchKey is returned by Rename when the source key does not exist.
	ErrNoSuchKey = errors.New("kvstore: no such key")

	// ErrNotInteger is returned when a hash field cannot be incremented.
	ErrNotInteger = errors.New("kvstore: value is not an integer")
)
