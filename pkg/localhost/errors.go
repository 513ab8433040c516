package localhost

import "errors"

var (
	ErrReadFile  = errors.New("failed to read localhost file")
	ErrParseFile = errors.New("failed to parse localhost file")
	ErrSeed      = errors.New("failed to read stored state")
)
