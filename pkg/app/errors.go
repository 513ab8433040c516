package app

import "errors"

var (
	// ErrMissingDependency is returned when New is called without a required collaborator.
	ErrMissingDependency = errors.New("missing application dependency")

	// ErrUnknownDomain is returned for a domain name other than splits, segments, impressions or metrics.
	ErrUnknownDomain = errors.New("unknown cache domain")
)
