package synchronizer

import (
	"context"

	"github.com/dmitrymomot/splitkit/pkg/split"
)

// SplitChanges is one page of the split change stream.
type SplitChanges struct {
	Since  int64            `json:"since"`
	Till   int64            `json:"till"`
	Splits []split.RawSplit `json:"splits"`
}

// SegmentChanges is one page of a segment's change stream.
type SegmentChanges struct {
	Name    string   `json:"name"`
	Since   int64    `json:"since"`
	Till    int64    `json:"till"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// SplitChangeFetcher pulls split changes newer than since.
// Implementations must return Till >= since; Till == since means there is
// nothing new.
type SplitChangeFetcher interface {
	FetchSplitChanges(ctx context.Context, since int64) (*SplitChanges, error)
}

// SegmentChangeFetcher pulls membership changes of one segment newer than since.
type SegmentChangeFetcher interface {
	FetchSegmentChanges(ctx context.Context, name string, since int64) (*SegmentChanges, error)
}

// SplitChangeFetcherFunc adapts a function to SplitChangeFetcher.
type SplitChangeFetcherFunc func(ctx context.Context, since int64) (*SplitChanges, error)

func (f SplitChangeFetcherFunc) FetchSplitChanges(ctx context.Context, since int64) (*SplitChanges, error) {
	return f(ctx, since)
}

// SegmentChangeFetcherFunc adapts a function to SegmentChangeFetcher.
type SegmentChangeFetcherFunc func(ctx context.Context, name string, since int64) (*SegmentChanges, error)

func (f SegmentChangeFetcherFunc) FetchSegmentChanges(ctx context.Context, name string, since int64) (*SegmentChanges, error) {
	return f(ctx, name, since)
}
