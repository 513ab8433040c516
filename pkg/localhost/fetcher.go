package localhost

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/splitkit/pkg/split"
	"github.com/dmitrymomot/splitkit/pkg/synchronizer"
)

// Entry is one split in the localhost file. Full definitions use the same
// fields as the control plane; Treatment is a shorthand that serves one
// treatment to every key.
type Entry struct {
	split.RawSplit `yaml:",inline"`
	Treatment      string `yaml:"treatment,omitempty"`
}

// File is the localhost file layout.
type File struct {
	Splits   []Entry             `yaml:"splits"`
	Segments map[string][]string `yaml:"segments"`
}

// Fetcher serves split and segment changes from a YAML file. The file's
// modification time, in unix milliseconds, is the change number, so an
// untouched file always reports no changes.
//
// Splits and segment members that disappear from the file are reported as
// archived or removed, relative to what this Fetcher served before. After
// Seed, the first fetch also compares against what the shared cache holds,
// so entries deleted from the file while no process was running are
// cleaned up too.
type Fetcher struct {
	path string

	mu       sync.Mutex
	splits   map[string]struct{}
	segments map[string][]string

	splitSeed      SplitLister
	segmentSeed    SegmentLister
	splitsSeeded   bool
	seededSegments map[string]bool
}

// SplitLister lists the splits currently stored.
type SplitLister interface {
	SplitNames(ctx context.Context) ([]string, error)
}

// SegmentLister lists the members currently stored for a segment.
type SegmentLister interface {
	SegmentKeys(ctx context.Context, name string) ([]string, error)
}

var (
	_ synchronizer.SplitChangeFetcher   = (*Fetcher)(nil)
	_ synchronizer.SegmentChangeFetcher = (*Fetcher)(nil)
)

func New(path string) *Fetcher {
	return &Fetcher{
		path:           path,
		splits:         make(map[string]struct{}),
		segments:       make(map[string][]string),
		seededSegments: make(map[string]bool),
	}
}

// Seed makes the first fetch of each kind start from the stored state
// instead of from nothing. Either argument may be nil.
func (f *Fetcher) Seed(splits SplitLister, segments SegmentLister) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.splitSeed, f.segmentSeed = splits, segments
}

// FetchSplitChanges returns every split in the file when it changed after since.
func (f *Fetcher) FetchSplitChanges(ctx context.Context, since int64) (*synchronizer.SplitChanges, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, rev, err := f.load()
	if err != nil {
		return nil, err
	}
	if rev <= since {
		return &synchronizer.SplitChanges{Since: since, Till: since}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.splitSeed != nil && !f.splitsSeeded {
		names, err := f.splitSeed.SplitNames(ctx)
		if err != nil {
			return nil, errors.Join(ErrSeed, err)
		}
		for _, name := range names {
			f.splits[name] = struct{}{}
		}
		f.splitsSeeded = true
	}

	current := make(map[string]struct{}, len(doc.Splits))
	raws := make([]split.RawSplit, 0, len(doc.Splits))
	for _, e := range doc.Splits {
		raws = append(raws, e.raw(rev))
		current[e.Name] = struct{}{}
	}
	for _, name := range slices.Sorted(maps.Keys(f.splits)) {
		if _, ok := current[name]; ok {
			continue
		}
		raws = append(raws, split.RawSplit{Name: name, Status: split.StatusArchived, ChangeNumber: rev})
	}
	f.splits = current

	return &synchronizer.SplitChanges{Since: since, Till: rev, Splits: raws}, nil
}

// FetchSegmentChanges returns the full member list of name when the file
// changed after since.
func (f *Fetcher) FetchSegmentChanges(ctx context.Context, name string, since int64) (*synchronizer.SegmentChanges, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, rev, err := f.load()
	if err != nil {
		return nil, err
	}
	if rev <= since {
		return &synchronizer.SegmentChanges{Name: name, Since: since, Till: since}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.segmentSeed != nil && !f.seededSegments[name] {
		stored, err := f.segmentSeed.SegmentKeys(ctx, name)
		if err != nil {
			return nil, errors.Join(ErrSeed, fmt.Errorf("segment %q: %w", name, err))
		}
		f.segments[name] = stored
		f.seededSegments[name] = true
	}

	members := doc.Segments[name]
	var removed []string
	for _, key := range f.segments[name] {
		if !slices.Contains(members, key) {
			removed = append(removed, key)
		}
	}
	f.segments[name] = slices.Clone(members)

	return &synchronizer.SegmentChanges{
		Name:    name,
		Since:   since,
		Till:    rev,
		Added:   slices.Clone(members),
		Removed: removed,
	}, nil
}

func (f *Fetcher) load() (*File, int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, 0, errors.Join(ErrReadFile, err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, 0, errors.Join(ErrReadFile, err)
	}

	var doc File
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, 0, errors.Join(ErrParseFile, err)
	}
	for i, e := range doc.Splits {
		if e.Name == "" {
			return nil, 0, errors.Join(ErrParseFile, fmt.Errorf("split %d has no name", i))
		}
	}
	return &doc, info.ModTime().UnixMilli(), nil
}

// raw expands an entry into a control plane definition at revision rev.
func (e Entry) raw(rev int64) split.RawSplit {
	raw := e.RawSplit
	if raw.Status == "" {
		raw.Status = split.StatusActive
	}
	raw.ChangeNumber = rev

	if e.Treatment != "" && len(raw.Conditions) == 0 {
		if raw.DefaultTreatment == "" {
			raw.DefaultTreatment = e.Treatment
		}
		raw.Conditions = []split.RawCondition{{
			MatcherGroup: split.RawMatcherGroup{
				Combiner: split.CombinerAnd,
				Matchers: []split.RawMatcher{{MatcherType: split.MatcherAllKeys}},
			},
			Partitions: []split.Partition{{Treatment: e.Treatment, Size: 100}},
			Label:      "localhost",
		}}
	}
	return raw
}
