package splitcache

import (
	"context"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
)

// SegmentCache stores segment membership, per-segment change numbers and the
// registry of segments the synchronizer tracks.
type SegmentCache struct {
	*Gate
	store kvstore.Store
	keys  keys
}

// NewSegmentCache creates a segment cache over store.
func NewSegmentCache(store kvstore.Store, opts ...Option) *SegmentCache {
	o := applyOptions(opts)
	k := keys{prefix: o.prefix}
	return &SegmentCache{
		Gate:  newGate(store, k.segmentsDisabled(), o.cooldown),
		store: store,
		keys:  k,
	}
}

// RegisterSegment starts tracking name. Idempotent.
func (c *SegmentCache) RegisterSegment(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return c.store.SAdd(ctx, c.keys.registeredSegments(), name)
}

// UnregisterSegment stops tracking name. Membership data is kept.
func (c *SegmentCache) UnregisterSegment(ctx context.Context, name string) error {
	return c.store.SRem(ctx, c.keys.registeredSegments(), name)
}

// GetRegisteredSegments returns the tracked segment names, sorted.
func (c *SegmentCache) GetRegisteredSegments(ctx context.Context) ([]string, error) {
	return c.store.SMembers(ctx, c.keys.registeredSegments())
}

func (c *SegmentCache) AddKeysToSegment(ctx context.Context, name string, segmentKeys []string) error {
	if len(segmentKeys) == 0 {
		return nil
	}
	return c.store.SAdd(ctx, c.keys.segment(name), segmentKeys...)
}

func (c *SegmentCache) RemoveKeysFromSegment(ctx context.Context, name string, segmentKeys []string) error {
	if len(segmentKeys) == 0 {
		return nil
	}
	return c.store.SRem(ctx, c.keys.segment(name), segmentKeys...)
}

// SegmentKeys returns the members of a segment, sorted.
func (c *SegmentCache) SegmentKeys(ctx context.Context, name string) ([]string, error) {
	return c.store.SMembers(ctx, c.keys.segment(name))
}

func (c *SegmentCache) IsInSegment(ctx context.Context, name, key string) (bool, error) {
	return c.store.SIsMember(ctx, c.keys.segment(name), key)
}

// GetChangeNumber returns the watermark of one segment, or -1.
func (c *SegmentCache) GetChangeNumber(ctx context.Context, name string) (int64, error) {
	return getChangeNumber(ctx, c.store, c.keys.segmentChangeNumber(name))
}

func (c *SegmentCache) SetChangeNumber(ctx context.Context, name string, changeNumber int64) error {
	return setChangeNumber(ctx, c.store, c.keys.segmentChangeNumber(name), changeNumber)
}
