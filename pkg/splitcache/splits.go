package splitcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
	"github.com/dmitrymomot/splitkit/pkg/split"
)

// SplitCache stores parsed split definitions plus the global change number.
// It keeps no state of its own; everything lives in the store.
type SplitCache struct {
	*Gate
	store kvstore.Store
	keys  keys
}

// NewSplitCache creates a split cache over store.
func NewSplitCache(store kvstore.Store, opts ...Option) *SplitCache {
	o := applyOptions(opts)
	k := keys{prefix: o.prefix}
	return &SplitCache{
		Gate:  newGate(store, k.splitsDisabled(), o.cooldown),
		store: store,
		keys:  k,
	}
}

// GetChangeNumber returns the split watermark, or -1 if never synchronized.
func (c *SplitCache) GetChangeNumber(ctx context.Context) (int64, error) {
	return getChangeNumber(ctx, c.store, c.keys.splitsChangeNumber())
}

// SetChangeNumber overwrites the watermark. Callers guarantee monotonicity.
func (c *SplitCache) SetChangeNumber(ctx context.Context, changeNumber int64) error {
	return setChangeNumber(ctx, c.store, c.keys.splitsChangeNumber(), changeNumber)
}

// AddSplit stores s under name, replacing any previous definition.
func (c *SplitCache) AddSplit(ctx context.Context, name string, s *split.Split) error {
	if name == "" {
		return ErrEmptyName
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode split %q: %w", name, err)
	}
	if err := c.store.Set(ctx, c.keys.split(name), string(data), 0); err != nil {
		return err
	}
	return c.store.SAdd(ctx, c.keys.splitNames(), name)
}

// GetSplit returns the split stored under name, or nil if there is none.
// An undecodable entry yields ErrCorruptedEntry.
func (c *SplitCache) GetSplit(ctx context.Context, name string) (*split.Split, error) {
	raw, ok, err := c.store.Get(ctx, c.keys.split(name))
	if err != nil || !ok {
		return nil, err
	}
	var s split.Split
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, errors.Join(ErrCorruptedEntry, fmt.Errorf("split %q: %w", name, err))
	}
	return &s, nil
}

// RemoveSplit deletes the split. Removing a missing split is not an error.
func (c *SplitCache) RemoveSplit(ctx context.Context, name string) error {
	if err := c.store.Delete(ctx, c.keys.split(name)); err != nil {
		return err
	}
	return c.store.SRem(ctx, c.keys.splitNames(), name)
}

// SplitNames returns the names of the stored splits, sorted.
func (c *SplitCache) SplitNames(ctx context.Context) ([]string, error) {
	return c.store.SMembers(ctx, c.keys.splitNames())
}

func getChangeNumber(ctx context.Context, store kvstore.Store, key string) (int64, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return -1, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrCorruptedEntry, fmt.Errorf("change number at %q: %w", key, err))
	}
	return n, nil
}

func setChangeNumber(ctx context.Context, store kvstore.Store, key string, n int64) error {
	return store.Set(ctx, key, strconv.FormatInt(n, 10), 0)
}
