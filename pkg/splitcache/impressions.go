package splitcache

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
)

// Impression records one evaluation.
type Impression struct {
	KeyName      string `json:"keyName"`
	BucketingKey string `json:"bucketingKey,omitempty"`
	Feature      string `json:"feature"`
	Treatment    string `json:"treatment"`
	Label        string `json:"label,omitempty"`
	ChangeNumber int64  `json:"changeNumber,omitempty"`
	Time         int64  `json:"time"` // unix milliseconds
}

// FeatureImpressions groups the impressions of one feature.
type FeatureImpressions struct {
	Feature     string       `json:"testName"`
	Impressions []Impression `json:"keyImpressions"`
}

// ImpressionCache is the append-only impression buffer.
type ImpressionCache struct {
	*Gate
	store kvstore.Store
	keys  keys
}

// NewImpressionCache creates an impression buffer over store.
func NewImpressionCache(store kvstore.Store, opts ...Option) *ImpressionCache {
	o := applyOptions(opts)
	k := keys{prefix: o.prefix}
	return &ImpressionCache{
		Gate:  newGate(store, k.impressionsDisabled(), o.cooldown),
		store: store,
		keys:  k,
	}
}

// AddImpression appends imp unless the domain is disabled. The gate check and
// the append happen in one atomic step; applied is false when the gate was
// closed.
func (c *ImpressionCache) AddImpression(ctx context.Context, imp Impression) (applied bool, err error) {
	data, err := json.Marshal(imp)
	if err != nil {
		return false, fmt.Errorf("encode impression: %w", err)
	}
	return c.store.ExecUnless(ctx, c.Key(), kvstore.ListPush(c.keys.impressions(), string(data)))
}

// FetchAllAndClear drains the buffer and groups impressions by feature,
// ordered by feature name with arrival order kept inside each group.
//
// Undecodable records are skipped; the valid ones are still returned together
// with an error wrapping ErrCorruptedEntry.
func (c *ImpressionCache) FetchAllAndClear(ctx context.Context) ([]FeatureImpressions, error) {
	items, err := c.store.DrainList(ctx, c.keys.impressions(), temp(c.keys.impressions()))
	if err != nil {
		return nil, err
	}

	impressions := make([]Impression, 0, len(items))
	var errs []error
	for _, item := range items {
		var imp Impression
		if err := json.Unmarshal([]byte(item), &imp); err != nil {
			errs = append(errs, err)
			continue
		}
		impressions = append(impressions, imp)
	}

	var decodeErr error
	if len(errs) > 0 {
		decodeErr = errors.Join(ErrCorruptedEntry, fmt.Errorf("%d impressions dropped: %w", len(errs), errors.Join(errs...)))
	}
	return groupByFeature(impressions), decodeErr
}

// Clear drops the buffer without reading it.
func (c *ImpressionCache) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, c.keys.impressions())
}

func groupByFeature(impressions []Impression) []FeatureImpressions {
	if len(impressions) == 0 {
		return nil
	}
	slices.SortStableFunc(impressions, func(a, b Impression) int {
		return cmp.Compare(a.Feature, b.Feature)
	})

	var groups []FeatureImpressions
	for _, imp := range impressions {
		if n := len(groups); n > 0 && groups[n-1].Feature == imp.Feature {
			groups[n-1].Impressions = append(groups[n-1].Impressions, imp)
			continue
		}
		groups = append(groups, FeatureImpressions{Feature: imp.Feature, Impressions: []Impression{imp}})
	}
	return groups
}
