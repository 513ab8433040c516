package splitcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
	"github.com/dmitrymomot/splitkit/pkg/split"
	"github.com/dmitrymomot/splitkit/pkg/splitcache"
)

func TestSplitCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("change number defaults to -1", func(t *testing.T) {
		t.Parallel()
		cache := splitcache.NewSplitCache(kvstore.NewMemoryStore())

		n, err := cache.GetChangeNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), n)

		require.NoError(t, cache.SetChangeNumber(ctx, 42))
		n, err = cache.GetChangeNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
	})

	t.Run("add get remove", func(t *testing.T) {
		t.Parallel()
		cache := splitcache.NewSplitCache(kvstore.NewMemoryStore())

		s, err := cache.GetSplit(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, s)

		require.NoError(t, cache.AddSplit(ctx, "a", &split.Split{Name: "a", DefaultTreatment: "off", Seed: 1}))
		require.NoError(t, cache.AddSplit(ctx, "a", &split.Split{Name: "a", DefaultTreatment: "on", Seed: 2}))

		s, err = cache.GetSplit(ctx, "a")
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, "on", s.DefaultTreatment)
		assert.Equal(t, int64(2), s.Seed)

		require.NoError(t, cache.AddSplit(ctx, "b", &split.Split{Name: "b"}))
		names, err := cache.SplitNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names)

		require.NoError(t, cache.RemoveSplit(ctx, "a"))
		require.NoError(t, cache.RemoveSplit(ctx, "a"))
		s, err = cache.GetSplit(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, s)
		names, err = cache.SplitNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, names)

		assert.ErrorIs(t, cache.AddSplit(ctx, "", &split.Split{}), splitcache.ErrEmptyName)
	})

	t.Run("corrupted entry", func(t *testing.T) {
		t.Parallel()
		store := kvstore.NewMemoryStore()
		cache := splitcache.NewSplitCache(store, splitcache.WithPrefix("test"))

		require.NoError(t, store.Set(ctx, "test.split.bad", "{not json", 0))
		s, err := cache.GetSplit(ctx, "bad")
		assert.Nil(t, s)
		assert.ErrorIs(t, err, splitcache.ErrCorruptedEntry)

		require.NoError(t, store.Set(ctx, "test.splits.__change_number__", "abc", 0))
		_, err = cache.GetChangeNumber(ctx)
		assert.ErrorIs(t, err, splitcache.ErrCorruptedEntry)
	})
}

func TestGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := kvstore.NewMemoryStore(kvstore.WithClock(func() time.Time { return now }))
	cache := splitcache.NewSplitCache(store, splitcache.WithDisableCooldown(time.Minute))

	enabled, err := cache.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, cache.Disable(ctx))
	enabled, err = cache.IsEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	now = now.Add(time.Minute)
	enabled, err = cache.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled, "gate should self-heal after the cooldown")

	require.NoError(t, cache.Disable(ctx))
	require.NoError(t, cache.Enable(ctx))
	enabled, err = cache.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	assert.Equal(t, "SPLITIO.splits.__disabled__", cache.Key())
}

func TestDomainsAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	splits := splitcache.NewSplitCache(store)
	segments := splitcache.NewSegmentCache(store)
	impressions := splitcache.NewImpressionCache(store)
	metrics := splitcache.NewMetricsCache(store)

	require.NoError(t, splits.Disable(ctx))

	for _, g := range []*splitcache.Gate{segments.Gate, impressions.Gate, metrics.Gate} {
		enabled, err := g.IsEnabled(ctx)
		require.NoError(t, err)
		assert.True(t, enabled, g.Key())
	}
}

func TestSegmentCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("registry", func(t *testing.T) {
		t.Parallel()
		cache := splitcache.NewSegmentCache(kvstore.NewMemoryStore())

		require.NoError(t, cache.RegisterSegment(ctx, "b"))
		require.NoError(t, cache.RegisterSegment(ctx, "a"))
		require.NoError(t, cache.RegisterSegment(ctx, "a"))

		names, err := cache.GetRegisteredSegments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names)

		require.NoError(t, cache.UnregisterSegment(ctx, "a"))
		require.NoError(t, cache.UnregisterSegment(ctx, "a"))
		names, err = cache.GetRegisteredSegments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, names)

		assert.ErrorIs(t, cache.RegisterSegment(ctx, ""), splitcache.ErrEmptyName)
	})

	t.Run("membership", func(t *testing.T) {
		t.Parallel()
		cache := splitcache.NewSegmentCache(kvstore.NewMemoryStore())

		require.NoError(t, cache.AddKeysToSegment(ctx, "beta", []string{"alice", "bob"}))
		require.NoError(t, cache.AddKeysToSegment(ctx, "beta", nil))
		require.NoError(t, cache.RemoveKeysFromSegment(ctx, "beta", []string{"bob"}))
		require.NoError(t, cache.RemoveKeysFromSegment(ctx, "beta", []string{}))

		in, err := cache.IsInSegment(ctx, "beta", "alice")
		require.NoError(t, err)
		assert.True(t, in)
		in, err = cache.IsInSegment(ctx, "beta", "bob")
		require.NoError(t, err)
		assert.False(t, in)
		members, err := cache.SegmentKeys(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, members)
		in, err = cache.IsInSegment(ctx, "unknown", "alice")
		require.NoError(t, err)
		assert.False(t, in)
	})

	t.Run("per segment change numbers", func(t *testing.T) {
		t.Parallel()
		cache := splitcache.NewSegmentCache(kvstore.NewMemoryStore())

		n, err := cache.GetChangeNumber(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(-1), n)

		require.NoError(t, cache.SetChangeNumber(ctx, "a", 7))
		n, err = cache.GetChangeNumber(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)

		n, err = cache.GetChangeNumber(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, int64(-1), n)
	})
}
