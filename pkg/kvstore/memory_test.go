package kvstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
)

func TestMemoryStore_PlainKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "k", "never-there"))
	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, store.Set(ctx, "", "v", 0), kvstore.ErrEmptyKey)
}

func TestMemoryStore_Expiration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := kvstore.NewMemoryStore(kvstore.WithClock(func() time.Time { return now }))

	require.NoError(t, store.Set(ctx, "flag", "1", time.Hour))
	exists, err := store.Exists(ctx, "flag")
	require.NoError(t, err)
	assert.True(t, exists)

	now = now.Add(time.Hour)
	exists, err = store.Exists(ctx, "flag")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_Sets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	require.NoError(t, store.SAdd(ctx, "s", "b", "a", "b"))
	members, err := store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	ok, err := store.SIsMember(ctx, "s", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.SRem(ctx, "s", "a", "zzz"))
	ok, err = store.SIsMember(ctx, "s", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SAdd(ctx, "s"))
	require.NoError(t, store.SRem(ctx, "missing", "x"))

	require.NoError(t, store.Set(ctx, "plain", "v", 0))
	assert.ErrorIs(t, store.SAdd(ctx, "plain", "x"), kvstore.ErrWrongType)
}

func TestMemoryStore_Hashes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	n, err := store.HIncrBy(ctx, "h", "count", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = store.HIncrBy(ctx, "h", "count", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, store.HSet(ctx, "h", "name", "x"))
	v, ok, err := store.HGet(ctx, "h", "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, err = store.HIncrBy(ctx, "h", "name", 1)
	assert.ErrorIs(t, err, kvstore.ErrNotInteger)

	all, err := store.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"count": "5", "name": "x"}, all)

	all, err = store.HGetAll(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_Lists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	require.NoError(t, store.RPush(ctx, "l", "a", "b", "c"))
	items, err := store.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	items, err = store.LRange(ctx, "l", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, items)

	items, err = store.LRange(ctx, "l", -2, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, items)

	require.NoError(t, store.Rename(ctx, "l", "l2"))
	items, err = store.LRange(ctx, "l2", 0, -1)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	assert.ErrorIs(t, store.Rename(ctx, "l", "l3"), kvstore.ErrNoSuchKey)
}

func TestMemoryStore_ExecUnless(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	applied, err := store.ExecUnless(ctx, "guard", kvstore.ListPush("l", "a"))
	require.NoError(t, err)
	assert.True(t, applied)

	require.NoError(t, store.Set(ctx, "guard", "1", 0))
	applied, err = store.ExecUnless(ctx, "guard", kvstore.ListPush("l", "b"))
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = store.ExecUnless(ctx, "other", kvstore.HashIncr("h", "f", 4))
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = store.ExecUnless(ctx, "other", kvstore.HashSet("h", "g", "7"))
	require.NoError(t, err)
	assert.True(t, applied)

	items, err := store.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, items)
	all, err := store.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f": "4", "g": "7"}, all)

	_, err = store.ExecUnless(ctx, "guard", kvstore.Mutation{Kind: "del", Key: "x"})
	assert.ErrorIs(t, err, kvstore.ErrInvalidMutation)
	_, err = store.ExecUnless(ctx, "guard", kvstore.HashSet("h", "", "x"))
	assert.ErrorIs(t, err, kvstore.ErrInvalidMutation)
}

func TestMemoryStore_Drain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	items, err := store.DrainList(ctx, "buf", "buf.tmp")
	require.NoError(t, err)
	assert.Nil(t, items)

	require.NoError(t, store.RPush(ctx, "buf", "1", "2"))
	items, err = store.DrainList(ctx, "buf", "buf.tmp")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, items)

	for _, key := range []string{"buf", "buf.tmp"} {
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, key)
	}

	require.NoError(t, store.HSet(ctx, "hash", "a", "1"))
	fields, err := store.DrainHash(ctx, "hash", "hash.tmp")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, fields)

	fields, err = store.DrainHash(ctx, "hash", "hash.tmp")
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestMemoryStore_ConcurrentAppendAndDrain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				_, err := store.ExecUnless(ctx, "guard", kvstore.ListPush("buf", "x"))
				assert.NoError(t, err)
			}
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		select {
		case <-done:
			break loop
		default:
			items, err := store.DrainList(ctx, "buf", "buf.tmp")
			require.NoError(t, err)
			total += len(items)
		}
	}
	items, err := store.DrainList(ctx, "buf", "buf.tmp")
	require.NoError(t, err)
	total += len(items)

	assert.Equal(t, producers*perProducer, total)
}
