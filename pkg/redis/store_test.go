package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
	"github.com/dmitrymomot/splitkit/pkg/redis"
)

func newTestStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := redis.NewStore(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStore_PlainKeys(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "flag", "1", time.Hour))
	v, ok, err := store.Get(ctx, "flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	mr.FastForward(time.Hour)
	exists, err := store.Exists(ctx, "flag")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx))
	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_SetsHashesLists(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.SAdd(ctx, "s", "b", "a"))
	require.NoError(t, store.SAdd(ctx, "s"))
	members, err := store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)
	require.NoError(t, store.SRem(ctx, "s", "a"))
	ok, err := store.SIsMember(ctx, "s", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.HIncrBy(ctx, "h", "c", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, store.HSet(ctx, "h", "g", "1.5"))
	v, ok, err := store.HGet(ctx, "h", "g")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.5", v)
	_, ok, err = store.HGet(ctx, "h", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.RPush(ctx, "l", "x", "y"))
	items, err := store.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, items)

	require.NoError(t, store.Rename(ctx, "l", "l2"))
	assert.ErrorIs(t, store.Rename(ctx, "l", "l3"), kvstore.ErrNoSuchKey)

	require.NoError(t, store.Set(ctx, "plain", "v", 0))
	assert.ErrorIs(t, store.SAdd(ctx, "plain", "x"), kvstore.ErrWrongType)
}

func TestStore_ExecUnless(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	applied, err := store.ExecUnless(ctx, "guard", kvstore.ListPush("buf", "a", "b"))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.ExecUnless(ctx, "guard", kvstore.HashIncr("m", "count.x", 2))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.ExecUnless(ctx, "guard", kvstore.HashSet("m", "gauge.y", "7"))
	require.NoError(t, err)
	assert.True(t, applied)

	require.NoError(t, mr.Set("guard", "1"))
	applied, err = store.ExecUnless(ctx, "guard", kvstore.ListPush("buf", "c"))
	require.NoError(t, err)
	assert.False(t, applied)

	list, err := mr.List("buf")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)
	assert.Equal(t, "2", mr.HGet("m", "count.x"))
	assert.Equal(t, "7", mr.HGet("m", "gauge.y"))

	_, err = store.ExecUnless(ctx, "guard", kvstore.Mutation{Kind: "lpop", Key: "buf"})
	assert.ErrorIs(t, err, kvstore.ErrInvalidMutation)
}

func TestStore_Drain(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	items, err := store.DrainList(ctx, "buf", "buf.tmp")
	require.NoError(t, err)
	assert.Nil(t, items)

	_, err = mr.Push("buf", "1", "2", "3")
	require.NoError(t, err)
	items, err = store.DrainList(ctx, "buf", "buf.tmp")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, items)
	assert.False(t, mr.Exists("buf"))
	assert.False(t, mr.Exists("buf.tmp"))

	mr.HSet("m", "count.foo", "3")
	mr.HSet("m", "time.bar.0", "5")
	fields, err := store.DrainHash(ctx, "m", "m.tmp")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"count.foo": "3", "time.bar.0": "5"}, fields)
	assert.False(t, mr.Exists("m"))

	fields, err = store.DrainHash(ctx, "m", "m.tmp")
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := redis.ConnectStore(ctx, redis.Config{
			ConnectionURL:  "redis://" + mr.Addr() + "/0",
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.NoError(t, err)
		defer store.Close()
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("rejects empty url", func(t *testing.T) {
		_, err := redis.Connect(ctx, redis.Config{ConnectTimeout: time.Second})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})

	t.Run("rejects bad url", func(t *testing.T) {
		_, err := redis.Connect(ctx, redis.Config{ConnectionURL: "http://nope", ConnectTimeout: time.Second})
		assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
	})

	t.Run("gives up when server is down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := redis.Connect(ctx, redis.Config{
			ConnectionURL:  "redis://" + addr + "/0",
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})
}
