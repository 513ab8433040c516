package redis

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
)

// execUnlessScript applies a mutation to KEYS[2] unless KEYS[1] exists.
// ARGV[1] is the mutation kind, the rest are its arguments.
var execUnlessScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local kind = ARGV[1]
if kind == 'rpush' then
	for i = 2, #ARGV do
		redis.call('RPUSH', KEYS[2], ARGV[i])
	end
elseif kind == 'hset' then
	redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
elseif kind == 'hincrby' then
	redis.call('HINCRBY', KEYS[2], ARGV[2], ARGV[3])
else
	return redis.error_reply('unknown mutation kind')
end
return 1
`)

var drainListScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {}
end
redis.call('RENAME', KEYS[1], KEYS[2])
local items = redis.call('LRANGE', KEYS[2], 0, -1)
redis.call('DEL', KEYS[2])
return items
`)

var drainHashScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {}
end
redis.call('RENAME', KEYS[1], KEYS[2])
local fields = redis.call('HGETALL', KEYS[2])
redis.call('DEL', KEYS[2])
return fields
`)

// Store implements kvstore.Store on top of a go-redis client.
// Guarded writes and drains run as Lua scripts so they stay atomic across
// every process connected to the same server.
type Store struct {
	db redis.UniversalClient
}

// NewStore wraps a connected client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{db: client}
}

// Get returns false for missing keys (redis.Nil is not an error here).
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr(err)
	}
	return val, true, nil
}

// Set stores key-value with expiration. Zero duration means no expiration.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	return wrapErr(s.db.Set(ctx, key, value, ttl).Err())
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrapErr(s.db.Del(ctx, keys...).Err())
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.db.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return wrapErr(s.db.SAdd(ctx, key, toArgs(members)...).Err())
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return wrapErr(s.db.SRem(ctx, key, toArgs(members)...).Err())
}

// SMembers returns members sorted, since redis set order is unspecified.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.db.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrapErr(err)
	}
	slices.Sort(members)
	return members, nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.db.SIsMember(ctx, key, member).Result()
	return ok, wrapErr(err)
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := s.db.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr(err)
	}
	return val, true, nil
}

func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	return wrapErr(s.db.HSet(ctx, key, field, value).Err())
}

func (s *Store) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	n, err := s.db.HIncrBy(ctx, key, field, delta).Result()
	return n, wrapErr(err)
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.db.HGetAll(ctx, key).Result()
	return fields, wrapErr(err)
}

func (s *Store) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	return wrapErr(s.db.RPush(ctx, key, toArgs(values)...).Err())
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	items, err := s.db.LRange(ctx, key, start, stop).Result()
	return items, wrapErr(err)
}

func (s *Store) Rename(ctx context.Context, src, dst string) error {
	return wrapErr(s.db.Rename(ctx, src, dst).Err())
}

func (s *Store) ExecUnless(ctx context.Context, guardKey string, m kvstore.Mutation) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}

	args := []any{string(m.Kind)}
	switch m.Kind {
	case kvstore.MutationListPush:
		args = append(args, toArgs(m.Values)...)
	case kvstore.MutationHashSet:
		args = append(args, m.Field, m.Value)
	case kvstore.MutationHashIncr:
		args = append(args, m.Field, strconv.FormatInt(m.Delta, 10))
	}

	n, err := execUnlessScript.Run(ctx, s.db, []string{guardKey, m.Key}, args...).Int64()
	if err != nil {
		return false, wrapErr(err)
	}
	return n == 1, nil
}

func (s *Store) DrainList(ctx context.Context, key, tmpKey string) ([]string, error) {
	items, err := drainListScript.Run(ctx, s.db, []string{key, tmpKey}).StringSlice()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func (s *Store) DrainHash(ctx context.Context, key, tmpKey string) (map[string]string, error) {
	flat, err := drainHashScript.Run(ctx, s.db, []string{key, tmpKey}).StringSlice()
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(flat) == 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return fields, nil
}

// Close terminates the Redis connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Conn returns the underlying Redis client for advanced operations.
func (s *Store) Conn() redis.UniversalClient {
	return s.db
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// wrapErr maps redis replies onto kvstore sentinels where one exists.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such key"):
		return errors.Join(kvstore.ErrNoSuchKey, err)
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return errors.Join(kvstore.ErrWrongType, err)
	case strings.Contains(msg, "not an integer"):
		return errors.Join(kvstore.ErrNotInteger, err)
	}
	return errors.Join(ErrCommandFailed, err)
}

var _ kvstore.Store = (*Store)(nil)
