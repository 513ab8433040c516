package kvstore

import (
	"context"
	"time"
)

// Store is the shared key/value backend every cache is built on.
// Implementations must be safe for concurrent use; cross-process coordination
// relies only on ExecUnless, DrainList and DrainHash being atomic.
type Store interface {
	// Get returns the value of a plain key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a plain value. Zero ttl means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// HGet returns a hash field and whether it exists.
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Rename moves src to dst, overwriting dst. Returns ErrNoSuchKey if src is absent.
	Rename(ctx context.Context, src, dst string) error

	// ExecUnless applies m only when guardKey does not exist.
	// The check and the mutation form one indivisible unit. On a sharded
	// store guardKey and the mutated key must live on the same shard.
	ExecUnless(ctx context.Context, guardKey string, m Mutation) (applied bool, err error)

	// DrainList atomically renames key to tmpKey, reads every element and
	// deletes tmpKey. Returns nil when key does not exist. Both keys must
	// live on the same shard.
	DrainList(ctx context.Context, key, tmpKey string) ([]string, error)

	// DrainHash is DrainList for hashes.
	DrainHash(ctx context.Context, key, tmpKey string) (map[string]string, error)

	Close() error
}

// MutationKind enumerates the writes ExecUnless can guard.
type MutationKind string

const (
	MutationListPush MutationKind = "rpush"
	MutationHashSet  MutationKind = "hset"
	MutationHashIncr MutationKind = "hincrby"
)

// Mutation describes a single write applied by ExecUnless.
type Mutation struct {
	Kind   MutationKind
	Key    string
	Field  string   // hash mutations only
	Value  string   // MutationHashSet
	Delta  int64    // MutationHashIncr
	Values []string // MutationListPush
}

// ListPush builds a mutation appending values to a list.
func ListPush(key string, values ...string) Mutation {
	return Mutation{Kind: MutationListPush, Key: key, Values: values}
}

// HashSet builds a mutation setting a hash field.
func HashSet(key, field, value string) Mutation {
	return Mutation{Kind: MutationHashSet, Key: key, Field: field, Value: value}
}

// HashIncr builds a mutation incrementing a hash field.
func HashIncr(key, field string, delta int64) Mutation {
	return Mutation{Kind: MutationHashIncr, Key: key, Field: field, Delta: delta}
}

// Validate checks the mutation is well formed.
func (m Mutation) Validate() error {
	if m.Key == "" {
		return ErrEmptyKey
	}
	switch m.Kind {
	case MutationListPush:
		return nil
	case MutationHashSet, MutationHashIncr:
		if m.Field == "" {
			return ErrInvalidMutation
		}
		return nil
	default:
		return ErrInvalidMutation
	}
}
