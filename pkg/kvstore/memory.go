package kvstore

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"
)

type valueKind uint8

const (
	kindString valueKind = iota
	kindSet
	kindHash
	kindList
)

type entry struct {
	kind      valueKind
	str       string
	set       map[string]struct{}
	hash      map[string]string
	list      []string
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore implements Store in process memory.
// A single mutex serializes every operation, which makes ExecUnless and the
// drains trivially atomic for callers sharing the same instance.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock replaces the time source used for key expiration.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		data: make(map[string]*entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// lookup returns the live entry for key, evicting it if expired.
// Caller must hold ms.mu.
func (ms *MemoryStore) lookup(key string) *entry {
	e, ok := ms.data[key]
	if !ok {
		return nil
	}
	if e.expired(ms.now()) {
		delete(ms.data, key)
		return nil
	}
	return e
}

// lookupKind returns the entry for key checking its kind; create allocates a
// fresh entry when missing. Caller must hold ms.mu.
func (ms *MemoryStore) lookupKind(key string, kind valueKind, create bool) (*entry, error) {
	e := ms.lookup(key)
	if e == nil {
		if !create {
			return nil, nil
		}
		e = &entry{kind: kind}
		switch kind {
		case kindSet:
			e.set = make(map[string]struct{})
		case kindHash:
			e.hash = make(map[string]string)
		}
		ms.data[key] = e
		return e, nil
	}
	if e.kind != kind {
		return nil, ErrWrongType
	}
	return e, nil
}

func (ms *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindString, false)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.str, true, nil
}

func (ms *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e := &entry{kind: kindString, str: value}
	if ttl > 0 {
		e.expiresAt = ms.now().Add(ttl)
	}
	ms.data[key] = e
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, key := range keys {
		delete(ms.data, key)
	}
	return nil
}

func (ms *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.lookup(key) != nil, nil
}

func (ms *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindSet, true)
	if err != nil {
		return err
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (ms *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindSet, false)
	if err != nil || e == nil {
		return err
	}
	for _, m := range members {
		delete(e.set, m)
	}
	if len(e.set) == 0 {
		delete(ms.data, key)
	}
	return nil
}

func (ms *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindSet, false)
	if err != nil || e == nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(e.set)), nil
}

func (ms *MemoryStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindSet, false)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.set[member]
	return ok, nil
}

func (ms *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindHash, false)
	if err != nil || e == nil {
		return "", false, err
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

func (ms *MemoryStore) HSet(_ context.Context, key, field, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.hset(key, field, value)
}

func (ms *MemoryStore) hset(key, field, value string) error {
	e, err := ms.lookupKind(key, kindHash, true)
	if err != nil {
		return err
	}
	e.hash[field] = value
	return nil
}

func (ms *MemoryStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.hincr(key, field, delta)
}

func (ms *MemoryStore) hincr(key, field string, delta int64) (int64, error) {
	e, err := ms.lookupKind(key, kindHash, true)
	if err != nil {
		return 0, err
	}
	var current int64
	if raw, ok := e.hash[field]; ok {
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
	}
	current += delta
	e.hash[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (ms *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindHash, false)
	if err != nil || e == nil {
		return map[string]string{}, err
	}
	return maps.Clone(e.hash), nil
}

func (ms *MemoryStore) RPush(_ context.Context, key string, values ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.rpush(key, values...)
}

func (ms *MemoryStore) rpush(key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	e, err := ms.lookupKind(key, kindList, true)
	if err != nil {
		return err
	}
	e.list = append(e.list, values...)
	return nil
}

// LRange follows redis semantics: negative indexes count from the tail and
// stop is inclusive.
func (ms *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindList, false)
	if err != nil || e == nil {
		return nil, err
	}
	n := int64(len(e.list))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if start > stop {
		return []string{}, nil
	}
	return slices.Clone(e.list[start : stop+1]), nil
}

func (ms *MemoryStore) Rename(_ context.Context, src, dst string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.rename(src, dst)
}

func (ms *MemoryStore) rename(src, dst string) error {
	e := ms.lookup(src)
	if e == nil {
		return ErrNoSuchKey
	}
	delete(ms.data, src)
	ms.data[dst] = e
	return nil
}

func (ms *MemoryStore) ExecUnless(_ context.Context, guardKey string, m Mutation) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.lookup(guardKey) != nil {
		return false, nil
	}

	var err error
	switch m.Kind {
	case MutationListPush:
		err = ms.rpush(m.Key, m.Values...)
	case MutationHashSet:
		err = ms.hset(m.Key, m.Field, m.Value)
	case MutationHashIncr:
		_, err = ms.hincr(m.Key, m.Field, m.Delta)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (ms *MemoryStore) DrainList(_ context.Context, key, tmpKey string) ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindList, false)
	if err != nil || e == nil {
		return nil, err
	}
	if err := ms.rename(key, tmpKey); err != nil {
		return nil, err
	}
	items := slices.Clone(e.list)
	delete(ms.data, tmpKey)
	return items, nil
}

func (ms *MemoryStore) DrainHash(_ context.Context, key, tmpKey string) (map[string]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e, err := ms.lookupKind(key, kindHash, false)
	if err != nil || e == nil {
		return nil, err
	}
	if err := ms.rename(key, tmpKey); err != nil {
		return nil, err
	}
	fields := maps.Clone(e.hash)
	delete(ms.data, tmpKey)
	return fields, nil
}

// Close drops all data.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	clear(ms.data)
	return nil
}

var _ Store = (*MemoryStore)(nil)
