package splitcache

import (
	"context"
	"time"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
)

// Gate is the disable switch of a cache domain. A disabled domain turns its
// write side into a no-op until the cooldown expires or Enable is called.
// Reads are never gated.
type Gate struct {
	store    kvstore.Store
	key      string
	cooldown time.Duration
}

func newGate(store kvstore.Store, key string, cooldown time.Duration) *Gate {
	return &Gate{store: store, key: key, cooldown: cooldown}
}

// IsEnabled reports whether the domain accepts writes.
func (g *Gate) IsEnabled(ctx context.Context) (bool, error) {
	disabled, err := g.store.Exists(ctx, g.key)
	if err != nil {
		return false, err
	}
	return !disabled, nil
}

// Disable turns the domain off for the configured cooldown.
func (g *Gate) Disable(ctx context.Context) error {
	return g.store.Set(ctx, g.key, "1", g.cooldown)
}

// Enable clears the gate immediately.
func (g *Gate) Enable(ctx context.Context) error {
	return g.store.Delete(ctx, g.key)
}

// Key returns the flag key guarding the domain.
func (g *Gate) Key() string {
	return g.key
}
