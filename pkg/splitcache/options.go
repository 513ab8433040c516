package splitcache

import (
	"strings"
	"time"
)

const (
	// DefaultPrefix namespaces every key written by the caches.
	DefaultPrefix = "SPLITIO"

	// DefaultDisableCooldown is how long a disabled domain stays disabled
	// unless Enable is called.
	DefaultDisableCooldown = time.Hour
)

// Option configures a cache.
type Option func(*options)

type options struct {
	prefix   string
	cooldown time.Duration
}

// WithPrefix sets the key namespace. Empty values are ignored.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix = strings.TrimSuffix(prefix, "."); prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithDisableCooldown sets how long Disable keeps a domain disabled.
func WithDisableCooldown(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cooldown = d
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix, cooldown: DefaultDisableCooldown}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
