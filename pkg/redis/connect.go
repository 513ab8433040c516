package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect dials the server described by cfg and pings it until it answers,
// retrying RetryAttempts times with RetryInterval between attempts. The whole
// procedure is bounded by ConnectTimeout.
//
// Returns ErrEmptyConnectionURL or ErrFailedToParseRedisConnString for a bad
// URL and ErrRedisNotReady when every attempt fails.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// ConnectStore is Connect followed by NewStore.
func ConnectStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(client), nil
}
