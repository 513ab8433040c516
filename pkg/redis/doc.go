// Package redis connects to a Redis server and exposes it as a kvstore.Store,
// the shared cache every splitkit process reads flags from and writes
// telemetry to.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which retries the connection using the supplied Config.
//   - Store, a kvstore.Store implementation whose guarded writes
//     (ExecUnless) and buffer drains (DrainList, DrainHash) run as Lua
//     scripts, so they stay atomic across independent processes.
//   - Healthcheck helpers for liveness probes and the CLI status command.
//
// Config fields are populated from environment variables via
// github.com/caarlos0/env.
//
// # Usage
//
//	store, err := redis.ConnectStore(ctx, redis.Config{
//	    ConnectionURL:  "redis://localhost:6379/0",
//	    RetryAttempts:  3,
//	    RetryInterval:  5 * time.Second,
//	    ConnectTimeout: 30 * time.Second,
//	})
//	if err != nil {
//	    // redis is not reachable
//	}
//	defer store.Close()
//
// # Errors
//
// Command failures are joined with kvstore sentinels (ErrNoSuchKey,
// ErrWrongType, ErrNotInteger) when the reply maps onto one, and with
// ErrCommandFailed otherwise.
package redis
