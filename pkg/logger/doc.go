// Package logger builds *slog.Logger instances for splitkit services and
// provides attribute helpers that keep key names consistent across the
// synchronizers, reporters and jobs.
//
// New applies Option values on top of production-safe defaults (JSON on
// stdout at INFO):
//
//   - WithEnvironment – per-environment presets plus service/env attributes.
//   - WithFormat, WithLevel, WithLevelName – override format and level.
//   - WithOutput – redirect output.
//   - WithAttr – attach static attributes.
//
// # Usage
//
//	log := logger.New(logger.WithEnvironment("production", "splitd"))
//	log.ErrorContext(ctx, "split synchronization failed",
//	    logger.Domain("splits"),
//	    logger.Since(till),
//	    logger.Error(err),
//	)
//
// Error returns an empty attribute for nil errors, so it can be passed
// unconditionally.
package logger
