// Package config resolves the process configuration from environment
// variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
// optional `.env` files are loaded first, then the environment is parsed into
// a typed Config with defaults from `envDefault` tags and validated once.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatalf("loading config: %v", err)
//	}
//
// # Variables
//
//	REDIS_URL                           redis://localhost:6379/0
//	REDIS_RETRY_ATTEMPTS                3
//	REDIS_RETRY_INTERVAL                5s
//	REDIS_CONNECT_TIMEOUT               30s
//	SPLIT_KEY_PREFIX                    SPLITIO
//	SPLIT_DISABLE_COOLDOWN              1h
//	SPLIT_SPLITS_REFRESH_INTERVAL       5s
//	SPLIT_SEGMENTS_REFRESH_INTERVAL     60s
//	SPLIT_IMPRESSIONS_REFRESH_INTERVAL  60s
//	SPLIT_METRICS_REFRESH_INTERVAL      60s
//	SPLIT_TASK_TIMEOUT                  0s (unbounded)
//	SPLIT_LOCALHOST_FILE                (unset)
//	SPLIT_TELEMETRY_DEV_DIR             (unset)
//	APP_ENV                             development
//	SERVICE_NAME                        splitd
//	LOG_LEVEL                           (per environment)
//
// # Error Handling
//
//   - `ErrLoadingEnvFile` – an explicitly requested .env file could not be read.
//   - `ErrParsingConfig` – failed to parse env vars into the struct.
//   - `ErrInvalidConfig` – a value parsed but is out of range.
package config
