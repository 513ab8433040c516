package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/splitkit/pkg/redis"
)

// Config is the process configuration, resolved once at startup.
type Config struct {
	Redis redis.Config

	// KeyPrefix namespaces every cache key in the shared store.
	KeyPrefix string `env:"SPLIT_KEY_PREFIX" envDefault:"SPLITIO"`

	// DisableCooldown is how long a domain stays disabled after a failure.
	DisableCooldown time.Duration `env:"SPLIT_DISABLE_COOLDOWN" envDefault:"1h"`

	SplitsRefreshInterval      time.Duration `env:"SPLIT_SPLITS_REFRESH_INTERVAL" envDefault:"5s"`
	SegmentsRefreshInterval    time.Duration `env:"SPLIT_SEGMENTS_REFRESH_INTERVAL" envDefault:"60s"`
	ImpressionsRefreshInterval time.Duration `env:"SPLIT_IMPRESSIONS_REFRESH_INTERVAL" envDefault:"60s"`
	MetricsRefreshInterval     time.Duration `env:"SPLIT_METRICS_REFRESH_INTERVAL" envDefault:"60s"`

	// TaskTimeout bounds a single scheduled run. Zero means unbounded.
	TaskTimeout time.Duration `env:"SPLIT_TASK_TIMEOUT" envDefault:"0s"`

	// HealthcheckInterval is how often `splitd run` pings the store.
	HealthcheckInterval time.Duration `env:"SPLIT_HEALTHCHECK_INTERVAL" envDefault:"30s"`

	// LocalhostFile switches the fetchers to a YAML file instead of the control plane.
	LocalhostFile string `env:"SPLIT_LOCALHOST_FILE"`

	// TelemetryDevDir writes telemetry batches to files instead of stdout.
	TelemetryDevDir string `env:"SPLIT_TELEMETRY_DEV_DIR"`

	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"splitd"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// Load reads the given .env files, or the default .env if none are given,
// and parses the environment into a Config. Variables already set in the
// environment win over values from files. A missing default .env is not an
// error; a missing explicit file is.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		// the default .env file is optional
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, errors.Join(ErrLoadingEnvFile, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad(files ...string) Config {
	cfg, err := Load(files...)
	if err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
	return cfg
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.KeyPrefix == "" {
		errs = append(errs, errors.New("key prefix cannot be empty"))
	}
	if c.DisableCooldown <= 0 {
		errs = append(errs, errors.New("disable cooldown must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"splits":      c.SplitsRefreshInterval,
		"segments":    c.SegmentsRefreshInterval,
		"impressions": c.ImpressionsRefreshInterval,
		"metrics":     c.MetricsRefreshInterval,
		"healthcheck": c.HealthcheckInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s interval must be positive", name))
		}
	}
	if c.TaskTimeout < 0 {
		errs = append(errs, errors.New("task timeout cannot be negative"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
