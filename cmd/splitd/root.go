package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/splitkit/pkg/app"
	"github.com/dmitrymomot/splitkit/pkg/config"
	"github.com/dmitrymomot/splitkit/pkg/kvstore"
	"github.com/dmitrymomot/splitkit/pkg/localhost"
	"github.com/dmitrymomot/splitkit/pkg/logger"
	"github.com/dmitrymomot/splitkit/pkg/redis"
	"github.com/dmitrymomot/splitkit/pkg/telemetry"
)

var (
	envFiles  []string
	useMemory bool
)

var rootCmd = &cobra.Command{
	Use:   "splitd",
	Short: "Feature flag cache synchronizer",
	Long: `splitd keeps a shared feature flag cache in step with its change source
and flushes the evaluation telemetry buffered in that cache.

Configuration is read from the environment and optional .env files.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Load variables from these .env files (default .env if present)")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "Use an in-process store instead of redis")
}

var errNoFetcher = errors.New("no change source configured: set SPLIT_LOCALHOST_FILE")

// runtime is everything a command needs, built from configuration.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	store  kvstore.Store
	app    *app.App
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// bootstrap loads configuration, connects the store and builds the app.
// Telemetry batches go to out unless a dev directory is configured.
func bootstrap(ctx context.Context, out io.Writer) (*runtime, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithOutput(os.Stderr),
	)
	logger.SetAsDefault(log)

	if cfg.LocalhostFile == "" {
		return nil, errNoFetcher
	}
	fetcher := localhost.New(cfg.LocalhostFile)

	var api telemetry.API = telemetry.NewDevAPI(out)
	if cfg.TelemetryDevDir != "" {
		api = telemetry.NewDevDirAPI(cfg.TelemetryDevDir)
	}

	var store kvstore.Store
	if useMemory {
		store = kvstore.NewMemoryStore()
	} else {
		s, err := redis.ConnectStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store = s
	}

	a, err := app.New(store, cfg, app.Fetchers{Splits: fetcher, Segments: fetcher}, api, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	fetcher.Seed(a.Splits, a.Segments)

	return &runtime{cfg: cfg, logger: log, store: store, app: a}, nil
}
