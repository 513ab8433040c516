package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/splitkit/pkg/jobs"
	"github.com/dmitrymomot/splitkit/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the synchronizers and telemetry reporters until interrupted",
	Long: `Run every scheduled task on its configured interval: split and segment
synchronization, impression and metrics reporting.

Examples:
  # Serve flags from a local file against redis
  SPLIT_LOCALHOST_FILE=splits.yaml splitd run

  # Try it without redis
  SPLIT_LOCALHOST_FILE=splits.yaml splitd run --memory`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// pinger is implemented by stores that can report their health.
type pinger interface {
	Ping(ctx context.Context) error
}

// maxPingFailures is how many consecutive failed pings stop the process.
const maxPingFailures = 3

var errStoreUnavailable = errors.New("store is unavailable")

// watchStore pings the store on every tick and fails once the store has
// been unreachable for maxPingFailures ticks in a row.
func watchStore(ctx context.Context, p pinger, interval time.Duration, log *slog.Logger) func() error {
	return func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			err := p.Ping(ctx)
			if err == nil {
				failures = 0
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			failures++
			log.WarnContext(ctx, "store healthcheck failed", logger.Error(err), slog.Int("failures", failures))
			if failures >= maxPingFailures {
				return errors.Join(errStoreUnavailable, err)
			}
		}
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.logger.Error("failed to close store", logger.Error(err))
		}
	}()

	p, watched := rt.store.(pinger)
	if watched {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}

	runner := jobs.NewRunner(jobs.WithLogger(rt.logger))
	if err := rt.app.RegisterJobs(runner); err != nil {
		return err
	}

	// a lost store stops the runner through the group context
	g, ctx := errgroup.WithContext(ctx)
	g.Go(runner.Run(ctx))
	if watched {
		g.Go(watchStore(ctx, p, rt.cfg.HealthcheckInterval, rt.logger))
	}

	rt.logger.Info("splitd started", logger.Count(len(runner.ListTasks())))
	if err := g.Wait(); err != nil {
		return err
	}
	rt.logger.Info("splitd stopped")
	return nil
}
