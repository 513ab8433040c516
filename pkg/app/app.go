package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/splitkit/pkg/config"
	"github.com/dmitrymomot/splitkit/pkg/evaluator"
	"github.com/dmitrymomot/splitkit/pkg/jobs"
	"github.com/dmitrymomot/splitkit/pkg/kvstore"
	"github.com/dmitrymomot/splitkit/pkg/split"
	"github.com/dmitrymomot/splitkit/pkg/splitcache"
	"github.com/dmitrymomot/splitkit/pkg/synchronizer"
	"github.com/dmitrymomot/splitkit/pkg/telemetry"
)

// Names of the scheduled tasks registered by RegisterJobs.
const (
	TaskSplits      = "splits"
	TaskSegments    = "segments"
	TaskImpressions = "impressions"
	TaskMetrics     = "metrics"
)

// Fetchers are the change sources the synchronizers poll.
type Fetchers struct {
	Splits   synchronizer.SplitChangeFetcher
	Segments synchronizer.SegmentChangeFetcher
}

// App holds every component built over one shared store. It is created
// once at startup and passed to whatever needs it.
type App struct {
	Splits      *splitcache.SplitCache
	Segments    *splitcache.SegmentCache
	Impressions *splitcache.ImpressionCache
	Metrics     *splitcache.MetricsCache

	SplitSync   *synchronizer.SplitSynchronizer
	SegmentSync *synchronizer.SegmentSynchronizer
	Reporter    *telemetry.Reporter
	Evaluator   *evaluator.Evaluator

	cfg    config.Config
	logger *slog.Logger
}

// New wires the caches, synchronizers, reporter and evaluator.
func New(store kvstore.Store, cfg config.Config, fetchers Fetchers, api telemetry.API, log *slog.Logger) (*App, error) {
	switch {
	case store == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("store is nil"))
	case fetchers.Splits == nil || fetchers.Segments == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("change fetchers are nil"))
	case api == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("telemetry api is nil"))
	}
	if log == nil {
		log = slog.Default()
	}

	cacheOpts := []splitcache.Option{
		splitcache.WithPrefix(cfg.KeyPrefix),
		splitcache.WithDisableCooldown(cfg.DisableCooldown),
	}

	a := &App{
		Splits:      splitcache.NewSplitCache(store, cacheOpts...),
		Segments:    splitcache.NewSegmentCache(store, cacheOpts...),
		Impressions: splitcache.NewImpressionCache(store, cacheOpts...),
		Metrics:     splitcache.NewMetricsCache(store, cacheOpts...),
		cfg:         cfg,
		logger:      log,
	}

	a.SplitSync = synchronizer.NewSplitSynchronizer(
		a.Splits,
		fetchers.Splits,
		split.NewSegmentRegisteringParser(nil, a.Segments),
		synchronizer.WithLogger(log),
	)
	a.SegmentSync = synchronizer.NewSegmentSynchronizer(a.Segments, fetchers.Segments, synchronizer.WithLogger(log))
	a.Reporter = telemetry.NewReporter(a.Impressions, a.Metrics, api, telemetry.WithLogger(log))
	a.Evaluator = evaluator.New(a.Splits, a.Segments,
		evaluator.WithImpressions(a.Impressions),
		evaluator.WithLatencies(a.Metrics),
		evaluator.WithLogger(log),
	)

	return a, nil
}

// RegisterJobs adds the four scheduled entry points to r.
func (a *App) RegisterJobs(r *jobs.Runner) error {
	var opts []jobs.TaskOption
	if a.cfg.TaskTimeout > 0 {
		opts = append(opts, jobs.WithTimeout(a.cfg.TaskTimeout))
	}

	tasks := []struct {
		name     string
		interval time.Duration
		handler  jobs.Handler
	}{
		{TaskSplits, a.cfg.SplitsRefreshInterval, a.SplitSync.Run},
		{TaskSegments, a.cfg.SegmentsRefreshInterval, a.SegmentSync.Run},
		{TaskImpressions, a.cfg.ImpressionsRefreshInterval, a.Reporter.RunImpressions},
		{TaskMetrics, a.cfg.MetricsRefreshInterval, a.Reporter.RunMetrics},
	}
	for _, t := range tasks {
		if err := r.AddTask(t.name, t.interval, t.handler, opts...); err != nil {
			return err
		}
	}
	return nil
}

// Sync runs one split synchronization followed by one segment
// synchronization, so segments referenced by new splits are fetched too.
func (a *App) Sync(ctx context.Context) {
	a.SplitSync.UpdateSplits(ctx)
	a.SegmentSync.UpdateSegments(ctx)
}
