package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/splitkit/pkg/logger"
	"github.com/dmitrymomot/splitkit/pkg/splitcache"
)

// ImpressionSource is the drain side of an impression buffer.
type ImpressionSource interface {
	IsEnabled(ctx context.Context) (bool, error)
	Disable(ctx context.Context) error
	FetchAllAndClear(ctx context.Context) ([]splitcache.FeatureImpressions, error)
}

// MetricsSource is the drain side of a metrics buffer.
type MetricsSource interface {
	IsEnabled(ctx context.Context) (bool, error)
	Disable(ctx context.Context) error
	FetchAllAndClear(ctx context.Context) (*splitcache.Metrics, error)
}

// Reporter drains the telemetry buffers and forwards them to the API.
// Its entry points never return errors; a failure disables the domain it
// happened in and the next scheduled run starts from a fresh buffer.
type Reporter struct {
	impressions ImpressionSource
	metrics     MetricsSource
	api         API
	logger      *slog.Logger
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewReporter(impressions ImpressionSource, metrics MetricsSource, api API, opts ...Option) *Reporter {
	r := &Reporter{
		impressions: impressions,
		metrics:     metrics,
		api:         api,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("telemetry-reporter"))
	return r
}

// ReportImpressions sends every buffered impression in a single batch.
func (r *Reporter) ReportImpressions(ctx context.Context) {
	r.guard(ctx, "impressions", r.impressions.IsEnabled, r.impressions.Disable, func() error {
		batch, drainErr := r.impressions.FetchAllAndClear(ctx)
		if drainErr != nil && !errors.Is(drainErr, splitcache.ErrCorruptedEntry) {
			return drainErr
		}

		if len(batch) > 0 {
			if err := r.api.TestImpressions(ctx, batch); err != nil {
				return errors.Join(ErrSendFailed, err)
			}
			r.logger.DebugContext(ctx, "impressions sent", logger.Count(len(batch)))
		}

		// corrupted records are reported after the valid ones went out
		return drainErr
	})
}

// ReportMetrics sends counters, latencies and gauges, one call per
// non-empty category. A failing call does not stop the others.
func (r *Reporter) ReportMetrics(ctx context.Context) {
	r.guard(ctx, "metrics", r.metrics.IsEnabled, r.metrics.Disable, func() error {
		m, drainErr := r.metrics.FetchAllAndClear(ctx)
		if drainErr != nil && !errors.Is(drainErr, splitcache.ErrCorruptedEntry) {
			return drainErr
		}
		if m.Empty() {
			return drainErr
		}

		errs := []error{drainErr}
		if len(m.Count) > 0 {
			if err := r.api.MetricsCounters(ctx, m.Count); err != nil {
				errs = append(errs, fmt.Errorf("%w: counters: %w", ErrSendFailed, err))
			}
		}
		if len(m.Time) > 0 {
			if err := r.api.MetricsTimes(ctx, m.Time); err != nil {
				errs = append(errs, fmt.Errorf("%w: times: %w", ErrSendFailed, err))
			}
		}
		if len(m.Gauge) > 0 {
			if err := r.api.MetricsGauge(ctx, m.Gauge); err != nil {
				errs = append(errs, fmt.Errorf("%w: gauges: %w", ErrSendFailed, err))
			}
		}
		return errors.Join(errs...)
	})
}

// RunImpressions adapts ReportImpressions to a periodic job handler.
func (r *Reporter) RunImpressions(ctx context.Context) error {
	r.ReportImpressions(ctx)
	return nil
}

// RunMetrics adapts ReportMetrics to a periodic job handler.
func (r *Reporter) RunMetrics(ctx context.Context) error {
	r.ReportMetrics(ctx)
	return nil
}

func (r *Reporter) guard(
	ctx context.Context,
	domain string,
	isEnabled func(context.Context) (bool, error),
	disable func(context.Context) error,
	fn func() error,
) {
	log := r.logger.With(logger.Domain(domain))

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("%w: %v", ErrPanicked, rec)
			}
		}()
		enabled, err := isEnabled(ctx)
		if err != nil {
			return err
		}
		if !enabled {
			log.DebugContext(ctx, "reporting disabled, skipping")
			return nil
		}
		return fn()
	}()
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		log.InfoContext(ctx, "telemetry report interrupted", logger.Error(err))
		return
	}

	log.ErrorContext(ctx, "telemetry report failed, disabling", logger.Error(err))
	if err := disable(ctx); err != nil {
		log.ErrorContext(ctx, "failed to disable telemetry domain", logger.Error(err))
	}
}
