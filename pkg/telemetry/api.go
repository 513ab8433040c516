package telemetry

import (
	"context"

	"github.com/dmitrymomot/splitkit/pkg/splitcache"
)

// API is the remote collector telemetry is forwarded to. Calls are
// fire-and-forget: a returned error means the batch is lost.
type API interface {
	TestImpressions(ctx context.Context, batch []splitcache.FeatureImpressions) error
	MetricsTimes(ctx context.Context, batch []splitcache.Latency) error
	MetricsCounters(ctx context.Context, batch []splitcache.Counter) error
	MetricsGauge(ctx context.Context, batch []splitcache.Gauge) error
}
