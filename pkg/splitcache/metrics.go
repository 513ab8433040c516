package splitcache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/splitkit/pkg/kvstore"
)

// LatencyBuckets is the fixed width of every latency histogram.
const LatencyBuckets = 23

// latencyBounds are the inclusive upper bounds of each bucket in
// microseconds, growing by a factor of 1.5 from one millisecond.
var latencyBounds = [LatencyBuckets]int64{
	1000, 1500, 2250, 3375, 5063,
	7594, 11391, 17086, 25629, 38443,
	57665, 86498, 129746, 194620, 291929,
	437894, 656841, 985261, 1477892, 2216838,
	3325257, 4987885, 7481828,
}

// LatencyBucketIndex maps a latency onto its histogram bucket. Anything above
// the last bound lands in the last bucket.
func LatencyBucketIndex(d time.Duration) int {
	micros := d.Microseconds()
	for i, bound := range latencyBounds {
		if micros <= bound {
			return i
		}
	}
	return LatencyBuckets - 1
}

const (
	countPrefix = "count."
	timePrefix  = "time."
	gaugePrefix = "gauge."
)

func countField(name string) string { return countPrefix + name }
func gaugeField(name string) string { return gaugePrefix + name }
func timeField(op string, bucket int) string {
	return timePrefix + op + "." + strconv.Itoa(bucket)
}

type Counter struct {
	Name  string `json:"name"`
	Delta int64  `json:"delta"`
}

type Latency struct {
	Name      string  `json:"name"`
	Latencies []int64 `json:"latencies"`
}

type Gauge struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Metrics is a drained snapshot of the metrics hash.
type Metrics struct {
	Count []Counter `json:"count"`
	Time  []Latency `json:"time"`
	Gauge []Gauge   `json:"gauge"`
}

// Empty reports whether the snapshot holds no samples.
func (m *Metrics) Empty() bool {
	return m == nil || (len(m.Count) == 0 && len(m.Time) == 0 && len(m.Gauge) == 0)
}

// MetricsCache keeps counters, latency histograms and gauges in one hash.
// Every write is applied through the store's guarded execution, so a
// concurrent Disable is never bypassed.
type MetricsCache struct {
	*Gate
	store kvstore.Store
	keys  keys
}

// NewMetricsCache creates a metrics cache over store.
func NewMetricsCache(store kvstore.Store, opts ...Option) *MetricsCache {
	o := applyOptions(opts)
	k := keys{prefix: o.prefix}
	return &MetricsCache{
		Gate:  newGate(store, k.metricsDisabled(), o.cooldown),
		store: store,
		keys:  k,
	}
}

func (c *MetricsCache) exec(ctx context.Context, m kvstore.Mutation) (bool, error) {
	return c.store.ExecUnless(ctx, c.Key(), m)
}

func (c *MetricsCache) IncrementCount(ctx context.Context, name string, delta int64) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}
	return c.exec(ctx, kvstore.HashIncr(c.keys.metrics(), countField(name), delta))
}

func (c *MetricsCache) SetCount(ctx context.Context, name string, value int64) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}
	return c.exec(ctx, kvstore.HashSet(c.keys.metrics(), countField(name), strconv.FormatInt(value, 10)))
}

// GetCount returns the counter value, zero when unset.
func (c *MetricsCache) GetCount(ctx context.Context, name string) (int64, error) {
	return c.getInt(ctx, countField(name))
}

func (c *MetricsCache) SetLatencyBucketCounter(ctx context.Context, op string, bucket int, value int64) (bool, error) {
	if err := validateLatency(op, bucket); err != nil {
		return false, err
	}
	return c.exec(ctx, kvstore.HashSet(c.keys.metrics(), timeField(op, bucket), strconv.FormatInt(value, 10)))
}

func (c *MetricsCache) IncrementLatencyBucketCounter(ctx context.Context, op string, bucket int, delta int64) (bool, error) {
	if err := validateLatency(op, bucket); err != nil {
		return false, err
	}
	return c.exec(ctx, kvstore.HashIncr(c.keys.metrics(), timeField(op, bucket), delta))
}

func (c *MetricsCache) GetLatencyBucketCounter(ctx context.Context, op string, bucket int) (int64, error) {
	if err := validateLatency(op, bucket); err != nil {
		return 0, err
	}
	return c.getInt(ctx, timeField(op, bucket))
}

// GetLatency returns the whole histogram of op, LatencyBuckets long.
func (c *MetricsCache) GetLatency(ctx context.Context, op string) ([]int64, error) {
	fields, err := c.store.HGetAll(ctx, c.keys.metrics())
	if err != nil {
		return nil, err
	}
	latencies := make([]int64, LatencyBuckets)
	for i := range latencies {
		raw, ok := fields[timeField(op, i)]
		if !ok {
			continue
		}
		if latencies[i], err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, errors.Join(ErrCorruptedEntry, err)
		}
	}
	return latencies, nil
}

func (c *MetricsCache) SetGauge(ctx context.Context, name string, value float64) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}
	return c.exec(ctx, kvstore.HashSet(c.keys.metrics(), gaugeField(name), strconv.FormatFloat(value, 'f', -1, 64)))
}

// GetGauge returns the gauge value, zero when unset.
func (c *MetricsCache) GetGauge(ctx context.Context, name string) (float64, error) {
	raw, ok, err := c.store.HGet(ctx, c.keys.metrics(), gaugeField(name))
	if err != nil || !ok {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Join(ErrCorruptedEntry, err)
	}
	return v, nil
}

func (c *MetricsCache) getInt(ctx context.Context, field string) (int64, error) {
	raw, ok, err := c.store.HGet(ctx, c.keys.metrics(), field)
	if err != nil || !ok {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrCorruptedEntry, err)
	}
	return v, nil
}

// FetchAllAndClear drains the metrics hash and classifies every field by its
// prefix. Latency vectors are always LatencyBuckets long. Fields that cannot
// be parsed are skipped and reported through an error wrapping
// ErrCorruptedEntry alongside the valid snapshot.
func (c *MetricsCache) FetchAllAndClear(ctx context.Context) (*Metrics, error) {
	fields, err := c.store.DrainHash(ctx, c.keys.metrics(), temp(c.keys.metrics()))
	if err != nil {
		return nil, err
	}
	return classify(fields)
}

func classify(fields map[string]string) (*Metrics, error) {
	m := &Metrics{}
	latencies := make(map[string][]int64)
	var errs []error

	for field, raw := range fields {
		switch {
		case strings.HasPrefix(field, countPrefix):
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", field, err))
				continue
			}
			m.Count = append(m.Count, Counter{Name: strings.TrimPrefix(field, countPrefix), Delta: v})

		case strings.HasPrefix(field, gaugePrefix):
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", field, err))
				continue
			}
			m.Gauge = append(m.Gauge, Gauge{Name: strings.TrimPrefix(field, gaugePrefix), Value: v})

		case strings.HasPrefix(field, timePrefix):
			// time.<op>.<bucket>; op itself may contain dots
			rest := strings.TrimPrefix(field, timePrefix)
			dot := strings.LastIndexByte(rest, '.')
			if dot <= 0 {
				errs = append(errs, fmt.Errorf("%s: malformed latency field", field))
				continue
			}
			op := rest[:dot]
			bucket, err := strconv.Atoi(rest[dot+1:])
			if err != nil || bucket < 0 || bucket >= LatencyBuckets {
				errs = append(errs, fmt.Errorf("%s: %w", field, ErrInvalidBucket))
				continue
			}
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", field, err))
				continue
			}
			vec, ok := latencies[op]
			if !ok {
				vec = make([]int64, LatencyBuckets)
				latencies[op] = vec
			}
			vec[bucket] = v
		}
	}

	for op, vec := range latencies {
		m.Time = append(m.Time, Latency{Name: op, Latencies: vec})
	}
	slices.SortFunc(m.Count, func(a, b Counter) int { return cmp.Compare(a.Name, b.Name) })
	slices.SortFunc(m.Gauge, func(a, b Gauge) int { return cmp.Compare(a.Name, b.Name) })
	slices.SortFunc(m.Time, func(a, b Latency) int { return cmp.Compare(a.Name, b.Name) })

	if len(errs) > 0 {
		return m, errors.Join(ErrCorruptedEntry, errors.Join(errs...))
	}
	return m, nil
}

func validateLatency(op string, bucket int) error {
	if op == "" {
		return ErrEmptyName
	}
	if bucket < 0 || bucket >= LatencyBuckets {
		return ErrInvalidBucket
	}
	return nil
}
