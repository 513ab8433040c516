package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrymomot/splitkit/pkg/splitcache"
)

// DevAPI implements API for local development. Instead of calling a
// collector it writes every batch as JSON, either as one line per batch to a
// writer or as one file per batch in a directory.
type DevAPI struct {
	mu  sync.Mutex
	w   io.Writer
	dir string
	now func() time.Time
}

// NewDevAPI writes batches as JSON lines to w.
func NewDevAPI(w io.Writer) *DevAPI {
	return &DevAPI{w: w, now: time.Now}
}

// NewDevDirAPI saves every batch to its own file under dir.
// The directory will be created if it doesn't exist.
func NewDevDirAPI(dir string) *DevAPI {
	return &DevAPI{dir: dir, now: time.Now}
}

// devRecord is the envelope written for each batch.
type devRecord struct {
	Timestamp string `json:"timestamp"`
	Endpoint  string `json:"endpoint"`
	Payload   any    `json:"payload"`
}

func (d *DevAPI) TestImpressions(ctx context.Context, batch []splitcache.FeatureImpressions) error {
	return d.write(ctx, "testImpressions", batch)
}

func (d *DevAPI) MetricsTimes(ctx context.Context, batch []splitcache.Latency) error {
	return d.write(ctx, "metrics_times", batch)
}

func (d *DevAPI) MetricsCounters(ctx context.Context, batch []splitcache.Counter) error {
	return d.write(ctx, "metrics_counters", batch)
}

func (d *DevAPI) MetricsGauge(ctx context.Context, batch []splitcache.Gauge) error {
	return d.write(ctx, "metrics_gauge", batch)
}

func (d *DevAPI) write(ctx context.Context, endpoint string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	rec := devRecord{
		Timestamp: now.Format(time.RFC3339Nano),
		Endpoint:  endpoint,
		Payload:   payload,
	}

	if d.dir == "" {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal batch: %v", ErrDevSink, err)
		}
		if _, err := d.w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("%w: %v", ErrDevSink, err)
		}
		return nil
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrDevSink, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal batch: %v", ErrDevSink, err)
	}

	name := fmt.Sprintf("%s_%s.json", now.Format("2006_01_02_150405.000000"), endpoint)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write file: %v", ErrDevSink, err)
	}
	return nil
}
