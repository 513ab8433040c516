package evaluator

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/dmitrymomot/splitkit/pkg/logger"
	"github.com/dmitrymomot/splitkit/pkg/split"
	"github.com/dmitrymomot/splitkit/pkg/splitcache"
)

// LatencyOperation is the metrics operation every evaluation is timed under.
const LatencyOperation = "sdk.getTreatment"

// Impression labels.
const (
	LabelKilled          = "killed"
	LabelNotFound        = "definition not found"
	LabelException       = "exception"
	LabelDefaultRule     = "default rule"
	LabelNoPartitionHit  = "not in split"
	LabelInvalidArgument = "invalid argument"
)

// SplitReader resolves split definitions.
type SplitReader interface {
	GetSplit(ctx context.Context, name string) (*split.Split, error)
}

// SegmentReader resolves segment membership.
type SegmentReader interface {
	IsInSegment(ctx context.Context, name, key string) (bool, error)
}

// ImpressionRecorder buffers impressions.
type ImpressionRecorder interface {
	AddImpression(ctx context.Context, imp splitcache.Impression) (bool, error)
}

// LatencyRecorder buffers latency samples.
type LatencyRecorder interface {
	IncrementLatencyBucketCounter(ctx context.Context, op string, bucket int, delta int64) (bool, error)
}

// Result is the outcome of one evaluation.
type Result struct {
	Treatment    string
	Label        string
	ChangeNumber int64
}

// Evaluator computes treatments from the cached splits and segments.
// It never fails: anything that prevents evaluation yields the control
// treatment.
type Evaluator struct {
	splits      SplitReader
	segments    SegmentReader
	impressions ImpressionRecorder
	latencies   LatencyRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithImpressions records an impression for every evaluation.
func WithImpressions(r ImpressionRecorder) Option {
	return func(e *Evaluator) { e.impressions = r }
}

// WithLatencies records the duration of every evaluation.
func WithLatencies(r LatencyRecorder) Option {
	return func(e *Evaluator) { e.latencies = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

func New(splits SplitReader, segments SegmentReader, opts ...Option) *Evaluator {
	e := &Evaluator{
		splits:   splits,
		segments: segments,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logger.Component("evaluator"))
	return e
}

// GetTreatment returns the treatment of feature for key.
func (e *Evaluator) GetTreatment(ctx context.Context, key, feature string) string {
	return e.Evaluate(ctx, key, feature).Treatment
}

// GetTreatments evaluates several features for the same key.
func (e *Evaluator) GetTreatments(ctx context.Context, key string, features []string) map[string]string {
	out := make(map[string]string, len(features))
	for _, f := range features {
		out[f] = e.GetTreatment(ctx, key, f)
	}
	return out
}

// Evaluate returns the treatment together with the label of the rule that
// produced it.
func (e *Evaluator) Evaluate(ctx context.Context, key, feature string) Result {
	if key == "" || feature == "" {
		return Result{Treatment: split.ControlTreatment, Label: LabelInvalidArgument, ChangeNumber: -1}
	}

	start := e.now()
	res := e.evaluate(ctx, key, feature)
	e.record(ctx, key, feature, res, e.now().Sub(start))
	return res
}

func (e *Evaluator) evaluate(ctx context.Context, key, feature string) Result {
	s, err := e.splits.GetSplit(ctx, feature)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to load split", logger.Split(feature), logger.Error(err))
		return Result{Treatment: split.ControlTreatment, Label: LabelException, ChangeNumber: -1}
	}
	if s == nil {
		return Result{Treatment: split.ControlTreatment, Label: LabelNotFound, ChangeNumber: -1}
	}
	if s.Killed {
		return Result{Treatment: s.DefaultTreatment, Label: LabelKilled, ChangeNumber: s.ChangeNumber}
	}

	for _, cond := range s.Conditions {
		ok, err := e.matches(ctx, key, cond.Matchers)
		if err != nil {
			e.logger.WarnContext(ctx, "failed to evaluate condition", logger.Split(feature), logger.Error(err))
			return Result{Treatment: split.ControlTreatment, Label: LabelException, ChangeNumber: s.ChangeNumber}
		}
		if !ok {
			continue
		}
		if treatment, hit := pick(cond.Partitions, Bucket(s.Seed, key)); hit {
			return Result{Treatment: treatment, Label: cond.Label, ChangeNumber: s.ChangeNumber}
		}
		return Result{Treatment: s.DefaultTreatment, Label: LabelNoPartitionHit, ChangeNumber: s.ChangeNumber}
	}

	return Result{Treatment: s.DefaultTreatment, Label: LabelDefaultRule, ChangeNumber: s.ChangeNumber}
}

var errUnknownMatcher = errors.New("unknown matcher type")

// matches reports whether every matcher accepts key.
func (e *Evaluator) matches(ctx context.Context, key string, matchers []split.Matcher) (bool, error) {
	for _, m := range matchers {
		var ok bool
		switch m.Type {
		case split.MatcherAllKeys:
			ok = true
		case split.MatcherWhitelist:
			ok = slices.Contains(m.Whitelist, key)
		case split.MatcherInSegment:
			in, err := e.segments.IsInSegment(ctx, m.Segment, key)
			if err != nil {
				return false, err
			}
			ok = in
		default:
			return false, errUnknownMatcher
		}
		if ok == m.Negate {
			return false, nil
		}
	}
	return true, nil
}

// Bucket places key in one of 100 buckets for a split seed.
// The same seed and key always land in the same bucket.
func Bucket(seed int64, key string) int {
	h := fnv.New32a()
	h.Write([]byte(strconv.FormatInt(seed, 10)))
	h.Write([]byte{':'})
	h.Write([]byte(key))
	return int(h.Sum32() % 100)
}

// pick walks the partitions until the cumulative size passes bucket.
func pick(partitions []split.Partition, bucket int) (string, bool) {
	total := 0
	for _, p := range partitions {
		total += p.Size
		if bucket < total {
			return p.Treatment, true
		}
	}
	return "", false
}

// record buffers telemetry for one evaluation. Failures are only logged.
func (e *Evaluator) record(ctx context.Context, key, feature string, res Result, elapsed time.Duration) {
	if e.impressions != nil {
		imp := splitcache.Impression{
			KeyName:      key,
			Feature:      feature,
			Treatment:    res.Treatment,
			Label:        res.Label,
			ChangeNumber: max(res.ChangeNumber, 0),
			Time:         e.now().UnixMilli(),
		}
		if _, err := e.impressions.AddImpression(ctx, imp); err != nil {
			e.logger.WarnContext(ctx, "failed to record impression", logger.Split(feature), logger.Error(err))
		}
	}

	if e.latencies != nil {
		if _, err := e.latencies.IncrementLatencyBucketCounter(ctx, LatencyOperation, splitcache.LatencyBucketIndex(elapsed), 1); err != nil {
			e.logger.WarnContext(ctx, "failed to record latency", logger.Error(err))
		}
	}
}
