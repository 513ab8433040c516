package splitcache

import "github.com/google/uuid"

const (
	disabledSuffix     = ".__disabled__"
	changeNumberSuffix = ".__change_number__"
)

// keys builds the logical key layout under a prefix.
type keys struct {
	prefix string
}

func (k keys) split(name string) string { return k.prefix + ".split." + name }
func (k keys) splitsChangeNumber() string {
	return k.prefix + ".splits" + changeNumberSuffix
}
func (k keys) splitNames() string     { return k.prefix + ".splits.__names__" }
func (k keys) splitsDisabled() string { return k.prefix + ".splits" + disabledSuffix }

func (k keys) segment(name string) string { return k.prefix + ".segment." + name }
func (k keys) segmentChangeNumber(name string) string {
	return k.segment(name) + changeNumberSuffix
}
func (k keys) registeredSegments() string {
	return k.prefix + ".segments.__registered_segments__"
}
func (k keys) segmentsDisabled() string { return k.prefix + ".segments" + disabledSuffix }

// Telemetry buffers are hash-tagged: a guarded write touches the buffer and
// its gate, a drain the buffer and its temp key, and redis cluster only runs
// a script whose keys share a slot.
func (k keys) impressions() string         { return "{" + k.prefix + ".impressions}" }
func (k keys) impressionsDisabled() string { return k.impressions() + disabledSuffix }

func (k keys) metrics() string         { return "{" + k.prefix + ".metrics}" }
func (k keys) metricsDisabled() string { return k.metrics() + disabledSuffix }

// temp returns a unique drain key so concurrent drains never collide.
// It keeps key as a prefix, and with it the key's hash tag.
func temp(key string) string {
	return key + ".__temp__." + uuid.NewString()
}
