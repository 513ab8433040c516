// Package splitcache implements the shared caches a flag evaluation engine
// reads from and writes telemetry to: splits, segments, impressions and
// metrics.
//
// Every cache is a thin view over a kvstore.Store; none of them keeps state
// in process memory, so any number of processes can share one store. Each
// domain carries a Gate: after Disable the domain's write side becomes a
// no-op until the cooldown (one hour by default) expires or Enable is called.
// Reads are never gated, so evaluation keeps serving the last known state.
//
// # Key layout
//
//	<prefix>.split.<name>                          parsed split (JSON)
//	<prefix>.splits.__change_number__              split watermark
//	<prefix>.splits.__names__                      stored split names
//	<prefix>.splits.__disabled__                   split gate
//	<prefix>.segment.<name>                        member set
//	<prefix>.segment.<name>.__change_number__      segment watermark
//	<prefix>.segments.__registered_segments__      tracked segments
//	<prefix>.segments.__disabled__                 segment gate
//	{<prefix>.impressions}                         impression buffer (list)
//	{<prefix>.impressions}.__disabled__            impression gate
//	{<prefix>.metrics}                             metrics hash
//	{<prefix>.metrics}.__disabled__                metrics gate
//
// Watermarks default to -1 ("never synchronized"). The telemetry keys carry a
// redis hash tag so a buffer, its gate and its drain temp keys share a
// cluster slot.
//
// # Telemetry
//
// ImpressionCache and MetricsCache write through kvstore.Store.ExecUnless so
// that checking the gate and appending happen atomically. FetchAllAndClear
// drains the buffers with an atomic rename, so concurrent producers either
// land in the drained snapshot or in a fresh buffer for the next drain.
//
// Metrics fields are encoded as count.<name>, time.<operation>.<bucket> and
// gauge.<name>; latency histograms have LatencyBuckets buckets.
package splitcache
