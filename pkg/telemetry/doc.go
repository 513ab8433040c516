// Package telemetry forwards buffered impressions and metrics to a collector.
//
// Reporter drains the splitcache telemetry buffers on a schedule. Impressions
// go out as a single batch grouped by feature; metrics go out as up to three
// calls, one per non-empty category. Any failure is logged and disables the
// affected domain, which stops producers from buffering data that cannot be
// delivered until the gate cooldown expires. Drained data is never retried.
//
// DevAPI is an API implementation for local development that writes every
// batch as JSON to a writer or a directory.
package telemetry
