// Package evaluator computes feature treatments from the shared caches.
//
// Evaluation only reads: it resolves the split from the split cache, walks
// its conditions in order and, for the first one whose matchers all accept
// the key, hashes the key into one of 100 buckets to pick a partition.
// Missing splits and store failures produce the "control" treatment, so a
// disabled or unreachable write side never affects callers.
//
// When configured with recorders, every evaluation buffers an impression and
// a latency sample under the "sdk.getTreatment" operation.
//
//	eval := evaluator.New(splitCache, segmentCache,
//		evaluator.WithImpressions(impressionCache),
//		evaluator.WithLatencies(metricsCache),
//	)
//	if eval.GetTreatment(ctx, userID, "new-checkout") == "on" {
//		// ...
//	}
package evaluator
