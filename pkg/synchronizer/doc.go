// Package synchronizer keeps the split and segment caches in step with the
// control plane.
//
// Both synchronizers poll a change fetcher from the cached change number
// until the returned Till stops advancing, applying every page as it
// arrives. They are meant to be driven by a periodic job and never return
// errors: on failure they log, disable their cache domain through its gate
// and stop. Work applied before the failure is kept, and the domain stays
// disabled until its cooldown expires.
//
// Basic usage:
//
//	splits := synchronizer.NewSplitSynchronizer(
//		splitCache,
//		fetcher,
//		split.NewSegmentRegisteringParser(nil, segmentCache),
//		synchronizer.WithLogger(log),
//	)
//	splits.UpdateSplits(ctx)
package synchronizer
