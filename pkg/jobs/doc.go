// Package jobs runs periodic background tasks inside one process.
//
// Each task has its own ticker and runs once immediately when the runner
// starts. Runs of the same task never overlap: a tick that fires while the
// previous run is still going is skipped. Handler panics are recovered and
// logged.
//
//	r := jobs.NewRunner(jobs.WithLogger(log))
//	_ = r.AddTask("splits", 5*time.Second, splitSync.Run)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(r.Run(ctx))
//	_ = g.Wait()
package jobs
