// Package app builds the application context: every cache, synchronizer,
// reporter and the evaluator, wired over one shared store from one Config.
//
//	a, err := app.New(store, cfg, app.Fetchers{Splits: f, Segments: f}, api, log)
//	if err != nil {
//		return err
//	}
//	runner := jobs.NewRunner(jobs.WithLogger(log))
//	if err := a.RegisterJobs(runner); err != nil {
//		return err
//	}
package app
