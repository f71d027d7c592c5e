// Package periodic runs a routine on a fixed cadence on one dedicated goroutine.
//
// A PeriodicTask owns its worker goroutine for its whole life. The routine is
// invoked first right after creation and then once per period, measured
// between invocation starts. The worker can be paused and resumed any number
// of times without being torn down, and the period and catch-up policy can be
// changed while it runs.
//
// # Quick Start
//
//	task := periodic.New(time.Second, func() {
//		refreshCache()
//	}, periodic.WithName("cache-refresh"))
//	defer task.Stop()
//
// # Key Concepts
//
// Catch-up: with catch-up enabled (the default) the next deadline is the
// previous deadline plus one period, so a routine that overran its period is
// followed by back-to-back invocations until the schedule is on time again.
// With catch-up disabled the next deadline is one period after the routine
// returned and the missed ticks are dropped.
//
// Pause: Pause is a barrier. It returns once the worker is parked, after an
// invocation in flight has finished. Pause(true) restarts the schedule one
// period after Resume; Pause(false) keeps the wait that was left.
//
// Failures: a panicking routine never stops the schedule. The failure goes to
// the error callback (WithErrorCallback) or, by default, to the logger.
//
// Shutdown: Stop interrupts an idle wait immediately, waits for an invocation
// in flight and then returns. It is idempotent.
//
// # Groups
//
// Group owns several named tasks and stops them together:
//
//	g := periodic.NewGroup("workers", periodic.WithLogger(logger))
//	defer g.Stop()
//	g.Add("heartbeat", 5*time.Second, sendHeartbeat)
//	g.Add("gc", time.Minute, collectGarbage, periodic.WithCatchUp(false))
//
// # Observability
//
// observability/prometheus provides a core.Metrics implementation and a
// snapshot poller that exports TaskStats as gauges.
package periodic
