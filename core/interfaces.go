package core

import "time"

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting periodic task metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from the task's worker goroutine (RecordStateChange also
// from the owner) and should be non-blocking and fast, since a slow
// implementation delays the next invocation.
type Metrics interface {
	// RecordInvocation records how long one routine invocation took.
	//
	// Parameters:
	// - taskName: The name of the periodic task
	// - duration: How long the routine ran
	RecordInvocation(taskName string, duration time.Duration)

	// RecordFailure records that an invocation failed.
	//
	// Parameters:
	// - taskName: The name of the periodic task
	// - panicked: Whether the failure was a recovered panic rather than a returned error
	RecordFailure(taskName string, panicked bool)

	// RecordDroppedTicks records ticks skipped because catch-up was disabled
	// and the routine overran its period.
	RecordDroppedTicks(taskName string, n int)

	// RecordStateChange records a lifecycle transition.
	RecordStateChange(taskName string, state State)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordInvocation is a no-op.
func (m *NilMetrics) RecordInvocation(taskName string, duration time.Duration) {
}

// RecordFailure is a no-op.
func (m *NilMetrics) RecordFailure(taskName string, panicked bool) {
}

// RecordDroppedTicks is a no-op.
func (m *NilMetrics) RecordDroppedTicks(taskName string, n int) {
}

// RecordStateChange is a no-op.
func (m *NilMetrics) RecordStateChange(taskName string, state State) {
}
