package core

import "fmt"

// Routine is the unit of work a PeriodicTask invokes on every tick.
type Routine func()

// ErrorCallback receives every failure raised by a routine. It always runs on
// the task's worker goroutine.
type ErrorCallback func(err error)

// =============================================================================
// State: lifecycle of a PeriodicTask
// =============================================================================

type State int

const (
	// StateEmpty: the task has no routine; every operation is a no-op.
	StateEmpty State = iota

	// StateRunning: the worker invokes the routine on its cadence.
	StateRunning

	// StatePaused: the worker is parked until Resume.
	StatePaused

	// StateExiting: Stop was requested; the worker has not returned yet.
	StateExiting

	// StateTerminated: the worker goroutine has returned.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateExiting:
		return "exiting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
