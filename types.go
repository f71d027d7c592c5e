package periodic

import (
	"time"

	"github.com/Swind/go-periodic-task/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the periodic package for most use cases.

// PeriodicTask invokes a routine on a fixed cadence on its own goroutine
type PeriodicTask = core.PeriodicTask

// Routine is the work invoked on every tick
type Routine = core.Routine

// ErrorCallback receives routine failures
type ErrorCallback = core.ErrorCallback

// Option configures a PeriodicTask at construction time
type Option = core.Option

// State is the lifecycle state of a PeriodicTask
type State = core.State

// TaskStats is a point-in-time snapshot of a task
type TaskStats = core.TaskStats

// InvocationRecord describes one finished invocation
type InvocationRecord = core.InvocationRecord

// Lifecycle states
const (
	StateEmpty      = core.StateEmpty
	StateRunning    = core.StateRunning
	StatePaused     = core.StatePaused
	StateExiting    = core.StateExiting
	StateTerminated = core.StateTerminated
)

// Errors returned by PeriodicTask and passed to error callbacks
var (
	ErrAlreadyPaused  = core.ErrAlreadyPaused
	ErrNotPaused      = core.ErrNotPaused
	ErrStopped        = core.ErrStopped
	ErrInvalidPeriod  = core.ErrInvalidPeriod
	ErrUnknownFailure = core.ErrUnknownFailure
)

// Options
var (
	WithName            = core.WithName
	WithStartPaused     = core.WithStartPaused
	WithCatchUp         = core.WithCatchUp
	WithErrorCallback   = core.WithErrorCallback
	WithLogger          = core.WithLogger
	WithMetrics         = core.WithMetrics
	WithHistoryCapacity = core.WithHistoryCapacity
)

// New creates a PeriodicTask and starts its worker goroutine.
// See core.New for the full contract.
func New(period time.Duration, routine Routine, opts ...Option) *PeriodicTask {
	return core.New(period, routine, opts...)
}

// NewWithError is like New for routines that return their failures.
func NewWithError(period time.Duration, routine func() error, opts ...Option) *PeriodicTask {
	return core.NewWithError(period, routine, opts...)
}

// NewEmpty returns a task with no routine; every operation on it is a no-op.
func NewEmpty() *PeriodicTask {
	return core.NewEmpty()
}
