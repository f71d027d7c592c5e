package core

import "time"

// InvocationRecord captures a completed routine invocation.
type InvocationRecord struct {
	RunID       RunID
	TaskName    string
	ScheduledAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Err         string
	Panicked    bool
}

// TaskStats represents runtime observability state for a periodic task.
type TaskStats struct {
	Name         string
	State        State
	Period       time.Duration
	CatchUp      bool
	Running      bool
	Invocations  uint64
	Failures     uint64
	DroppedTicks uint64
	LastStarted  time.Time
	LastFinished time.Time
	LastError    string
	LastRunID    RunID // zero until the first invocation completes
}
