package control

import (
	"time"

	"github.com/Swind/go-periodic-task/core"
)

type taskView struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Period       string     `json:"period"`
	CatchUp      bool       `json:"catch_up"`
	Running      bool       `json:"running"`
	Invocations  uint64     `json:"invocations"`
	Failures     uint64     `json:"failures"`
	DroppedTicks uint64     `json:"dropped_ticks"`
	LastStarted  *time.Time `json:"last_started,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	LastRunID    string     `json:"last_run_id,omitempty"`
}

func newTaskView(s core.TaskStats) taskView {
	return taskView{
		Name:         s.Name,
		State:        s.State.String(),
		Period:       s.Period.String(),
		CatchUp:      s.CatchUp,
		Running:      s.Running,
		Invocations:  s.Invocations,
		Failures:     s.Failures,
		DroppedTicks: s.DroppedTicks,
		LastStarted:  optionalTime(s.LastStarted),
		LastFinished: optionalTime(s.LastFinished),
		LastError:    s.LastError,
		LastRunID:    optionalRunID(s.LastRunID),
	}
}

type invocationView struct {
	RunID       string    `json:"run_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	StartedAt   time.Time `json:"started_at"`
	Duration    string    `json:"duration"`
	Error       string    `json:"error,omitempty"`
	Panicked    bool      `json:"panicked,omitempty"`
}

func newInvocationView(r core.InvocationRecord) invocationView {
	return invocationView{
		RunID:       r.RunID.String(),
		ScheduledAt: r.ScheduledAt,
		StartedAt:   r.StartedAt,
		Duration:    r.Duration.String(),
		Error:       r.Err,
		Panicked:    r.Panicked,
	}
}

func optionalRunID(id core.RunID) string {
	if id == (core.RunID{}) {
		return ""
	}
	return id.String()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
