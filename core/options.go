package core

type taskConfig struct {
	name            string
	startPaused     bool
	catchUp         bool
	onError         ErrorCallback
	logger          Logger
	metrics         Metrics
	historyCapacity int
}

func defaultTaskConfig() taskConfig {
	return taskConfig{
		name:            "periodic",
		catchUp:         true,
		historyCapacity: defaultHistoryCapacity,
	}
}

// Option configures a PeriodicTask at construction time.
type Option func(*taskConfig)

// WithName sets the task name used in logs, metrics and history records.
// Empty names are ignored.
func WithName(name string) Option {
	return func(c *taskConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithStartPaused creates the task in the paused state; the first invocation
// happens right after the first Resume.
func WithStartPaused() Option {
	return func(c *taskConfig) { c.startPaused = true }
}

// WithCatchUp sets the initial catch-up policy. Default is true.
func WithCatchUp(enabled bool) Option {
	return func(c *taskConfig) { c.catchUp = enabled }
}

// WithErrorCallback sets the callback receiving routine failures.
// If not set, failures are logged through the task's Logger.
func WithErrorCallback(cb ErrorCallback) Option {
	return func(c *taskConfig) { c.onError = cb }
}

// WithLogger sets the logger. Default is NewDefaultLogger().
func WithLogger(l Logger) Option {
	return func(c *taskConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. Default is NilMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *taskConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithHistoryCapacity sets how many invocation records History keeps.
func WithHistoryCapacity(n int) Option {
	return func(c *taskConfig) {
		if n > 0 {
			c.historyCapacity = n
		}
	}
}
