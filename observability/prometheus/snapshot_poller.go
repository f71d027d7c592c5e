package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-periodic-task/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// TaskSnapshotProvider provides current task stats snapshots.
// *core.PeriodicTask implements it.
type TaskSnapshotProvider interface {
	Stats() core.TaskStats
}

// SnapshotPoller periodically exports task Stats() snapshots into Prometheus gauges.
// The polling loop itself is a core.PeriodicTask.
type SnapshotPoller struct {
	interval time.Duration
	logger   core.Logger

	tasksMu sync.RWMutex
	tasks   map[string]TaskSnapshotProvider

	invocations   *prom.GaugeVec
	failures      *prom.GaugeVec
	droppedTicks  *prom.GaugeVec
	running       *prom.GaugeVec
	paused        *prom.GaugeVec
	periodSeconds *prom.GaugeVec

	stateMu sync.Mutex
	poll    *core.PeriodicTask
	cancel  context.CancelFunc
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "periodic"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	invocations := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "task_invocations",
		Help:      "Routine invocations per task snapshot.",
	}, []string{"task"})
	failures := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "task_failures",
		Help:      "Failed routine invocations per task snapshot.",
	}, []string{"task"})
	droppedTicks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "task_dropped_ticks",
		Help:      "Dropped ticks per task snapshot.",
	}, []string{"task"})
	running := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "task_running",
		Help:      "Routine in flight (1=yes, 0=no).",
	}, []string{"task"})
	paused := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "task_paused",
		Help:      "Task paused state (1=paused, 0=not paused).",
	}, []string{"task"})
	periodSeconds := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "task_period_seconds",
		Help:      "Configured task period in seconds.",
	}, []string{"task"})

	var err error
	if invocations, err = registerCollector(reg, invocations); err != nil {
		return nil, err
	}
	if failures, err = registerCollector(reg, failures); err != nil {
		return nil, err
	}
	if droppedTicks, err = registerCollector(reg, droppedTicks); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}
	if paused, err = registerCollector(reg, paused); err != nil {
		return nil, err
	}
	if periodSeconds, err = registerCollector(reg, periodSeconds); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:      interval,
		logger:        core.NewDefaultLogger(),
		tasks:         make(map[string]TaskSnapshotProvider),
		invocations:   invocations,
		failures:      failures,
		droppedTicks:  droppedTicks,
		running:       running,
		paused:        paused,
		periodSeconds: periodSeconds,
	}, nil
}

// SetLogger replaces the logger used by the polling task.
func (p *SnapshotPoller) SetLogger(l core.Logger) {
	if p == nil || l == nil {
		return
	}
	p.stateMu.Lock()
	p.logger = l
	p.stateMu.Unlock()
}

// AddTask adds or replaces a task snapshot provider by name.
func (p *SnapshotPoller) AddTask(name string, provider TaskSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "task")
	p.tasksMu.Lock()
	p.tasks[name] = provider
	p.tasksMu.Unlock()
}

// RemoveTask stops exporting a task and deletes its series.
func (p *SnapshotPoller) RemoveTask(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "task")
	p.tasksMu.Lock()
	delete(p.tasks, name)
	p.tasksMu.Unlock()

	for _, vec := range []*prom.GaugeVec{p.invocations, p.failures, p.droppedTicks, p.running, p.paused, p.periodSeconds} {
		vec.DeleteLabelValues(name)
	}
}

// Start begins periodic polling; repeated calls are no-ops.
// Cancelling ctx stops polling like Stop does.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.poll != nil {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	poll := core.New(p.interval, p.collectOnce,
		core.WithName("snapshot-poller"),
		core.WithLogger(p.logger),
		core.WithHistoryCapacity(1))
	p.poll = poll
	p.cancel = cancel
	p.stateMu.Unlock()

	go func() {
		select {
		case <-pollCtx.Done():
			p.stop(poll)
		case <-poll.Done():
		}
	}()
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}
	p.stop(nil)
}

// stop halts the current polling task. A non-nil only restricts it to that
// task, so a stale context watcher cannot stop a later Start.
func (p *SnapshotPoller) stop(only *core.PeriodicTask) {
	p.stateMu.Lock()
	poll := p.poll
	cancel := p.cancel
	if poll == nil || (only != nil && only != poll) {
		p.stateMu.Unlock()
		return
	}
	p.poll = nil
	p.cancel = nil
	p.stateMu.Unlock()

	poll.Stop()
	cancel()
}

func (p *SnapshotPoller) collectOnce() {
	p.tasksMu.RLock()
	defer p.tasksMu.RUnlock()

	for name, provider := range p.tasks {
		stats := provider.Stats()
		p.invocations.WithLabelValues(name).Set(float64(stats.Invocations))
		p.failures.WithLabelValues(name).Set(float64(stats.Failures))
		p.droppedTicks.WithLabelValues(name).Set(float64(stats.DroppedTicks))
		p.running.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.paused.WithLabelValues(name).Set(boolGauge(stats.State == core.StatePaused))
		p.periodSeconds.WithLabelValues(name).Set(stats.Period.Seconds())
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
