package periodic

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Swind/go-periodic-task/core"
)

var (
	// ErrGroupStopped is returned by Add after Stop.
	ErrGroupStopped = errors.New("periodic group is stopped")

	// ErrDuplicateTask is returned by Add when the name is taken.
	ErrDuplicateTask = errors.New("periodic task name already in group")
)

// Group owns a set of named periodic tasks and stops them together.
// Options given to NewGroup apply to every task; per-task options win.
type Group struct {
	id       string
	defaults []Option

	mu      sync.RWMutex
	tasks   map[string]*PeriodicTask
	stopped bool
}

// NewGroup creates an empty group.
func NewGroup(id string, defaults ...Option) *Group {
	return &Group{
		id:       id,
		defaults: defaults,
		tasks:    make(map[string]*PeriodicTask),
	}
}

// ID returns the ID of the group
func (g *Group) ID() string {
	return g.id
}

// Add starts a task named name and registers it. The name also becomes the
// task name (WithName) unless opts override it.
func (g *Group) Add(name string, period time.Duration, routine Routine, opts ...Option) (*PeriodicTask, error) {
	return g.add(name, func(all []Option) *PeriodicTask {
		return core.New(period, routine, all...)
	}, opts)
}

// AddWithError is Add for routines that return their failures.
func (g *Group) AddWithError(name string, period time.Duration, routine func() error, opts ...Option) (*PeriodicTask, error) {
	return g.add(name, func(all []Option) *PeriodicTask {
		return core.NewWithError(period, routine, all...)
	}, opts)
}

func (g *Group) add(name string, create func([]Option) *PeriodicTask, opts []Option) (*PeriodicTask, error) {
	if name == "" {
		return nil, fmt.Errorf("add task to group %s: empty name", g.id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return nil, ErrGroupStopped
	}
	if _, ok := g.tasks[name]; ok {
		return nil, fmt.Errorf("add task %s to group %s: %w", name, g.id, ErrDuplicateTask)
	}

	all := make([]Option, 0, len(g.defaults)+len(opts)+1)
	all = append(all, g.defaults...)
	all = append(all, WithName(name))
	all = append(all, opts...)

	task := create(all)
	g.tasks[name] = task
	return task, nil
}

// Get returns the task registered under name.
func (g *Group) Get(name string) (*PeriodicTask, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[name]
	return t, ok
}

// Remove stops the task registered under name and forgets it.
// It reports whether such a task existed.
func (g *Group) Remove(name string) bool {
	g.mu.Lock()
	t, ok := g.tasks[name]
	delete(g.tasks, name)
	g.mu.Unlock()

	if ok {
		t.Stop()
	}
	return ok
}

// Len returns the number of registered tasks.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// Names returns the registered task names, sorted.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns a snapshot of every task, sorted by name.
func (g *Group) Stats() []TaskStats {
	g.mu.RLock()
	stats := make([]TaskStats, 0, len(g.tasks))
	for _, t := range g.tasks {
		stats = append(stats, t.Stats())
	}
	g.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// PauseAll pauses every running task. Tasks that are already paused are
// skipped; the first other error is returned after all tasks were tried.
func (g *Group) PauseAll(resetTime bool) error {
	return g.each(func(t *PeriodicTask) error {
		if err := t.Pause(resetTime); err != nil && !errors.Is(err, ErrAlreadyPaused) {
			return fmt.Errorf("pause %s: %w", t.Name(), err)
		}
		return nil
	})
}

// ResumeAll resumes every paused task.
func (g *Group) ResumeAll() error {
	return g.each(func(t *PeriodicTask) error {
		if err := t.Resume(); err != nil && !errors.Is(err, ErrNotPaused) {
			return fmt.Errorf("resume %s: %w", t.Name(), err)
		}
		return nil
	})
}

func (g *Group) each(fn func(*PeriodicTask) error) error {
	g.mu.RLock()
	tasks := make([]*PeriodicTask, 0, len(g.tasks))
	for _, t := range g.tasks {
		tasks = append(tasks, t)
	}
	g.mu.RUnlock()

	var errs []error
	for _, t := range tasks {
		if err := fn(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop stops all tasks concurrently and waits for every worker to exit.
// Later calls to Add fail with ErrGroupStopped. Stop is idempotent.
func (g *Group) Stop() {
	g.mu.Lock()
	g.stopped = true
	tasks := g.tasks
	g.tasks = make(map[string]*PeriodicTask)
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.Stop()
		}()
	}
	wg.Wait()
}

// =============================================================================
// Global Group Helper (Singleton)
// =============================================================================

var (
	globalGroup *Group
	globalMu    sync.Mutex
)

// InitGlobalGroup initializes the global group. Repeated calls are no-ops.
func InitGlobalGroup(defaults ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalGroup != nil {
		return // Already initialized
	}
	globalGroup = NewGroup("global-group", defaults...)
}

// GetGlobalGroup returns the global group instance.
// It panics if InitGlobalGroup has not been called.
func GetGlobalGroup() *Group {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalGroup == nil {
		panic("GlobalGroup not initialized. Call InitGlobalGroup() first.")
	}
	return globalGroup
}

// ShutdownGlobalGroup stops every task of the global group and forgets it.
func ShutdownGlobalGroup() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalGroup != nil {
		globalGroup.Stop()
		globalGroup = nil
	}
}
