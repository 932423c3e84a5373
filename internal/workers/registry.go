package workers

import (
	"sort"
	"sync"
	"time"

	"fincal/pkg/errors"
)

// Registry indexes workers by name for health reporting
type Registry struct {
	workers map[string]WorkerWithHealth
	mu      sync.RWMutex
}

// NewRegistry creates a new worker registry
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]WorkerWithHealth),
	}
}

// Register adds a worker to the registry
func (r *Registry) Register(w WorkerWithHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := w.Name()
	if _, exists := r.workers[name]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "worker %s already registered", name)
	}

	r.workers[name] = w
	return nil
}

// Get returns a worker by name
func (r *Registry) Get(name string) (WorkerWithHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[name]
	return w, ok
}

// List returns all registered workers sorted by name
func (r *Registry) List() []WorkerWithHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make([]WorkerWithHealth, 0, len(r.workers))
	for _, w := range r.workers {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].Name() < workers[j].Name() })

	return workers
}

// EnableWorker enables or disables a worker by name
func (r *Registry) EnableWorker(name string, enabled bool) error {
	w, ok := r.Get(name)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "worker %s not found", name)
	}

	w.SetEnabled(enabled)
	return nil
}

// GetAllHealth returns health information for all workers
func (r *Registry) GetAllHealth() map[string]WorkerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make(map[string]WorkerHealth, len(r.workers))
	for name, w := range r.workers {
		health[name] = w.Health()
	}

	return health
}

// GetUnhealthyWorkers returns enabled workers that missed staleFactor intervals
// or fail more than half of their runs
func (r *Registry) GetUnhealthyWorkers(now time.Time, staleFactor int) []string {
	var unhealthy []string

	for _, w := range r.List() {
		h := w.Health()
		if !h.Enabled || h.IsRunning {
			continue
		}

		// never ran yet: the scheduler runs immediately on start, so this is only a startup race
		if !h.LastRun.IsZero() && now.Sub(h.LastRun) > time.Duration(staleFactor)*w.Interval() {
			unhealthy = append(unhealthy, w.Name())
			continue
		}

		if h.RunCount > 10 && float64(h.ErrorCount)/float64(h.RunCount) > 0.5 {
			unhealthy = append(unhealthy, w.Name())
		}
	}

	return unhealthy
}

// Count returns the number of registered workers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.workers)
}
