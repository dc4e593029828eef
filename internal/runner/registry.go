package runner

import "sync"

// Registry tracks the cancel handles of every live task process of a run.
// An abort iterates this registry and cancels each handle explicitly instead
// of relying on ambient process-group signals, so no external process
// outlives the run.
type Registry struct {
	mu      sync.Mutex
	nextID  int
	handles map[int]func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: map[int]func(){}}
}

// Register adds a cancel handle and returns its deregistration function.
func (r *Registry) Register(cancel func()) (deregister func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.handles[id] = cancel

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handles, id)
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// CancelAll cancels every live handle and waits until all the cancellations
// return (each one is bounded by the process grace period). Handles of
// already finished processes are no-ops.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	handles := make([]func(), 0, len(r.handles))
	for _, c := range r.handles {
		handles = append(handles, c)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, cancel := range handles {
		wg.Add(1)
		go func(cancel func()) {
			defer wg.Done()
			cancel()
		}(cancel)
	}
	wg.Wait()
}
