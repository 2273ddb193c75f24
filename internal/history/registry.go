package history

import "sync"

// Registry is the process-wide mapping from (workspace, project) to
// its composed Facade. Concurrent access to Get is coordinated by a
// mutex; the returned Facade is thread-safe thereafter and freely
// shared.
type Registry struct {
	mu       sync.Mutex
	facades  map[registryKey]*Facade
	defaults []Option
}

type registryKey struct {
	workspace string
	project   string
}

// NewRegistry creates an empty registry. defaultOpts are applied to
// every Facade the registry creates (per-call Get options are applied
// after, and take precedence).
func NewRegistry(defaultOpts ...Option) *Registry {
	return &Registry{
		facades:  make(map[registryKey]*Facade),
		defaults: defaultOpts,
	}
}

// Get returns the cached Facade for (workspace, project), creating it
// lazily on first access. Options passed here only take effect on
// first creation; they are ignored on a cache hit.
func (r *Registry) Get(workspace, project string, opts ...Option) (*Facade, error) {
	key := registryKey{workspace: workspace, project: project}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.facades[key]; ok {
		return f, nil
	}

	merged := make([]Option, 0, len(r.defaults)+len(opts))
	merged = append(merged, r.defaults...)
	merged = append(merged, opts...)

	f, err := Open(workspace, project, merged...)
	if err != nil {
		return nil, err
	}
	r.facades[key] = f
	return f, nil
}

// Forget drops a cached Facade without closing any underlying
// resources (the facade's files remain on disk; a later Get recreates
// a fresh handle). Used by tests and by maintenance tooling after
// externally modifying a project's history directory.
func (r *Registry) Forget(workspace, project string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.facades, registryKey{workspace: workspace, project: project})
}
