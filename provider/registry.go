package provider

import (
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/statekit/util"
)

// Registry is a table of live instances keyed by resolved provider key.
// The engine owns one global registry; each Scope owns another.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Get returns the instance registered under key, if any.
func (r *Registry) Get(key string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[key]
	return inst, ok
}

// Put registers an instance under its provider key. Returns false if the
// key is already taken.
func (r *Registry) Put(inst *Instance) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[inst.ProviderKey()]; ok {
		return false
	}
	r.instances[inst.ProviderKey()] = inst
	return true
}

// Remove drops the instance registered under key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, key)
}

// Keys returns the registered provider keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedKeys(r.instances)
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Scope is an explicit per-consumer-tree registration table. Consumers
// sharing a Scope share non-global instances; releasing the scope drops
// the whole table at once.
type Scope struct {
	id       string
	registry *Registry
}

// NewScope builds an empty scope with a unique identity.
func NewScope() *Scope {
	return &Scope{id: uuid.NewString(), registry: NewRegistry()}
}

// ID returns the scope's unique identity.
func (s *Scope) ID() string { return s.id }

// Registry returns the scope's instance table.
func (s *Scope) Registry() *Registry { return s.registry }

// Release empties the scope's table. Instances unreachable from any other
// table become garbage.
func (s *Scope) Release() {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.registry.instances = make(map[string]*Instance)
}
