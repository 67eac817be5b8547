package store

import (
	"sync"

	"github.com/skillsenselab/statekit/util"
)

// MemoryStore is a reducer-backed in-memory Store. It notifies listeners
// only when a dispatch actually changed at least one state slice.
type MemoryStore struct {
	mu         sync.Mutex
	key        string
	reducers   map[string]Reducer
	state      map[string]any
	listeners  []listenerEntry
	nextID     int
	replicated bool
	readyCbs   []func()
}

type listenerEntry struct {
	id int
	fn func()
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithReplication marks the store as awaiting replication: OnReady
// callbacks are held until MarkReplicated is called.
func WithReplication() MemoryOption {
	return func(s *MemoryStore) { s.replicated = false }
}

// NewMemoryStore builds a store whose initial state comes from running
// every reducer against InitAction.
func NewMemoryStore(key string, reducers map[string]Reducer, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		key:        key,
		reducers:   reducers,
		state:      make(map[string]any, len(reducers)),
		replicated: true,
	}
	for name, reduce := range reducers {
		s.state[name] = reduce(nil, InitAction{})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the store's current provider key.
func (s *MemoryStore) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// GetState returns a shallow copy of the full state.
func (s *MemoryStore) GetState() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.CloneMap(s.state)
}

// Dispatch folds the action through every reducer and notifies listeners
// if any slice changed under shallow equality.
func (s *MemoryStore) Dispatch(action Action) {
	s.mu.Lock()
	changed := false
	for name, reduce := range s.reducers {
		next := reduce(s.state[name], action)
		if !util.ShallowEqual(next, s.state[name]) {
			s.state[name] = next
			changed = true
		}
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l.fn()
		}
	}
}

// Subscribe registers a change listener; the returned function removes it.
func (s *MemoryStore) Subscribe(listener func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: listener})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetKey rebinds the store to a resolved provider key. A memory store has
// no key-dependent materialization, so onReady fires immediately.
func (s *MemoryStore) SetKey(key string, onReady func()) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	if onReady != nil {
		onReady()
	}
}

// SetState replaces matching state slices in bulk and notifies listeners
// when anything changed. Slices without a reducer are ignored.
func (s *MemoryStore) SetState(state map[string]any) {
	s.mu.Lock()
	changed := false
	for name, value := range state {
		if _, ok := s.reducers[name]; !ok {
			continue
		}
		if !util.ShallowEqual(value, s.state[name]) {
			s.state[name] = value
			changed = true
		}
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l.fn()
		}
	}
}

// Replicated reports whether initial materialization already ran.
func (s *MemoryStore) Replicated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replicated
}

// OnReady invokes cb once replication completes; immediately if it already
// has.
func (s *MemoryStore) OnReady(cb func()) {
	s.mu.Lock()
	if s.replicated {
		s.mu.Unlock()
		cb()
		return
	}
	s.readyCbs = append(s.readyCbs, cb)
	s.mu.Unlock()
}

// MarkReplicated flags initial materialization as complete and drains any
// held OnReady callbacks in registration order.
func (s *MemoryStore) MarkReplicated() {
	s.mu.Lock()
	if s.replicated {
		s.mu.Unlock()
		return
	}
	s.replicated = true
	cbs := s.readyCbs
	s.readyCbs = nil
	s.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

// snapshotListeners copies the listener list; callers must hold s.mu.
func (s *MemoryStore) snapshotListeners() []listenerEntry {
	out := make([]listenerEntry, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// compile-time interface checks
var (
	_ Store         = (*MemoryStore)(nil)
	_ Hydratable    = (*MemoryStore)(nil)
	_ ReadyNotifier = (*MemoryStore)(nil)
)
