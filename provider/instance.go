package provider

import (
	"sync"

	"github.com/google/uuid"

	"github.com/skillsenselab/statekit/store"
)

// Instance is a materialized provider: one store bound to one resolved
// provider key. The engine guarantees at most one live instance per key
// within a registration table.
type Instance struct {
	def         *Definition
	id          string
	providerKey string
	static      bool

	// base is the raw collaborator store; dispatching goes through the
	// intercepted wrapper so thunks are handled.
	base    store.Store
	wrapped store.Store

	actions map[string]func(args ...any)

	mu       sync.Mutex
	ready    bool
	readyCbs []func()
}

func newInstance(def *Definition, providerKey string, base, wrapped store.Store) *Instance {
	return &Instance{
		def:         def,
		id:          uuid.NewString(),
		providerKey: providerKey,
		static:      providerKey == def.key,
		base:        base,
		wrapped:     wrapped,
	}
}

// Definition returns the definition this instance materializes.
func (in *Instance) Definition() *Definition { return in.def }

// ID returns the instance's unique identity.
func (in *Instance) ID() string { return in.id }

// ProviderKey returns the resolved key the instance is registered under.
func (in *Instance) ProviderKey() string { return in.providerKey }

// Static reports whether the instance uses the definition's own key.
func (in *Instance) Static() bool { return in.static }

// Store returns the instance's store. Dispatches through it run the
// thunk interceptor.
func (in *Instance) Store() store.Store { return in.wrapped }

// GetState returns the store's current state.
func (in *Instance) GetState() map[string]any { return in.base.GetState() }

// Dispatch sends an action through the intercepted store.
func (in *Instance) Dispatch(action store.Action) { in.wrapped.Dispatch(action) }

// Action returns the named bound action creator, or nil if the definition
// declares none by that name.
func (in *Instance) Action(name string) func(args ...any) {
	return in.actions[name]
}

// Ready reports whether the instance completed its ready sequence.
func (in *Instance) Ready() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ready
}

// OnReady invokes cb once the instance is ready; immediately if it
// already is. Callbacks fire in registration order.
func (in *Instance) OnReady(cb func()) {
	in.mu.Lock()
	if in.ready {
		in.mu.Unlock()
		cb()
		return
	}
	in.readyCbs = append(in.readyCbs, cb)
	in.mu.Unlock()
}

// pushFrontReady inserts a callback at the head of the ready queue. The
// engine uses it to guarantee the ready flag flips before any observer
// callback runs.
func (in *Instance) pushFrontReady(cb func()) {
	in.mu.Lock()
	in.readyCbs = append([]func(){cb}, in.readyCbs...)
	in.mu.Unlock()
}

// setReady flips the ready flag.
func (in *Instance) setReady() {
	in.mu.Lock()
	in.ready = true
	in.mu.Unlock()
}

// fireReady drains the ready queue in order. Callbacks registered while
// draining are drained too.
func (in *Instance) fireReady() {
	for {
		in.mu.Lock()
		if len(in.readyCbs) == 0 {
			in.mu.Unlock()
			return
		}
		cbs := in.readyCbs
		in.readyCbs = nil
		in.mu.Unlock()

		for _, cb := range cbs {
			cb()
		}
	}
}
