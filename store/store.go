package store

// Action is any value dispatched into a store. The provider engine treats
// callable actions (thunks) specially before they ever reach the store.
type Action any

// Reducer folds an action into one named slice of store state. It receives
// the current slice value (nil on initialization) and returns the next one.
type Reducer func(state any, action Action) any

// InitAction is dispatched once to every reducer to produce its initial
// slice.
type InitAction struct{}

// Store is the state container each provider instance owns.
type Store interface {
	// GetState returns the full state, one entry per reducer.
	GetState() map[string]any
	// Dispatch folds an action through every reducer.
	Dispatch(action Action)
	// Subscribe registers a change listener and returns its unsubscribe.
	Subscribe(listener func()) (unsubscribe func())
	// SetKey rebinds the store to a resolved provider key. onReady fires
	// once any key-dependent materialization completes.
	SetKey(key string, onReady func())
}

// Hydratable is implemented by stores that support bulk state replacement.
type Hydratable interface {
	SetState(state map[string]any)
}

// ReadyNotifier is implemented by stores whose initial state materializes
// asynchronously, e.g. through replication. The engine uses it to gate
// instance readiness.
type ReadyNotifier interface {
	// OnReady invokes cb once initial state has materialized; immediately
	// if it already has.
	OnReady(cb func())
	// Replicated reports whether initial materialization already ran.
	Replicated() bool
}
