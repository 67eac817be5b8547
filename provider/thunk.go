package provider

import (
	"github.com/skillsenselab/statekit/store"
	"github.com/skillsenselab/statekit/util"
)

// Thunk is a callable action. Dispatching one never reaches the reducers;
// the interceptor runs it with the raw dispatch, the state getter and the
// cross-provider API instead.
type Thunk func(dispatch func(store.Action), getState func() map[string]any, api *API)

// interceptedStore wraps an instance's collaborator store so thunks are
// handled before actions reach it. Installed once per instance at
// creation; the definition-level idempotency flag is set at registration.
type interceptedStore struct {
	store.Store
	def    *Definition
	engine *Engine
	scope  *Scope
}

// Dispatch forwards plain actions to the underlying store. A Thunk runs
// between the definition's wait and clear hooks; the clear hooks receive
// whether the thunk changed state.
func (s *interceptedStore) Dispatch(action store.Action) {
	th, ok := action.(Thunk)
	if !ok {
		s.Store.Dispatch(action)
		return
	}

	s.def.runWait()
	before := s.Store.GetState()
	th(s.Store.Dispatch, s.Store.GetState, s.engine.API(s.scope))
	changed := !util.ShallowEqual(s.Store.GetState(), before)
	s.def.runClear(changed)
}
