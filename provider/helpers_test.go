package provider

import (
	"testing"

	"github.com/skillsenselab/statekit/logger"
	"github.com/skillsenselab/statekit/store"
)

// setAction replaces one named state slice.
type setAction struct {
	slice string
	value any
}

// sliceReducer keeps a single slice that setAction replaces.
func sliceReducer(name string, initial any) store.Reducer {
	return func(state any, action store.Action) any {
		if _, ok := action.(store.InitAction); ok {
			return initial
		}
		if set, ok := action.(setAction); ok && set.slice == name {
			return set.value
		}
		return state
	}
}

func reducers(names ...string) map[string]store.Reducer {
	out := make(map[string]store.Reducer, len(names))
	for _, name := range names {
		out[name] = sliceReducer(name, nil)
	}
	return out
}

// stubHandler records invocations and resolves synchronously unless async.
type stubHandler struct {
	calls   int
	queries []any
	opts    []QueryOptions
	result  any
	async   bool
	pending []func(any)
}

func (h *stubHandler) HandleQuery(query any, options QueryOptions, onResult func(value any)) {
	h.calls++
	h.queries = append(h.queries, query)
	h.opts = append(h.opts, options)
	if h.async {
		h.pending = append(h.pending, onResult)
		return
	}
	onResult(h.result)
}

// resolve completes every held invocation with value.
func (h *stubHandler) resolve(value any) {
	cbs := h.pending
	h.pending = nil
	for _, cb := range cbs {
		cb(value)
	}
}

func testEngine(opts ...Option) *Engine {
	return New(append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func register(t *testing.T, e *Engine, cfg DefinitionConfig) *Definition {
	t.Helper()
	def := MustDefinition(cfg)
	if err := e.Register(def); err != nil {
		t.Fatalf("Register(%s): %v", cfg.Key, err)
	}
	return def
}

// handlerDef is a minimal definition with one reducer and one replicator.
func handlerDef(key, reducer string, h QueryHandler) DefinitionConfig {
	return DefinitionConfig{
		Key:         key,
		Reducers:    reducers(reducer),
		Replication: []ReplicationNode{{Replicators: []Replicator{h}}},
	}
}
