package provider

import (
	"testing"

	"github.com/skillsenselab/statekit/errors"
	"github.com/skillsenselab/statekit/store"
	"github.com/skillsenselab/statekit/util"
)

func TestInstantiateDedup(t *testing.T) {
	built := 0
	waits := 0
	e := testEngine(WithStoreFactory(func(key string, def *Definition) store.Store {
		built++
		return store.NewMemoryStore(key, reducers("v"))
	}))
	def := register(t, e, DefinitionConfig{
		Key:      "todos",
		Reducers: reducers("v"),
		Wait:     []Hook{func() { waits++ }},
	})

	scope := NewScope()
	a, err := e.Instantiate(&Consumer{Scope: scope}, def)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	b, err := e.Instantiate(&Consumer{Scope: scope}, def)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	c, err := e.Instantiate(&Consumer{Scope: scope}, def, WithKey("todos"))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	if a != b || a != c {
		t.Error("identical (definition, key) must return the same instance")
	}
	if built != 1 {
		t.Errorf("stores built = %d, want 1", built)
	}
	if waits != 1 {
		t.Errorf("wait hooks = %d, want 1", waits)
	}
	if !a.Static() {
		t.Error("instance under the definition key must be static")
	}
}

func TestInstantiateUnregistered(t *testing.T) {
	e := testEngine()
	def := MustDefinition(DefinitionConfig{Key: "todos", Reducers: reducers("v")})
	if _, err := e.Instantiate(&Consumer{Scope: NewScope()}, def); !errors.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	e := testEngine()
	def := register(t, e, DefinitionConfig{Key: "todos", Reducers: reducers("v")})
	if err := e.Register(def); err == nil {
		t.Error("re-registering a key must fail")
	}
}

func TestDynamicKeys(t *testing.T) {
	e := testEngine()
	def := register(t, e, DefinitionConfig{Key: "todos", Reducers: reducers("v")})
	scope := NewScope()

	byUser := func(c *Consumer) string {
		return util.ComposeKey("todos", c.Props["user"].(string))
	}
	a, err := e.Instantiate(&Consumer{Scope: scope, Props: map[string]any{"user": "1"}}, def, WithKeyFunc(byUser))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	b, err := e.Instantiate(&Consumer{Scope: scope, Props: map[string]any{"user": "2"}}, def, WithKeyFunc(byUser))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	if a == b {
		t.Error("different resolved keys must yield different instances")
	}
	if a.Static() || b.Static() {
		t.Error("dynamically keyed instances are not static")
	}
	if a.ProviderKey() != "todos/1" {
		t.Errorf("provider key = %q", a.ProviderKey())
	}

	// a key function resolving to the definition key is still static
	s, err := e.Instantiate(&Consumer{Scope: scope}, def, WithKeyFunc(func(*Consumer) string { return "todos" }))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if !s.Static() {
		t.Error("resolved key equal to the definition key must mark static")
	}
}

func TestGlobalRegistry(t *testing.T) {
	e := testEngine()
	def := register(t, e, DefinitionConfig{Key: "session", Reducers: reducers("v"), Global: true})

	a, _ := e.Instantiate(&Consumer{Scope: NewScope()}, def)
	b, _ := e.Instantiate(&Consumer{Scope: NewScope()}, def)
	if a != b {
		t.Error("global definitions must share one instance across scopes")
	}
	if _, ok := e.Global().Get("session"); !ok {
		t.Error("global instance must register in the global table")
	}
}

func TestReadySequencing(t *testing.T) {
	stores := map[string]*store.MemoryStore{}
	e := testEngine(WithStoreFactory(func(key string, def *Definition) store.Store {
		ms := store.NewMemoryStore(key, reducers("v"), store.WithReplication())
		stores[key] = ms
		return ms
	}))
	def := register(t, e, handlerDef("todos", "v", &stubHandler{}))

	created := false
	inst, err := e.Instantiate(&Consumer{Scope: NewScope()}, def, WithOnReady(func() { created = true }))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if created || inst.Ready() {
		t.Fatal("readiness must be gated until replication completes")
	}

	later := false
	inst.OnReady(func() {
		later = true
		if !inst.Ready() {
			t.Error("ready callbacks must observe the ready flag set")
		}
	})

	stores["todos"].MarkReplicated()
	if !created || !later {
		t.Error("held ready callbacks must fire when replication completes")
	}

	// after readiness, OnReady fires synchronously
	post := false
	inst.OnReady(func() { post = true })
	if !post {
		t.Error("OnReady after readiness must fire immediately")
	}
}

func TestCreationClearHooks(t *testing.T) {
	var flags []bool
	stores := map[string]*store.MemoryStore{}
	e := testEngine(WithStoreFactory(func(key string, def *Definition) store.Store {
		ms := store.NewMemoryStore(key, reducers("v"), store.WithReplication())
		stores[key] = ms
		return ms
	}))
	cfg := handlerDef("todos", "v", &stubHandler{})
	cfg.Clear = []ClearHook{func(changed bool) { flags = append(flags, changed) }}
	def := register(t, e, cfg)

	inst, err := e.Instantiate(&Consumer{Scope: NewScope()}, def)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	inst.Dispatch(setAction{"v", 1})
	stores["todos"].MarkReplicated()

	if len(flags) != 1 || !flags[0] {
		t.Errorf("clear flags = %v, want one true entry (state changed before finalize)", flags)
	}
}

func TestActionCreators(t *testing.T) {
	e := testEngine()
	def := register(t, e, DefinitionConfig{
		Key:      "todos",
		Reducers: reducers("v"),
		Actions: map[string]ActionCreator{
			"set": func(args ...any) store.Action { return setAction{"v", args[0]} },
		},
	})

	inst, err := e.Instantiate(&Consumer{Scope: NewScope()}, def)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	set := inst.Action("set")
	if set == nil {
		t.Fatal("bound action creator missing")
	}
	set(7)
	if got := inst.GetState()["v"]; got != 7 {
		t.Errorf("v = %v, want 7", got)
	}
	if inst.Action("nope") != nil {
		t.Error("unknown action name must return nil")
	}
}

func TestHydrationStash(t *testing.T) {
	e := testEngine()
	def := register(t, e, DefinitionConfig{Key: "todos", Reducers: reducers("v")})

	// stashed before any instance exists, applied at creation
	e.SetStates(map[string]map[string]any{"todos": {"v": 42}})

	scope := NewScope()
	inst, err := e.Instantiate(&Consumer{Scope: scope}, def)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if got := inst.GetState()["v"]; got != 42 {
		t.Errorf("v = %v, want stashed 42", got)
	}

	// live scoped instances hydrate through the scope-bound surface
	e.API(scope).SetStates(map[string]map[string]any{"todos": {"v": 43}})
	if got := inst.GetState()["v"]; got != 43 {
		t.Errorf("v = %v, want 43", got)
	}
}

func TestStashMerges(t *testing.T) {
	e := testEngine()
	def := register(t, e, DefinitionConfig{Key: "todos", Reducers: reducers("a", "b")})

	e.SetStates(map[string]map[string]any{"todos": {"a": 1}})
	e.SetStates(map[string]map[string]any{"todos": {"b": 2}})

	inst, err := e.Instantiate(&Consumer{Scope: NewScope()}, def)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	state := inst.GetState()
	if state["a"] != 1 || state["b"] != 2 {
		t.Errorf("state = %v, want both stashed slices", state)
	}
}
