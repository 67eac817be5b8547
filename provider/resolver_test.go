package provider

import (
	"testing"

	"github.com/skillsenselab/statekit/errors"
)

func TestFlatQueryFanOut(t *testing.T) {
	e := testEngine()
	register(t, e, DefinitionConfig{Key: "A", Reducers: reducers("x")})
	register(t, e, DefinitionConfig{Key: "B", Reducers: reducers("y")})
	register(t, e, DefinitionConfig{Key: "C", Reducers: reducers("z")})

	c := &Consumer{Scope: NewScope(), Query: map[string]any{"x": 1, "y": 2}}
	sub, order, err := e.resolveQueries(c)
	if err != nil {
		t.Fatalf("resolveQueries: %v", err)
	}

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("order = %v, want [A B]", order)
	}
	a := sub["A"].(map[string]any)
	if len(a) != 1 || a["x"] != 1 {
		t.Errorf("A sub-query = %v, want {x:1}", a)
	}
	b := sub["B"].(map[string]any)
	if len(b) != 1 || b["y"] != 2 {
		t.Errorf("B sub-query = %v, want {y:2}", b)
	}
	if _, ok := sub["C"]; ok {
		t.Error("C has no overlapping reducer keys and must not be relevant")
	}

	// relevant providers are instantiated eagerly
	rel := c.Relevant()
	if rel["A"] == nil || rel["B"] == nil {
		t.Error("relevant providers must be instantiated during resolution")
	}
}

func TestExplicitQueriesKeepRegistrationOrder(t *testing.T) {
	e := testEngine()
	register(t, e, DefinitionConfig{Key: "A", Reducers: reducers("x")})
	register(t, e, DefinitionConfig{Key: "B", Reducers: reducers("y")})

	evals := 0
	c := &Consumer{
		Scope: NewScope(),
		Queries: map[string]any{
			"B": map[string]any{"q": 1},
			"A": QueryFunc(func(*Consumer) map[string]any {
				evals++
				return map[string]any{"dynamic": true}
			}),
		},
	}
	sub, order, err := e.resolveQueries(c)
	if err != nil {
		t.Fatalf("resolveQueries: %v", err)
	}

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("order = %v, want registration order [A B]", order)
	}
	if sub["A"].(map[string]any)["dynamic"] != true {
		t.Error("function-valued sub-query must be evaluated")
	}
	if evals != 1 {
		t.Errorf("query function evaluated %d times, want 1", evals)
	}
}

func TestFlatFieldsMergeIntoExplicitEntry(t *testing.T) {
	e := testEngine()
	register(t, e, DefinitionConfig{Key: "A", Reducers: reducers("x")})

	c := &Consumer{
		Scope:   NewScope(),
		Query:   map[string]any{"x": 5},
		Queries: map[string]any{"A": map[string]any{"a": 1}},
	}
	sub, _, err := e.resolveQueries(c)
	if err != nil {
		t.Fatalf("resolveQueries: %v", err)
	}
	a := sub["A"].(map[string]any)
	if a["a"] != 1 || a["x"] != 5 {
		t.Errorf("A sub-query = %v, want {a:1 x:5}", a)
	}
	// the explicit entry the caller supplied must stay untouched
	if len(c.Queries["A"].(map[string]any)) != 1 {
		t.Error("merging must copy, not mutate, the caller's queries object")
	}
}

func TestFlatQueryFuncMemoized(t *testing.T) {
	e := testEngine()
	register(t, e, DefinitionConfig{Key: "A", Reducers: reducers("x")})

	evals := 0
	c := &Consumer{Scope: NewScope(), QueryFunc: func(*Consumer) map[string]any {
		evals++
		return map[string]any{"x": 1}
	}}
	if _, _, err := e.resolveQueries(c); err != nil {
		t.Fatalf("resolveQueries: %v", err)
	}
	if _, _, err := e.resolveQueries(c); err != nil {
		t.Fatalf("resolveQueries: %v", err)
	}
	if evals != 1 {
		t.Errorf("flat query function evaluated %d times, want 1", evals)
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	e := testEngine()
	c := &Consumer{Scope: NewScope(), Queries: map[string]any{"ghost": map[string]any{}}}
	if _, _, err := e.resolveQueries(c); !errors.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestEmptyResolutionClearsStaleResults(t *testing.T) {
	e := testEngine()
	register(t, e, DefinitionConfig{Key: "A", Reducers: reducers("x")})

	c := &Consumer{Scope: NewScope(), Query: map[string]any{"unrelated": 1}}
	c.results = map[string]any{"A": "stale"}
	c.result = "stale"

	if _, order, err := e.resolveQueries(c); err != nil || len(order) != 0 {
		t.Fatalf("order = %v, err = %v, want empty resolution", order, err)
	}
	if c.result != nil || c.results != nil {
		t.Error("empty resolution must clear previous results")
	}
}
