package provider

import "testing"

func TestMergeResults(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		check  func(t *testing.T, got any)
	}{
		{
			name:   "scalars keep the last",
			values: []any{1, 2, 3},
			check: func(t *testing.T, got any) {
				if got != 3 {
					t.Errorf("got %v, want 3", got)
				}
			},
		},
		{
			name:   "arrays concatenate in order",
			values: []any{[]any{1}, []any{2, 3}},
			check: func(t *testing.T, got any) {
				arr := got.([]any)
				if len(arr) != 3 || arr[0] != 1 || arr[2] != 3 {
					t.Errorf("got %v, want [1 2 3]", arr)
				}
			},
		},
		{
			name:   "objects shallow-merge with later keys winning",
			values: []any{map[string]any{"a": 1, "b": 1}, map[string]any{"b": 2}},
			check: func(t *testing.T, got any) {
				m := got.(map[string]any)
				if m["a"] != 1 || m["b"] != 2 {
					t.Errorf("got %v, want {a:1 b:2}", m)
				}
			},
		},
		{
			name:   "container survives a trailing scalar",
			values: []any{map[string]any{"y": 9}, 5},
			check: func(t *testing.T, got any) {
				m, ok := got.(map[string]any)
				if !ok || m["y"] != 9 {
					t.Errorf("got %v, want {y:9}", got)
				}
			},
		},
		{
			name:   "scalar then container yields the container",
			values: []any{5, map[string]any{"y": 9}},
			check: func(t *testing.T, got any) {
				m, ok := got.(map[string]any)
				if !ok || m["y"] != 9 {
					t.Errorf("got %v, want {y:9}", got)
				}
			},
		},
		{
			name:   "array survives a trailing scalar",
			values: []any{[]any{1}, 7},
			check: func(t *testing.T, got any) {
				arr, ok := got.([]any)
				if !ok || len(arr) != 1 || arr[0] != 1 {
					t.Errorf("got %v, want [1]", got)
				}
			},
		},
		{
			name:   "empty input merges to nil",
			values: nil,
			check: func(t *testing.T, got any) {
				if got != nil {
					t.Errorf("got %v, want nil", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, mergeResults(tt.values))
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	first := map[string]any{"a": 1}
	second := map[string]any{"b": 2}
	mergeResults([]any{first, second})
	if len(first) != 1 || len(second) != 1 {
		t.Error("merge must build a fresh container")
	}
}
