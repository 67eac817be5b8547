package util

import "reflect"

// ShallowEqual reports whether two result values are equal one level deep.
// Maps and slices of any are compared by length and element identity;
// everything else is compared directly. Nested containers are compared by
// reference, not recursively.
func ShallowEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, present := bv[k]
			if !present || !sameValue(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !sameValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return sameValue(a, b)
	}
}

// sameValue compares two values without panicking on uncomparable types.
// Uncomparable kinds (maps, slices, funcs) fall back to reference identity.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return ra.UnsafePointer() == rb.UnsafePointer()
	}
	return a == b
}
