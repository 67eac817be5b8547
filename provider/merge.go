package provider

// mergeResults reduces per-provider results into one value, in resolved
// order. Arrays concatenate onto an array accumulator, objects
// shallow-merge onto an object accumulator, and a scalar only replaces a
// non-container accumulator, so a container survives a trailing scalar.
func mergeResults(values []any) any {
	var acc any
	for _, v := range values {
		acc = mergeValue(acc, v)
	}
	return acc
}

func mergeValue(acc, v any) any {
	switch next := v.(type) {
	case []any:
		if prev, ok := acc.([]any); ok {
			return append(append([]any(nil), prev...), next...)
		}
		return append([]any(nil), next...)
	case map[string]any:
		out := make(map[string]any)
		if prev, ok := acc.(map[string]any); ok {
			for k, val := range prev {
				out[k] = val
			}
		}
		for k, val := range next {
			out[k] = val
		}
		return out
	default:
		switch acc.(type) {
		case []any, map[string]any:
			return acc
		}
		return v
	}
}
