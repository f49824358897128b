package auditor

// RemoveSensitive drops every key listed in keys from v, recursing into
// nested objects and arrays. Values that are not maps or slices pass through
// unchanged. The input is not modified.
func RemoveSensitive(v any, keys []string) any {
	if len(keys) == 0 {
		return v
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	return removeKeys(v, drop)
}

func removeKeys(v any, drop map[string]struct{}) any {
	switch t := v.(type) {
	case Record:
		return Record(removeFromMap(t, drop))
	case map[string]any:
		return removeFromMap(t, drop)
	case map[string][]string:
		out := make(map[string][]string, len(t))
		for k, vals := range t {
			if _, ok := drop[k]; ok {
				continue
			}
			out[k] = vals
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = removeKeys(e, drop)
		}
		return out
	}
	return v
}

func removeFromMap(m map[string]any, drop map[string]struct{}) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, ok := drop[k]; ok {
			continue
		}
		out[k] = removeKeys(v, drop)
	}
	return out
}

// FillMissing replaces nil values with sentinel: directly in m, recursively
// in nested maps, and element-wise in slices. m is modified in place and
// returned.
func FillMissing[M ~map[string]any](m M, sentinel any) M {
	for k, v := range m {
		m[k] = fillValue(v, sentinel)
	}
	return m
}

func fillValue(v any, sentinel any) any {
	switch t := v.(type) {
	case nil:
		return sentinel
	case Record:
		return FillMissing(t, sentinel)
	case map[string]any:
		return FillMissing(t, sentinel)
	case []any:
		for i, e := range t {
			if e == nil {
				t[i] = sentinel
			}
		}
		return t
	}
	return v
}
