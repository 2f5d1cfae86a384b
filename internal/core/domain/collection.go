package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Collection is a string-keyed bag of request or response fields.
// Nested values are addressed with dotted paths ("amount.total").
type Collection map[string]any

// NewCollection copies m into a new Collection. A nil map yields an empty collection.
func NewCollection(m map[string]any) Collection {
	c := make(Collection, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Get returns the value at a dotted path.
func (c Collection) Get(path string) (any, bool) {
	if c == nil {
		return nil, false
	}
	if v, ok := c[path]; ok {
		return v, true
	}

	var cur any = map[string]any(c)
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Collection:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// String returns the value at path formatted as a string, or "" when absent or nil.
func (c Collection) String(path string) string {
	v, ok := c.Get(path)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		// JSON numbers decode as float64; keep integers free of exponent notation.
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%v", s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Has reports whether path resolves to a non-empty value.
func (c Collection) Has(path string) bool {
	return c.String(path) != ""
}

// Merge copies every key of other into c, overwriting existing keys.
func (c Collection) Merge(other map[string]any) Collection {
	for k, v := range other {
		c[k] = v
	}
	return c
}

// MergeRecursive merges other into c, descending into nested maps instead of replacing them.
func (c Collection) MergeRecursive(other map[string]any) Collection {
	for k, v := range other {
		src, srcIsMap := asMap(v)
		dst, dstIsMap := asMap(c[k])
		if srcIsMap && dstIsMap {
			c[k] = map[string]any(NewCollection(dst).MergeRecursive(src))
			continue
		}
		c[k] = v
	}
	return c
}

// Except returns a copy of c without the given keys.
func (c Collection) Except(keys ...string) Collection {
	out := c.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Clone returns a shallow copy.
func (c Collection) Clone() Collection {
	return NewCollection(c)
}

// DeepClone returns a copy that shares no maps or slices with c. Events carry deep
// clones so subscribers cannot reach into a running rocket.
func (c Collection) DeepClone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	for k, v := range c {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Collection(t).DeepClone())
	case Collection:
		return t.DeepClone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// ToJSON encodes the collection as a JSON object. An empty collection encodes as "{}".
func (c Collection) ToJSON() string {
	if len(c) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		return "{}"
	}
	return string(b)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Collection:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
