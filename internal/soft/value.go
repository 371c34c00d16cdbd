package soft

// Value holds one attribute value in either scalar or list form. An
// attribute starts scalar and is promoted to a list the second time the
// same name appears on an entity; the promotion is one-way, so callers
// can rely on IsList without re-inspecting at every use site.
type Value struct {
	vals []string
	list bool
}

// Scalar returns a Value holding a single string.
func Scalar(s string) Value {
	return Value{vals: []string{s}}
}

// List returns a Value holding an ordered list of strings.
func List(vals ...string) Value {
	return Value{vals: vals, list: true}
}

// IsList reports whether the value was promoted to list form.
func (v Value) IsList() bool {
	return v.list
}

// First returns the scalar value, or the first element of a list.
// Returns "" for a zero Value.
func (v Value) First() string {
	if len(v.vals) == 0 {
		return ""
	}
	return v.vals[0]
}

// Strings returns all values in encounter order. A scalar yields a
// single-element slice.
func (v Value) Strings() []string {
	out := make([]string, len(v.vals))
	copy(out, v.vals)
	return out
}

// Len returns the number of stored values.
func (v Value) Len() int {
	return len(v.vals)
}

// append adds another occurrence, promoting a scalar to a list.
func (v Value) append(s string) Value {
	return Value{vals: append(v.vals, s), list: true}
}
