package uritemplate

// Vars holds template variable values. A variable may repeat, so each name
// maps to its values in match order.
type Vars map[string][]string

// Add appends a value for name.
func (v Vars) Add(name, value string) {
	v[name] = append(v[name], value)
}

// Get returns the first value for name or an empty string.
func (v Vars) Get(name string) string {
	if values := v[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Clone returns a deep copy.
func (v Vars) Clone() Vars {
	out := make(Vars, len(v))
	for k, values := range v {
		out[k] = append([]string(nil), values...)
	}
	return out
}

// Values returns the values of the given variables in order, skipping
// variables without a value.
func (v Vars) Values(names []string) []string {
	var out []string
	for _, name := range names {
		out = append(out, v[name]...)
	}
	return out
}
