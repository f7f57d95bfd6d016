package ir

// ValueKind discriminates the variants of Value. Attribute bags are modelled
// as a tagged-union map rather than free-form interface{} lookups, so
// callers pattern-match on Kind
// instead of type-asserting blindly.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueInt
	ValueFloat
	ValueBool
	ValueStringList
	ValueStringMap
)

// Value is a sum type over the scalar/list/map shapes attrs can hold.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	List []string
	Map  map[string]string
}

func String(s string) Value                  { return Value{Kind: ValueString, Str: s} }
func Int(i int64) Value                      { return Value{Kind: ValueInt, Int: i} }
func Float(f float64) Value                  { return Value{Kind: ValueFloat, Flt: f} }
func Bool(b bool) Value                      { return Value{Kind: ValueBool, Bool: b} }
func StringList(v []string) Value            { return Value{Kind: ValueStringList, List: v} }
func StringMap(v map[string]string) Value    { return Value{Kind: ValueStringMap, Map: v} }

// Attrs is the free-form key/value bag attached to Nodes, Edges, and
// Expressions. On Expressions, security-relevant shortcuts are first-class
// fields (see Expression.HasShellKwarg); the adapters' CALLS edges carry
// them in this map (has_shell_kwarg, shell_value).
type Attrs map[string]Value

// GetString returns the string content of key, or "" with ok=false if the
// key is absent or not a string.
func (a Attrs) GetString(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v.Kind != ValueString {
		return "", false
	}
	return v.Str, true
}

// GetBool returns the bool content of key, defaulting to false.
func (a Attrs) GetBool(key string) bool {
	v, ok := a[key]
	if !ok || v.Kind != ValueBool {
		return false
	}
	return v.Bool
}

// GetStringList returns the list content of key, or nil.
func (a Attrs) GetStringList(key string) []string {
	v, ok := a[key]
	if !ok || v.Kind != ValueStringList {
		return nil
	}
	return v.List
}

// GetStringMap returns the map content of key, or nil.
func (a Attrs) GetStringMap(key string) map[string]string {
	v, ok := a[key]
	if !ok || v.Kind != ValueStringMap {
		return nil
	}
	return v.Map
}

// Clone returns a deep copy of Attrs so callers can mutate without aliasing
// the original IR structure (Nodes/Edges are immutable after build).
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		switch v.Kind {
		case ValueStringList:
			list := make([]string, len(v.List))
			copy(list, v.List)
			v.List = list
		case ValueStringMap:
			m := make(map[string]string, len(v.Map))
			for mk, mv := range v.Map {
				m[mk] = mv
			}
			v.Map = m
		}
		out[k] = v
	}
	return out
}
