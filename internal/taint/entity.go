package taint

// Entity is the matching surface the rule compiler's generators and
// predicates run against: a narrowed view of an IR Node/Expression exposing
// only the fields taint rules care about. Built by the caller (typically
// from ir.Expression — see entitiesFromExpressions in cmd/lci) so the compiler and
// executor packages never depend on the full IR model.
type Entity struct {
	ID       string
	Kind     string // "call", "read", "write", ...
	Call     string // callee name, e.g. "os.system"
	BaseType string // receiver type, e.g. "sqlite3.Cursor"
	Scope    string

	Args           []string
	TaintedArgs    map[int]bool // set by the interprocedural/propagation phase
	HasShellKwarg  bool         // mirrors ir.Expression.HasShellKwarg for shell=True style sinks
	Location       Location     // real file/line, carried forward into DetectedSource/Sink
}

// IsArgTainted reports whether argument i is currently marked tainted.
func (e *Entity) IsArgTainted(i int) bool {
	if e.TaintedArgs == nil {
		return false
	}
	return e.TaintedArgs[i]
}
