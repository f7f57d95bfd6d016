package ir

import "github.com/kraklabs/codelayer/internal/ir/span"

// NodeKind enumerates the canonical node kinds. Lower-case is the single
// canonical form; every constant below is spelled in it.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeClass    NodeKind = "class"
	NodeFunction NodeKind = "function"
	NodeMethod   NodeKind = "method"
	NodeVariable NodeKind = "variable"
	NodeImport   NodeKind = "import"
)

// Node is an IR entity: a file, class, function, method, variable, or
// import. Nodes are created by a language adapter and are immutable once a
// build completes.
type Node struct {
	ID           string
	Kind         NodeKind
	FQN          string
	Name         string
	FilePath     string
	Span         span.Handle
	Language     string
	ParentID     string // empty if root
	Docstring    string
	ContentHash  string
	Attrs        Attrs
	IsExternal   bool // true for external-function stub nodes
}

// EdgeKind enumerates the canonical edge kinds.
type EdgeKind string

const (
	EdgeContains   EdgeKind = "CONTAINS"
	EdgeCalls      EdgeKind = "CALLS"
	EdgeReads      EdgeKind = "READS"
	EdgeWrites     EdgeKind = "WRITES"
	EdgeInherits   EdgeKind = "INHERITS"
	EdgeImports    EdgeKind = "IMPORTS"
	EdgeReferences EdgeKind = "REFERENCES"
	EdgeDefines    EdgeKind = "DEFINES"
)

// Edge connects two Nodes that must exist in the same snapshot (or be a
// marked-external stub).
type Edge struct {
	ID       string
	Kind     EdgeKind
	SourceID string
	TargetID string
	Span     *span.Handle // optional
	Attrs    Attrs
}

// OccurrenceRole enumerates the roles an Occurrence can carry.
type OccurrenceRole string

const (
	RoleDefinition OccurrenceRole = "DEFINITION"
	RoleReference  OccurrenceRole = "REFERENCE"
	RoleRead       OccurrenceRole = "READ"
	RoleWrite      OccurrenceRole = "WRITE"
)

// Occurrence is a concrete appearance of a symbol at a span.
type Occurrence struct {
	ID               string
	SymbolID         string
	FilePath         string
	Span             span.Handle
	Roles            map[OccurrenceRole]struct{}
	ImportanceScore  float64 // in [0,1]
}

// HasRole reports whether the occurrence carries the given role.
func (o Occurrence) HasRole(r OccurrenceRole) bool {
	_, ok := o.Roles[r]
	return ok
}
