// Package resolver runs after per-file build, never interleaved with it:
// it owns the global symbol table, import resolution, the file dependency
// graph (and its reverse), topological ordering via Kahn's algorithm, and
// incremental re-resolution over a changed-file set. Lookup strategies are
// heuristic and regex-free: suffix matching, progressive shortening of
// dotted names, then fallback candidate paths.
package resolver

import "github.com/kraklabs/codelayer/internal/ir"

// SymbolEntry is one row of the global symbol table: the Node an FQN
// resolves to, plus the file it lives in for quick dependency-graph lookup.
type SymbolEntry struct {
	Node     ir.Node
	FilePath string
}

// SymbolTable maps fqn -> SymbolEntry for every non-import Node with a
// non-empty FQN (an import Node's FQN is the name it imports, so it is
// left out rather than shadowing the definition), and separately tracks the set of known file paths in the corpus (used by
// the common-module-path fallback in import resolution).
type SymbolTable struct {
	byFQN map[string]SymbolEntry
	files map[string]bool
}

// Build constructs the global symbol table over every non-import Node in
// doc with a non-empty FQN.
func Build(doc *ir.IRDocument) *SymbolTable {
	st := &SymbolTable{
		byFQN: make(map[string]SymbolEntry),
		files: make(map[string]bool),
	}
	st.Add(doc)
	return st
}

// Add merges doc's nodes into the table, used both for the initial build
// and to fold newly-built documents into an existing table during
// incremental re-resolution.
func (st *SymbolTable) Add(doc *ir.IRDocument) {
	for _, n := range doc.Nodes {
		st.files[n.FilePath] = true
		if n.FQN == "" || n.Kind == ir.NodeImport {
			continue
		}
		st.byFQN[n.FQN] = SymbolEntry{Node: n, FilePath: n.FilePath}
	}
}

// RemoveFile drops every symbol table entry whose FilePath equals path,
// used by incremental re-resolution to evict stale entries for a changed
// file before re-adding its freshly-built IR.
func (st *SymbolTable) RemoveFile(path string) {
	delete(st.files, path)
	for fqn, entry := range st.byFQN {
		if entry.FilePath == path {
			delete(st.byFQN, fqn)
		}
	}
}

// Lookup returns the symbol table entry for an exact fqn match.
func (st *SymbolTable) Lookup(fqn string) (SymbolEntry, bool) {
	e, ok := st.byFQN[fqn]
	return e, ok
}

// HasFile reports whether path is a known file in the corpus.
func (st *SymbolTable) HasFile(path string) bool {
	return st.files[path]
}

// Files returns every known file path, in no particular order.
func (st *SymbolTable) Files() []string {
	out := make([]string, 0, len(st.files))
	for f := range st.files {
		out = append(out, f)
	}
	return out
}
