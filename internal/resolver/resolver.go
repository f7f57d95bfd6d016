package resolver

import "github.com/kraklabs/codelayer/internal/ir"

// Resolver runs the Cross-File Resolver pass over a repo-level merged
// IRDocument, and supports incremental re-resolution over a changed-file
// subset.
type Resolver struct {
	doc   *ir.IRDocument
	table *SymbolTable
	graph *DependencyGraph
}

// New runs a full resolution pass over doc: builds the global symbol
// table, resolves every IMPORTS edge, and builds the dependency graph.
func New(doc *ir.IRDocument) *Resolver {
	r := &Resolver{doc: doc, table: Build(doc)}
	ResolveImports(r.doc, r.table)
	r.graph = BuildDependencyGraph(r.doc)
	return r
}

// SymbolTable returns the resolver's global symbol table.
func (r *Resolver) SymbolTable() *SymbolTable { return r.table }

// DependencyGraph returns the resolver's file dependency graph.
func (r *Resolver) DependencyGraph() *DependencyGraph { return r.graph }

// Document returns the merged, resolved IRDocument.
func (r *Resolver) Document() *ir.IRDocument { return r.doc }

// Incremental merges freshly-built IR for a set of changed files into the
// existing unchanged IR and recomputes the symbol table, import
// resolution, and dependency graph over the resulting union. Call AffectedFiles(changedFiles) beforehand to know the full
// closure of dependents that may need re-analysis downstream — those
// files keep their existing IR here; only their resolved_* import attrs
// may change once resolution reruns over the union.
func (r *Resolver) Incremental(changedFiles []string, newDocs []*ir.IRDocument) {
	changedSet := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changedSet[f] = true
	}

	keep := r.doc.Nodes[:0:0]
	for _, n := range r.doc.Nodes {
		if !changedSet[n.FilePath] {
			keep = append(keep, n)
		}
	}
	r.doc.Nodes = keep

	keepEdges := r.doc.Edges[:0:0]
	nodeByID := make(map[string]ir.Node, len(r.doc.Nodes))
	for _, n := range r.doc.Nodes {
		nodeByID[n.ID] = n
	}
	for _, e := range r.doc.Edges {
		if _, sourceKept := nodeByID[e.SourceID]; sourceKept {
			keepEdges = append(keepEdges, e)
		}
	}
	r.doc.Edges = keepEdges

	for f := range changedSet {
		r.table.RemoveFile(f)
	}

	for _, nd := range newDocs {
		if nd == nil {
			continue
		}
		r.doc.Nodes = append(r.doc.Nodes, nd.Nodes...)
		r.doc.Edges = append(r.doc.Edges, nd.Edges...)
		r.table.Add(nd)
	}

	ResolveImports(r.doc, r.table)
	r.graph = BuildDependencyGraph(r.doc)
}

// AffectedFiles computes the same closure Incremental uses internally,
// exposed so a caller can decide what to rebuild before calling
// Incremental with the result.
func (r *Resolver) AffectedFiles(changedFiles []string) []string {
	return sortedKeys(r.graph.AffectedSet(changedFiles))
}
