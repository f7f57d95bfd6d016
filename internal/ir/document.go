package ir

import "sort"

// DocumentMeta carries free-form per-document metadata (package name, etc).
type DocumentMeta map[string]string

// IRDocument is one per file (or per repo for cross-file views). It is
// produced by a build pipeline, cached, and merged into repo-level views.
type IRDocument struct {
	RepoID     string
	SnapshotID string

	Nodes       []Node
	Edges       []Edge
	Occurrences []Occurrence

	CFGBlocks []ControlFlowBlock
	CFGEdges  []ControlFlowEdge
	BFGGraphs []BasicFlowGraph

	Expressions   []Expression
	TypeEntities  []TypeEntity
	IDFGEdges     []InterproceduralDataFlowEdge

	// DFG/SSA graphs keyed by function FQN.
	DFGGraphs map[string]DFGGraph
	SSAGraphs map[string]SSAGraph

	Meta DocumentMeta
}

// DFGGraph is the per-function data-flow graph: def/use edges between
// VariableEntities.
type DFGGraph struct {
	FunctionFQN string
	Variables   []VariableEntity
	DefUseEdges []DefUseEdge
}

// DefUseEdge connects a defining VariableEntity to a using one.
type DefUseEdge struct {
	DefVarID string
	UseVarID string
}

// SSAGraph is the per-function SSA form summary: variable and phi counts.
type SSAGraph struct {
	FunctionFQN  string
	VariableCount int
	PhiCount      int
}

// NewIRDocument returns an empty document for (repoID, snapshotID). An
// empty document's estimated size is 2000.
func NewIRDocument(repoID, snapshotID string) *IRDocument {
	return &IRDocument{
		RepoID:     repoID,
		SnapshotID: snapshotID,
		DFGGraphs:  make(map[string]DFGGraph),
		SSAGraphs:  make(map[string]SSAGraph),
		Meta:       make(DocumentMeta),
	}
}

// EstimatedSize is the sizing function the memory cache uses for
// eviction decisions:
//
//	2000 + 200*|nodes| + 100*|edges| + 50*|occurrences| + other-IR-sizes
//
// "other-IR-sizes" charges a flat per-entry byte cost to every remaining IR
// collection so that documents rich in CFG/expression/type data are not
// under-priced relative to their real memory footprint.
func (d *IRDocument) EstimatedSize() int {
	const (
		base            = 2000
		perNode         = 200
		perEdge         = 100
		perOccurrence   = 50
		perOtherEntry   = 40
	)
	size := base + perNode*len(d.Nodes) + perEdge*len(d.Edges) + perOccurrence*len(d.Occurrences)
	other := len(d.CFGBlocks) + len(d.CFGEdges) + len(d.BFGGraphs) +
		len(d.Expressions) + len(d.TypeEntities) + len(d.IDFGEdges) +
		len(d.DFGGraphs) + len(d.SSAGraphs)
	size += perOtherEntry * other
	return size
}

// SortByID sorts every ID-bearing collection by ID so that re-running the
// pipeline on identical input produces a bit-identical serialization.
// CFG edges, which carry no ID, are sorted by the composite key (source
// block, target block). DFGGraphs and SSAGraphs are maps and are left as
// they are.
func (d *IRDocument) SortByID() {
	sort.Slice(d.Nodes, func(i, j int) bool { return d.Nodes[i].ID < d.Nodes[j].ID })
	sort.Slice(d.Edges, func(i, j int) bool { return d.Edges[i].ID < d.Edges[j].ID })
	sort.Slice(d.Occurrences, func(i, j int) bool { return d.Occurrences[i].ID < d.Occurrences[j].ID })
	sort.Slice(d.CFGBlocks, func(i, j int) bool { return d.CFGBlocks[i].ID < d.CFGBlocks[j].ID })
	sort.Slice(d.CFGEdges, func(i, j int) bool {
		a, b := d.CFGEdges[i], d.CFGEdges[j]
		if a.SourceBlockID != b.SourceBlockID {
			return a.SourceBlockID < b.SourceBlockID
		}
		return a.TargetBlockID < b.TargetBlockID
	})
	sort.Slice(d.BFGGraphs, func(i, j int) bool { return d.BFGGraphs[i].ID < d.BFGGraphs[j].ID })
	sort.Slice(d.Expressions, func(i, j int) bool { return d.Expressions[i].ID < d.Expressions[j].ID })
	sort.Slice(d.TypeEntities, func(i, j int) bool { return d.TypeEntities[i].ID < d.TypeEntities[j].ID })
	sort.Slice(d.IDFGEdges, func(i, j int) bool { return d.IDFGEdges[i].ID < d.IDFGEdges[j].ID })
}

// NodeByID performs a linear scan; callers needing repeated lookups should
// build an index (see internal/resolver for the global symbol table).
func (d *IRDocument) NodeByID(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Validate checks the document's structural invariants:
//   - every edge endpoint references a node in this document, or an external stub
//   - CONTAINS edges form a forest (no cycles)
//   - every CFG block's function_node_id references an existing node
//   - every BFG's entry/exit block IDs are members of its own blocks
func (d *IRDocument) Validate() []error {
	var errs []error
	nodeIDs := make(map[string]Node, len(d.Nodes))
	for _, n := range d.Nodes {
		nodeIDs[n.ID] = n
	}

	// A node present in nodeIDs satisfies "in this document, or an external
	// stub" either way: stub nodes are ordinary Nodes with IsExternal set,
	// already part of d.Nodes, so no separate stub lookup is needed.
	for _, e := range d.Edges {
		if _, ok := nodeIDs[e.SourceID]; !ok {
			errs = append(errs, &SchemaError{Field: "Edge.SourceID", Detail: e.SourceID + " not found in snapshot"})
		}
		if _, ok := nodeIDs[e.TargetID]; !ok {
			errs = append(errs, &SchemaError{Field: "Edge.TargetID", Detail: e.TargetID + " not found in snapshot"})
		}
	}

	if cyc := findContainsCycle(d.Edges); cyc != "" {
		errs = append(errs, &SchemaError{Field: "CONTAINS", Detail: "cycle detected at " + cyc})
	}

	for _, b := range d.CFGBlocks {
		if _, ok := nodeIDs[b.FunctionNodeID]; !ok {
			errs = append(errs, &SchemaError{Field: "ControlFlowBlock.FunctionNodeID", Detail: b.FunctionNodeID + " not found"})
		}
	}

	for _, g := range d.BFGGraphs {
		if !g.HasBlock(g.EntryBlockID) {
			errs = append(errs, &SchemaError{Field: "BasicFlowGraph.EntryBlockID", Detail: g.ID + " entry not a member"})
		}
		if !g.HasBlock(g.ExitBlockID) {
			errs = append(errs, &SchemaError{Field: "BasicFlowGraph.ExitBlockID", Detail: g.ID + " exit not a member"})
		}
	}

	return errs
}

func findContainsCycle(edges []Edge) string {
	children := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == EdgeContains {
			children[e.SourceID] = append(children[e.SourceID], e.TargetID)
		}
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var dfs func(n string) string
	dfs = func(n string) string {
		color[n] = gray
		for _, c := range children[n] {
			switch color[c] {
			case gray:
				return c
			case white:
				if cyc := dfs(c); cyc != "" {
					return cyc
				}
			}
		}
		color[n] = black
		return ""
	}
	for n := range children {
		if color[n] == white {
			if cyc := dfs(n); cyc != "" {
				return cyc
			}
		}
	}
	return ""
}

// SchemaError reports a Node/Edge missing a required field or referencing a
// nonexistent entity during validation.
type SchemaError struct {
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	return "schema error: " + e.Field + ": " + e.Detail
}
