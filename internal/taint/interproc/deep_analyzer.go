package interproc

import (
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/kraklabs/codelayer/internal/ports"
)

// globalScope is the fallback selector scope when a FlowExpr gives none
//.
const globalScope = "<global>"

// ProjectContext is the project-scoped state a DeepAnalyzer needs: the IR
// document to traverse and an index of nodes/expressions by ID for
// file_path/span lookups. A nil ProjectContext is rejected outright
// instead of producing a silent empty result.
type ProjectContext struct {
	Doc *ir.IRDocument

	nodeByID map[string]ir.Node
	exprByID map[string]ir.Expression
}

// NewProjectContext indexes a document's nodes and expressions once, so
// repeated PathResult translation doesn't re-scan the document.
func NewProjectContext(doc *ir.IRDocument) *ProjectContext {
	pc := &ProjectContext{
		Doc:      doc,
		nodeByID: make(map[string]ir.Node),
		exprByID: make(map[string]ir.Expression),
	}
	if doc == nil {
		return pc
	}
	for _, n := range doc.Nodes {
		pc.nodeByID[n.ID] = n
	}
	for _, e := range doc.Expressions {
		pc.exprByID[e.ID] = e
	}
	return pc
}

// Selector scopes a set of variable names to a function FQN ("" meaning
// unscoped, normalized to globalScope).
type Selector struct {
	Scope    string
	VarNames []string
}

// FlowExpr names the sources and sinks a taint-flow query looks for, each as
// a list of selectors the DeepAnalyzer normalizes into a per-function dict
//.
type FlowExpr struct {
	Sources []Selector
	Sinks   []Selector
}

// normalize converts a selector list into the per-function fqn -> var_names
// shape the core taint propagation expects, folding unscoped selectors into
// globalScope.
func normalize(selectors []Selector) map[string][]string {
	out := make(map[string][]string)
	for _, s := range selectors {
		scope := s.Scope
		if scope == "" {
			scope = globalScope
		}
		out[scope] = append(out[scope], s.VarNames...)
	}
	return out
}

// PathResult is a TaintFlow translated into real source locations: every
// node carries its actual file_path/span looked up from the project's node
// map, never synthesized by parsing the ID string.
type PathResult struct {
	Nodes        []PathNode
	HasSanitizer bool
	Confidence   float64
}

// PathNode is one hop of a PathResult with its resolved location.
type PathNode struct {
	ID       string
	FilePath string
	Span     span.Span
}

// DeepAnalyzer composes a ContextManager and AliasAnalyzer with the core
// taint vocabulary to answer interprocedural taint-flow queries. It does
// not extend either collaborator — it holds references to
// both and to the alias/context state built for one project.
type DeepAnalyzer struct {
	Contexts *ContextManager
	Aliases  *AliasAnalyzer
}

// NewDeepAnalyzer builds a DeepAnalyzer over a document, with k-CFA depth k
// (DefaultKLimit if k <= 0).
func NewDeepAnalyzer(doc *ir.IRDocument, k int) *DeepAnalyzer {
	return &DeepAnalyzer{
		Contexts: NewContextManager(k),
		Aliases:  BuildFromIR(doc),
	}
}

// Analyze finds interprocedural taint flows from FlowExpr's sources to its
// sinks across CALL_ARG/RETURN/COLLECTION_* edges, respecting k-CFA call
// contexts and alias expansion.
func (da *DeepAnalyzer) Analyze(pc *ProjectContext, fe FlowExpr) ([]PathResult, error) {
	if pc == nil {
		return nil, ports.NewValidationError("project_context", "missing project context: DeepAnalyzer requires an indexed project to run")
	}
	if pc.Doc == nil {
		return nil, ports.NewValidationError("project_context", "missing project context: project context has no document")
	}

	sources := normalize(fe.Sources)
	sinks := normalize(fe.Sinks)

	sourceVarIDs := da.resolveVarIDs(pc, sources)
	sinkVarIDs := da.resolveVarIDs(pc, sinks)
	if len(sourceVarIDs) == 0 || len(sinkVarIDs) == 0 {
		return nil, nil
	}

	sinkSet := make(map[string]bool, len(sinkVarIDs))
	for _, id := range sinkVarIDs {
		sinkSet[id] = true
	}

	adj := buildAdjacency(pc.Doc)

	var results []PathResult
	for _, src := range sourceVarIDs {
		flows := da.walk(src, sinkSet, adj)
		for _, flow := range flows {
			results = append(results, da.translate(pc, flow))
		}
	}
	return results, nil
}

// resolveVarIDs maps a per-function var_name selector map onto concrete
// VariableEntity IDs using the document's DFG graphs, matching unscoped
// (globalScope) selectors against every function.
func (da *DeepAnalyzer) resolveVarIDs(pc *ProjectContext, selectors map[string][]string) []string {
	var out []string
	for fqn, names := range selectors {
		nameSet := make(map[string]bool, len(names))
		for _, n := range names {
			nameSet[n] = true
		}
		for graphFQN, graph := range pc.Doc.DFGGraphs {
			if fqn != globalScope && fqn != graphFQN {
				continue
			}
			for _, v := range graph.Variables {
				if nameSet[v.Name] {
					out = append(out, v.ID)
				}
			}
		}
	}
	return out
}

// buildAdjacency indexes IDFG edges by their source variable for forward
// traversal.
func buildAdjacency(doc *ir.IRDocument) map[string][]ir.InterproceduralDataFlowEdge {
	adj := make(map[string][]ir.InterproceduralDataFlowEdge)
	for _, e := range doc.IDFGEdges {
		adj[e.FromVarID] = append(adj[e.FromVarID], e)
	}
	return adj
}

// rawFlow is an internal walk result before location translation.
type rawFlow struct {
	varPath  []string
	mayAlias bool
}

// walk performs a bounded DFS from a source variable to any sink variable
// (or an alias of one), following IDFG edges and pushing call contexts for
// CALL_ARG/RETURN hops. Visited (varID, contextKey) pairs are tracked to
// guarantee termination on cyclic call graphs.
func (da *DeepAnalyzer) walk(src string, sinkSet map[string]bool, adj map[string][]ir.InterproceduralDataFlowEdge) []rawFlow {
	const maxDepth = 64
	var results []rawFlow

	type frame struct {
		varID    string
		ctx      Context
		path     []string
		mayAlias bool
	}

	visited := make(map[string]bool)
	stack := []frame{{varID: src, ctx: RootContext, path: []string{src}}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(f.path) > maxDepth {
			continue
		}

		if sinkSet[f.varID] || da.aliasesAnySink(f.varID, sinkSet) {
			results = append(results, rawFlow{varPath: f.path, mayAlias: f.mayAlias || !sinkSet[f.varID]})
			continue
		}

		visitKey := f.varID + "\x1f" + f.ctx.Key()
		if visited[visitKey] {
			continue
		}
		visited[visitKey] = true

		for _, e := range adj[f.varID] {
			nextCtx := f.ctx
			if e.CallSiteID != "" && (e.Kind == ir.IDFGCallArg || e.Kind == ir.IDFGReturn) {
				nextCtx = da.Contexts.PushCall(f.ctx, e.CallSiteID)
			}
			nextPath := append(append([]string{}, f.path...), e.ToVarID)
			stack = append(stack, frame{
				varID:    e.ToVarID,
				ctx:      nextCtx,
				path:     nextPath,
				mayAlias: f.mayAlias,
			})
		}

		// Alias expansion: a may-alias of the current variable continues the
		// flow with confidence already marked as alias-derived.
		may, _ := da.Aliases.AliasesOf(f.varID)
		for _, aliasID := range may {
			visitKey := aliasID + "\x1f" + f.ctx.Key()
			if visited[visitKey] {
				continue
			}
			nextPath := append(append([]string{}, f.path...), aliasID)
			stack = append(stack, frame{
				varID:    aliasID,
				ctx:      f.ctx,
				path:     nextPath,
				mayAlias: true,
			})
		}
	}

	return results
}

func (da *DeepAnalyzer) aliasesAnySink(varID string, sinkSet map[string]bool) bool {
	may, _ := da.Aliases.AliasesOf(varID)
	for _, a := range may {
		if sinkSet[a] {
			return true
		}
	}
	return false
}

// translate converts a rawFlow into a PathResult, looking up each hop's real
// file_path/span from the project's expression/node index (never by parsing
// the variable ID itself).
func (da *DeepAnalyzer) translate(pc *ProjectContext, flow rawFlow) PathResult {
	nodes := make([]PathNode, 0, len(flow.varPath))
	for _, varID := range flow.varPath {
		nodes = append(nodes, da.locate(pc, varID))
	}

	confidence := 1.0
	decay := 0.85
	for i := 1; i < len(nodes); i++ {
		confidence *= decay
	}
	if flow.mayAlias {
		confidence *= 0.6
	}

	return PathResult{
		Nodes:        nodes,
		HasSanitizer: false,
		Confidence:   clamp01(confidence),
	}
}

// locate resolves a variable ID to a real file_path/span. Variable IDs are
// opaque handles here; the lookup goes through the expression index (a
// variable's defining expression carries the authoritative location) and
// falls back to the node index for node-shaped IDs.
func (da *DeepAnalyzer) locate(pc *ProjectContext, varID string) PathNode {
	for _, e := range pc.exprByID {
		if e.DefinesVar == varID {
			return PathNode{ID: varID, FilePath: e.FilePath, Span: e.Span.Span}
		}
	}
	if n, ok := pc.nodeByID[varID]; ok {
		return PathNode{ID: varID, FilePath: n.FilePath, Span: n.Span.Span}
	}
	return PathNode{ID: varID}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
