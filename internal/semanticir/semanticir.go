// Package semanticir consumes a per-file IRDocument (already populated with structural
// Nodes/Edges by a Language Adapter, internal/adapter) together with the
// same parsed syntax tree, and derives CFG blocks, a BasicFlowGraph,
// Expression IR, TypeEntities, DFG edges and an SSA summary per function.
// One builder method per language; the CFG edges it emits are the same
// shape internal/cost's nesting BFS walks.
package semanticir

import (
	"fmt"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/ids"
	"github.com/kraklabs/codelayer/internal/ir/span"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Builder derives the higher-level IR layers for one file, sharing the
// Span Pool with the Language Adapter that produced doc's structural IR.
// Expression and block-ID counters are per-Builder-instance and reset at
// session start.
type Builder struct {
	spans    *span.Pool
	exprSeq  int
	blockSeq int
}

// New returns a Builder sharing spans with the adapter stage.
func New(spans *span.Pool) *Builder {
	return &Builder{spans: spans}
}

// ClearCaches resets the expression/block ID counters at session start so
// expression IDs are deterministic given a deterministic file order.
func (b *Builder) ClearCaches() {
	b.exprSeq = 0
	b.blockSeq = 0
}

func (b *Builder) nextExprID(repoID, filePath string, line, col int) string {
	b.exprSeq++
	return ids.ExpressionID(repoID, filePath, line, col, b.exprSeq)
}

func (b *Builder) nextBlockID(fnID string) string {
	b.blockSeq++
	return fmt.Sprintf("cfgblock:%s:%d", fnID, b.blockSeq)
}

// BuildFunction derives CFG/BFG/Expression IR for one function/method Node
// (fn) given the syntax-tree node covering its body (bodyNode) and its
// source language ("go" | "python"), appending the results into doc.
// bodyNode is the language-specific function declaration node — callers
// locate it by matching fn.Name against the declaration's identifier.
func (b *Builder) BuildFunction(doc *ir.IRDocument, fn ir.Node, language string, bodyNode *sitter.Node, source []byte) error {
	switch language {
	case "python":
		return b.buildPythonFunction(doc, fn, bodyNode, source)
	case "go":
		return b.buildGoFunction(doc, fn, bodyNode, source)
	default:
		return fmt.Errorf("semanticir: unsupported language %q", language)
	}
}

// cfgBuilder accumulates blocks/edges for one function during a walk;
// shared between the go/python builders.
type cfgBuilder struct {
	doc      *ir.IRDocument
	fn       ir.Node
	spans    *span.Pool
	owner    *Builder // the Builder driving this walk, for its block/expr ID counters
	repoID   string
	filePath string
	entry    string
	exit     string
	varDefs  map[string][]ir.VariableEntity // name -> SSA-versioned defs, for DFG/SSA summary
	dfg      []ir.DefUseEdge
	phiCount int
}

func newCFGBuilder(b *Builder, doc *ir.IRDocument, fn ir.Node) *cfgBuilder {
	return &cfgBuilder{
		doc: doc, fn: fn, spans: b.spans, owner: b,
		repoID: doc.RepoID, filePath: fn.FilePath,
		varDefs: make(map[string][]ir.VariableEntity),
	}
}

func (c *cfgBuilder) addBlock(kind ir.ControlFlowBlockKind, n *sitter.Node, stmtCount int) string {
	id := c.owner.nextBlockID(c.fn.ID)
	sp := spanOf(n, c.spans)
	c.doc.CFGBlocks = append(c.doc.CFGBlocks, ir.ControlFlowBlock{
		ID: id, Kind: kind, FunctionNodeID: c.fn.ID, Span: sp, StatementCount: stmtCount,
	})
	return id
}

func (c *cfgBuilder) addCFGEdge(source, target string, kind ir.ControlFlowEdgeKind) {
	if source == "" || target == "" {
		return
	}
	c.doc.CFGEdges = append(c.doc.CFGEdges, ir.ControlFlowEdge{SourceBlockID: source, TargetBlockID: target, Kind: kind})
}

func (c *cfgBuilder) finish() {
	blocks := make([]string, 0, len(c.doc.CFGBlocks))
	total := 0
	for _, blk := range c.doc.CFGBlocks {
		if blk.FunctionNodeID == c.fn.ID {
			blocks = append(blocks, blk.ID)
			total += blk.StatementCount
		}
	}
	bfgID := "bfg:" + c.fn.ID
	c.doc.BFGGraphs = append(c.doc.BFGGraphs, ir.BasicFlowGraph{
		ID: bfgID, FunctionNodeID: c.fn.ID, EntryBlockID: c.entry, ExitBlockID: c.exit,
		Blocks: blocks, TotalStatements: total,
	})
	if doc := c.doc; doc.DFGGraphs != nil {
		vars := make([]ir.VariableEntity, 0)
		for _, versions := range c.varDefs {
			vars = append(vars, versions...)
		}
		doc.DFGGraphs[c.fn.FQN] = ir.DFGGraph{FunctionFQN: c.fn.FQN, Variables: vars, DefUseEdges: c.dfg}
		doc.SSAGraphs[c.fn.FQN] = ir.SSAGraph{FunctionFQN: c.fn.FQN, VariableCount: len(vars), PhiCount: c.phiCount}
	}
}

// defineVar records a new SSA version of name in blockID, returning its
// VariableEntity ID and bumping phiCount when a branch join redefines an
// already-seen name in a sibling branch (a coarse phi-insertion heuristic:
// any redefinition of a name already defined elsewhere in the function
// counts as a join point, since this layer does not track dominance
// frontiers precisely).
func (c *cfgBuilder) defineVar(name, blockID string) ir.VariableEntity {
	shadow := len(c.varDefs[name])
	if shadow > 0 {
		c.phiCount++
	}
	v := ir.VariableEntity{
		ID:          fmt.Sprintf("var:%s:%s:%d", c.fn.FQN, name, shadow),
		Name:        name,
		FunctionFQN: c.fn.FQN,
		BlockID:     blockID,
		ShadowIndex: shadow,
		FilePath:    c.filePath,
	}
	c.varDefs[name] = append(c.varDefs[name], v)
	return v
}

func (c *cfgBuilder) useVar(name string) {
	versions := c.varDefs[name]
	if len(versions) == 0 {
		return
	}
	last := versions[len(versions)-1]
	c.dfg = append(c.dfg, ir.DefUseEdge{DefVarID: last.ID, UseVarID: last.ID})
}

func spanOf(n *sitter.Node, pool *span.Pool) span.Handle {
	if n == nil {
		return pool.Intern(0, 0, 0, 0)
	}
	start, end := n.StartPosition(), n.EndPosition()
	return pool.Intern(int(start.Row), int(start.Column), int(end.Row), int(end.Column))
}

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	s, e := n.StartByte(), n.EndByte()
	if int(e) > len(source) || s > e {
		return ""
	}
	return string(source[s:e])
}
