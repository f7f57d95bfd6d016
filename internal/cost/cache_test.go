package cost

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/stretchr/testify/require"
)

func simpleLoopDoc() *ir.IRDocument {
	doc := ir.NewIRDocument("repo1", "snap1")
	pool := span.NewPool(100)
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: pool.Intern(1, 0, 10, 0)}}
	doc.CFGBlocks = []ir.ControlFlowBlock{
		{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(1, 0, 1, 0)},
		{ID: "loop1", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(2, 0, 5, 0)},
	}
	doc.CFGEdges = []ir.ControlFlowEdge{{SourceBlockID: "entry", TargetBlockID: "loop1", Kind: ir.CFNormal}}
	doc.Expressions = []ir.Expression{
		{ID: "e1", Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"n"}, Span: pool.Intern(2, 0, 2, 10)},
		{ID: "e2", Kind: ir.ExprNameLoad, Span: pool.Intern(2, 6, 2, 7), Attrs: ir.Attrs{"var_name": ir.String("n")}},
	}
	return doc
}

func TestCacheReturnsSameInstanceOnHit(t *testing.T) {
	c := NewCache()
	doc := simpleLoopDoc()

	first, err := c.Analyze(doc, "mod.f")
	require.NoError(t, err)
	second, err := c.Analyze(doc, "mod.f")
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestInvalidateForcesRecomputation(t *testing.T) {
	c := NewCache()
	doc := simpleLoopDoc()

	first, err := c.Analyze(doc, "mod.f")
	require.NoError(t, err)

	removed := c.InvalidateByFunction("mod.f")
	require.Equal(t, 1, removed)

	second, err := c.Analyze(doc, "mod.f")
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, first.Complexity, second.Complexity)
}

func TestEnvelopeCarriesVerdict(t *testing.T) {
	doc := simpleLoopDoc()
	r, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	env := Envelope("req1", r)
	require.Len(t, env.Claims, 1)
	require.Equal(t, "proven", string(env.Claims[0].ConfidenceBasis))
	require.Len(t, env.Evidences, 1)
	require.Equal(t, "CostAnalyzer", env.Evidences[0].Provenance.Engine)
}
