package cost

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/stretchr/testify/require"
)

func blankDoc() (*ir.IRDocument, *span.Pool) {
	return ir.NewIRDocument("repo1", "snap1"), span.NewPool(1000)
}

func TestSimpleLoopIsLinearAndProven(t *testing.T) {
	doc, pool := blankDoc()
	fnSpan := pool.Intern(1, 0, 10, 0)
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: fnSpan}}
	doc.CFGBlocks = []ir.ControlFlowBlock{
		{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(1, 0, 1, 0)},
		{ID: "loop1", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(2, 0, 5, 0)},
	}
	doc.CFGEdges = []ir.ControlFlowEdge{
		{SourceBlockID: "entry", TargetBlockID: "loop1", Kind: ir.CFNormal},
	}
	doc.Expressions = []ir.Expression{
		{ID: "e1", Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"n"}, Span: pool.Intern(2, 0, 2, 10)},
		{ID: "e2", Kind: ir.ExprNameLoad, Span: pool.Intern(2, 6, 2, 7), Attrs: ir.Attrs{"var_name": ir.String("n")}},
	}

	result, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	require.Equal(t, Linear, result.Complexity)
	require.Equal(t, VerdictProven, result.Verdict)
	require.Equal(t, 1.0, result.Confidence)
	require.Len(t, result.LoopBounds, 1)
	require.Equal(t, "n", result.LoopBounds[0].Bound)
	require.Equal(t, MethodPattern, result.LoopBounds[0].Method)
	require.False(t, result.IsSlow())
}

func TestNestedLoopsAreQuadraticAndProven(t *testing.T) {
	doc, pool := blankDoc()
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: pool.Intern(1, 0, 20, 0)}}
	doc.CFGBlocks = []ir.ControlFlowBlock{
		{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(1, 0, 1, 0)},
		{ID: "outer", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(2, 0, 12, 0)},
		{ID: "inner", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(3, 0, 8, 0)},
		{ID: "body", Kind: ir.BlockBasic, FunctionNodeID: "fn1", Span: pool.Intern(4, 0, 7, 0)},
	}
	doc.CFGEdges = []ir.ControlFlowEdge{
		{SourceBlockID: "entry", TargetBlockID: "outer", Kind: ir.CFNormal},
		{SourceBlockID: "outer", TargetBlockID: "inner", Kind: ir.CFTrueBranch},
		{SourceBlockID: "inner", TargetBlockID: "body", Kind: ir.CFTrueBranch},
		{SourceBlockID: "body", TargetBlockID: "outer", Kind: ir.CFLoopBack},
	}
	doc.Expressions = []ir.Expression{
		{ID: "e1", Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"n"}, Span: pool.Intern(2, 0, 2, 10)},
		{ID: "e2", Kind: ir.ExprNameLoad, Span: pool.Intern(2, 6, 2, 7), Attrs: ir.Attrs{"var_name": ir.String("n")}},
		{ID: "e3", Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"m"}, Span: pool.Intern(3, 0, 3, 10)},
		{ID: "e4", Kind: ir.ExprNameLoad, Span: pool.Intern(3, 6, 3, 7), Attrs: ir.Attrs{"var_name": ir.String("m")}},
	}

	result, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	require.Equal(t, Quadratic, result.Complexity)
	require.Equal(t, VerdictProven, result.Verdict)
	require.True(t, result.IsSlow())
	bounds := []string{result.LoopBounds[0].Bound, result.LoopBounds[1].Bound}
	require.ElementsMatch(t, []string{"n", "m"}, bounds)
}

func TestRangeThreeArgsUsesSecondArgumentNotLast(t *testing.T) {
	doc, pool := blankDoc()
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: pool.Intern(1, 0, 10, 0)}}
	doc.CFGBlocks = []ir.ControlFlowBlock{
		{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(1, 0, 1, 0)},
		{ID: "loop1", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(2, 0, 5, 0)},
	}
	doc.CFGEdges = []ir.ControlFlowEdge{{SourceBlockID: "entry", TargetBlockID: "loop1", Kind: ir.CFNormal}}
	doc.Expressions = []ir.Expression{
		{ID: "e1", Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"0", "stop_var", "step_var"}, Span: pool.Intern(2, 0, 2, 20)},
		{ID: "e2", Kind: ir.ExprNameLoad, Span: pool.Intern(2, 5, 2, 13), Attrs: ir.Attrs{"var_name": ir.String("stop_var")}},
		{ID: "e3", Kind: ir.ExprNameLoad, Span: pool.Intern(2, 15, 2, 23), Attrs: ir.Attrs{"var_name": ir.String("step_var")}},
	}

	result, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	require.Equal(t, "stop_var", result.LoopBounds[0].Bound, "must use the second argument, not the last (step)")
}

func TestRangeNegativeOneLinearConservative(t *testing.T) {
	doc, pool := blankDoc()
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: pool.Intern(1, 0, 10, 0)}}
	doc.CFGBlocks = []ir.ControlFlowBlock{
		{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(1, 0, 1, 0)},
		{ID: "loop1", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(2, 0, 5, 0)},
	}
	doc.CFGEdges = []ir.ControlFlowEdge{{SourceBlockID: "entry", TargetBlockID: "loop1", Kind: ir.CFNormal}}
	doc.Expressions = []ir.Expression{
		{ID: "e1", Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"-1"}, Span: pool.Intern(2, 0, 2, 10)},
	}

	result, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	require.Equal(t, "-1", result.LoopBounds[0].Bound)
	require.Equal(t, Linear, result.Complexity)
}

func TestTenNestedLoopsAreExponential(t *testing.T) {
	doc, pool := blankDoc()
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: pool.Intern(0, 0, 200, 0)}}

	doc.CFGBlocks = append(doc.CFGBlocks, ir.ControlFlowBlock{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(0, 0, 0, 0)})
	prev := "entry"
	for i := 0; i < 10; i++ {
		id := "loop" + string(rune('A'+i))
		doc.CFGBlocks = append(doc.CFGBlocks, ir.ControlFlowBlock{ID: id, Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(i+1, 0, i+1, 10)})
		kind := ir.CFNormal
		if i > 0 {
			kind = ir.CFTrueBranch
		}
		doc.CFGEdges = append(doc.CFGEdges, ir.ControlFlowEdge{SourceBlockID: prev, TargetBlockID: id, Kind: kind})
		doc.Expressions = append(doc.Expressions, ir.Expression{
			ID: "call" + id, Kind: ir.ExprCall, CalleeName: "range", CallArgs: []string{"n" + id}, Span: pool.Intern(i+1, 0, i+1, 10),
		})
		doc.Expressions = append(doc.Expressions, ir.Expression{
			ID: "name" + id, Kind: ir.ExprNameLoad, Span: pool.Intern(i+1, 2, i+1, 6), Attrs: ir.Attrs{"var_name": ir.String("n" + id)},
		})
		prev = id
	}

	result, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	require.Equal(t, Exponential, result.Complexity)
}

func TestMissingCFGIsHardError(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Expressions = []ir.Expression{{ID: "e1"}}
	_, err := AnalyzeFunction(doc, "mod.f")
	require.Error(t, err)
}

func TestMissingFunctionIsHardError(t *testing.T) {
	doc, pool := blankDoc()
	doc.CFGBlocks = []ir.ControlFlowBlock{{ID: "b1", Span: pool.Intern(0, 0, 0, 0)}}
	doc.Expressions = []ir.Expression{{ID: "e1"}}
	_, err := AnalyzeFunction(doc, "mod.missing")
	require.Error(t, err)
}

func TestUnresolvedBoundIsHeuristic(t *testing.T) {
	doc, pool := blankDoc()
	doc.Nodes = []ir.Node{{ID: "fn1", FQN: "mod.f", Kind: ir.NodeFunction, Span: pool.Intern(1, 0, 10, 0)}}
	doc.CFGBlocks = []ir.ControlFlowBlock{
		{ID: "entry", Kind: ir.BlockEntry, FunctionNodeID: "fn1", Span: pool.Intern(1, 0, 1, 0)},
		{ID: "loop1", Kind: ir.BlockLoopHeader, FunctionNodeID: "fn1", Span: pool.Intern(2, 0, 5, 0)},
	}
	doc.CFGEdges = []ir.ControlFlowEdge{{SourceBlockID: "entry", TargetBlockID: "loop1", Kind: ir.CFNormal}}
	// No CALL expression inside the loop span at all.
	doc.Expressions = []ir.Expression{{ID: "e1", Kind: ir.ExprAssign, Span: pool.Intern(2, 0, 2, 5)}}

	result, err := AnalyzeFunction(doc, "mod.f")
	require.NoError(t, err)
	require.Equal(t, VerdictHeuristic, result.Verdict)
	require.Equal(t, "O(n²)", result.LoopBounds[0].UpperBoundHint)
}
