package collectionflow

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/stretchr/testify/require"
)

func TestStoreThenLoadLinksThroughElement(t *testing.T) {
	spans := span.NewPool(10)
	sp := spans.Intern(1, 0, 1, 10)

	doc := ir.NewIRDocument("repo1", "snap1")
	doc.DFGGraphs["mod.handler"] = ir.DFGGraph{
		FunctionFQN: "mod.handler",
		Variables: []ir.VariableEntity{
			{ID: "var:mod.handler:buf:0", Name: "buf", FunctionFQN: "mod.handler"},
			{ID: "var:mod.handler:tainted:0", Name: "tainted", FunctionFQN: "mod.handler"},
			{ID: "var:mod.handler:out:0", Name: "out", FunctionFQN: "mod.handler"},
		},
	}
	doc.Expressions = append(doc.Expressions,
		ir.Expression{
			ID: "expr:1", Kind: ir.ExprCall, FunctionFQN: "mod.handler", Span: sp,
			CalleeName: "buf.append", CallArgs: []string{"tainted"},
		},
		ir.Expression{
			ID: "expr:2", Kind: ir.ExprCall, FunctionFQN: "mod.handler", Span: sp,
			CalleeName: "buf.pop", DefinesVar: "out",
		},
	)

	b := NewBuilder(doc)
	b.Build(doc)

	require.Len(t, doc.IDFGEdges, 2)
	require.Equal(t, ir.IDFGCollectionStore, doc.IDFGEdges[0].Kind)
	require.Equal(t, "var:mod.handler:tainted:0", doc.IDFGEdges[0].FromVarID)
	require.Equal(t, "var:mod.handler:buf:0[*]", doc.IDFGEdges[0].ToVarID)

	require.Equal(t, ir.IDFGCollectionLoad, doc.IDFGEdges[1].Kind)
	require.Equal(t, "var:mod.handler:buf:0[*]", doc.IDFGEdges[1].FromVarID)
	require.Equal(t, "var:mod.handler:out:0", doc.IDFGEdges[1].ToVarID)
}

func TestUnresolvedReceiverProducesNoEdge(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Expressions = append(doc.Expressions, ir.Expression{
		ID: "expr:1", Kind: ir.ExprCall, FunctionFQN: "mod.handler",
		CalleeName: "unknown.append", CallArgs: []string{"x"},
	})
	b := NewBuilder(doc)
	b.Build(doc)
	require.Empty(t, doc.IDFGEdges)
}
