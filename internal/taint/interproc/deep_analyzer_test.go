package interproc

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/stretchr/testify/require"
)

func buildFlowDoc() *ir.IRDocument {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.DFGGraphs["caller.fn"] = ir.DFGGraph{
		FunctionFQN: "caller.fn",
		Variables: []ir.VariableEntity{
			{ID: "var:caller:user_input", Name: "user_input", FunctionFQN: "caller.fn"},
		},
	}
	doc.DFGGraphs["callee.fn"] = ir.DFGGraph{
		FunctionFQN: "callee.fn",
		Variables: []ir.VariableEntity{
			{ID: "var:callee:cmd", Name: "cmd", FunctionFQN: "callee.fn"},
		},
	}
	doc.IDFGEdges = append(doc.IDFGEdges, ir.InterproceduralDataFlowEdge{
		ID:         "idfg:1",
		Kind:       ir.IDFGCallArg,
		FromVarID:  "var:caller:user_input",
		ToVarID:    "var:callee:cmd",
		CallSiteID: "call-site-1",
		CallerFQN:  "caller.fn",
		CalleeFQN:  "callee.fn",
		ArgPosition: 0,
	})
	doc.Expressions = append(doc.Expressions,
		ir.Expression{ID: "expr:1", FilePath: "caller.go", DefinesVar: "var:caller:user_input"},
		ir.Expression{ID: "expr:2", FilePath: "callee.go", DefinesVar: "var:callee:cmd"},
	)
	return doc
}

func TestAnalyzeFindsDirectCallArgFlow(t *testing.T) {
	doc := buildFlowDoc()
	da := NewDeepAnalyzer(doc, 2)
	pc := NewProjectContext(doc)

	results, err := da.Analyze(pc, FlowExpr{
		Sources: []Selector{{Scope: "caller.fn", VarNames: []string{"user_input"}}},
		Sinks:   []Selector{{Scope: "callee.fn", VarNames: []string{"cmd"}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Nodes, 2)
	require.Equal(t, "caller.go", results[0].Nodes[0].FilePath)
	require.Equal(t, "callee.go", results[0].Nodes[1].FilePath)
	require.InDelta(t, 0.85, results[0].Confidence, 0.0001)
}

func TestAnalyzeRejectsNilProjectContext(t *testing.T) {
	doc := buildFlowDoc()
	da := NewDeepAnalyzer(doc, 2)
	_, err := da.Analyze(nil, FlowExpr{})
	require.Error(t, err)
}

func TestAnalyzeFallsBackToGlobalScope(t *testing.T) {
	doc := buildFlowDoc()
	da := NewDeepAnalyzer(doc, 2)
	pc := NewProjectContext(doc)

	results, err := da.Analyze(pc, FlowExpr{
		Sources: []Selector{{VarNames: []string{"user_input"}}}, // no scope -> <global>
		Sinks:   []Selector{{VarNames: []string{"cmd"}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestAnalyzeReturnsEmptyWhenNoSourceOrSinkResolved(t *testing.T) {
	doc := buildFlowDoc()
	da := NewDeepAnalyzer(doc, 2)
	pc := NewProjectContext(doc)

	results, err := da.Analyze(pc, FlowExpr{
		Sources: []Selector{{Scope: "caller.fn", VarNames: []string{"does_not_exist"}}},
		Sinks:   []Selector{{Scope: "callee.fn", VarNames: []string{"cmd"}}},
	})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestAnalyzeAppliesMayAliasConfidencePenalty(t *testing.T) {
	doc := buildFlowDoc()
	// cmd aliases a separate sink variable that never receives a direct edge.
	doc.Edges = append(doc.Edges, ir.Edge{
		ID:       "edge:writes:alias",
		Kind:     ir.EdgeWrites,
		SourceID: "var:callee:cmd",
		TargetID: "var:callee:cmd_alias",
		Attrs: ir.Attrs{
			"alias_kind": ir.String("direct"),
			"must":       ir.Bool(false),
		},
	})
	doc.DFGGraphs["callee.fn"] = ir.DFGGraph{
		FunctionFQN: "callee.fn",
		Variables: []ir.VariableEntity{
			{ID: "var:callee:cmd", Name: "cmd", FunctionFQN: "callee.fn"},
			{ID: "var:callee:cmd_alias", Name: "cmd_alias", FunctionFQN: "callee.fn"},
		},
	}

	da := NewDeepAnalyzer(doc, 2)
	pc := NewProjectContext(doc)

	results, err := da.Analyze(pc, FlowExpr{
		Sources: []Selector{{Scope: "caller.fn", VarNames: []string{"user_input"}}},
		Sinks:   []Selector{{Scope: "callee.fn", VarNames: []string{"cmd_alias"}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Less(t, results[0].Confidence, 0.85)
}
