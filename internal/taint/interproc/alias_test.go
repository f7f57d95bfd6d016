package interproc

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/adapter"
	"github.com/kraklabs/codelayer/internal/adapter/python"
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/stretchr/testify/require"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func TestAliasesOfReturnsMayAndMust(t *testing.T) {
	aa := NewAliasAnalyzer()
	aa.AddEdge("var:x", "var:y", AliasDirect, true)
	aa.AddEdge("var:x", "var:z", AliasField, false)

	may, must := aa.AliasesOf("var:x")
	require.ElementsMatch(t, []string{"var:y", "var:z"}, may)
	require.Equal(t, []string{"var:y"}, must)
}

func TestAliasRelationSymmetric(t *testing.T) {
	aa := NewAliasAnalyzer()
	aa.AddEdge("var:x", "var:y", AliasDirect, true)
	require.True(t, aa.IsMustAlias("var:y", "var:x"))
}

func TestMustAliasIsNotDowngradedByLaterMayEdge(t *testing.T) {
	aa := NewAliasAnalyzer()
	aa.AddEdge("var:x", "var:y", AliasDirect, true)
	aa.AddEdge("var:x", "var:y", AliasElement, false)
	require.True(t, aa.IsMustAlias("var:x", "var:y"))
}

func TestBuildFromIRReadsAliasKindAndMustAttrs(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Edges = append(doc.Edges, ir.Edge{
		ID:       "edge:writes:1",
		Kind:     ir.EdgeWrites,
		SourceID: "var:a",
		TargetID: "var:b",
		Attrs: ir.Attrs{
			"alias_kind": ir.String("field"),
			"must":       ir.Bool(true),
		},
	})

	aa := BuildFromIR(doc)
	require.True(t, aa.IsMustAlias("var:a", "var:b"))
	may, _ := aa.AliasesOf("var:a")
	require.Contains(t, may, "var:b")
}

func TestBuildFromIRIgnoresNonAliasEdgeKinds(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Edges = append(doc.Edges, ir.Edge{ID: "edge:calls:1", Kind: ir.EdgeCalls, SourceID: "var:a", TargetID: "var:b"})

	aa := BuildFromIR(doc)
	require.False(t, aa.IsMayAlias("var:a", "var:b"))
}

func TestBuildFromIRConsumesAdapterEmittedEdges(t *testing.T) {
	src := `def handler(req):
    data = req
    body = req.body
`
	parser := sitter.NewParser()
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	require.NoError(t, parser.SetLanguage(lang))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	t.Cleanup(tree.Close)

	a := python.New(adapter.NewExternalFuncCache(), span.NewPool(1000))
	doc, err := a.Build("repo1", "handler.py", []byte(src), tree)
	require.NoError(t, err)

	varByName := make(map[string]string)
	for _, n := range doc.Nodes {
		if n.Kind == ir.NodeVariable {
			varByName[n.Name] = n.ID
		}
	}
	require.Contains(t, varByName, "data")
	require.Contains(t, varByName, "req")

	aa := BuildFromIR(doc)
	require.True(t, aa.IsMustAlias(varByName["data"], varByName["req"]))
	may, _ := aa.AliasesOf(varByName["req"])
	require.Contains(t, may, varByName["body"])
}
