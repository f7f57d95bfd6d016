package semanticir

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/adapter"
	"github.com/kraklabs/codelayer/internal/adapter/python"
	"github.com/kraklabs/codelayer/internal/cost"
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/stretchr/testify/require"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func parsePython(t *testing.T, src string) *sitter.Tree {
	t.Helper()
	parser := sitter.NewParser()
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	require.NoError(t, parser.SetLanguage(lang))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	t.Cleanup(tree.Close)
	return tree
}

func findFuncDef(n *sitter.Node, name string, source []byte) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "function_definition" {
		if ident := pyChildByKind(n, "identifier"); ident != nil && nodeText(ident, source) == name {
			return n
		}
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if f := findFuncDef(n.Child(i), name, source); f != nil {
			return f
		}
	}
	return nil
}

func findIRNode(doc *ir.IRDocument, name string) ir.Node {
	for _, n := range doc.Nodes {
		if n.Name == name && (n.Kind == ir.NodeFunction || n.Kind == ir.NodeMethod) {
			return n
		}
	}
	return ir.Node{}
}

const simpleLoop = `def scan(n):
    for i in range(n):
        print(i)
`

func TestSimpleLoopClassifiedLinear(t *testing.T) {
	src := []byte(simpleLoop)
	tree := parsePython(t, simpleLoop)
	spans := span.NewPool(1000)

	a := python.New(adapter.NewExternalFuncCache(), spans)
	doc, err := a.Build("repo1", "scan.py", src, tree)
	require.NoError(t, err)

	fnNode := findFuncDef(tree.RootNode(), "scan", src)
	require.NotNil(t, fnNode)
	irFn := findIRNode(doc, "scan")
	require.NotEmpty(t, irFn.ID)

	b := New(spans)
	require.NoError(t, b.BuildFunction(doc, irFn, "python", fnNode, src))

	result, err := cost.AnalyzeFunction(doc, irFn.FQN)
	require.NoError(t, err)
	require.Equal(t, cost.Linear, result.Complexity)
	require.Equal(t, cost.VerdictProven, result.Verdict)
	require.Equal(t, "n", result.LoopBounds[0].Bound)
}

const nestedLoop = `def pairs(n, m):
    for i in range(n):
        for j in range(m):
            print(i, j)
`

func TestNestedLoopsClassifiedQuadratic(t *testing.T) {
	src := []byte(nestedLoop)
	tree := parsePython(t, nestedLoop)
	spans := span.NewPool(1000)

	a := python.New(adapter.NewExternalFuncCache(), spans)
	doc, err := a.Build("repo1", "pairs.py", src, tree)
	require.NoError(t, err)

	fnNode := findFuncDef(tree.RootNode(), "pairs", src)
	require.NotNil(t, fnNode)
	irFn := findIRNode(doc, "pairs")
	require.NotEmpty(t, irFn.ID)

	b := New(spans)
	require.NoError(t, b.BuildFunction(doc, irFn, "python", fnNode, src))

	result, err := cost.AnalyzeFunction(doc, irFn.FQN)
	require.NoError(t, err)
	require.Equal(t, cost.Quadratic, result.Complexity)
	require.True(t, result.IsSlow())
}
