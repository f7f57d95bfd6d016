package golang

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/adapter"
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/stretchr/testify/require"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

func parseGo(t *testing.T, src string) *sitter.Tree {
	t.Helper()
	parser := sitter.NewParser()
	lang := sitter.NewLanguage(tree_sitter_go.Language())
	require.NoError(t, parser.SetLanguage(lang))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	t.Cleanup(tree.Close)
	return tree
}

const sampleGo = `package main

import "os/exec"

func run(hostArg string) error {
	cmd := exec.Command("ping -c 4 " + hostArg)
	return cmd.Run()
}
`

func TestBuildEmitsFileFunctionImportAndCall(t *testing.T) {
	tree := parseGo(t, sampleGo)
	a := New(adapter.NewExternalFuncCache(), span.NewPool(1000))
	doc, err := a.Build("repo1", "main.go", []byte(sampleGo), tree)
	require.NoError(t, err)

	var sawFile, sawFunc, sawImport bool
	for _, n := range doc.Nodes {
		switch n.Kind {
		case ir.NodeFile:
			sawFile = true
		case ir.NodeFunction:
			if n.Name == "run" {
				sawFunc = true
			}
		case ir.NodeImport:
			if n.FQN == "os/exec" {
				sawImport = true
			}
		}
	}
	require.True(t, sawFile, "expected a File node")
	require.True(t, sawFunc, "expected a run Function node")
	require.True(t, sawImport, "expected an os/exec Import node")

	var callEdge *ir.Edge
	for i := range doc.Edges {
		if doc.Edges[i].Kind == ir.EdgeCalls {
			callEdge = &doc.Edges[i]
			break
		}
	}
	require.NotNil(t, callEdge, "expected a CALLS edge for exec.Command")
	require.True(t, callEdge.Attrs.GetBool("has_shell_kwarg"), "exec.Command should be flagged shell-sensitive")
}

func TestBuildIsDeterministic(t *testing.T) {
	tree1 := parseGo(t, sampleGo)
	tree2 := parseGo(t, sampleGo)
	a1 := New(adapter.NewExternalFuncCache(), span.NewPool(1000))
	a2 := New(adapter.NewExternalFuncCache(), span.NewPool(1000))

	doc1, err := a1.Build("repo1", "main.go", []byte(sampleGo), tree1)
	require.NoError(t, err)
	doc2, err := a2.Build("repo1", "main.go", []byte(sampleGo), tree2)
	require.NoError(t, err)

	doc1.SortByID()
	doc2.SortByID()
	require.Equal(t, len(doc1.Nodes), len(doc2.Nodes))
	for i := range doc1.Nodes {
		require.Equal(t, doc1.Nodes[i].ID, doc2.Nodes[i].ID)
	}
}

func TestExternalStubMarkedExternal(t *testing.T) {
	tree := parseGo(t, sampleGo)
	a := New(adapter.NewExternalFuncCache(), span.NewPool(1000))
	doc, err := a.Build("repo1", "main.go", []byte(sampleGo), tree)
	require.NoError(t, err)

	found := false
	var externalFQNs []string
	for _, n := range doc.Nodes {
		if n.IsExternal {
			found = true
			externalFQNs = append(externalFQNs, n.FQN)
		}
	}
	require.True(t, found, "expected external stub nodes")
	require.Contains(t, externalFQNs, "exec.Command", "expected an external stub node for exec.Command")
}

const assignGo = `package main

func pipeline(input string, req request) string {
	data := input
	ref := &data
	field := req.Body
	combined := "prefix " + data
	_ = ref
	_ = field
	return combined
}
`

func TestAssignmentsEmitVariableFlowEdges(t *testing.T) {
	tree := parseGo(t, assignGo)
	a := New(adapter.NewExternalFuncCache(), span.NewPool(1000))
	doc, err := a.Build("repo1", "main.go", []byte(assignGo), tree)
	require.NoError(t, err)

	varByName := make(map[string]string)
	for _, n := range doc.Nodes {
		if n.Kind == ir.NodeVariable {
			varByName[n.Name] = n.ID
		}
	}
	require.Contains(t, varByName, "data")
	require.Contains(t, varByName, "input")
	require.Contains(t, varByName, "ref")
	require.Contains(t, varByName, "combined")

	type flow struct {
		kind      ir.EdgeKind
		aliasKind string
		must      bool
	}
	flows := make(map[[2]string]flow)
	defines := make(map[string]bool)
	for _, e := range doc.Edges {
		switch e.Kind {
		case ir.EdgeWrites, ir.EdgeReads:
			k, _ := e.Attrs.GetString("alias_kind")
			flows[[2]string{e.SourceID, e.TargetID}] = flow{e.Kind, k, e.Attrs.GetBool("must")}
		case ir.EdgeDefines:
			defines[e.TargetID] = true
		}
	}

	// data := input is a direct must-alias copy
	f, ok := flows[[2]string{varByName["data"], varByName["input"]}]
	require.True(t, ok)
	require.Equal(t, ir.EdgeWrites, f.kind)
	require.Equal(t, "direct", f.aliasKind)
	require.True(t, f.must)

	// ref := &data aliases data
	f, ok = flows[[2]string{varByName["ref"], varByName["data"]}]
	require.True(t, ok)
	require.Equal(t, ir.EdgeWrites, f.kind)
	require.True(t, f.must)

	// field := req.Body projects a field of req
	f, ok = flows[[2]string{varByName["field"], varByName["req"]}]
	require.True(t, ok)
	require.Equal(t, ir.EdgeWrites, f.kind)
	require.Equal(t, "field", f.aliasKind)
	require.False(t, f.must)

	// combined := "prefix " + data reads data without aliasing it
	f, ok = flows[[2]string{varByName["combined"], varByName["data"]}]
	require.True(t, ok)
	require.Equal(t, ir.EdgeReads, f.kind)
	require.False(t, f.must)

	// every variable node is the target of a DEFINES edge
	for name, id := range varByName {
		require.True(t, defines[id], "variable %s has no DEFINES edge", name)
	}
}
