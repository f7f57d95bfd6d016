package resolver

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexesNodesWithFQN(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Nodes = append(doc.Nodes,
		ir.Node{ID: "n1", FQN: "pkg.Fn", FilePath: "pkg/fn.py"},
		ir.Node{ID: "n2", FilePath: "pkg/noname.py"}, // no FQN, not indexed
	)

	st := Build(doc)

	entry, ok := st.Lookup("pkg.Fn")
	require.True(t, ok)
	require.Equal(t, "n1", entry.Node.ID)
	require.Equal(t, "pkg/fn.py", entry.FilePath)

	_, ok = st.Lookup("does.not.exist")
	require.False(t, ok)

	require.True(t, st.HasFile("pkg/noname.py"))
}

func TestRemoveFileEvictsOnlyThatFilesSymbols(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Nodes = append(doc.Nodes,
		ir.Node{ID: "n1", FQN: "pkg.A", FilePath: "a.py"},
		ir.Node{ID: "n2", FQN: "pkg.B", FilePath: "b.py"},
	)
	st := Build(doc)

	st.RemoveFile("a.py")

	_, ok := st.Lookup("pkg.A")
	require.False(t, ok)
	_, ok = st.Lookup("pkg.B")
	require.True(t, ok)
	require.False(t, st.HasFile("a.py"))
}
