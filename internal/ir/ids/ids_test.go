package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeIDDeterministic(t *testing.T) {
	a := NodeID("repo1", "python", "Function", "pkg.mod.f", "pkg/mod.py", "def f(x):")
	b := NodeID("repo1", "python", "Function", "pkg.mod.f", "pkg/mod.py", "def f(x):")
	require.Equal(t, a, b)
	require.Regexp(t, `^node:repo1:function:[0-9a-f]{24}$`, a)
}

func TestNodeIDDistinctForDistinctInputs(t *testing.T) {
	a := NodeID("repo1", "python", "function", "pkg.mod.f", "pkg/mod.py", "def f(x):")
	b := NodeID("repo1", "python", "function", "pkg.mod.g", "pkg/mod.py", "def f(x):")
	require.NotEqual(t, a, b)
}

func TestNodeIDRepoScoped(t *testing.T) {
	a := NodeID("repoA", "python", "function", "pkg.mod.f", "pkg/mod.py", "def f(x):")
	b := NodeID("repoB", "python", "function", "pkg.mod.f", "pkg/mod.py", "def f(x):")
	require.NotEqual(t, a, b, "repo_id prefix must prevent cross-repo collisions")
}

func TestEdgeIDFormat(t *testing.T) {
	e := EdgeID("CALLS", "node:r:function:aaaa", "node:r:function:bbbb", 0)
	require.Regexp(t, `^edge:calls:[0-9a-f]{20}$`, e)
}

func TestExpressionIDFormat(t *testing.T) {
	require.Equal(t, "expr:r1:pkg/mod.py:10:4:3", ExpressionID("r1", "pkg/mod.py", 10, 4, 3))
}

func TestOccurrenceCounterMonotonic(t *testing.T) {
	var c OccurrenceCounter
	require.Equal(t, "occ:1", c.Next())
	require.Equal(t, "occ:2", c.Next())
	c.Reset()
	require.Equal(t, "occ:1", c.Next())
}
