package tieredcache

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestFileCacheSetThenGetRoundTrips(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Nodes = append(doc.Nodes, ir.Node{ID: "n1", Kind: ir.NodeFunction, FQN: "pkg.Fn", FilePath: "a.go"})

	require.NoError(t, fc.Set("key1", doc))

	got, ok := fc.Get("key1")
	require.True(t, ok)
	require.Len(t, got.Nodes, 1)
	require.Equal(t, "n1", got.Nodes[0].ID)
	require.Equal(t, "pkg.Fn", got.Nodes[0].FQN)
}

func TestFileCacheGetMissingKeyMisses(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)

	_, ok := fc.Get("absent")
	require.False(t, ok)

	hits, misses := fc.Stats()
	require.Equal(t, int64(0), hits)
	require.Equal(t, int64(1), misses)
}

func TestFileCachePersistsAcrossNewInstance(t *testing.T) {
	dir := t.TempDir()

	fc1, err := NewFileCache(dir)
	require.NoError(t, err)
	doc := ir.NewIRDocument("repo1", "snap1")
	require.NoError(t, fc1.Set("key1", doc))

	fc2, err := NewFileCache(dir)
	require.NoError(t, err)
	got, ok := fc2.Get("key1")
	require.True(t, ok)
	require.Equal(t, "repo1", got.RepoID)
}

func TestFileCacheClearRemovesEntries(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fc.Set("key1", ir.NewIRDocument("repo1", "snap1")))

	require.NoError(t, fc.Clear())

	_, ok := fc.Get("key1")
	require.False(t, ok)
}
