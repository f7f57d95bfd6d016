package tieredcache

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/stretchr/testify/require"
)

func docWithNodes(n int) *ir.IRDocument {
	d := ir.NewIRDocument("repo", "snap")
	for i := 0; i < n; i++ {
		d.Nodes = append(d.Nodes, ir.Node{ID: "n"})
	}
	return d
}

func TestMemoryCacheSetThenGetHits(t *testing.T) {
	mc := NewMemoryCache(10, 1<<20)
	doc := docWithNodes(1)
	mc.Set("a", doc)

	got, ok := mc.Get("a")
	require.True(t, ok)
	require.Same(t, doc, got)

	hits, misses, _ := mc.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(0), misses)
}

func TestMemoryCacheMaxSizeZeroIsNoOp(t *testing.T) {
	mc := NewMemoryCache(0, 1<<20)
	mc.Set("a", docWithNodes(1))

	_, ok := mc.Get("a")
	require.False(t, ok)

	entries, bytes := mc.Size()
	require.Equal(t, 0, entries)
	require.Equal(t, int64(0), bytes)
}

func TestMemoryCacheSetUpdatesSizeAccountingOnExistingKey(t *testing.T) {
	mc := NewMemoryCache(10, 1<<20)
	mc.Set("a", docWithNodes(1))
	_, firstBytes := mc.Size()

	mc.Set("a", docWithNodes(5))
	entries, secondBytes := mc.Size()

	require.Equal(t, 1, entries)
	require.Greater(t, secondBytes, firstBytes)
}

func TestMemoryCacheEvictsLRUWhenOverEntryBound(t *testing.T) {
	mc := NewMemoryCache(2, 1<<20)
	mc.Set("a", docWithNodes(1))
	mc.Set("b", docWithNodes(1))
	mc.Set("c", docWithNodes(1))

	_, ok := mc.Get("a")
	require.False(t, ok, "a should have been evicted as least recently used")

	_, ok = mc.Get("b")
	require.True(t, ok)
	_, ok = mc.Get("c")
	require.True(t, ok)

	_, _, evictions := mc.Stats()
	require.Equal(t, int64(1), evictions)
}

func TestMemoryCacheEvictsWhenOverByteBound(t *testing.T) {
	small := docWithNodes(1)
	size := int64(small.EstimatedSize())

	mc := NewMemoryCache(100, size+1)
	mc.Set("a", docWithNodes(1))
	mc.Set("b", docWithNodes(1))

	entries, bytes := mc.Size()
	require.LessOrEqual(t, bytes, size+1)
	require.LessOrEqual(t, entries, 1)
}

func TestMemoryCacheGetPromotesToMostRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(2, 1<<20)
	mc.Set("a", docWithNodes(1))
	mc.Set("b", docWithNodes(1))

	mc.Get("a") // a is now MRU, b is LRU
	mc.Set("c", docWithNodes(1))

	_, ok := mc.Get("b")
	require.False(t, ok, "b should be evicted, not a")
	_, ok = mc.Get("a")
	require.True(t, ok)
}

func TestMemoryCacheClearResetsEntriesNotCounters(t *testing.T) {
	mc := NewMemoryCache(10, 1<<20)
	mc.Set("a", docWithNodes(1))
	mc.Get("a")
	mc.Get("missing")

	mc.Clear()

	entries, bytes := mc.Size()
	require.Equal(t, 0, entries)
	require.Equal(t, int64(0), bytes)

	hits, misses, _ := mc.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)
}
