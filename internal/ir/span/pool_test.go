package span

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternReturnsSameHandleForEqualTuples(t *testing.T) {
	p := NewPool(10)
	a := p.Intern(1, 2, 3, 4)
	b := p.Intern(1, 2, 3, 4)
	require.Equal(t, a.ID(), b.ID())
	require.Equal(t, a.Span, b.Span)
}

func TestInternConcurrentSameTuple(t *testing.T) {
	p := NewPool(10)
	const n = 64
	ids := make([]uint32, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			ids[i] = p.Intern(5, 5, 6, 6).ID()
		}()
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		require.Equal(t, ids[0], ids[i])
	}
}

func TestEvictionBoundsPoolSize(t *testing.T) {
	p := NewPool(4)
	for i := 0; i < 100; i++ {
		p.Intern(i, 0, i, 1)
	}
	stats := p.Stats()
	require.LessOrEqual(t, stats.PoolSize, 4)
	require.Greater(t, stats.EvictionCount, int64(0))
}

func TestZeroMaxSizeFallsBackToDefault(t *testing.T) {
	p := NewPool(0)
	require.Equal(t, DefaultMaxSize, p.maxSize)
}

func TestHitRateComputed(t *testing.T) {
	p := NewPool(10)
	p.Intern(1, 1, 1, 1)
	p.Intern(1, 1, 1, 1)
	p.Intern(2, 2, 2, 2)
	stats := p.Stats()
	require.Equal(t, int64(1), stats.HitCount)
	require.Equal(t, int64(2), stats.MissCount)
	require.InDelta(t, 1.0/3.0, stats.HitRate, 1e-9)
}

func TestClearResetsPoolSizeNotStats(t *testing.T) {
	p := NewPool(10)
	p.Intern(1, 1, 1, 1)
	p.Clear()
	require.Equal(t, 0, p.Stats().PoolSize)
	p.ResetStats()
	stats := p.Stats()
	require.Equal(t, int64(0), stats.HitCount)
	require.Equal(t, int64(0), stats.MissCount)
}

func TestStartLineZeroPermitted(t *testing.T) {
	p := NewPool(10)
	h := p.Intern(0, 0, 0, 5)
	require.Equal(t, 0, h.Span.StartLine)
}
