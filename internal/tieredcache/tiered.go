package tieredcache

import (
	"sync/atomic"

	"github.com/kraklabs/codelayer/internal/ir"
)

// TieredCache composes an L1 MemoryCache and an L2 FileCache. An L1 miss always falls through to L2
// before the overall result is reported as a miss, and an L2 hit is
// promoted into L1 (which may itself evict other entries).
type TieredCache struct {
	L1 *MemoryCache
	L2 *FileCache

	overallMisses int64
}

// New builds a TieredCache. l2 may be nil, in which case the cache behaves
// as an L1-only cache (every L1 miss is an overall miss).
func New(l1 *MemoryCache, l2 *FileCache) *TieredCache {
	return &TieredCache{L1: l1, L2: l2}
}

// Get cascades L1 -> L2-promote-into-L1 -> miss. L1's own hit/miss counters
// already record the L1-hit and L1-attempt telemetry; this method only adds
// the overall-miss counter, since an L1 miss that is resolved by L2 must
// not be double-counted as a miss.
func (tc *TieredCache) Get(key string) (*ir.IRDocument, bool) {
	if doc, ok := tc.L1.Get(key); ok {
		return doc, true
	}
	if tc.L2 == nil {
		atomic.AddInt64(&tc.overallMisses, 1)
		return nil, false
	}
	doc, ok := tc.L2.Get(key)
	if !ok {
		atomic.AddInt64(&tc.overallMisses, 1)
		return nil, false
	}
	tc.L1.Set(key, doc)
	return doc, true
}

// Set writes doc to both tiers.
func (tc *TieredCache) Set(key string, doc *ir.IRDocument) error {
	tc.L1.Set(key, doc)
	if tc.L2 == nil {
		return nil
	}
	return tc.L2.Set(key, doc)
}

// Clear empties both tiers.
func (tc *TieredCache) Clear() error {
	tc.L1.Clear()
	if tc.L2 == nil {
		return nil
	}
	return tc.L2.Clear()
}

// Stats carries per-tier hit/miss/eviction counts plus the derived
// l1_hit_rate, miss_rate, and total_requests.
type Stats struct {
	L1Hits      int64
	L1Misses    int64
	L1Evictions int64
	L2Hits      int64
	L2Misses    int64
	Misses      int64 // overall cache misses (both tiers missed)

	TotalRequests int64
	L1HitRate     float64
	MissRate      float64
}

// Stats computes the combined telemetry snapshot.
func (tc *TieredCache) Stats() Stats {
	l1Hits, l1Misses, l1Evictions := tc.L1.Stats()
	var l2Hits, l2Misses int64
	if tc.L2 != nil {
		l2Hits, l2Misses = tc.L2.Stats()
	}
	misses := atomic.LoadInt64(&tc.overallMisses)

	total := l1Hits + l1Misses
	s := Stats{
		L1Hits:        l1Hits,
		L1Misses:      l1Misses,
		L1Evictions:   l1Evictions,
		L2Hits:        l2Hits,
		L2Misses:      l2Misses,
		Misses:        misses,
		TotalRequests: total,
	}
	if total > 0 {
		s.L1HitRate = float64(l1Hits) / float64(total)
		s.MissRate = float64(misses) / float64(total)
	}
	return s
}
