package span

import (
	"container/list"
	"sync"
)

// DefaultMaxSize is the default bound on distinct spans kept before LRU
// eviction kicks in.
const DefaultMaxSize = 100_000

// Stats reports pool instrumentation for observability and hit-rate
// measurement.
type Stats struct {
	PoolSize      int
	HitCount      int64
	MissCount     int64
	HitRate       float64
	EvictionCount int64
}

type entry struct {
	span Span
	id   uint32
}

// Pool is a process-wide, thread-safe, bounded LRU interner for Span values.
// Every thread observing the same (start_line, start_col, end_line, end_col)
// tuple gets the same Handle.
type Pool struct {
	maxSize int

	mu      sync.Mutex
	lookup  map[Span]*list.Element
	order   *list.List // front = most recently used
	nextID  uint32
	hits    int64
	misses  int64
	evicted int64
}

// NewPool creates a Span Pool bounded by maxSize entries. A non-positive
// maxSize falls back to DefaultMaxSize.
func NewPool(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		maxSize: maxSize,
		lookup:  make(map[Span]*list.Element),
		order:   list.New(),
	}
}

// Intern returns the canonical Handle for (startLine, startCol, endLine,
// endCol), creating one on first sight. Safe for concurrent use.
func (p *Pool) Intern(startLine, startCol, endLine, endCol int) Handle {
	s := Span{StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}

	p.mu.Lock()
	defer p.mu.Unlock()

	if elem, ok := p.lookup[s]; ok {
		p.order.MoveToFront(elem)
		p.hits++
		return Handle{id: elem.Value.(*entry).id, Span: s}
	}

	p.misses++
	p.nextID++
	e := &entry{span: s, id: p.nextID}
	elem := p.order.PushFront(e)
	p.lookup[s] = elem

	if p.maxSize > 0 && p.order.Len() > p.maxSize {
		oldest := p.order.Back()
		if oldest != nil {
			p.order.Remove(oldest)
			delete(p.lookup, oldest.Value.(*entry).span)
			p.evicted++
		}
	}

	return Handle{id: e.id, Span: s}
}

// InternSpan interns an already-constructed Span.
func (p *Pool) InternSpan(s Span) Handle {
	return p.Intern(s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// InternBatch interns a slice of spans in the order given.
func (p *Pool) InternBatch(spans []Span) []Handle {
	out := make([]Handle, len(spans))
	for i, s := range spans {
		out[i] = p.InternSpan(s)
	}
	return out
}

// Stats returns a snapshot of pool instrumentation.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.hits + p.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(p.hits) / float64(total)
	}
	return Stats{
		PoolSize:      p.order.Len(),
		HitCount:      p.hits,
		MissCount:     p.misses,
		HitRate:       hitRate,
		EvictionCount: p.evicted,
	}
}

// Clear removes all interned spans. It does not reset hit/miss counters; use
// ResetStats for that.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookup = make(map[Span]*list.Element)
	p.order = list.New()
}

// ResetStats zeroes the hit/miss/eviction counters.
func (p *Pool) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hits, p.misses, p.evicted = 0, 0, 0
}
