package tieredcache

import (
	"container/list"
	"sync"

	"github.com/kraklabs/codelayer/internal/ir"
)

// l1Entry pairs a cached document with its accounted size, kept in sync so
// eviction can subtract exactly what was added.
type l1Entry struct {
	key   string
	doc   *ir.IRDocument
	bytes int
}

// MemoryCache is the L1 tier: an LRU bounded simultaneously by entry count
// and total accounted bytes, using the same container/list
// move-to-front/evict shape as internal/ir/span.Pool.
type MemoryCache struct {
	mu sync.Mutex

	maxSize  int
	maxBytes int64

	lookup       map[string]*list.Element
	order        *list.List
	currentBytes int64

	hits      int64
	misses    int64
	evictions int64
}

// NewMemoryCache creates an L1 cache. maxSize == 0 makes Set a no-op (Get
// always misses).
func NewMemoryCache(maxSize int, maxBytes int64) *MemoryCache {
	return &MemoryCache{
		maxSize:  maxSize,
		maxBytes: maxBytes,
		lookup:   make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached document for key, promoting it to most-recently-used.
func (mc *MemoryCache) Get(key string) (*ir.IRDocument, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.lookup[key]
	if !ok {
		mc.misses++
		return nil, false
	}
	mc.order.MoveToFront(el)
	mc.hits++
	return el.Value.(*l1Entry).doc, true
}

// Set stores doc under key, updating size accounting if key already existed
// (subtract old size, add new) and evicting LRU entries until both the
// entry-count and byte bounds are respected. A no-op when maxSize == 0.
func (mc *MemoryCache) Set(key string, doc *ir.IRDocument) {
	if mc.maxSize == 0 {
		return
	}
	size := int64(doc.EstimatedSize())

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.lookup[key]; ok {
		existing := el.Value.(*l1Entry)
		mc.currentBytes -= int64(existing.bytes)
		existing.doc = doc
		existing.bytes = int(size)
		mc.currentBytes += size
		mc.order.MoveToFront(el)
	} else {
		entry := &l1Entry{key: key, doc: doc, bytes: int(size)}
		el := mc.order.PushFront(entry)
		mc.lookup[key] = el
		mc.currentBytes += size
	}

	for (len(mc.lookup) > mc.maxSize || mc.currentBytes > mc.maxBytes) && mc.order.Len() > 0 {
		mc.evictOldestLocked()
	}
}

func (mc *MemoryCache) evictOldestLocked() {
	back := mc.order.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*l1Entry)
	mc.order.Remove(back)
	delete(mc.lookup, entry.key)
	mc.currentBytes -= int64(entry.bytes)
	mc.evictions++
}

// Clear empties the cache and its size accounting, without resetting
// hit/miss/eviction telemetry.
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.lookup = make(map[string]*list.Element)
	mc.order = list.New()
	mc.currentBytes = 0
}

// Size returns the current entry count and byte total.
func (mc *MemoryCache) Size() (entries int, bytes int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.lookup), mc.currentBytes
}

// Stats returns L1 telemetry.
func (mc *MemoryCache) Stats() (hits, misses, evictions int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.hits, mc.misses, mc.evictions
}
