package executor

import "sync"

// ResultCache memoizes (entity.id, rule.compiled_id) -> Match for repeated
// executions, e.g. incremental analysis re-running unchanged rules over an
// unchanged entity set.
type ResultCache struct {
	mu      sync.Mutex
	maxSize int
	order   []cacheKey
	items   map[cacheKey]Match
	hits    int
	misses  int
}

type cacheKey struct {
	entityID string
	ruleID   string
}

// NewResultCache creates a size-bounded result cache. maxSize <= 0 disables
// bounding (grows unbounded).
func NewResultCache(maxSize int) *ResultCache {
	return &ResultCache{maxSize: maxSize, items: make(map[cacheKey]Match)}
}

// Get returns the cached Match for (entityID, ruleID), if present.
func (c *ResultCache) Get(entityID, ruleID string) (Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{entityID, ruleID}
	m, ok := c.items[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return m, ok
}

// Put stores a Match, evicting the oldest entry if the cache is full.
func (c *ResultCache) Put(entityID, ruleID string, m Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{entityID, ruleID}
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
		if c.maxSize > 0 && len(c.order) > c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
	}
	c.items[key] = m
}

// Clear empties the cache without resetting hit/miss counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[cacheKey]Match)
	c.order = nil
}

// HitsMisses returns the running hit/miss counters.
func (c *ResultCache) HitsMisses() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
