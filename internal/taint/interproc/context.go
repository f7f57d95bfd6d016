// Package interproc coordinates k-CFA call-string contexts and alias
// information on top of the core taint vocabulary (internal/taint) to
// produce interprocedural taint flows. Traversals are bounded and track
// visited state so cyclic call graphs terminate.
package interproc

import "sync"

// DefaultKLimit is the default call-string context depth.
const DefaultKLimit = 2

// Context is a call-string context: the last (up to) k call-site IDs on the
// path that reached the current function.
type Context struct {
	CallString []string
}

// Key returns a canonical string key for map indexing.
func (c Context) Key() string {
	key := ""
	for i, id := range c.CallString {
		if i > 0 {
			key += "\x1f"
		}
		key += id
	}
	return key
}

// RootContext is the empty call-string context (entry point, or k=0).
var RootContext = Context{}

// ContextManager maintains call-string contexts up to depth k, interning
// canonical Context values so identical call strings share one instance.
// Rebuilt (its interning table cleared) whenever the k limit changes.
type ContextManager struct {
	mu sync.Mutex
	k  int

	interned map[string]Context
}

// NewContextManager creates a ContextManager with the given k (DefaultKLimit
// if k <= 0).
func NewContextManager(k int) *ContextManager {
	if k <= 0 {
		k = DefaultKLimit
	}
	return &ContextManager{k: k, interned: make(map[string]Context)}
}

// KLimit returns the current context depth.
func (cm *ContextManager) KLimit() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.k
}

// SetKLimit updates the context depth, rebuilding (discarding) all interned
// contexts if the limit actually changed.
func (cm *ContextManager) SetKLimit(k int) {
	if k <= 0 {
		k = DefaultKLimit
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if k == cm.k {
		return
	}
	cm.k = k
	cm.interned = make(map[string]Context)
}

// PushCall extends ctx with a new call site, truncating to the last k
// entries (oldest dropped first, i.e. a sliding window over the call
// string).
func (cm *ContextManager) PushCall(ctx Context, callSiteID string) Context {
	cm.mu.Lock()
	k := cm.k
	cm.mu.Unlock()

	extended := make([]string, 0, len(ctx.CallString)+1)
	extended = append(extended, ctx.CallString...)
	extended = append(extended, callSiteID)
	if len(extended) > k {
		extended = extended[len(extended)-k:]
	}
	next := Context{CallString: extended}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if existing, ok := cm.interned[next.Key()]; ok {
		return existing
	}
	cm.interned[next.Key()] = next
	return next
}

// Contexts returns every context currently interned, for telemetry/testing.
func (cm *ContextManager) Contexts() []Context {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make([]Context, 0, len(cm.interned))
	for _, c := range cm.interned {
		out = append(out, c)
	}
	return out
}
