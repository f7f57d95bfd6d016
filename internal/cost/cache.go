package cost

import (
	"sync"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ports"
)

type cacheKey struct {
	functionFQN string
	snapshotID  string
}

// Cache memoizes CostResults keyed by (function_fqn, snapshot_id).
// Analyze returns the same *CostResult instance on a cache hit;
// InvalidateByFunction drops every
// snapshot entry for a function name and returns the number removed.
type Cache struct {
	mu    sync.Mutex
	items map[cacheKey]*CostResult
}

// NewCache creates an empty cost cache.
func NewCache() *Cache {
	return &Cache{items: make(map[cacheKey]*CostResult)}
}

// Analyze returns the cached CostResult for (functionFQN, doc.SnapshotID) if
// present, otherwise computes, caches, and returns a fresh one.
func (c *Cache) Analyze(doc *ir.IRDocument, functionFQN string) (*CostResult, error) {
	key := cacheKey{functionFQN: functionFQN, snapshotID: doc.SnapshotID}

	c.mu.Lock()
	if cached, ok := c.items[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err := AnalyzeFunction(doc, functionFQN)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.items[key] = result
	c.mu.Unlock()
	return result, nil
}

// InvalidateByFunction removes every cached snapshot for functionFQN and
// returns the count removed.
func (c *Cache) InvalidateByFunction(functionFQN string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.items {
		if k.functionFQN == functionFQN {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Envelope wraps a CostResult in the Result Envelope shape, with typed
// COST_TERM Evidence.
func Envelope(requestID string, r *CostResult) ports.ResultEnvelope {
	claimID := requestID + ":cost"
	basis := ports.BasisInferred
	switch r.Verdict {
	case VerdictProven:
		basis = ports.BasisProven
	case VerdictHeuristic:
		basis = ports.BasisHeuristic
	}
	return ports.ResultEnvelope{
		RequestID: requestID,
		Summary:   string(r.Complexity) + " complexity for " + r.FunctionName,
		Claims: []ports.Claim{
			{
				ID:              claimID,
				Type:            "cost_classification",
				ConfidenceBasis: basis,
				Subject:         r.FunctionName,
				Description:     string(r.Complexity) + ": " + r.CostTerm,
			},
		},
		Evidences: []ports.Evidence{
			{
				Kind: ports.EvidenceCostTerm,
				Content: map[string]any{
					"cost_term":   r.CostTerm,
					"loop_bounds": r.LoopBounds,
				},
				Provenance: ports.Provenance{Engine: "CostAnalyzer", Version: "1"},
				ClaimIDs:   []string{claimID},
			},
		},
	}
}
