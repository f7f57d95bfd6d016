package executor

import "github.com/kraklabs/codelayer/internal/taint"

// Match is one rule hit against one entity.
type Match struct {
	RuleID         string
	AtomID         string
	EntityID       string
	Confidence     float64
	Specificity    int
	EffectKind     taint.EffectKind
	TaintPositions []int
	Tier           int
	Severity       taint.Severity
	Tags           []string
	Trace          []string
}

// Stats reports executor telemetry.
type Stats struct {
	TotalRules           int
	TotalEntities        int
	TotalMatches         int
	ExecutionNanos       int64
	CandidatesGenerated  int
	PredicatesEvaluated  int
	CacheHits            int
	CacheMisses          int
}
