package executor

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/kraklabs/codelayer/internal/taint"
)

// Executor runs a compiled rule set over an entity set.
type Executor struct {
	cache *ResultCache

	// Cancel, when non-nil, is checked between rules (not between
	// entities) so large rule sets aren't starved mid-rule.
	Cancel *atomic.Bool
}

// New creates an Executor with an optional result cache (pass nil to
// disable result caching).
func New(cache *ResultCache) *Executor {
	return &Executor{cache: cache}
}

// Execute runs every compiled rule, in order, against entities, producing
// matches sorted by specificity descending.
func (ex *Executor) Execute(entities []*taint.Entity, rules []taint.CompiledRule) ([]Match, Stats) {
	start := time.Now()
	stats := Stats{TotalRules: len(rules), TotalEntities: len(entities)}

	idx := BuildMultiIndex(entities)

	var matches []Match
	for _, rule := range rules {
		if ex.Cancel != nil && ex.Cancel.Load() {
			break
		}

		seen := make(map[string]bool)
		for _, gen := range rule.Generators {
			candidates := idx.Generate(gen)
			stats.CandidatesGenerated += len(candidates)

			for _, cand := range candidates {
				if seen[cand.ID] {
					continue
				}
				seen[cand.ID] = true

				if ex.cache != nil {
					if m, ok := ex.cache.Get(cand.ID, rule.ID); ok {
						matches = append(matches, m)
						continue
					}
				}

				if !passesPrefilters(rule.Prefilters, cand) {
					continue
				}

				confidence := rule.BaseConfidence
				passed := true
				var trace []string
				for _, pred := range rule.Predicates {
					stats.PredicatesEvaluated++
					ok, adj, err := pred.EvaluateBounded(cand, rule.RegexTimeout)
					trace = append(trace, string(pred.Kind))
					if err != nil {
						// a timed-out regex predicate is a non-match,
						// not a reason to abort the run
						passed = false
						break
					}
					if !ok {
						passed = false
						break
					}
					confidence += adj
				}
				if !passed {
					continue
				}

				confidence = clamp01(confidence)
				if !rule.ShouldReport(confidence) {
					continue
				}

				m := Match{
					RuleID:         rule.ID,
					AtomID:         rule.AtomID,
					EntityID:       cand.ID,
					Confidence:     confidence,
					Specificity:    rule.Specificity,
					EffectKind:     rule.Effect.Kind,
					TaintPositions: rule.Effect.TaintArgPositions,
					Tier:           rule.Tier,
					Severity:       rule.Severity,
					Tags:           rule.Tags,
					Trace:          trace,
				}
				matches = append(matches, m)
				if ex.cache != nil {
					ex.cache.Put(cand.ID, rule.ID, m)
				}
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Specificity > matches[j].Specificity })
	stats.TotalMatches = len(matches)
	stats.ExecutionNanos = time.Since(start).Nanoseconds()
	if ex.cache != nil {
		stats.CacheHits, stats.CacheMisses = ex.cache.HitsMisses()
	}
	return matches, stats
}

func passesPrefilters(filters []taint.Prefilter, e *taint.Entity) bool {
	for _, f := range filters {
		if !f.Passes(e) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
