// Package compiler turns a declarative taint rule set (source/sink/
// sanitizer atoms and policies) into a sorted list of taint.CompiledRules
// with specificity scoring, a generator plan, prefilters, and predicates —
// a small precomputed-plan compiler sitting in front of the execution
// engine in the executor package.
package compiler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kraklabs/codelayer/internal/ports"
	"github.com/kraklabs/codelayer/internal/taint"
)

// Limits bounds compiler resource usage: total rule count, pattern length,
// and how long a single regex predicate may run.
type Limits struct {
	MaxRules       int
	MaxQueryLength int
	RegexTimeout   time.Duration
}

// DefaultLimits returns the stock bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxRules:       100_000,
		MaxQueryLength: 256,
		RegexTimeout:   50 * time.Millisecond,
	}
}

// PolicySpec names the vulnerability policy a source+sink pairing reports
// under — e.g. "sql-injection" with CWE-89.
type PolicySpec struct {
	ID       string
	Name     string
	Severity taint.Severity
	CWE      string
}

// Compiler compiles Atoms into CompiledRules.
type Compiler struct {
	limits Limits
}

// New creates a Compiler with the given limits (a zero-value field in
// limits falls back to its DefaultLimits() counterpart).
func New(limits Limits) *Compiler {
	d := DefaultLimits()
	if limits.MaxRules <= 0 {
		limits.MaxRules = d.MaxRules
	}
	if limits.MaxQueryLength <= 0 {
		limits.MaxQueryLength = d.MaxQueryLength
	}
	if limits.RegexTimeout <= 0 {
		limits.RegexTimeout = d.RegexTimeout
	}
	return &Compiler{limits: limits}
}

// Compile turns atoms (paired with the policy each belongs to) into a
// specificity-sorted list of CompiledRules. Empty MatchRule patterns are
// rejected, and any pattern longer than MaxQueryLength is rejected as a
// DoS guard.
func (c *Compiler) Compile(atoms []taint.Atom, policy PolicySpec) ([]taint.CompiledRule, error) {
	if len(atoms) > c.limits.MaxRules {
		return nil, ports.NewResourceError("taint rule set", c.limits.MaxRules)
	}

	rules := make([]taint.CompiledRule, 0, len(atoms))
	for _, a := range atoms {
		if isEmptyPattern(a.Rule) {
			return nil, ports.NewValidationError("MatchRule", "empty pattern for atom "+a.ID)
		}
		if n := longestPatternLen(a.Rule); n > c.limits.MaxQueryLength {
			return nil, ports.NewValidationError("MatchRule",
				fmt.Sprintf("pattern length %d exceeds max_query_length %d for atom %s", n, c.limits.MaxQueryLength, a.ID))
		}
		if !taint.ValidCWE(a.CWE) {
			return nil, ports.NewValidationError("Atom.CWE", "must match CWE-\\d+: "+a.CWE)
		}

		rule := compileOne(a, policy, c.limits.RegexTimeout)
		rules = append(rules, rule)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Specificity > rules[j].Specificity
	})
	return rules, nil
}

func isEmptyPattern(r taint.MatchRule) bool {
	return r.BaseType == "" && r.Call == "" && r.Read == "" && r.Scope == ""
}

// longestPatternLen returns the length of the longest query-like string a
// MatchRule carries, the value checked against max_query_length.
func longestPatternLen(r taint.MatchRule) int {
	n := len(r.BaseType)
	if len(r.Call) > n {
		n = len(r.Call)
	}
	if len(r.Read) > n {
		n = len(r.Read)
	}
	if len(r.Scope) > n {
		n = len(r.Scope)
	}
	return n
}

func compileOne(a taint.Atom, policy PolicySpec, regexTimeout time.Duration) taint.CompiledRule {
	plan := generatorPlan(a.Rule)
	prefilters := prefiltersFor(a.Rule)
	predicates := predicatesFor(a)
	specificity := specificityScore(a.Rule, plan, predicates)

	effectKind := taint.EffectSource
	switch a.Kind {
	case taint.AtomSink:
		effectKind = taint.EffectSink
	case taint.AtomSanitizer:
		effectKind = taint.EffectSanitizer
	}

	var taintPositions []int
	if len(a.Rule.ArgPosition) > 0 {
		taintPositions = append([]int(nil), a.Rule.ArgPosition...)
	}

	return taint.CompiledRule{
		ID:              fmt.Sprintf("%s.%s", string(a.Kind), a.ID),
		AtomID:          a.ID,
		PolicyID:        policy.ID,
		PolicyName:      policy.Name,
		Specificity:     specificity,
		Tier:            tierFor(plan),
		Generators:      plan,
		Prefilters:      prefilters,
		Predicates:      predicates,
		BaseConfidence:  0.5,
		ReportThreshold: 0.5,
		RegexTimeout:    regexTimeout,
		Effect: taint.Effect{
			Kind:              effectKind,
			TaintArgPositions: taintPositions,
		},
		Severity: firstNonEmpty(a.Severity, policy.Severity),
		CWE:      firstNonEmptyStr(a.CWE, policy.CWE),
		Tags:     a.Tags,
	}
}

func firstNonEmpty(a, b taint.Severity) taint.Severity {
	if a != "" {
		return a
	}
	return b
}

func firstNonEmptyStr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// generatorPlan picks the most specific applicable generator for a
// MatchRule, preferring ExactTypeCall > ExactCall > CallPrefix > TypeSuffix
// > TypeTrigram > Fallback. Fallback is only reachable when no indexable
// key exists.
func generatorPlan(r taint.MatchRule) []taint.Generator {
	var plan []taint.Generator
	switch {
	case r.BaseType != "" && r.Call != "" && !strings.ContainsAny(r.Call, "*"):
		plan = append(plan, taint.Generator{Kind: taint.GenExactTypeCall, BaseType: r.BaseType, Call: r.Call})
	case r.Call != "" && !strings.ContainsAny(r.Call, "*"):
		plan = append(plan, taint.Generator{Kind: taint.GenExactCall, Call: r.Call})
	case strings.HasSuffix(r.Call, "*"):
		plan = append(plan, taint.Generator{Kind: taint.GenCallPrefix, Prefix: strings.TrimSuffix(r.Call, "*")})
	case strings.HasPrefix(r.BaseType, "*"):
		plan = append(plan, taint.Generator{Kind: taint.GenTypeSuffix, Suffix: strings.TrimPrefix(r.BaseType, "*")})
	case r.BaseType != "":
		plan = append(plan, taint.Generator{Kind: taint.GenTypeTrigram, Literal: r.BaseType})
	default:
		plan = append(plan, taint.Generator{Kind: taint.GenFallback})
	}
	return plan
}

func prefiltersFor(r taint.MatchRule) []taint.Prefilter {
	var out []taint.Prefilter
	if len(r.ArgPosition) > 0 {
		out = append(out, taint.Prefilter{Kind: taint.PrefilterHasArgIndex, ArgIndex: r.ArgPosition[0]})
	}
	return out
}

func predicatesFor(a taint.Atom) []taint.Predicate {
	var out []taint.Predicate
	if a.Kind == taint.AtomSink && len(a.Rule.ArgPosition) > 0 {
		out = append(out, taint.Predicate{
			Kind:                 taint.PredicateArgIsTainted,
			Arg:                  a.Rule.ArgPosition[0],
			ConfidenceAdjustment: 0.45,
		})
	} else {
		out = append(out, taint.Predicate{Kind: taint.PredicateAlways, ConfidenceAdjustment: 0.5})
	}
	return out
}

// specificityScore ranks rules so the most specific run first: contributions
// from the generator kind, presence of a base type and a scope, and
// predicate count.
func specificityScore(r taint.MatchRule, plan []taint.Generator, predicates []taint.Predicate) int {
	score := 0
	if len(plan) > 0 {
		switch plan[0].Kind {
		case taint.GenExactTypeCall:
			score += 60
		case taint.GenExactCall:
			score += 50
		case taint.GenCallPrefix:
			score += 35
		case taint.GenTypeSuffix:
			score += 30
		case taint.GenTypeTrigram:
			score += 20
		case taint.GenFallback:
			score += 5
		}
	}
	if r.BaseType != "" {
		score += 5
	}
	if r.Scope != "" {
		score += 3
	}
	score += len(predicates) * 2
	return score
}

func tierFor(plan []taint.Generator) int {
	if len(plan) == 0 {
		return 5
	}
	return int(plan[0].Kind)
}
