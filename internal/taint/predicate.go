package taint

import (
	"regexp"
	"time"

	"github.com/kraklabs/codelayer/internal/ports"
)

// PredicateKind enumerates the executable conditions a compiled rule checks
// against a candidate Entity, in short-circuit order.
type PredicateKind string

const (
	PredicateArgIsTainted    PredicateKind = "arg_is_tainted"
	PredicateHasShellKwarg   PredicateKind = "has_shell_kwarg"
	PredicateCallEquals      PredicateKind = "call_equals"
	PredicateBaseTypeEquals  PredicateKind = "base_type_equals"
	PredicateRegexMatch      PredicateKind = "regex_match"
	PredicateAlways          PredicateKind = "always"
)

// Predicate is one data-driven condition plus its confidence contribution
// when it passes.
type Predicate struct {
	Kind                 PredicateKind
	Arg                  int
	Value                string
	ConfidenceAdjustment float64
}

// Evaluate runs the predicate against e, returning (passed, confidence
// adjustment). A failing predicate contributes no adjustment. PredicateRegexMatch
// runs unbounded here — callers on the hot/untrusted-pattern path should use
// EvaluateBounded instead.
func (p Predicate) Evaluate(e *Entity) (bool, float64) {
	switch p.Kind {
	case PredicateArgIsTainted:
		if e.IsArgTainted(p.Arg) {
			return true, p.ConfidenceAdjustment
		}
		return false, 0
	case PredicateHasShellKwarg:
		if e.HasShellKwarg {
			return true, p.ConfidenceAdjustment
		}
		return false, 0
	case PredicateCallEquals:
		if e.Call == p.Value {
			return true, p.ConfidenceAdjustment
		}
		return false, 0
	case PredicateBaseTypeEquals:
		if e.BaseType == p.Value {
			return true, p.ConfidenceAdjustment
		}
		return false, 0
	case PredicateRegexMatch:
		if matched, _ := regexp.MatchString(p.Value, e.Call); matched {
			return true, p.ConfidenceAdjustment
		}
		return false, 0
	case PredicateAlways:
		return true, p.ConfidenceAdjustment
	default:
		return false, 0
	}
}

// EvaluateBounded is Evaluate, except PredicateRegexMatch runs its match in
// a goroutine bounded by timeout, a DoS guard against
// catastrophic-backtracking patterns. On timeout it returns a
// *ports.TimeoutError and (false, 0); the executor treats a timed-out
// predicate as a non-match rather than aborting the run. Non-regex predicates ignore timeout and delegate to
// Evaluate directly; they run in bounded time already.
func (p Predicate) EvaluateBounded(e *Entity, timeout time.Duration) (bool, float64, error) {
	if p.Kind != PredicateRegexMatch {
		passed, adj := p.Evaluate(e)
		return passed, adj, nil
	}
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}

	type result struct {
		matched bool
		err     error
	}
	done := make(chan result, 1)
	go func() {
		matched, err := regexp.MatchString(p.Value, e.Call)
		done <- result{matched: matched, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil || !r.matched {
			return false, 0, nil
		}
		return true, p.ConfidenceAdjustment, nil
	case <-time.After(timeout):
		return false, 0, ports.NewTimeoutError("regex match")
	}
}

// PrefilterKind enumerates the cheap gates applied to candidates before
// predicate evaluation.
type PrefilterKind string

const (
	PrefilterCallStartsWith PrefilterKind = "call_starts_with"
	PrefilterTypeEndsWith   PrefilterKind = "type_ends_with"
	PrefilterHasArgIndex    PrefilterKind = "has_arg_index"
)

// Prefilter is a cheap, non-confidence-bearing gate: a candidate failing any
// prefilter is dropped before predicate evaluation.
type Prefilter struct {
	Kind     PrefilterKind
	Value    string
	ArgIndex int
}

// Passes reports whether e survives this prefilter.
func (p Prefilter) Passes(e *Entity) bool {
	switch p.Kind {
	case PrefilterCallStartsWith:
		return len(e.Call) >= len(p.Value) && e.Call[:len(p.Value)] == p.Value
	case PrefilterTypeEndsWith:
		return len(e.BaseType) >= len(p.Value) && e.BaseType[len(e.BaseType)-len(p.Value):] == p.Value
	case PrefilterHasArgIndex:
		return p.ArgIndex >= 0 && p.ArgIndex < len(e.Args)
	default:
		return true
	}
}
