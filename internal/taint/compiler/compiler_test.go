package compiler

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/taint"
	"github.com/stretchr/testify/require"
)

func TestCompileSortsBySpecificityDescending(t *testing.T) {
	c := New(DefaultLimits())
	atoms := []taint.Atom{
		{ID: "fallback-ish", Kind: taint.AtomSink, Rule: taint.MatchRule{Scope: "any"}},
		{ID: "exact-call", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "os.system", ArgPosition: []int{0}}},
		{ID: "exact-type-call", Kind: taint.AtomSink, Rule: taint.MatchRule{BaseType: "sqlite3.Cursor", Call: "execute", ArgPosition: []int{0}}},
	}
	rules, err := c.Compile(atoms, PolicySpec{ID: "p1", Name: "test"})
	require.NoError(t, err)
	require.Len(t, rules, 3)
	for i := 1; i < len(rules); i++ {
		require.GreaterOrEqual(t, rules[i-1].Specificity, rules[i].Specificity)
	}
	require.Equal(t, "exact-type-call", rules[0].AtomID)
}

func TestCompileRejectsEmptyPattern(t *testing.T) {
	c := New(DefaultLimits())
	atoms := []taint.Atom{{ID: "bad", Kind: taint.AtomSink, Rule: taint.MatchRule{}}}
	_, err := c.Compile(atoms, PolicySpec{ID: "p1"})
	require.Error(t, err)
}

func TestCompileRejectsInvalidCWE(t *testing.T) {
	c := New(DefaultLimits())
	atoms := []taint.Atom{{ID: "a", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "x"}, CWE: "not-a-cwe"}}
	_, err := c.Compile(atoms, PolicySpec{ID: "p1"})
	require.Error(t, err)
}

func TestCompileRejectsOverMaxRules(t *testing.T) {
	c := New(Limits{MaxRules: 1})
	atoms := []taint.Atom{
		{ID: "a", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "x"}},
		{ID: "b", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "y"}},
	}
	_, err := c.Compile(atoms, PolicySpec{ID: "p1"})
	require.Error(t, err)
}

func TestCommandInjectionRuleCompilesExactCallGenerator(t *testing.T) {
	c := New(DefaultLimits())
	atoms := []taint.Atom{
		{ID: "command-injection.os-system", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "os.system", ArgPosition: []int{0}}, CWE: "CWE-78"},
	}
	rules, err := c.Compile(atoms, PolicySpec{ID: "p1", Name: "command-injection"})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, "sink.command-injection.os-system", rules[0].ID)
	require.Equal(t, taint.GenExactCall, rules[0].Generators[0].Kind)
	require.Equal(t, 0, rules[0].Predicates[0].Arg)
	require.Equal(t, taint.PredicateArgIsTainted, rules[0].Predicates[0].Kind)
}
