// Package executor runs compiled taint rules against entity sets:
// multi-index candidate generation, predicate evaluation, and match
// emission over a set of compiled rules.
package executor

import (
	"github.com/kraklabs/codelayer/internal/taint"
)

// MultiIndex indexes a set of entities for every generator kind: exact (base_type,call), exact call, call-prefix trie,
// type-suffix trie, a trigram index over base types, and a full fallback
// list.
type MultiIndex struct {
	all []*taint.Entity

	exactTypeCall map[string][]*taint.Entity // key: baseType + "\x00" + call
	exactCall     map[string][]*taint.Entity
	byCallPrefix  map[string][]*taint.Entity // precomputed prefixes up to 8 chars
	byTypeSuffix  map[string][]*taint.Entity // precomputed suffixes up to 8 chars
	trigrams      map[string][]*taint.Entity
}

// BuildMultiIndex indexes entities for rule execution.
func BuildMultiIndex(entities []*taint.Entity) *MultiIndex {
	idx := &MultiIndex{
		all:           entities,
		exactTypeCall: make(map[string][]*taint.Entity),
		exactCall:     make(map[string][]*taint.Entity),
		byCallPrefix:  make(map[string][]*taint.Entity),
		byTypeSuffix:  make(map[string][]*taint.Entity),
		trigrams:      make(map[string][]*taint.Entity),
	}
	for _, e := range entities {
		key := e.BaseType + "\x00" + e.Call
		idx.exactTypeCall[key] = append(idx.exactTypeCall[key], e)
		idx.exactCall[e.Call] = append(idx.exactCall[e.Call], e)

		for _, p := range prefixesOf(e.Call, 8) {
			idx.byCallPrefix[p] = append(idx.byCallPrefix[p], e)
		}
		for _, s := range suffixesOf(e.BaseType, 8) {
			idx.byTypeSuffix[s] = append(idx.byTypeSuffix[s], e)
		}
		for _, t := range trigramsOf(e.BaseType) {
			idx.trigrams[t] = append(idx.trigrams[t], e)
		}
	}
	return idx
}

func prefixesOf(s string, maxLen int) []string {
	var out []string
	n := len(s)
	if n > maxLen {
		n = maxLen
	}
	for i := 1; i <= n; i++ {
		out = append(out, s[:i])
	}
	return out
}

func suffixesOf(s string, maxLen int) []string {
	var out []string
	n := len(s)
	if n > maxLen {
		n = maxLen
	}
	for i := 1; i <= n; i++ {
		out = append(out, s[len(s)-i:])
	}
	return out
}

func trigramsOf(s string) []string {
	if len(s) < 3 {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var out []string
	for i := 0; i+3 <= len(s); i++ {
		out = append(out, s[i:i+3])
	}
	return out
}

// Generate returns the candidate entities for one Generator step.
func (idx *MultiIndex) Generate(g taint.Generator) []*taint.Entity {
	switch g.Kind {
	case taint.GenExactTypeCall:
		return idx.exactTypeCall[g.BaseType+"\x00"+g.Call]
	case taint.GenExactCall:
		return idx.exactCall[g.Call]
	case taint.GenCallPrefix:
		return idx.byCallPrefix[g.Prefix]
	case taint.GenTypeSuffix:
		return idx.byTypeSuffix[g.Suffix]
	case taint.GenTypeTrigram:
		return idx.mostSelectiveTrigramMatch(g.Literal)
	case taint.GenFallback:
		return idx.all
	default:
		return nil
	}
}

// mostSelectiveTrigramMatch intersects candidate sets across the literal's
// trigrams and returns entities present in every one, falling back to a
// union when the literal is shorter than 3 characters.
func (idx *MultiIndex) mostSelectiveTrigramMatch(literal string) []*taint.Entity {
	grams := trigramsOf(literal)
	if len(grams) == 0 {
		return nil
	}
	counts := make(map[*taint.Entity]int)
	for _, g := range grams {
		for _, e := range idx.trigrams[g] {
			counts[e]++
		}
	}
	var out []*taint.Entity
	for e, c := range counts {
		if c == len(grams) {
			out = append(out, e)
		}
	}
	return out
}
