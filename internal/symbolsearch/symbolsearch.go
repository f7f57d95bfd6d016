// Package symbolsearch is a three-tier symbol query over an
// OccurrenceIndex: L1 exact hash lookup, L2 edit-distance correction via
// go-edlib, L3 trigram/Jaccard fuzzy recall.
package symbolsearch

import (
	"fmt"
	"sort"

	"github.com/hbollon/go-edlib"
)

// DefaultMaxEditDistance bounds L2 edit-distance candidates.
const DefaultMaxEditDistance = 2

// DefaultTrigramThreshold gates L3 Jaccard similarity.
const DefaultTrigramThreshold = 0.7

// DefaultRebuildThreshold is the entry-count delta that triggers an index
// rebuild.
const DefaultRebuildThreshold = 500

// Occurrence is one entry in the OccurrenceIndex: a symbol_id plus the
// metadata a search result needs to surface.
type Occurrence struct {
	SymbolID string
	FilePath string
	Kind     string
}

// Match is one query result, tagged with which tier produced it.
type Match struct {
	Occurrence Occurrence
	Tier       string // "exact" | "edit_distance" | "trigram"
	Distance   int     // L2 only
	Similarity float64 // L3 only
}

// Index is the OccurrenceIndex backing the three-tier search.
type Index struct {
	bySymbol map[string][]Occurrence
	trigrams map[string]map[string]struct{} // symbol_id -> its trigram set

	maxEditDistance  int
	trigramThreshold float64
	rebuildThreshold int
	sinceRebuild     int
}

// NewIndex builds an empty Index with default tuning.
func NewIndex() *Index {
	return &Index{
		bySymbol:         make(map[string][]Occurrence),
		trigrams:         make(map[string]map[string]struct{}),
		maxEditDistance:  DefaultMaxEditDistance,
		trigramThreshold: DefaultTrigramThreshold,
		rebuildThreshold: DefaultRebuildThreshold,
	}
}

// SetMaxEditDistance overrides the L2 tuning (0 keeps the current value).
func (idx *Index) SetMaxEditDistance(d int) {
	if d != 0 {
		idx.maxEditDistance = d
	}
}

// SetTrigramThreshold overrides the L3 tuning.
func (idx *Index) SetTrigramThreshold(t float64) { idx.trigramThreshold = t }

// SetRebuildThreshold overrides the entry-count delta that triggers
// NeedsRebuild.
func (idx *Index) SetRebuildThreshold(n int) { idx.rebuildThreshold = n }

// Add indexes one occurrence under its symbol_id, computing its trigram set
// for L3. Non-ASCII symbol IDs (Korean, Japanese, etc.) are indexed on
// their rune trigrams unchanged — no normalization is applied.
func (idx *Index) Add(occ Occurrence) {
	idx.bySymbol[occ.SymbolID] = append(idx.bySymbol[occ.SymbolID], occ)
	if _, ok := idx.trigrams[occ.SymbolID]; !ok {
		idx.trigrams[occ.SymbolID] = trigramSet(occ.SymbolID)
	}
	idx.sinceRebuild++
}

// NeedsRebuild reports whether enough entries have been added since the
// last ResetRebuildCounter to warrant rebuilding derived structures.
func (idx *Index) NeedsRebuild() bool {
	return idx.sinceRebuild >= idx.rebuildThreshold
}

// ResetRebuildCounter is called by the caller after performing a rebuild.
func (idx *Index) ResetRebuildCounter() { idx.sinceRebuild = 0 }

// Search runs the full L1->L2->L3 pipeline for query. Queries always return a list (possibly empty), empty input returns
// empty, and no strategy is attempted until the prior tier's exact-match
// result set is empty.
func (idx *Index) Search(query string) ([]Match, error) {
	if query == "" {
		return nil, nil
	}

	if occs, ok := idx.bySymbol[query]; ok {
		out := make([]Match, 0, len(occs))
		for _, o := range occs {
			out = append(out, Match{Occurrence: o, Tier: "exact"})
		}
		return out, nil
	}

	l2, err := idx.searchEditDistance(query)
	if err != nil {
		return nil, err
	}
	if len(l2) > 0 {
		return l2, nil
	}

	return idx.searchTrigram(query), nil
}

// searchEditDistance is L2: SymSpell-style correction via go-edlib's
// Levenshtein distance. The backing library is a direct compile-time
// import, so its absence fails the build rather than silently degrading.
func (idx *Index) searchEditDistance(query string) ([]Match, error) {
	var out []Match
	for symbolID, occs := range idx.bySymbol {
		dist := edlib.LevenshteinDistance(query, symbolID)
		if dist <= idx.maxEditDistance {
			sim, err := similarityScore(query, symbolID)
			if err != nil {
				return nil, err
			}
			for _, o := range occs {
				out = append(out, Match{Occurrence: o, Tier: "edit_distance", Distance: dist, Similarity: sim})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

// searchTrigram is L3: Jaccard similarity over character
// trigrams, threshold-gated.
func (idx *Index) searchTrigram(query string) []Match {
	qset := trigramSet(query)
	if len(qset) == 0 {
		return nil
	}

	var out []Match
	for symbolID, tset := range idx.trigrams {
		sim := jaccard(qset, tset)
		if sim >= idx.trigramThreshold {
			for _, o := range idx.bySymbol[symbolID] {
				out = append(out, Match{Occurrence: o, Tier: "trigram", Similarity: sim})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}

// similarityScore returns go-edlib's JaroWinkler similarity, used to rank
// L2 candidates of equal edit distance.
func similarityScore(a, b string) (float64, error) {
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0, fmt.Errorf("symbolsearch: similarity score: %w", err)
	}
	return float64(score), nil
}

// trigramSet returns the set of overlapping rune trigrams for s. Runs on
// runes, not bytes, so multi-byte UTF-8 symbol IDs (Korean, Japanese)
// trigram correctly instead of splitting in the middle of an encoded rune.
func trigramSet(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
