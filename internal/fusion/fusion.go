// Package fusion merges per-strategy ranked hits (vector/lexical/symbol/graph) into one
// ranked list, weighting strategies by query intent, normalizing with
// reciprocal-rank fusion, and boosting chunks that multiple strategies
// agree on. A strategy with zero hits simply contributes nothing; the
// engine tolerates missing or degraded strategies.
package fusion

import (
	"fmt"
	"math"
	"sort"
)

// Strategy names a single retrieval channel.
type Strategy string

const (
	StrategyVector  Strategy = "vector"
	StrategyLexical Strategy = "lexical"
	StrategySymbol  Strategy = "symbol"
	StrategyGraph   Strategy = "graph"
)

// Intent names a query-intent label.
type Intent string

const (
	IntentSymbol   Intent = "symbol"
	IntentFlow     Intent = "flow"
	IntentConcept  Intent = "concept"
	IntentCode     Intent = "code"
	IntentBalanced Intent = "balanced"
)

// IntentProbability is a multi-label distribution over Intent; values need
// not sum to 1 (independent per-label confidences).
type IntentProbability map[Intent]float64

// RankedHit is one strategy's ranked result for a chunk.
type RankedHit struct {
	ChunkID   string
	FilePath  string
	SymbolID  string // optional
	Rank      int    // 1-based
	Metadata  map[string]string
}

// QueryExpansion carries optional expansion terms that, if matched against
// a chunk's metadata, earn a small boost.
type QueryExpansion struct {
	Symbols   []string
	FilePaths []string
	Modules   []string
}

// WeightProfile is one intent's base per-strategy weighting.
type WeightProfile struct {
	Vector  float64
	Lexical float64
	Symbol  float64
	Graph   float64
}

// DefaultProfiles is the per-intent base weight table. Each profile need
// not sum to 1 — intent-weighted combination re-normalizes after
// the linear blend and non-linear boosts.
var DefaultProfiles = map[Intent]WeightProfile{
	IntentSymbol:   {Vector: 0.2, Lexical: 0.2, Symbol: 0.5, Graph: 0.1},
	IntentFlow:     {Vector: 0.2, Lexical: 0.1, Symbol: 0.1, Graph: 0.6},
	IntentConcept:  {Vector: 0.6, Lexical: 0.2, Symbol: 0.1, Graph: 0.1},
	IntentCode:     {Vector: 0.3, Lexical: 0.4, Symbol: 0.2, Graph: 0.1},
	IntentBalanced: {Vector: 0.25, Lexical: 0.25, Symbol: 0.25, Graph: 0.25},
}

// DefaultCutoffs is the per-intent top-K result cutoff.
var DefaultCutoffs = map[Intent]int{
	IntentSymbol: 20, IntentFlow: 30, IntentConcept: 15, IntentCode: 20, IntentBalanced: 20,
}

// RRFConstant is the default k in score = 1/(k+rank).
const RRFConstant = 60.0

// ConsensusStats describes how many strategies agreed on a chunk and how
// well it ranked across them.
type ConsensusStats struct {
	NumStrategies   int
	BestRank        int
	AvgRank         float64
	ConsensusFactor float64
}

// StrategyContribution is one strategy's contribution to a fused result,
// used both for the feature vector and for explainability.
type StrategyContribution struct {
	Strategy Strategy
	Rank     int
	RRFScore float64
	Weight   float64
}

// FeatureVector is the per-chunk LTR feature set.
type FeatureVector struct {
	PerStrategy []StrategyContribution
	Consensus   ConsensusStats
	ChunkSize   int
	FileDepth   int
	SymbolType  string
}

// FusedResultV3 is one fused, ranked hit.
type FusedResultV3 struct {
	ChunkID      string
	FilePath     string
	SymbolID     string
	FinalScore   float64
	Feature      FeatureVector
	Explanation  string
}

// Input bundles everything the fusion pipeline needs for one query.
type Input struct {
	Hits      map[Strategy][]RankedHit
	Intent    IntentProbability
	Expansion *QueryExpansion
	// Metadata augments chunk_size/file_depth/symbol_type lookups used by
	// the feature vector. Keyed by chunk_id.
	ChunkMeta map[string]ChunkMeta
	// Explain turns on per-result explanation annotations.
	Explain bool
	// K overrides RRFConstant; 0 means use the default.
	K float64
}

// ChunkMeta carries the per-chunk metadata the feature vector needs.
type ChunkMeta struct {
	ChunkSize  int
	FileDepth  int
	SymbolType string
}

// Fuse runs the full fusion pipeline and returns FusedResultV3s sorted
// by FinalScore descending, truncated to the dominant intent's cutoff.
func Fuse(in Input) []FusedResultV3 {
	weights := intentWeights(in.Intent)
	k := in.K
	if k == 0 {
		k = RRFConstant
	}

	type accum struct {
		hit         RankedHit
		contributions []StrategyContribution
		baseScore   float64
	}
	byChunk := make(map[string]*accum)
	order := []string{}

	for _, strat := range []Strategy{StrategyVector, StrategyLexical, StrategySymbol, StrategyGraph} {
		w := weights[strat]
		for _, hit := range in.Hits[strat] {
			rrf := 1.0 / (k + float64(hit.Rank))
			a, ok := byChunk[hit.ChunkID]
			if !ok {
				a = &accum{hit: hit}
				byChunk[hit.ChunkID] = a
				order = append(order, hit.ChunkID)
			}
			a.contributions = append(a.contributions, StrategyContribution{
				Strategy: strat, Rank: hit.Rank, RRFScore: rrf, Weight: w,
			})
			a.baseScore += rrf * w
		}
	}

	if in.Expansion != nil {
		for _, id := range order {
			a := byChunk[id]
			if expansionMatches(a.hit, *in.Expansion) {
				a.baseScore *= 1.1
			}
		}
	}

	dominant := dominantIntent(in.Intent)
	results := make([]FusedResultV3, 0, len(order))
	for _, id := range order {
		a := byChunk[id]
		stats := consensus(a.contributions)
		finalScore := a.baseScore * stats.ConsensusFactor

		meta := in.ChunkMeta[id]
		fv := FeatureVector{
			PerStrategy: a.contributions,
			Consensus:   stats,
			ChunkSize:   meta.ChunkSize,
			FileDepth:   meta.FileDepth,
			SymbolType:  meta.SymbolType,
		}

		res := FusedResultV3{
			ChunkID: id, FilePath: a.hit.FilePath, SymbolID: a.hit.SymbolID,
			FinalScore: finalScore, Feature: fv,
		}
		if in.Explain {
			res.Explanation = explain(dominant, in.Intent[dominant], stats)
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].FinalScore > results[j].FinalScore })

	cutoff := DefaultCutoffs[dominant]
	if cutoff > 0 && len(results) > cutoff {
		results = results[:cutoff]
	}
	return results
}

// intentWeights linearly combines DefaultProfiles by intentProb, applies
// the non-linear dominant-intent boosts, then re-normalizes to
// sum to 1.
func intentWeights(intentProb IntentProbability) map[Strategy]float64 {
	w := map[Strategy]float64{StrategyVector: 0, StrategyLexical: 0, StrategySymbol: 0, StrategyGraph: 0}
	for intent, p := range intentProb {
		profile, ok := DefaultProfiles[intent]
		if !ok {
			continue
		}
		w[StrategyVector] += profile.Vector * p
		w[StrategyLexical] += profile.Lexical * p
		w[StrategySymbol] += profile.Symbol * p
		w[StrategyGraph] += profile.Graph * p
	}

	if p, ok := intentProb[IntentFlow]; ok && p > 0.2 {
		w[StrategyGraph] *= 1.3
	}
	if p, ok := intentProb[IntentSymbol]; ok && p > 0.3 {
		w[StrategySymbol] *= 1.2
	}

	total := w[StrategyVector] + w[StrategyLexical] + w[StrategySymbol] + w[StrategyGraph]
	if total <= 0 {
		return map[Strategy]float64{StrategyVector: 0.25, StrategyLexical: 0.25, StrategySymbol: 0.25, StrategyGraph: 0.25}
	}
	for s := range w {
		w[s] /= total
	}
	return w
}

func dominantIntent(intentProb IntentProbability) Intent {
	best := IntentBalanced
	bestP := -1.0
	for intent, p := range intentProb {
		if p > bestP {
			best, bestP = intent, p
		}
	}
	return best
}

func expansionMatches(hit RankedHit, exp QueryExpansion) bool {
	for _, sym := range exp.Symbols {
		if hit.SymbolID == sym {
			return true
		}
	}
	for _, fp := range exp.FilePaths {
		if hit.FilePath == fp {
			return true
		}
	}
	for _, mod := range exp.Modules {
		if hit.Metadata != nil && hit.Metadata["module"] == mod {
			return true
		}
	}
	return false
}

// consensus derives ConsensusStats from the per-strategy contributions a
// chunk accumulated: the factor grows with the number of agreeing
// strategies and with how well the chunk ranked in its best strategy
//.
func consensus(contribs []StrategyContribution) ConsensusStats {
	n := len(contribs)
	if n == 0 {
		return ConsensusStats{}
	}
	best := contribs[0].Rank
	sum := 0
	for _, c := range contribs {
		if c.Rank < best {
			best = c.Rank
		}
		sum += c.Rank
	}
	avg := float64(sum) / float64(n)

	// Each additional agreeing strategy beyond the first adds 15%,
	// tempered by how close to rank 1 the best strategy placed it.
	rankBonus := 1.0 / (1.0 + math.Log1p(float64(best-1)))
	factor := 1.0 + 0.15*float64(n-1)*rankBonus

	return ConsensusStats{NumStrategies: n, BestRank: best, AvgRank: avg, ConsensusFactor: factor}
}

func explain(dominant Intent, prob float64, stats ConsensusStats) string {
	s := fmt.Sprintf("Intent: %s (%.2f)", dominant, prob)
	if stats.NumStrategies > 1 {
		s += fmt.Sprintf("; consensus across %d strategies (best rank %d)", stats.NumStrategies, stats.BestRank)
	}
	return s
}
