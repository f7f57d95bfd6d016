package symbolsearch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExactLookupHitsL1(t *testing.T) {
	idx := NewIndex()
	idx.Add(Occurrence{SymbolID: "mod.handler", FilePath: "mod.py", Kind: "function"})

	out, err := idx.Search("mod.handler")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "exact", out[0].Tier)
}

func TestTypoFallsThroughToEditDistance(t *testing.T) {
	idx := NewIndex()
	idx.Add(Occurrence{SymbolID: "mod.handlerr", FilePath: "mod.py", Kind: "function"})

	out, err := idx.Search("mod.handler")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, "edit_distance", out[0].Tier)
	require.LessOrEqual(t, out[0].Distance, DefaultMaxEditDistance)
}

func TestFarQueryFallsThroughToTrigram(t *testing.T) {
	idx := NewIndex()
	idx.SetTrigramThreshold(0.3)
	idx.Add(Occurrence{SymbolID: "process_payment_request", FilePath: "billing.py", Kind: "function"})

	out, err := idx.Search("process_payment_req")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, "trigram", out[0].Tier)
}

func TestEmptyQueryReturnsEmpty(t *testing.T) {
	idx := NewIndex()
	idx.Add(Occurrence{SymbolID: "foo", FilePath: "a.py"})
	out, err := idx.Search("")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestNonASCIISymbolsPassUnchanged(t *testing.T) {
	idx := NewIndex()
	idx.Add(Occurrence{SymbolID: "한국어_함수", FilePath: "ko.py"})
	idx.Add(Occurrence{SymbolID: "日本語関数", FilePath: "ja.py"})

	out, err := idx.Search("한국어_함수")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "exact", out[0].Tier)
	require.Equal(t, "한국어_함수", out[0].Occurrence.SymbolID)
}

func TestRebuildThresholdTriggersAfterConfiguredCount(t *testing.T) {
	idx := NewIndex()
	idx.SetRebuildThreshold(3)
	require.False(t, idx.NeedsRebuild())
	idx.Add(Occurrence{SymbolID: "a"})
	idx.Add(Occurrence{SymbolID: "b"})
	idx.Add(Occurrence{SymbolID: "c"})
	require.True(t, idx.NeedsRebuild())
	idx.ResetRebuildCounter()
	require.False(t, idx.NeedsRebuild())
}
