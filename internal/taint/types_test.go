package taint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLInjectionVulnerabilityShape(t *testing.T) {
	source := DetectedSource{
		AtomID:   "input.http.flask",
		Location: Location{FilePath: "app.py", Line: 10},
		Tags:     []string{"untrusted"},
	}
	sink := DetectedSink{
		AtomID:            "sink.sql.sqlite3",
		Location:          Location{FilePath: "app.py", Line: 20},
		Severity:          SeverityCritical,
		MatchedArgIndices: []int{0},
	}
	flow := TaintFlow{
		Nodes:      []string{"var_1", "var_2", "expr_1"},
		Edges:      []string{"e1", "e2"},
		Confidence: 0.95,
	}

	v := Vulnerability{
		ID:         "c5a1d2e0-0000-4000-8000-000000000001",
		PolicyID:   "sql-injection",
		PolicyName: "SQL Injection",
		Severity:   SeverityCritical,
		Source:     source,
		Sink:       sink,
		Flow:       flow,
		Confidence: 0.95,
		CWE:        "CWE-89",
		Timestamp:  time.Now(),
	}

	require.Equal(t, SeverityCritical, v.Severity)
	require.InDelta(t, 0.95, v.Confidence, 1e-9)
	require.Equal(t, "CWE-89", v.CWE)
	require.True(t, ValidCWE(v.CWE))
	require.Equal(t, "app.py", v.GetFilePath())
	require.Equal(t, 10, v.GetLine())
}

func TestTaintFlowLength(t *testing.T) {
	f := TaintFlow{Nodes: []string{"a", "b", "c"}, Edges: []string{"e1", "e2"}}
	require.Equal(t, 3, f.Length())
	require.Equal(t, f.Length()-1, len(f.Edges))
}

func TestValidCWE(t *testing.T) {
	require.True(t, ValidCWE(""))
	require.True(t, ValidCWE("CWE-89"))
	require.True(t, ValidCWE("CWE-77"))
	require.False(t, ValidCWE("cwe-89"))
	require.False(t, ValidCWE("CWE-"))
	require.False(t, ValidCWE("CWE-89x"))
	require.False(t, ValidCWE("89"))
}
