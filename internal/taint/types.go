// Package taint holds the shared vocabulary of the taint analysis
// runtime: atoms, detected matches, flows, and vulnerabilities. The rule
// compiler (internal/taint/compiler), executor (internal/taint/executor),
// and interprocedural analyzer (internal/taint/interproc) all build on these
// types.
package taint

import (
	"regexp"
	"time"
)

// AtomKind classifies a recognition pattern.
type AtomKind string

const (
	AtomSource     AtomKind = "source"
	AtomSink       AtomKind = "sink"
	AtomSanitizer  AtomKind = "sanitizer"
	AtomPropagator AtomKind = "propagator"
)

// MatchRule is the declarative selector an Atom carries: which of
// base_type/call/read/scope/arg_position must match an IR entity.
type MatchRule struct {
	BaseType    string
	Call        string
	Read        string
	Scope       string
	ArgPosition []int // empty = any position
}

// Atom is a named source/sink/sanitizer/propagator recognition pattern.
type Atom struct {
	ID       string
	Kind     AtomKind
	Rule     MatchRule
	Tags     []string
	Severity Severity
	CWE      string // e.g. "CWE-89"; validated against `CWE-\d+`
}

var cweRe = regexp.MustCompile(`^CWE-\d+$`)

// ValidCWE reports whether s matches the CWE-\d+ shape; an empty s (no
// CWE given) is also accepted.
func ValidCWE(s string) bool {
	return s == "" || cweRe.MatchString(s)
}

// Severity mirrors ports.Severity's vocabulary for taint-specific findings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Location pins a detected atom match to a file and line; column is
// optional and defaults to 0.
type Location struct {
	FilePath string
	Line     int
	Column   int
}

// DetectedSource/Sink/Sanitizer are concrete atom matches found by the
// executor.

type DetectedSource struct {
	AtomID   string
	Location Location
	Tags     []string
}

type DetectedSink struct {
	AtomID            string
	Location          Location
	Tags              []string
	Severity          Severity
	MatchedArgIndices []int
}

type DetectedSanitizer struct {
	AtomID   string
	Location Location
	Tags     []string
}

// TaintFlow is an ordered path of IR node IDs from a source to a sink.
type TaintFlow struct {
	Nodes         []string
	Edges         []string // len == len(Nodes)-1 when populated
	HasSanitizer  bool
	Confidence    float64
}

// Length returns len(Nodes); Edges, when populated, has one fewer entry.
func (f TaintFlow) Length() int { return len(f.Nodes) }

// Vulnerability is the final output of a confirmed source→sink flow.
type Vulnerability struct {
	ID         string
	PolicyID   string
	PolicyName string
	Severity   Severity
	Source     DetectedSource
	Sink       DetectedSink
	Flow       TaintFlow
	Confidence float64
	CWE        string
	Timestamp  time.Time
}

// GetFilePath returns the source location's file path — where the tainted
// value entered the program.
func (v Vulnerability) GetFilePath() string { return v.Source.Location.FilePath }

// GetLine returns the source location's line.
func (v Vulnerability) GetLine() int { return v.Source.Location.Line }
