// Package ports declares the narrow boundary interfaces the core consumes
// and produces: syntax trees, LSP facts, storage/cache
// adapters, and the Result Envelope every analyzer wraps its findings in.
package ports

// ConfidenceBasis reflects the epistemic status of a Claim.
type ConfidenceBasis string

const (
	BasisProven   ConfidenceBasis = "proven"
	BasisInferred ConfidenceBasis = "inferred"
	BasisHeuristic ConfidenceBasis = "heuristic"
)

// Severity is shared across Claims and taint Vulnerabilities.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Claim is one analyzer assertion inside a ResultEnvelope.
type Claim struct {
	ID              string
	Type            string
	ConfidenceBasis ConfidenceBasis
	Severity        Severity
	Subject         string
	Description     string
}

// Provenance records which engine produced an Evidence, and with what
// version/model (model is optional — only set for LLM-assisted evidence,
// which this core does not itself produce).
type Provenance struct {
	Engine  string
	Version string
	Model   string // optional
}

// EvidenceKind enumerates the evidence content shapes analyzers emit.
type EvidenceKind string

const (
	EvidenceCostTerm     EvidenceKind = "COST_TERM"
	EvidenceTaintFlow    EvidenceKind = "TAINT_FLOW"
	EvidenceFusionScore  EvidenceKind = "FUSION_SCORE"
)

// Evidence backs one or more Claims with typed content.
type Evidence struct {
	Kind       EvidenceKind
	Content    map[string]any
	Provenance Provenance
	ClaimIDs   []string
}

// ResultEnvelope is the uniform output shape every query-facing operation
// returns. Every envelope carries an explicit verdict/confidence
// somewhere in its Claims — no operation silently returns "I don't know"
// disguised as "all clear".
type ResultEnvelope struct {
	RequestID string
	Summary   string
	Claims    []Claim
	Evidences []Evidence
}
