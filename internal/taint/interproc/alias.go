package interproc

import "github.com/kraklabs/codelayer/internal/ir"

// AliasKind classifies how two variables came to alias each other.
type AliasKind string

const (
	AliasDirect  AliasKind = "direct"  // x = y
	AliasField   AliasKind = "field"   // x = y.f
	AliasElement AliasKind = "element" // x = y[i]
)

// AliasRelation records one variable's relation to another, and whether the
// relation is a must-alias (always the same storage) or only a may-alias
// (possibly the same storage, e.g. behind a branch or an unresolved call).
type AliasRelation struct {
	Kind AliasKind
	Must bool
}

// AliasAnalyzer builds a variable -> set(aliases) map from a document's
// READS/WRITES edges (direct, field, and element kinds), with a may/must
// distinction per relation.
type AliasAnalyzer struct {
	aliases map[string]map[string]AliasRelation
}

// NewAliasAnalyzer creates an empty analyzer.
func NewAliasAnalyzer() *AliasAnalyzer {
	return &AliasAnalyzer{aliases: make(map[string]map[string]AliasRelation)}
}

// BuildFromIR populates the analyzer from a document's WRITES/READS edges.
// An edge's Attrs carries "alias_kind" (direct/field/element, default
// direct) and "must" (truthy, default false) — set by the language
// adapters when they recognize an assignment pattern.
func BuildFromIR(doc *ir.IRDocument) *AliasAnalyzer {
	aa := NewAliasAnalyzer()
	if doc == nil {
		return aa
	}
	for _, e := range doc.Edges {
		if e.Kind != ir.EdgeWrites && e.Kind != ir.EdgeReads {
			continue
		}
		kind := AliasDirect
		must := false
		if e.Attrs != nil {
			if k, ok := e.Attrs.GetString("alias_kind"); ok && k != "" {
				kind = AliasKind(k)
			}
			must = e.Attrs.GetBool("must")
		}
		aa.AddEdge(e.SourceID, e.TargetID, kind, must)
	}
	return aa
}

// AddEdge records a may/must alias relation between two variable IDs,
// symmetrically (aliasing is not directional).
func (aa *AliasAnalyzer) AddEdge(a, b string, kind AliasKind, must bool) {
	if a == "" || b == "" || a == b {
		return
	}
	aa.addOne(a, b, kind, must)
	aa.addOne(b, a, kind, must)
}

func (aa *AliasAnalyzer) addOne(from, to string, kind AliasKind, must bool) {
	set, ok := aa.aliases[from]
	if !ok {
		set = make(map[string]AliasRelation)
		aa.aliases[from] = set
	}
	if existing, ok := set[to]; ok && existing.Must {
		return // a must-alias already recorded; don't downgrade it
	}
	set[to] = AliasRelation{Kind: kind, Must: must}
}

// AliasesOf returns the may-aliases and must-aliases of a variable ID. Every
// must-alias is also returned in may (must implies may).
func (aa *AliasAnalyzer) AliasesOf(varID string) (may []string, must []string) {
	set, ok := aa.aliases[varID]
	if !ok {
		return nil, nil
	}
	for id, rel := range set {
		may = append(may, id)
		if rel.Must {
			must = append(must, id)
		}
	}
	return may, must
}

// IsMayAlias reports whether a and b might refer to the same storage.
func (aa *AliasAnalyzer) IsMayAlias(a, b string) bool {
	if a == b {
		return true
	}
	set, ok := aa.aliases[a]
	if !ok {
		return false
	}
	_, ok = set[b]
	return ok
}

// IsMustAlias reports whether a and b always refer to the same storage.
func (aa *AliasAnalyzer) IsMustAlias(a, b string) bool {
	if a == b {
		return true
	}
	set, ok := aa.aliases[a]
	if !ok {
		return false
	}
	rel, ok := set[b]
	return ok && rel.Must
}
