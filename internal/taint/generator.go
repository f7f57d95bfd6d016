package taint

import "time"

// GeneratorKind enumerates candidate-generation strategies in specificity
// order, most specific first.
type GeneratorKind int

const (
	GenExactTypeCall GeneratorKind = iota // O(1) hash lookup on (base_type, call)
	GenExactCall                          // O(1) hash lookup on call
	GenCallPrefix                         // O(L) prefix trie
	GenTypeSuffix                         // O(L) suffix trie
	GenTypeTrigram                        // O(T) trigram index
	GenFallback                           // O(N) linear scan
)

// String names the generator kind for tracing/telemetry.
func (k GeneratorKind) String() string {
	switch k {
	case GenExactTypeCall:
		return "ExactTypeCall"
	case GenExactCall:
		return "ExactCall"
	case GenCallPrefix:
		return "CallPrefix"
	case GenTypeSuffix:
		return "TypeSuffix"
	case GenTypeTrigram:
		return "TypeTrigram"
	case GenFallback:
		return "Fallback"
	default:
		return "Unknown"
	}
}

// Generator is one candidate-generation step in a rule's generator plan.
type Generator struct {
	Kind     GeneratorKind
	BaseType string // GenExactTypeCall
	Call     string // GenExactTypeCall, GenExactCall
	Prefix   string // GenCallPrefix
	Suffix   string // GenTypeSuffix
	Literal  string // GenTypeTrigram (a representative literal to trigram)
}

// EffectKind describes what a matched rule emits.
type EffectKind string

const (
	EffectSource    EffectKind = "source"
	EffectSink      EffectKind = "sink"
	EffectSanitizer EffectKind = "sanitizer"
)

// Effect is what a rule emits on a successful match.
type Effect struct {
	Kind                EffectKind
	TaintArgPositions   []int
	UntaintArgPositions []int
	VulnerabilityMeta   map[string]string
}

// CompiledRule is the executable IR a declarative Atom+Policy compiles
// into: a sorted descriptor carrying specificity, tier,
// generator plan, prefilters, predicates, confidence parameters, and effect.
type CompiledRule struct {
	ID         string
	AtomID     string
	PolicyID   string
	PolicyName string

	Specificity int
	Tier        int

	Generators []Generator
	Prefilters []Prefilter
	Predicates []Predicate

	BaseConfidence  float64
	ReportThreshold float64

	// RegexTimeout bounds any PredicateRegexMatch evaluation this rule
	// carries.
	RegexTimeout time.Duration

	Effect   Effect
	Severity Severity
	CWE      string
	Tags     []string
}

// ShouldReport applies the rule's reporting threshold to a computed
// confidence value.
func (r CompiledRule) ShouldReport(confidence float64) bool {
	return confidence >= r.ReportThreshold
}
