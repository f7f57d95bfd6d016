// Package cost extracts loop bounds from IR expressions, computes
// nesting levels over the CFG, and classifies an asymptotic complexity
// verdict per function.
package cost

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kraklabs/codelayer/internal/ir"
)

// Verdict reflects the epistemic status of a cost result.
type Verdict string

const (
	VerdictProven    Verdict = "proven"
	VerdictLikely    Verdict = "likely"
	VerdictHeuristic Verdict = "heuristic"
)

// ExtractionMethod records how a bound was derived.
type ExtractionMethod string

const (
	MethodPattern ExtractionMethod = "pattern"
	MethodSCCP    ExtractionMethod = "sccp"
)

// Complexity is the asymptotic classification.
type Complexity string

const (
	Constant      Complexity = "CONSTANT"
	Logarithmic   Complexity = "LOGARITHMIC"
	Linear        Complexity = "LINEAR"
	Linearithmic  Complexity = "LINEARITHMIC"
	Quadratic     Complexity = "QUADRATIC"
	Cubic         Complexity = "CUBIC"
	Exponential   Complexity = "EXPONENTIAL"
)

// BoundResult is the outcome of extracting one loop's iteration bound.
type BoundResult struct {
	Bound          string
	Verdict        Verdict
	Confidence     float64
	Method         ExtractionMethod
	LoopID         string
	UpperBoundHint string // set only when Verdict == heuristic
}

// Hotspot names a loop contributing disproportionately to the cost term.
type Hotspot struct {
	LoopID string
	Bound  string
	Nesting int
}

// CostResult is the per-function output of the analyzer.
type CostResult struct {
	FunctionName string
	Complexity   Complexity
	CostTerm     string
	Verdict      Verdict
	Confidence   float64
	LoopBounds   []BoundResult
	Hotspots     []Hotspot
}

// IsSlow reports whether the function is at least quadratic.
func (r CostResult) IsSlow() bool {
	switch r.Complexity {
	case Quadratic, Cubic, Exponential:
		return true
	default:
		return false
	}
}

// rangeCalleeNames are the callee spellings recognized as a "range"-shaped
// loop bound. Language builders without a literal range() synthesize one
// for their counted loops.
var rangeCalleeNames = map[string]bool{
	"range": true,
}

// AnalyzeFunction computes the CostResult for functionFQN given its CFG
// blocks, CFG edges, and Expressions. Both absent CFG/Expression IR and a missing
// function are hard errors.
func AnalyzeFunction(doc *ir.IRDocument, functionFQN string) (*CostResult, error) {
	if doc == nil || len(doc.CFGBlocks) == 0 {
		return nil, fmt.Errorf("CFG blocks not found")
	}
	if len(doc.Expressions) == 0 {
		return nil, fmt.Errorf("expression IR not found")
	}

	var fnNode *ir.Node
	for i := range doc.Nodes {
		if doc.Nodes[i].FQN == functionFQN && (doc.Nodes[i].Kind == ir.NodeFunction || doc.Nodes[i].Kind == ir.NodeMethod) {
			fnNode = &doc.Nodes[i]
			break
		}
	}
	if fnNode == nil {
		return nil, fmt.Errorf("function not found in IR: %s", functionFQN)
	}

	var loopHeaders []ir.ControlFlowBlock
	for _, b := range doc.CFGBlocks {
		if b.FunctionNodeID == fnNode.ID && b.Kind == ir.BlockLoopHeader {
			loopHeaders = append(loopHeaders, b)
		}
	}

	nesting := computeNesting(doc, fnNode.ID, loopHeaders)

	var bounds []BoundResult
	for _, lh := range loopHeaders {
		bounds = append(bounds, extractBound(doc, lh))
	}

	costTerm, factorCount, hotspots := combine(bounds, nesting)
	complexity := classify(factorCount)
	verdict := overallVerdict(bounds)
	confidence := overallConfidence(bounds, verdict)

	return &CostResult{
		FunctionName: functionFQN,
		Complexity:   complexity,
		CostTerm:     costTerm,
		Verdict:      verdict,
		Confidence:   confidence,
		LoopBounds:   bounds,
		Hotspots:     hotspots,
	}, nil
}

// extractBound finds a range call inside the loop's span and resolves its
// stop argument. For a 3-argument range call the stop bound is the second
// argument, never the last.
func extractBound(doc *ir.IRDocument, loop ir.ControlFlowBlock) BoundResult {
	call := findRangeCallInSpan(doc, loop)
	if call == nil {
		return BoundResult{
			Verdict:        VerdictHeuristic,
			Confidence:     0.3,
			Method:         MethodPattern,
			LoopID:         loop.ID,
			UpperBoundHint: "O(n²)",
			Bound:          "?",
		}
	}

	var stopArgExpr string
	switch len(call.CallArgs) {
	case 0:
		return BoundResult{Verdict: VerdictHeuristic, Confidence: 0.3, Method: MethodPattern, LoopID: loop.ID, UpperBoundHint: "O(n²)", Bound: "?"}
	case 1:
		stopArgExpr = call.CallArgs[0]
	case 2:
		stopArgExpr = call.CallArgs[1]
	default: // range(start, stop, step): the stop is the second argument, not the last
		stopArgExpr = call.CallArgs[1]
	}

	bound, method, ok := resolveBoundExpr(doc, stopArgExpr)
	if !ok {
		return BoundResult{
			Verdict:        VerdictHeuristic,
			Confidence:     0.3,
			Method:         MethodPattern,
			LoopID:         loop.ID,
			UpperBoundHint: "O(n²)",
			Bound:          "?",
		}
	}
	return BoundResult{
		Bound:      bound,
		Verdict:    VerdictProven,
		Confidence: 1.0,
		Method:     method,
		LoopID:     loop.ID,
	}
}

// findRangeCallInSpan searches the expressions whose span falls within the
// loop header's span for a CALL expression whose callee is "range" (or a
// language-equivalent).
func findRangeCallInSpan(doc *ir.IRDocument, loop ir.ControlFlowBlock) *ir.Expression {
	ls := loop.Span.Span
	for i := range doc.Expressions {
		e := &doc.Expressions[i]
		if e.Kind != ir.ExprCall {
			continue
		}
		if !rangeCalleeNames[e.CalleeName] {
			continue
		}
		es := e.Span.Span
		if es.StartLine >= ls.StartLine && es.EndLine <= ls.EndLine {
			return e
		}
	}
	return nil
}

// resolveBoundExpr resolves a stop-argument source fragment to a bound
// string: a NAME_LOAD falls back to its var_name attr, a LITERAL keeps its
// value (including negative integers, kept as a string bound), anything
// else is unresolved.
func resolveBoundExpr(doc *ir.IRDocument, argFragment string) (string, ExtractionMethod, bool) {
	frag := strings.TrimSpace(argFragment)
	for i := range doc.Expressions {
		e := &doc.Expressions[i]
		switch e.Kind {
		case ir.ExprNameLoad:
			name, ok := e.Attrs.GetString("var_name")
			if !ok {
				name = "?"
			}
			if name == frag || frag == "" {
				return name, MethodPattern, name != "?"
			}
		case ir.ExprLiteral:
			if v, ok := e.Attrs.GetString("value"); ok && (v == frag || frag == "") {
				return v, MethodPattern, true
			}
		}
	}
	// No matching expression found in the IR; treat the raw fragment as a
	// literal if it parses as an integer (covers range(-1) and similar
	// direct-literal calls where no separate LITERAL expression exists),
	// otherwise as a bare name.
	if _, err := strconv.Atoi(frag); err == nil {
		return frag, MethodPattern, true
	}
	if frag != "" {
		return frag, MethodPattern, true
	}
	return "", "", false
}

// computeNesting performs a BFS from the function's ENTRY block over CFG
// edges; a TRUE_BRANCH edge into another LOOP_HEADER increments the nesting
// level. BFS tracks visited blocks to guarantee termination even for cyclic
// CFGs.
func computeNesting(doc *ir.IRDocument, fnNodeID string, headers []ir.ControlFlowBlock) map[string]int {
	levels := make(map[string]int, len(headers))
	headerSet := make(map[string]bool, len(headers))
	for _, h := range headers {
		headerSet[h.ID] = true
	}

	var entry string
	for _, b := range doc.CFGBlocks {
		if b.FunctionNodeID == fnNodeID && b.Kind == ir.BlockEntry {
			entry = b.ID
			break
		}
	}
	if entry == "" {
		for _, h := range headers {
			levels[h.ID] = 0
		}
		return levels
	}

	adj := make(map[string][]ir.ControlFlowEdge)
	for _, e := range doc.CFGEdges {
		adj[e.SourceBlockID] = append(adj[e.SourceBlockID], e)
	}

	type frame struct {
		block string
		level int
	}
	visited := map[string]bool{entry: true}
	queue := []frame{{entry, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if headerSet[cur.block] {
			if existing, ok := levels[cur.block]; !ok || cur.level < existing {
				levels[cur.block] = cur.level
			}
		}
		for _, e := range adj[cur.block] {
			if visited[e.TargetBlockID] {
				continue
			}
			visited[e.TargetBlockID] = true
			nextLevel := cur.level
			if e.Kind == ir.CFTrueBranch && headerSet[e.TargetBlockID] {
				nextLevel++
			}
			queue = append(queue, frame{e.TargetBlockID, nextLevel})
		}
	}

	for _, h := range headers {
		if _, ok := levels[h.ID]; !ok {
			levels[h.ID] = 0
		}
	}
	return levels
}

// combine: sequential loops (same nesting level) add, nested loops (different levels) multiply. The cost term is
// the multiplicative product of bounds grouped by nesting level.
func combine(bounds []BoundResult, nesting map[string]int) (string, int, []Hotspot) {
	if len(bounds) == 0 {
		return "1", 0, nil
	}

	byLevel := make(map[int][]string)
	var hotspots []Hotspot
	maxLevel := 0
	for _, b := range bounds {
		level := nesting[b.LoopID]
		if level > maxLevel {
			maxLevel = level
		}
		byLevel[level] = append(byLevel[level], b.Bound)
		hotspots = append(hotspots, Hotspot{LoopID: b.LoopID, Bound: b.Bound, Nesting: level})
	}

	var factors []string
	for level := 0; level <= maxLevel; level++ {
		terms, ok := byLevel[level]
		if !ok {
			continue
		}
		factors = append(factors, strings.Join(terms, "+"))
	}
	if len(factors) == 0 {
		return "1", 0, hotspots
	}
	return strings.Join(factors, "*"), len(factors), hotspots
}

// classify maps the multiplicative factor count to a complexity class.
func classify(factorCount int) Complexity {
	switch factorCount {
	case 0:
		return Constant
	case 1:
		return Linear
	case 2:
		return Quadratic
	case 3:
		return Cubic
	default:
		return Exponential
	}
}

func overallVerdict(bounds []BoundResult) Verdict {
	if len(bounds) == 0 {
		return VerdictProven
	}
	allProven := true
	anyHeuristic := false
	for _, b := range bounds {
		if b.Verdict != VerdictProven {
			allProven = false
		}
		if b.Verdict == VerdictHeuristic {
			anyHeuristic = true
		}
	}
	if allProven {
		return VerdictProven
	}
	if anyHeuristic {
		return VerdictHeuristic
	}
	return VerdictLikely
}

func overallConfidence(bounds []BoundResult, v Verdict) float64 {
	if len(bounds) == 0 {
		return 1.0
	}
	var sum float64
	for _, b := range bounds {
		sum += b.Confidence
	}
	return sum / float64(len(bounds))
}
