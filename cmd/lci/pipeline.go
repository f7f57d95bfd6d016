package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/codelayer/internal/adapter"
	"github.com/kraklabs/codelayer/internal/adapter/golang"
	"github.com/kraklabs/codelayer/internal/adapter/python"
	"github.com/kraklabs/codelayer/internal/cost"
	"github.com/kraklabs/codelayer/internal/incremental"
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/span"
	"github.com/kraklabs/codelayer/internal/ports"
	"github.com/kraklabs/codelayer/internal/resolver"
	"github.com/kraklabs/codelayer/internal/semanticir"
	"github.com/kraklabs/codelayer/internal/semanticir/collectionflow"
	"github.com/kraklabs/codelayer/internal/taint"
	"github.com/kraklabs/codelayer/internal/taint/compiler"
	"github.com/kraklabs/codelayer/internal/taint/executor"
	"github.com/kraklabs/codelayer/internal/tieredcache"

	"github.com/urfave/cli/v2"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// analyzeIRCommand drives the full data flow end to end over a
// directory tree: source file -> language adapter -> IR data model ->
// semantic IR builder -> [taint, cost] analyzers -> result envelope, with
// the tiered cache and cross-file resolver as the cross-cutting stages
// around it. The three existing analyze.go subcommands
// (correlate/symbol-search/shadow-diff) exercise their components against
// caller-supplied data; this command is the one that builds that data from
// real source files.
func analyzeIRCommand(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		root = "."
	}
	repoID := c.String("repo-id")
	if repoID == "" {
		repoID = filepath.Base(absOrSelf(root))
	}
	jsonOutput := c.Bool("json")

	pipeline := newIRPipeline(repoID)
	merged, fileErrors, err := pipeline.Run(root)
	if err != nil {
		return fmt.Errorf("analyze-ir: %w", err)
	}

	res := resolver.New(merged)

	costResults := pipeline.analyzeCost(merged)
	vulns := pipeline.analyzeTaint(merged)

	envelope := buildEnvelope(c.String("request-id"), merged, res, costResults, vulns, fileErrors, pipeline.cache.Stats())

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(envelope)
	}

	fmt.Println(envelope.Summary)
	for _, claim := range envelope.Claims {
		fmt.Printf("  [%s/%s] %s: %s\n", claim.ConfidenceBasis, claim.Severity, claim.Subject, claim.Description)
	}
	return nil
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// irPipeline owns the process-wide state, explicitly constructed and torn
// down rather than lazily globalled: one Span
// Pool, one external-function cache, and one Tiered Cache per run.
type irPipeline struct {
	repoID    string
	spans     *span.Pool
	externals *adapter.ExternalFuncCache
	cache     *tieredcache.TieredCache
	semantic  *semanticir.Builder
	goAdapter *golang.Adapter
	pyAdapter *python.Adapter
}

func newIRPipeline(repoID string) *irPipeline {
	spans := span.NewPool(100_000)
	externals := adapter.NewExternalFuncCache()
	l1 := tieredcache.NewMemoryCache(10_000, 64<<20)
	cache := tieredcache.New(l1, nil)
	return &irPipeline{
		repoID:    repoID,
		spans:     spans,
		externals: externals,
		cache:     cache,
		semantic:  semanticir.New(spans),
		goAdapter: golang.New(externals, spans),
		pyAdapter: python.New(externals, spans),
	}
}

// Run walks root (via the Incremental Indexer's Scanner, so exclusion
// globs and symlink-cycle handling come for free), builds IR for every
// recognized source file through the Tiered Cache, merges the per-file
// documents into one repo-level IRDocument, and returns any per-file build
// errors alongside it — the build pipeline never silently discards a
// file.
func (p *irPipeline) Run(root string) (*ir.IRDocument, map[string]string, error) {
	scanner := incremental.NewScanner(root, []string{"**/.git/**", "**/node_modules/**", "**/_examples/**"})
	files, err := scanner.Enumerate()
	if err != nil {
		return nil, nil, err
	}

	relPaths := make([]string, 0, len(files))
	for rel := range files {
		if strings.HasSuffix(rel, ".go") || strings.HasSuffix(rel, ".py") {
			relPaths = append(relPaths, rel)
		}
	}
	sort.Strings(relPaths)

	merged := ir.NewIRDocument(p.repoID, "snapshot-1")
	fileErrors := make(map[string]string)

	for _, rel := range relPaths {
		full := filepath.Join(root, rel)
		source, err := os.ReadFile(full)
		if err != nil {
			fileErrors[rel] = err.Error()
			continue
		}

		key := tieredcache.KeyFromContent(rel, source)
		doc, hit := p.cache.Get(key)
		if !hit {
			built, err := p.build(rel, source)
			if err != nil {
				fileErrors[rel] = err.Error()
				continue
			}
			doc = built
			p.cache.Set(key, doc)
		}

		collectionflow.NewBuilder(doc).Build(doc)
		mergeDocument(merged, doc)
	}

	return merged, fileErrors, nil
}

func (p *irPipeline) build(relPath string, source []byte) (*ir.IRDocument, error) {
	switch {
	case strings.HasSuffix(relPath, ".go"):
		tree, err := parseGo(source)
		if err != nil {
			return nil, err
		}
		defer tree.Close()
		doc, err := p.goAdapter.Build(p.repoID, relPath, source, tree)
		if err != nil {
			return nil, err
		}
		p.buildFunctions(doc, "go", tree.RootNode(), source)
		return doc, nil
	case strings.HasSuffix(relPath, ".py"):
		tree, err := parsePython(source)
		if err != nil {
			return nil, err
		}
		defer tree.Close()
		doc, err := p.pyAdapter.Build(p.repoID, relPath, source, tree)
		if err != nil {
			return nil, err
		}
		p.buildFunctions(doc, "python", tree.RootNode(), source)
		return doc, nil
	default:
		return nil, ports.NewValidationError("file", "unsupported language: "+relPath)
	}
}

func parseGo(source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	language := sitter.NewLanguage(tree_sitter_go.Language())
	if err := parser.SetLanguage(language); err != nil {
		return nil, ports.NewExternalError("tree-sitter", err)
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, ports.NewExternalError("tree-sitter", fmt.Errorf("parse returned nil tree"))
	}
	return tree, nil
}

func parsePython(source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	language := sitter.NewLanguage(tree_sitter_python.Language())
	if err := parser.SetLanguage(language); err != nil {
		return nil, ports.NewExternalError("tree-sitter", err)
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, ports.NewExternalError("tree-sitter", fmt.Errorf("parse returned nil tree"))
	}
	return tree, nil
}

// buildFunctions runs the Semantic IR Builder over the function/method
// Nodes the adapter emitted, locating each one's syntax subtree by name
// (the first function_declaration/function_definition whose identifier
// child matches) so CFG/Expression IR lands against a function the adapter
// already named and FQN'd. A Node with no matching subtree is skipped; Go
// method_declaration subtrees are not collected, so Go methods get no
// CFG/Expression IR here.
func (p *irPipeline) buildFunctions(doc *ir.IRDocument, language string, root *sitter.Node, source []byte) {
	kind := "function_declaration"
	if language == "python" {
		kind = "function_definition"
	}
	bodies := collectByKind(root, kind)

	for _, fn := range doc.Nodes {
		if fn.Kind != ir.NodeFunction && fn.Kind != ir.NodeMethod {
			continue
		}
		node := findNodeByName(bodies, fn.Name, source, language)
		if node == nil {
			continue
		}
		_ = p.semantic.BuildFunction(doc, fn, language, node, source)
	}
	p.semantic.BuildTypes(doc, language)
}

func collectByKind(n *sitter.Node, kind string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	if n.Kind() == kind {
		out = append(out, n)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		out = append(out, collectByKind(n.Child(i), kind)...)
	}
	return out
}

func findNodeByName(candidates []*sitter.Node, name string, source []byte, language string) *sitter.Node {
	identKind := "identifier"
	for _, n := range candidates {
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if child.Kind() == identKind && string(source[child.StartByte():child.EndByte()]) == name {
				return n
			}
		}
		_ = language
	}
	return nil
}

// mergeDocument appends src's entities into dst, leaving IDs untouched —
// node/edge/expression IDs are already content-addressed and repo-scoped
//, so no rewriting is needed across files within one repo.
func mergeDocument(dst, src *ir.IRDocument) {
	dst.Nodes = append(dst.Nodes, src.Nodes...)
	dst.Edges = append(dst.Edges, src.Edges...)
	dst.Occurrences = append(dst.Occurrences, src.Occurrences...)
	dst.CFGBlocks = append(dst.CFGBlocks, src.CFGBlocks...)
	dst.CFGEdges = append(dst.CFGEdges, src.CFGEdges...)
	dst.BFGGraphs = append(dst.BFGGraphs, src.BFGGraphs...)
	dst.Expressions = append(dst.Expressions, src.Expressions...)
	dst.TypeEntities = append(dst.TypeEntities, src.TypeEntities...)
	dst.IDFGEdges = append(dst.IDFGEdges, src.IDFGEdges...)
	for k, v := range src.DFGGraphs {
		dst.DFGGraphs[k] = v
	}
	for k, v := range src.SSAGraphs {
		dst.SSAGraphs[k] = v
	}
}

func (p *irPipeline) analyzeCost(doc *ir.IRDocument) []*cost.CostResult {
	seen := make(map[string]bool)
	var results []*cost.CostResult
	for _, n := range doc.Nodes {
		if n.Kind != ir.NodeFunction && n.Kind != ir.NodeMethod {
			continue
		}
		if n.FQN == "" || seen[n.FQN] {
			continue
		}
		seen[n.FQN] = true
		r, err := cost.AnalyzeFunction(doc, n.FQN)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].FunctionName < results[j].FunctionName })
	return results
}

// builtinTaintAtoms is the default rule set the CLI compiles when no
// external rule file is supplied: a handful of well-known shell/SQL
// sources and sinks across the two adapted languages, enough to exercise
// the Taint Rule Compiler/Executor end to end.
func builtinTaintAtoms() []taint.Atom {
	return []taint.Atom{
		{ID: "source.http.flask-args", Kind: taint.AtomSource, Rule: taint.MatchRule{Call: "request.args.get"}, Tags: []string{"untrusted", "http"}},
		{ID: "source.stdlib.input", Kind: taint.AtomSource, Rule: taint.MatchRule{Call: "input"}, Tags: []string{"untrusted", "stdin"}},
		{ID: "source.go.os-getenv", Kind: taint.AtomSource, Rule: taint.MatchRule{Call: "os.Getenv"}, Tags: []string{"untrusted", "env"}},
		{ID: "sink.command-injection.os-system", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "os.system", ArgPosition: []int{0}}, Severity: taint.SeverityCritical, CWE: "CWE-78"},
		{ID: "sink.command-injection.subprocess-call", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "subprocess.call", ArgPosition: []int{0}}, Severity: taint.SeverityCritical, CWE: "CWE-78"},
		{ID: "sink.command-injection.exec-command", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "exec.Command", ArgPosition: []int{0}}, Severity: taint.SeverityCritical, CWE: "CWE-78"},
		{ID: "sink.sql.sqlite3-execute", Kind: taint.AtomSink, Rule: taint.MatchRule{Call: "cursor.execute", ArgPosition: []int{0}}, Severity: taint.SeverityHigh, CWE: "CWE-89"},
	}
}

// analyzeTaint runs a two-pass, intraprocedural taint sweep: a first
// executor pass finds source calls, and the variable each one defines (the
// ASSIGN expression on the same line) is marked tainted; sink-candidate
// call arguments referencing those variable names are then flagged
// IsArgTainted before a second executor pass evaluates the sink
// predicates. Only the Python builder emits ASSIGN expressions, so Go
// sources mark no variables. Full interprocedural propagation across CALL_ARG/RETURN
// edges is internal/taint/interproc's job; this sweep is the
// single-function baseline.
func (p *irPipeline) analyzeTaint(doc *ir.IRDocument) []taint.Vulnerability {
	atoms := builtinTaintAtoms()
	comp := compiler.New(compiler.DefaultLimits())
	policy := compiler.PolicySpec{ID: "injection", Name: "Injection", Severity: taint.SeverityHigh}
	rules, err := comp.Compile(atoms, policy)
	if err != nil {
		return nil
	}

	entities, byID := entitiesFromExpressions(doc)
	cache := executor.NewResultCache(10_000)
	ex := executor.New(cache)

	firstPass, _ := ex.Execute(entities, rules)
	taintedVars := make(map[string]bool)
	var sources []executor.Match
	for _, m := range firstPass {
		if m.EffectKind != taint.EffectSource {
			continue
		}
		sources = append(sources, m)
		if e, ok := byID[m.EntityID]; ok {
			for _, x := range doc.Expressions {
				if x.Kind == ir.ExprAssign && x.DefinesVar != "" &&
					x.FilePath == e.Location.FilePath && x.Span.Span.StartLine == e.Location.Line {
					taintedVars[x.DefinesVar] = true
				}
			}
		}
	}

	for _, e := range entities {
		for i, arg := range e.Args {
			if taintedVars[strings.TrimSpace(arg)] {
				if e.TaintedArgs == nil {
					e.TaintedArgs = make(map[int]bool)
				}
				e.TaintedArgs[i] = true
			}
		}
	}

	secondPass, _ := ex.Execute(entities, rules)

	var vulns []taint.Vulnerability
	for _, sinkMatch := range secondPass {
		if sinkMatch.EffectKind != taint.EffectSink {
			continue
		}
		sinkEntity := byID[sinkMatch.EntityID]
		if len(sources) == 0 {
			continue
		}
		src := sources[0]
		srcEntity := byID[src.EntityID]
		vulns = append(vulns, taint.Vulnerability{
			ID:         sinkMatch.RuleID + "::" + sinkMatch.EntityID,
			PolicyID:   policy.ID,
			PolicyName: policy.Name,
			Severity:   sinkMatch.Severity,
			Source:     taint.DetectedSource{AtomID: src.AtomID, Location: srcEntity.Location, Tags: src.Tags},
			Sink: taint.DetectedSink{
				AtomID:            sinkMatch.AtomID,
				Location:          sinkEntity.Location,
				Tags:              sinkMatch.Tags,
				Severity:          sinkMatch.Severity,
				MatchedArgIndices: sinkMatch.TaintPositions,
			},
			Flow:       taint.TaintFlow{Nodes: []string{src.EntityID, sinkMatch.EntityID}, Confidence: sinkMatch.Confidence},
			Confidence: sinkMatch.Confidence,
			CWE:        firstCWE(atoms, sinkMatch.AtomID),
		})
	}
	return vulns
}

func firstCWE(atoms []taint.Atom, atomID string) string {
	for _, a := range atoms {
		if a.ID == atomID {
			return a.CWE
		}
	}
	return ""
}

// entitiesFromExpressions adapts every CALL Expression the Semantic IR
// Builder produced into a taint.Entity, carrying source location forward
// via taint.Location so Vulnerability output never has to reparse an ID
// string to find a file/line.
func entitiesFromExpressions(doc *ir.IRDocument) ([]*taint.Entity, map[string]*taint.Entity) {
	byID := make(map[string]*taint.Entity)
	entities := make([]*taint.Entity, 0, len(doc.Expressions))
	for _, e := range doc.Expressions {
		if e.Kind != ir.ExprCall {
			continue
		}
		ent := &taint.Entity{
			ID:            e.ID,
			Kind:          "call",
			Call:          e.CalleeName,
			Args:          append([]string(nil), e.CallArgs...),
			HasShellKwarg: e.HasShellKwarg,
			Location:      taint.Location{FilePath: e.FilePath, Line: e.Span.Span.StartLine},
		}
		entities = append(entities, ent)
		byID[ent.ID] = ent
	}
	return entities, byID
}

func verdictToBasis(v cost.Verdict) ports.ConfidenceBasis {
	switch v {
	case cost.VerdictProven:
		return ports.BasisProven
	case cost.VerdictLikely:
		return ports.BasisInferred
	default:
		return ports.BasisHeuristic
	}
}

func severityFor(c cost.CostResult) ports.Severity {
	if c.IsSlow() {
		return ports.SeverityMedium
	}
	return ports.SeverityLow
}

func taintSeverityToPorts(s taint.Severity) ports.Severity {
	switch s {
	case taint.SeverityCritical:
		return ports.SeverityCritical
	case taint.SeverityHigh:
		return ports.SeverityHigh
	case taint.SeverityMedium:
		return ports.SeverityMedium
	default:
		return ports.SeverityLow
	}
}

// buildEnvelope assembles the ResultEnvelope every query-facing operation
// returns: one Claim+Evidence pair per analyzed
// function's cost verdict, one per taint vulnerability, plus a structural
// claim naming any per-file build errors so a partial failure is always
// visible to the caller.
func buildEnvelope(requestID string, doc *ir.IRDocument, res *resolver.Resolver, costResults []*cost.CostResult, vulns []taint.Vulnerability, fileErrors map[string]string, cacheStats tieredcache.Stats) ports.ResultEnvelope {
	var claims []ports.Claim
	var evidences []ports.Evidence

	for i, c := range costResults {
		claimID := fmt.Sprintf("cost-%d", i)
		claims = append(claims, ports.Claim{
			ID:              claimID,
			Type:            "cost",
			ConfidenceBasis: verdictToBasis(c.Verdict),
			Severity:        severityFor(*c),
			Subject:         c.FunctionName,
			Description:     fmt.Sprintf("%s is %s (%s, %s verdict)", c.FunctionName, c.Complexity, c.CostTerm, c.Verdict),
		})
		evidences = append(evidences, ports.Evidence{
			Kind: ports.EvidenceCostTerm,
			Content: map[string]any{
				"cost_term":   c.CostTerm,
				"loop_bounds": c.LoopBounds,
			},
			Provenance: ports.Provenance{Engine: "CostAnalyzer"},
			ClaimIDs:   []string{claimID},
		})
	}

	for i, v := range vulns {
		claimID := fmt.Sprintf("taint-%d", i)
		claims = append(claims, ports.Claim{
			ID:              claimID,
			Type:            "vulnerability",
			ConfidenceBasis: ports.BasisInferred,
			Severity:        taintSeverityToPorts(v.Severity),
			Subject:         v.Sink.Location.FilePath,
			Description:     fmt.Sprintf("%s: %s -> %s (CWE %s, confidence %.2f)", v.PolicyName, v.Source.AtomID, v.Sink.AtomID, v.CWE, v.Confidence),
		})
		evidences = append(evidences, ports.Evidence{
			Kind: ports.EvidenceTaintFlow,
			Content: map[string]any{
				"nodes":      v.Flow.Nodes,
				"confidence": v.Flow.Confidence,
			},
			Provenance: ports.Provenance{Engine: "TaintExecutor"},
			ClaimIDs:   []string{claimID},
		})
	}

	for file, reason := range fileErrors {
		claims = append(claims, ports.Claim{
			ID:              "build-error-" + file,
			Type:            "build_error",
			ConfidenceBasis: ports.BasisProven,
			Severity:        ports.SeverityLow,
			Subject:         file,
			Description:     reason,
		})
	}

	summary := fmt.Sprintf(
		"analyzed %d files (%d nodes, %d functions) across %d topologically ordered files; %d cost results, %d taint findings, %d build errors; cache hit-rate=%.2f",
		len(res.SymbolTable().Files()), len(doc.Nodes), countFunctions(doc), len(res.DependencyGraph().TopoOrder()),
		len(costResults), len(vulns), len(fileErrors), cacheStats.L1HitRate,
	)

	return ports.ResultEnvelope{
		RequestID: requestID,
		Summary:   summary,
		Claims:    claims,
		Evidences: evidences,
	}
}

func countFunctions(doc *ir.IRDocument) int {
	n := 0
	for _, node := range doc.Nodes {
		if node.Kind == ir.NodeFunction || node.Kind == ir.NodeMethod {
			n++
		}
	}
	return n
}

