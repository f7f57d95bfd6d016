package resolver

import (
	"sort"

	"github.com/kraklabs/codelayer/internal/ir"
)

// DependencyGraph is the file -> set(files) dependency graph and its
// reverse, built from resolved IMPORTS edges.
type DependencyGraph struct {
	forward map[string]map[string]bool
	reverse map[string]map[string]bool
	files   map[string]bool
}

// BuildDependencyGraph reads resolved_file attrs set by ResolveImports and
// builds the forward/reverse file dependency graph. Edges whose import
// never resolved are skipped — unresolved imports do not create
// dependency edges.
func BuildDependencyGraph(doc *ir.IRDocument) *DependencyGraph {
	g := &DependencyGraph{
		forward: make(map[string]map[string]bool),
		reverse: make(map[string]map[string]bool),
		files:   make(map[string]bool),
	}

	nodeByID := make(map[string]ir.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodeByID[n.ID] = n
		g.files[n.FilePath] = true
	}

	for _, e := range doc.Edges {
		if e.Kind != ir.EdgeImports {
			continue
		}
		resolvedFile, ok := e.Attrs.GetString("resolved_file")
		if !ok || resolvedFile == "" {
			continue
		}
		source, ok := nodeByID[e.SourceID]
		if !ok || source.FilePath == "" || source.FilePath == resolvedFile {
			continue
		}
		g.addEdge(source.FilePath, resolvedFile)
	}

	return g
}

func (g *DependencyGraph) addEdge(from, to string) {
	g.files[from] = true
	g.files[to] = true
	if g.forward[from] == nil {
		g.forward[from] = make(map[string]bool)
	}
	g.forward[from][to] = true
	if g.reverse[to] == nil {
		g.reverse[to] = make(map[string]bool)
	}
	g.reverse[to][from] = true
}

// Dependencies returns the set of files that file directly imports.
func (g *DependencyGraph) Dependencies(file string) []string {
	return sortedKeys(g.forward[file])
}

// Dependents returns the set of files that directly import file.
func (g *DependencyGraph) Dependents(file string) []string {
	return sortedKeys(g.reverse[file])
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TopoOrder returns files in dependency order (a file appears before
// anything that depends on it) via Kahn's algorithm.
// Files left over after the algorithm terminates (a cycle) are appended at
// the end in sorted order, so every known file still appears exactly once.
func (g *DependencyGraph) TopoOrder() []string {
	inDegree := make(map[string]int, len(g.files))
	for f := range g.files {
		inDegree[f] = 0
	}
	for from, tos := range g.forward {
		inDegree[from] = len(tos)
	}

	var queue []string
	for f := range g.files {
		if inDegree[f] == 0 {
			queue = append(queue, f)
		}
	}
	sort.Strings(queue)

	var order []string
	visited := make(map[string]bool, len(g.files))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)

		var freed []string
		for dependent := range g.reverse[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
		sort.Strings(queue)
	}

	if len(order) < len(g.files) {
		var remaining []string
		for f := range g.files {
			if !visited[f] {
				remaining = append(remaining, f)
			}
		}
		sort.Strings(remaining)
		order = append(order, remaining...)
	}

	return order
}

// AffectedSet computes the closure of dependents of changed: every file transitively depending on a changed file, including the
// changed files themselves.
func (g *DependencyGraph) AffectedSet(changed []string) map[string]bool {
	affected := make(map[string]bool, len(changed))
	var queue []string
	for _, f := range changed {
		if !affected[f] {
			affected[f] = true
			queue = append(queue, f)
		}
	}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for dependent := range g.reverse[f] {
			if !affected[dependent] {
				affected[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}
	return affected
}
