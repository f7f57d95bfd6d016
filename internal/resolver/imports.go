package resolver

import (
	"strings"

	"github.com/kraklabs/codelayer/internal/ir"
)

// ResolveImports walks every IMPORTS edge in doc and sets resolved_file,
// resolved_node_id, and resolved_module attrs on edges it can resolve
//. Unresolved imports are left untouched — partial
// resolution is allowed, and an unresolved edge never becomes a dependency
// edge.
func ResolveImports(doc *ir.IRDocument, st *SymbolTable) {
	nodeByID := make(map[string]ir.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodeByID[n.ID] = n
	}

	for i := range doc.Edges {
		e := &doc.Edges[i]
		if e.Kind != ir.EdgeImports {
			continue
		}
		target, ok := nodeByID[e.TargetID]
		if !ok {
			continue
		}
		importedName := target.FQN
		if importedName == "" {
			importedName = target.Name
		}
		if importedName == "" {
			continue
		}

		entry, module, ok := resolveDottedName(importedName, st)
		if !ok {
			if path, fallbackOK := resolveFallbackPath(importedName, st); fallbackOK {
				setResolvedAttrs(e, "", path, importedName)
			}
			continue
		}
		setResolvedAttrs(e, entry.Node.ID, entry.FilePath, module)
	}
}

func setResolvedAttrs(e *ir.Edge, nodeID, filePath, module string) {
	if e.Attrs == nil {
		e.Attrs = make(ir.Attrs)
	}
	if nodeID != "" {
		e.Attrs["resolved_node_id"] = ir.String(nodeID)
	}
	if filePath != "" {
		e.Attrs["resolved_file"] = ir.String(filePath)
	}
	e.Attrs["resolved_module"] = ir.String(module)
}

// resolveDottedName looks up importedName directly, then progressively
// shortens it by dropping trailing dotted segments until a match is
// found: "pkg.sub.Name" -> "pkg.sub" -> "pkg".
func resolveDottedName(importedName string, st *SymbolTable) (SymbolEntry, string, bool) {
	candidate := importedName
	for candidate != "" {
		if entry, ok := st.Lookup(candidate); ok {
			return entry, candidate, true
		}
		idx := strings.LastIndex(candidate, ".")
		if idx < 0 {
			break
		}
		candidate = candidate[:idx]
	}
	return SymbolEntry{}, "", false
}

// resolveFallbackPath tries the common module path patterns
// ({name}.py, src/{name}.py, {name}/__init__.py) against the corpus's known file set, using the last dotted
// segment as the module name (mirrors a Python-style "from pkg import
// name" where pkg.name maps to a file named after the last component).
func resolveFallbackPath(importedName string, st *SymbolTable) (string, bool) {
	name := importedName
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	candidates := []string{
		name + ".py",
		"src/" + name + ".py",
		name + "/__init__.py",
	}
	for _, c := range candidates {
		if st.HasFile(c) {
			return c, true
		}
	}
	return "", false
}
