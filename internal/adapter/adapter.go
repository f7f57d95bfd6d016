// Package adapter defines the language adapter layer: one per-language
// emitter that converts an already-parsed tree-sitter syntax tree into IR
// Nodes, Edges, and Occurrences for a single source file. Parsing itself
// happens upstream; adapters only walk the tree.
package adapter

import (
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/ids"
	"github.com/kraklabs/codelayer/internal/ir/span"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Adapter converts one file's already-parsed syntax tree into the
// structural slice of IRDocument: Nodes, Edges, Occurrences. The Semantic IR
// Builder (internal/semanticir) derives CFG/BFG/Expression/Type/DFG/SSA
// layers from the result.
type Adapter interface {
	// Language reports the canonical lower-case language tag this adapter
	// emits nodes for (e.g. "go", "python").
	Language() string

	// Build walks tree's root node and emits IR for one file into a fresh
	// IRDocument. repoID scopes node/edge IDs. The returned document's
	// Expressions field is left empty — expression-level IR is the
	// Semantic IR Builder's job — except that CALLS attrs needed by taint
	// rules (call_args/call_kwargs/has_shell_kwarg) are captured here and
	// travel on the CALLS Edge's Attrs.
	Build(repoID, filePath string, source []byte, tree *sitter.Tree) (*ir.IRDocument, error)
}

// ExternalFuncCache materializes stub Nodes for callees that are not
// defined anywhere in the repo (builtins, unresolved imports), keyed by
// (repo_id, canonical_name) so identical names in different repos never
// collide. Shared across every adapter invocation within one build session.
type ExternalFuncCache struct {
	byRepo map[string]map[string]ir.Node
}

// NewExternalFuncCache returns an empty cache.
func NewExternalFuncCache() *ExternalFuncCache {
	return &ExternalFuncCache{byRepo: make(map[string]map[string]ir.Node)}
}

// CanonicalName computes the fqn an external callee is cached under:
//   - builtins get fqn "builtins.{name}"
//   - dotted names retain their module prefix (returned unchanged)
//   - unknown simple names get "external.{name}"
func CanonicalName(name string, isBuiltin bool) string {
	if isBuiltin {
		return "builtins." + name
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name
		}
	}
	return "external." + name
}

// Stub returns the external stub Node for (repoID, canonicalName),
// creating it on first sight. The stub carries attrs.is_external = true via
// IsExternal, so CALLS/REFERENCES edges can target it without leaving a
// dangling endpoint in the snapshot.
func (c *ExternalFuncCache) Stub(repoID, canonicalName, language string, sp span.Handle) ir.Node {
	repoMap, ok := c.byRepo[repoID]
	if !ok {
		repoMap = make(map[string]ir.Node)
		c.byRepo[repoID] = repoMap
	}
	if n, ok := repoMap[canonicalName]; ok {
		return n
	}
	id := ids.NodeID(repoID, language, string(ir.NodeFunction), canonicalName, "<external>", canonicalName)
	n := ir.Node{
		ID:         id,
		Kind:       ir.NodeFunction,
		FQN:        canonicalName,
		Name:       canonicalName,
		FilePath:   "<external>",
		Span:       sp,
		Language:   language,
		IsExternal: true,
		Attrs:      ir.Attrs{"is_external": ir.Bool(true)},
	}
	repoMap[canonicalName] = n
	return n
}

// All returns every stub Node materialized so far for repoID, for callers
// that need to merge external stubs into a repo-level view.
func (c *ExternalFuncCache) All(repoID string) []ir.Node {
	repoMap := c.byRepo[repoID]
	out := make([]ir.Node, 0, len(repoMap))
	for _, n := range repoMap {
		out = append(out, n)
	}
	return out
}

// Registry dispatches a file to the Adapter registered for its language tag.
type Registry struct {
	byLanguage map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byLanguage: make(map[string]Adapter)}
}

// Register adds a, keyed by a.Language().
func (r *Registry) Register(a Adapter) {
	r.byLanguage[a.Language()] = a
}

// For returns the Adapter registered for language, or nil.
func (r *Registry) For(language string) Adapter {
	return r.byLanguage[language]
}

// scopeStack resolves callee/variable symbols lexically while walking a
// tree. Only fqn joining is needed here; adapters never reason across
// files.
type scopeStack struct {
	frames []string
}

func (s *scopeStack) push(name string) { s.frames = append(s.frames, name) }
func (s *scopeStack) pop()             { s.frames = s.frames[:len(s.frames)-1] }

// fqn joins the current scope frames with name using '.', matching the
// dotted fqn convention used throughout the IR.
func (s *scopeStack) fqn(name string) string {
	if len(s.frames) == 0 {
		return name
	}
	out := s.frames[0]
	for _, f := range s.frames[1:] {
		out += "." + f
	}
	return out + "." + name
}

// nodeText slices source by a tree-sitter node's byte range.
func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}

// spanOf converts a tree-sitter node's point range into the 0-indexed
// tuple the span pool interns.
func spanOf(n *sitter.Node, pool *span.Pool) span.Handle {
	start := n.StartPosition()
	end := n.EndPosition()
	return pool.Intern(int(start.Row), int(start.Column), int(end.Row), int(end.Column))
}

// childByKind returns the first direct child of n whose Kind() == kind.
func childByKind(n *sitter.Node, kind string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// childrenByKind returns every direct child of n whose Kind() == kind.
func childrenByKind(n *sitter.Node, kind string) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}
