// Package python implements the Python Language Adapter over a
// tree-sitter-python syntax tree.
package python

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/kraklabs/codelayer/internal/adapter"
	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/kraklabs/codelayer/internal/ir/ids"
	"github.com/kraklabs/codelayer/internal/ir/span"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const language = "python"

// builtinFuncs mirrors CPython's builtins module, used to pick
// CanonicalName's "builtins.{name}" form.
var builtinFuncs = map[string]bool{
	"len": true, "print": true, "range": true, "open": true, "input": true,
	"str": true, "int": true, "float": true, "list": true, "dict": true,
	"set": true, "tuple": true, "isinstance": true, "getattr": true,
	"setattr": true, "eval": true, "exec": true, "compile": true, "__import__": true,
}

// shellKwargCallees are the callees whose keyword args the taint layer's
// security shortcuts key on: subprocess-family calls with shell=True are a
// classic command-injection sink precondition.
var shellKwargCallees = map[string]bool{
	"subprocess.call": true, "subprocess.run": true, "subprocess.Popen": true,
	"subprocess.check_call": true, "subprocess.check_output": true, "os.system": true,
}

// Adapter emits IR for one Python source file.
type Adapter struct {
	externals *adapter.ExternalFuncCache
	spans     *span.Pool
}

// New returns a Python adapter sharing externals and spans with the rest of
// the build session.
func New(externals *adapter.ExternalFuncCache, spans *span.Pool) *Adapter {
	return &Adapter{externals: externals, spans: spans}
}

func (a *Adapter) Language() string { return language }

type builder struct {
	repoID, filePath string
	source           []byte
	doc              *ir.IRDocument
	spans            *span.Pool
	externals        *adapter.ExternalFuncCache
	occCounter       ids.OccurrenceCounter
	edgeCounter      int
	moduleName       string
	vars             map[string]string // scope-qualified name -> variable node ID
}

func (a *Adapter) Build(repoID, filePath string, source []byte, tree *sitter.Tree) (*ir.IRDocument, error) {
	root := tree.RootNode()
	b := &builder{
		repoID:     repoID,
		filePath:   filePath,
		source:     source,
		doc:        ir.NewIRDocument(repoID, ""),
		spans:      a.spans,
		externals:  a.externals,
		moduleName: moduleNameFromPath(filePath),
		vars:       make(map[string]string),
	}

	fileSpan := b.spanOf(root)
	fileID := ids.NodeID(repoID, language, string(ir.NodeFile), filePath, filePath, "")
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: fileID, Kind: ir.NodeFile, FQN: filePath, Name: filePath,
		FilePath: filePath, Span: fileSpan, Language: language,
	})

	for i := uint(0); i < root.ChildCount(); i++ {
		b.walkStatement(root.Child(i), fileID, b.moduleName)
	}

	return b.doc, nil
}

func moduleNameFromPath(filePath string) string {
	name := strings.TrimSuffix(filePath, ".py")
	name = strings.ReplaceAll(name, "/", ".")
	return strings.TrimSuffix(name, ".__init__")
}

func (b *builder) walkStatement(n *sitter.Node, parentID, scopeFQN string) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "import_statement", "import_from_statement":
		b.emitImport(n, parentID)
	case "class_definition":
		b.emitClass(n, parentID, scopeFQN)
	case "function_definition":
		b.emitFunction(n, parentID, scopeFQN, ir.NodeFunction)
	default:
		b.walkExpressions(n, parentID, scopeFQN)
	}
}

func (b *builder) emitImport(n *sitter.Node, fileID string) {
	names := firstChildrenOfKind(n, "dotted_name")
	if aliased := firstChildrenOfKind(n, "aliased_import"); len(aliased) > 0 {
		for _, a := range aliased {
			if dn := firstChildOfKind(a, "dotted_name"); dn != nil {
				names = append(names, dn)
			}
		}
	}
	for _, dn := range names {
		path := b.text(dn)
		sp := b.spanOf(n)
		nodeID := ids.NodeID(b.repoID, language, string(ir.NodeImport), path, b.filePath, path)
		b.doc.Nodes = append(b.doc.Nodes, ir.Node{
			ID: nodeID, Kind: ir.NodeImport, FQN: path, Name: path,
			FilePath: b.filePath, Span: sp, Language: language, ParentID: fileID,
		})
		b.addEdge(ir.EdgeContains, fileID, nodeID, nil, nil)
		b.addEdge(ir.EdgeImports, fileID, nodeID, &sp, nil)
	}
}

func (b *builder) emitClass(n *sitter.Node, parentID, scopeFQN string) {
	nameNode := firstChildOfKind(n, "identifier")
	if nameNode == nil {
		return
	}
	name := b.text(nameNode)
	fqn := joinFQN(scopeFQN, name)
	body := b.text(n)
	sp := b.spanOf(n)
	classID := ids.NodeID(b.repoID, language, string(ir.NodeClass), fqn, b.filePath, body)
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: classID, Kind: ir.NodeClass, FQN: fqn, Name: name,
		FilePath: b.filePath, Span: sp, Language: language, ParentID: parentID,
		ContentHash: contentHash(body),
	})
	b.addEdge(ir.EdgeContains, parentID, classID, nil, nil)

	if bases := firstChildOfKind(n, "argument_list"); bases != nil {
		for i := uint(0); i < bases.ChildCount(); i++ {
			arg := bases.Child(i)
			if arg == nil || arg.Kind() != "identifier" {
				continue
			}
			baseName := b.text(arg)
			canonical := adapter.CanonicalName(baseName, false)
			baseSp := b.spanOf(arg)
			stub := b.externals.Stub(b.repoID, canonical, language, baseSp)
			if !b.hasNode(stub.ID) {
				b.doc.Nodes = append(b.doc.Nodes, stub)
			}
			b.addEdge(ir.EdgeInherits, classID, stub.ID, &baseSp, nil)
		}
	}

	if body := firstChildOfKind(n, "block"); body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			b.walkStatement(body.Child(i), classID, fqn)
		}
	}
}

func (b *builder) emitFunction(n *sitter.Node, parentID, scopeFQN string, kind ir.NodeKind) {
	nameNode := firstChildOfKind(n, "identifier")
	if nameNode == nil {
		return
	}
	if scopeFQN != b.moduleName {
		kind = ir.NodeMethod
	}
	name := b.text(nameNode)
	fqn := joinFQN(scopeFQN, name)
	body := b.text(n)
	sp := b.spanOf(n)
	fnID := ids.NodeID(b.repoID, language, string(kind), fqn, b.filePath, body)
	docstring := b.docstringOf(n)
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: fnID, Kind: kind, FQN: fqn, Name: name,
		FilePath: b.filePath, Span: sp, Language: language, ParentID: parentID,
		ContentHash: contentHash(body), Docstring: docstring,
	})
	b.addEdge(ir.EdgeContains, parentID, fnID, nil, nil)

	if bodyNode := firstChildOfKind(n, "block"); bodyNode != nil {
		b.walkExpressions(bodyNode, fnID, fqn)
	}
}

// docstringOf returns the leading string-literal expression statement of a
// function body, if present.
func (b *builder) docstringOf(n *sitter.Node) string {
	body := firstChildOfKind(n, "block")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	if str := firstChildOfKind(first, "string"); str != nil {
		return strings.Trim(b.text(str), `"'`)
	}
	return ""
}

// walkExpressions recursively descends a subtree emitting CALLS edges for
// every call (carrying call_args/call_kwargs/has_shell_kwarg attrs) and
// variable Nodes with DEFINES/WRITES/READS edges for every assignment.
// Nested function/class definitions are handed to emitFunction/emitClass so
// their own scope is tracked correctly.
func (b *builder) walkExpressions(n *sitter.Node, ownerID, scopeFQN string) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "function_definition":
		b.emitFunction(n, ownerID, scopeFQN, ir.NodeFunction)
		return
	case "class_definition":
		b.emitClass(n, ownerID, scopeFQN)
		return
	case "call":
		b.emitCall(n, ownerID)
	case "assignment":
		b.emitAssignment(n, ownerID, scopeFQN)
	case "augmented_assignment":
		b.emitAugmentedAssignment(n, ownerID, scopeFQN)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		b.walkExpressions(n.Child(i), ownerID, scopeFQN)
	}
}

// variableNode returns the variable Node ID for name in scopeFQN, creating
// the Node plus its CONTAINS/DEFINES edges and DEFINITION occurrence on
// first sight.
func (b *builder) variableNode(name, scopeFQN, ownerID string, sp span.Handle) string {
	key := scopeFQN + "\x00" + name
	if id, ok := b.vars[key]; ok {
		return id
	}
	fqn := joinFQN(scopeFQN, name)
	varID := ids.NodeID(b.repoID, language, string(ir.NodeVariable), fqn, b.filePath, name)
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: varID, Kind: ir.NodeVariable, FQN: fqn, Name: name,
		FilePath: b.filePath, Span: sp, Language: language, ParentID: ownerID,
	})
	b.addEdge(ir.EdgeContains, ownerID, varID, nil, nil)
	b.addEdge(ir.EdgeDefines, ownerID, varID, &sp, nil)
	b.addOccurrence(varID, sp, ir.RoleDefinition)
	b.vars[key] = varID
	return varID
}

func (b *builder) addOccurrence(symbolID string, sp span.Handle, role ir.OccurrenceRole) {
	occID := b.occCounter.Next()
	b.doc.Occurrences = append(b.doc.Occurrences, ir.Occurrence{
		ID: occID, SymbolID: symbolID, FilePath: b.filePath, Span: sp,
		Roles: map[ir.OccurrenceRole]struct{}{role: {}},
	})
}

// addAliasEdge emits a WRITES/READS edge between two variable Nodes with
// the alias_kind (direct/field/element) and must attrs the alias analyzer
// consumes.
func (b *builder) addAliasEdge(kind ir.EdgeKind, target, source string, sp span.Handle, aliasKind string, must bool) {
	b.addEdge(kind, target, source, &sp, ir.Attrs{
		"alias_kind": ir.String(aliasKind),
		"must":       ir.Bool(must),
	})
}

// emitAssignment records one assignment's variable flow: a variable Node
// for the target, a WRITES edge to the source variable when the right side
// is an alias-inducing copy (bare name, attribute, subscript), and READS
// edges for every other name the right side reads.
func (b *builder) emitAssignment(n *sitter.Node, ownerID, scopeFQN string) {
	if n.ChildCount() < 3 {
		return
	}
	left := n.Child(0)
	right := n.Child(n.ChildCount() - 1)
	if left == nil || right == nil {
		return
	}

	targetName, targetKind := accessedName(left, b.source)
	if targetName == "" {
		return
	}

	sp := b.spanOf(n)
	targetID := b.variableNode(targetName, scopeFQN, ownerID, sp)
	b.addOccurrence(targetID, b.spanOf(left), ir.RoleWrite)

	if srcName, srcKind := accessedName(right, b.source); srcName != "" {
		aliasKind := srcKind
		if targetKind != "direct" {
			aliasKind = targetKind
		}
		must := targetKind == "direct" && srcKind == "direct"
		srcID := b.variableNode(srcName, scopeFQN, ownerID, b.spanOf(right))
		b.addAliasEdge(ir.EdgeWrites, targetID, srcID, sp, aliasKind, must)
		b.addOccurrence(srcID, b.spanOf(right), ir.RoleRead)
		return
	}

	b.emitReads(targetID, right, scopeFQN, ownerID)
}

// emitAugmentedAssignment treats x += y as a read-modify-write: the target
// is both read and written, and the right side contributes READS edges but
// no alias (the target keeps its own identity).
func (b *builder) emitAugmentedAssignment(n *sitter.Node, ownerID, scopeFQN string) {
	if n.ChildCount() < 3 {
		return
	}
	left := n.Child(0)
	right := n.Child(n.ChildCount() - 1)
	targetName, _ := accessedName(left, b.source)
	if targetName == "" || right == nil {
		return
	}
	sp := b.spanOf(left)
	targetID := b.variableNode(targetName, scopeFQN, ownerID, sp)
	b.addOccurrence(targetID, sp, ir.RoleWrite)
	b.addOccurrence(targetID, sp, ir.RoleRead)
	b.emitReads(targetID, right, scopeFQN, ownerID)
}

// emitReads adds a READS edge (may, direct) from targetID to every
// variable name expr reads.
func (b *builder) emitReads(targetID string, expr *sitter.Node, scopeFQN, ownerID string) {
	for _, ident := range readIdentifiers(expr) {
		name := b.text(ident)
		if name == "" || builtinFuncs[name] {
			continue
		}
		srcID := b.variableNode(name, scopeFQN, ownerID, b.spanOf(ident))
		if srcID == targetID {
			continue
		}
		b.addAliasEdge(ir.EdgeReads, targetID, srcID, b.spanOf(ident), "direct", false)
		b.addOccurrence(srcID, b.spanOf(ident), ir.RoleRead)
	}
}

// accessedName resolves an lvalue/rvalue to the variable name it touches
// and how: a bare identifier is a direct access, attribute/subscript access
// projects a field/element of the base variable. Returns "" for shapes
// that are not simple variable accesses (calls, literals, tuples).
func accessedName(n *sitter.Node, source []byte) (string, string) {
	if n == nil {
		return "", ""
	}
	text := func(node *sitter.Node) string {
		if node == nil {
			return ""
		}
		s, e := node.StartByte(), node.EndByte()
		if int(e) > len(source) || s > e {
			return ""
		}
		return string(source[s:e])
	}
	switch n.Kind() {
	case "identifier":
		return text(n), "direct"
	case "attribute":
		if base := n.Child(0); base != nil && base.Kind() == "identifier" {
			return text(base), "field"
		}
	case "subscript":
		if base := n.Child(0); base != nil && base.Kind() == "identifier" {
			return text(base), "element"
		}
	}
	return "", ""
}

// readIdentifiers collects the identifier nodes an expression reads,
// skipping callee names, attribute tails, and keyword-argument names.
func readIdentifiers(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier":
		return []*sitter.Node{n}
	case "call":
		var out []*sitter.Node
		for i := uint(1); i < n.ChildCount(); i++ {
			out = append(out, readIdentifiers(n.Child(i))...)
		}
		return out
	case "attribute":
		return readIdentifiers(n.Child(0))
	case "keyword_argument":
		if n.ChildCount() >= 3 {
			return readIdentifiers(n.Child(2))
		}
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		out = append(out, readIdentifiers(n.Child(i))...)
	}
	return out
}

func (b *builder) emitCall(n *sitter.Node, ownerID string) {
	fnNode := n.Child(0)
	if fnNode == nil {
		return
	}
	callee := b.text(fnNode)
	isBuiltin := builtinFuncs[callee]
	canonical := adapter.CanonicalName(callee, isBuiltin)

	argsNode := firstChildOfKind(n, "argument_list")
	var positional []string
	kwargs := make(map[string]string)
	hasShell := false
	shellValue := ""
	if argsNode != nil {
		for i := uint(0); i < argsNode.ChildCount(); i++ {
			arg := argsNode.Child(i)
			if arg == nil {
				continue
			}
			if arg.Kind() == "keyword_argument" {
				nameNode := firstChildOfKind(arg, "identifier")
				if nameNode == nil || arg.ChildCount() < 3 {
					continue
				}
				valNode := arg.Child(2)
				kwName := b.text(nameNode)
				kwVal := b.text(valNode)
				kwargs[kwName] = kwVal
				if kwName == "shell" && kwVal == "True" && shellKwargCallees[callee] {
					hasShell = true
					shellValue = kwVal
				}
				continue
			}
			switch arg.Kind() {
			case "(", ")", ",":
				continue
			}
			positional = append(positional, b.text(arg))
		}
	}

	sp := b.spanOf(n)
	calleeSpan := b.spanOf(fnNode)
	stub := b.externals.Stub(b.repoID, canonical, language, calleeSpan)
	if !b.hasNode(stub.ID) {
		b.doc.Nodes = append(b.doc.Nodes, stub)
	}

	attrs := ir.Attrs{
		"call_args":   ir.StringList(positional),
		"call_kwargs": ir.StringMap(kwargs),
	}
	if hasShell {
		attrs["has_shell_kwarg"] = ir.Bool(true)
		attrs["shell_value"] = ir.String(shellValue)
	}
	b.addEdge(ir.EdgeCalls, ownerID, stub.ID, &sp, attrs)

	occID := b.occCounter.Next()
	b.doc.Occurrences = append(b.doc.Occurrences, ir.Occurrence{
		ID: occID, SymbolID: stub.ID, FilePath: b.filePath, Span: sp,
		Roles: map[ir.OccurrenceRole]struct{}{ir.RoleReference: {}},
	})
}

func (b *builder) hasNode(id string) bool {
	for _, n := range b.doc.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (b *builder) addEdge(kind ir.EdgeKind, source, target string, sp *span.Handle, attrs ir.Attrs) {
	b.edgeCounter++
	id := ids.EdgeID(string(kind), source, target, b.edgeCounter)
	b.doc.Edges = append(b.doc.Edges, ir.Edge{ID: id, Kind: kind, SourceID: source, TargetID: target, Span: sp, Attrs: attrs})
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(b.source) || start > end {
		return ""
	}
	return string(b.source[start:end])
}

func (b *builder) spanOf(n *sitter.Node) span.Handle {
	start := n.StartPosition()
	end := n.EndPosition()
	return b.spans.Intern(int(start.Row), int(start.Column), int(end.Row), int(end.Column))
}

func joinFQN(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func firstChildOfKind(n *sitter.Node, kind string) *sitter.Node {
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

func firstChildrenOfKind(n *sitter.Node, kind string) []*sitter.Node {
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

func contentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
