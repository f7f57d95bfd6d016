// Package golang implements the Go Language Adapter over a
// tree-sitter-go syntax tree.
package golang

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

const language = "go"

// builtinFuncs mirrors the Go predeclared function identifiers; used to
// pick CanonicalName's builtins.{name} form for unqualified calls.
var builtinFuncs = map[string]bool{
	"len": true, "cap": true, "make": true, "new": true, "append": true,
	"copy": true, "delete": true, "panic": true, "recover": true,
	"print": true, "println": true, "close": true,
}

// shellExecNames are callees whose argument shape the taint layer treats
// as shell-sensitive: os/exec.Command with a shell invocation as argv[0],
// the Go counterpart of Python's subprocess(shell=True).
var shellExecNames = map[string]bool{
	"exec.Command": true, "exec.CommandContext": true,
}

// Adapter emits IR for one Go source file.
type Adapter struct {
	externals *adapter.ExternalFuncCache
	spans     *span.Pool
}

// New returns a Go adapter sharing externals (the per-repo
// external-function stub cache) and spans (the process-wide span pool).
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
	pkgName          string
	vars             map[string]string // scope-qualified name -> variable node ID
}

// Build walks the root of tree and emits Nodes/Edges/Occurrences into a
// fresh IRDocument.
func (a *Adapter) Build(repoID, filePath string, source []byte, tree *sitter.Tree) (*ir.IRDocument, error) {
	root := tree.RootNode()
	b := &builder{
		repoID:    repoID,
		filePath:  filePath,
		source:    source,
		doc:       ir.NewIRDocument(repoID, ""),
		spans:     a.spans,
		externals: a.externals,
		vars:      make(map[string]string),
	}
	b.pkgName = b.packageName(root)

	fileSpan := b.spanOf(root)
	fileID := ids.NodeID(repoID, language, string(ir.NodeFile), filePath, filePath, "")
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: fileID, Kind: ir.NodeFile, FQN: filePath, Name: filePath,
		FilePath: filePath, Span: fileSpan, Language: language,
	})

	b.walkImports(root, fileID)
	b.walkTopLevel(root, fileID)

	return b.doc, nil
}

func (b *builder) packageName(root *sitter.Node) string {
	for i := uint(0); i < root.ChildCount(); i++ {
		c := root.Child(i)
		if c != nil && c.Kind() == "package_clause" {
			if ident := firstChildOfKind(c, "package_identifier"); ident != nil {
				return b.text(ident)
			}
		}
	}
	return ""
}

func (b *builder) walkImports(root *sitter.Node, fileID string) {
	for i := uint(0); i < root.ChildCount(); i++ {
		decl := root.Child(i)
		if decl == nil || decl.Kind() != "import_declaration" {
			continue
		}
		for j := uint(0); j < decl.ChildCount(); j++ {
			c := decl.Child(j)
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "import_spec_list":
				for k := uint(0); k < c.ChildCount(); k++ {
					spec := c.Child(k)
					if spec != nil && spec.Kind() == "import_spec" {
						b.emitImport(spec, fileID)
					}
				}
			case "import_spec":
				b.emitImport(c, fileID)
			}
		}
	}
}

func (b *builder) emitImport(spec *sitter.Node, fileID string) {
	pathNode := firstChildOfKind(spec, "interpreted_string_literal")
	if pathNode == nil {
		return
	}
	path := strings.Trim(b.text(pathNode), `"`)
	sp := b.spanOf(spec)
	nodeID := ids.NodeID(b.repoID, language, string(ir.NodeImport), path, b.filePath, path)
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: nodeID, Kind: ir.NodeImport, FQN: path, Name: path,
		FilePath: b.filePath, Span: sp, Language: language, ParentID: fileID,
	})
	b.addEdge(ir.EdgeContains, fileID, nodeID, nil, nil)
	b.addEdge(ir.EdgeImports, fileID, nodeID, &sp, nil)
}

func (b *builder) walkTopLevel(root *sitter.Node, fileID string) {
	for i := uint(0); i < root.ChildCount(); i++ {
		c := root.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "function_declaration":
			b.emitFunction(c, fileID, "", ir.NodeFunction)
		case "method_declaration":
			b.emitMethod(c, fileID)
		case "type_declaration":
			b.emitTypeDecl(c, fileID)
		}
	}
}

func (b *builder) emitTypeDecl(n *sitter.Node, fileID string) {
	for i := uint(0); i < n.ChildCount(); i++ {
		spec := n.Child(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		nameNode := firstChildOfKind(spec, "type_identifier")
		if nameNode == nil {
			continue
		}
		name := b.text(nameNode)
		fqn := b.pkgName + "." + name
		sp := b.spanOf(spec)
		classID := ids.NodeID(b.repoID, language, string(ir.NodeClass), fqn, b.filePath, b.text(spec))
		b.doc.Nodes = append(b.doc.Nodes, ir.Node{
			ID: classID, Kind: ir.NodeClass, FQN: fqn, Name: name,
			FilePath: b.filePath, Span: sp, Language: language, ParentID: fileID,
			ContentHash: contentHash(b.text(spec)),
		})
		b.addEdge(ir.EdgeContains, fileID, classID, nil, nil)
	}
}

func (b *builder) emitFunction(n *sitter.Node, fileID, receiverFQN string, kind ir.NodeKind) string {
	nameNode := firstChildOfKind(n, "identifier")
	if nameNode == nil {
		return ""
	}
	name := b.text(nameNode)
	fqn := name
	if receiverFQN != "" {
		fqn = receiverFQN + "." + name
	} else if b.pkgName != "" {
		fqn = b.pkgName + "." + name
	}
	body := b.text(n)
	sp := b.spanOf(n)
	fnID := ids.NodeID(b.repoID, language, string(kind), fqn, b.filePath, body)
	b.doc.Nodes = append(b.doc.Nodes, ir.Node{
		ID: fnID, Kind: kind, FQN: fqn, Name: name,
		FilePath: b.filePath, Span: sp, Language: language, ParentID: fileID,
		ContentHash: contentHash(body),
	})
	b.addEdge(ir.EdgeContains, fileID, fnID, nil, nil)

	if bodyNode := firstChildOfKind(n, "block"); bodyNode != nil {
		b.walkBody(bodyNode, fnID, fqn)
	}
	return fnID
}

func (b *builder) emitMethod(n *sitter.Node, fileID string) {
	recv := firstChildOfKind(n, "parameter_list")
	receiverType := ""
	if recv != nil && recv.ChildCount() > 0 {
		if param := firstChildOfKind(recv, "parameter_declaration"); param != nil {
			if t := lastChild(param); t != nil {
				receiverType = strings.TrimPrefix(b.text(t), "*")
			}
		}
	}
	receiverFQN := b.pkgName
	if receiverType != "" {
		receiverFQN = b.pkgName + "." + receiverType
	}
	b.emitFunction(n, fileID, receiverFQN, ir.NodeMethod)
}

// walkBody recursively emits CALLS edges for call expressions and variable
// Nodes with DEFINES/WRITES/READS edges for declarations and assignments
// inside a function body.
func (b *builder) walkBody(n *sitter.Node, fnID, fnFQN string) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "call_expression":
		b.emitCall(n, fnID, fnFQN)
	case "short_var_declaration", "assignment_statement":
		b.emitAssignment(n, fnID, fnFQN)
	case "var_declaration":
		b.emitVarDecl(n, fnID, fnFQN)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		b.walkBody(n.Child(i), fnID, fnFQN)
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
	fqn := name
	if scopeFQN != "" {
		fqn = scopeFQN + "." + name
	}
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

// emitAssignment pairs each identifier on the left of := or = with the
// expression in the same position on the right. Compound operators (+=,
// -=, ...) never induce an alias; their right side only contributes READS.
func (b *builder) emitAssignment(n *sitter.Node, ownerID, scopeFQN string) {
	if n.ChildCount() < 3 {
		return
	}
	op := b.text(n.Child(1))
	aliasable := op == "=" || op == ":="
	lhs := exprListItems(n.Child(0))
	rhs := exprListItems(n.Child(n.ChildCount() - 1))

	for i, l := range lhs {
		if l.Kind() != "identifier" {
			continue
		}
		name := b.text(l)
		if name == "_" {
			continue
		}
		sp := b.spanOf(l)
		targetID := b.variableNode(name, scopeFQN, ownerID, sp)
		b.addOccurrence(targetID, sp, ir.RoleWrite)
		if i < len(rhs) {
			b.emitValueFlow(targetID, rhs[i], scopeFQN, ownerID, aliasable)
		}
	}
}

// emitVarDecl handles "var x = y" / "var x T" specs.
func (b *builder) emitVarDecl(n *sitter.Node, ownerID, scopeFQN string) {
	for i := uint(0); i < n.ChildCount(); i++ {
		spec := n.Child(i)
		if spec == nil || spec.Kind() != "var_spec" {
			continue
		}
		var names []*sitter.Node
		var values []*sitter.Node
		seenEq := false
		for j := uint(0); j < spec.ChildCount(); j++ {
			c := spec.Child(j)
			if c == nil {
				continue
			}
			switch {
			case c.Kind() == "=":
				seenEq = true
			case !seenEq && c.Kind() == "identifier":
				names = append(names, c)
			case seenEq && c.Kind() != ",":
				values = append(values, exprListItems(c)...)
			}
		}
		for j, nameNode := range names {
			name := b.text(nameNode)
			if name == "_" {
				continue
			}
			sp := b.spanOf(nameNode)
			targetID := b.variableNode(name, scopeFQN, ownerID, sp)
			b.addOccurrence(targetID, sp, ir.RoleWrite)
			if j < len(values) {
				b.emitValueFlow(targetID, values[j], scopeFQN, ownerID, true)
			}
		}
	}
}

// emitValueFlow classifies how value flows into target: a bare name copy
// or address-of is a must alias (WRITES, direct), selector/index access is
// a may alias of the base (WRITES, field/element), and anything else
// contributes READS edges for every name it reads.
func (b *builder) emitValueFlow(targetID string, value *sitter.Node, scopeFQN, ownerID string, aliasable bool) {
	if value == nil {
		return
	}
	if aliasable {
		switch value.Kind() {
		case "identifier":
			srcID := b.variableNode(b.text(value), scopeFQN, ownerID, b.spanOf(value))
			b.addAliasEdge(ir.EdgeWrites, targetID, srcID, b.spanOf(value), "direct", true)
			b.addOccurrence(srcID, b.spanOf(value), ir.RoleRead)
			return
		case "unary_expression":
			if op := value.Child(0); op != nil && b.text(op) == "&" {
				if ident := value.Child(1); ident != nil && ident.Kind() == "identifier" {
					srcID := b.variableNode(b.text(ident), scopeFQN, ownerID, b.spanOf(ident))
					b.addAliasEdge(ir.EdgeWrites, targetID, srcID, b.spanOf(ident), "direct", true)
					b.addOccurrence(srcID, b.spanOf(ident), ir.RoleRead)
					return
				}
			}
		case "selector_expression":
			if base := value.Child(0); base != nil && base.Kind() == "identifier" {
				srcID := b.variableNode(b.text(base), scopeFQN, ownerID, b.spanOf(base))
				b.addAliasEdge(ir.EdgeWrites, targetID, srcID, b.spanOf(base), "field", false)
				b.addOccurrence(srcID, b.spanOf(base), ir.RoleRead)
				return
			}
		case "index_expression":
			if base := value.Child(0); base != nil && base.Kind() == "identifier" {
				srcID := b.variableNode(b.text(base), scopeFQN, ownerID, b.spanOf(base))
				b.addAliasEdge(ir.EdgeWrites, targetID, srcID, b.spanOf(base), "element", false)
				b.addOccurrence(srcID, b.spanOf(base), ir.RoleRead)
				return
			}
		}
	}
	for _, ident := range goReadIdentifiers(value) {
		name := b.text(ident)
		if name == "" || name == "_" || builtinFuncs[name] {
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

// exprListItems flattens an expression_list into its element expressions;
// a non-list node is returned as a single-element slice.
func exprListItems(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	if n.Kind() != "expression_list" {
		return []*sitter.Node{n}
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && c.Kind() != "," {
			out = append(out, c)
		}
	}
	return out
}

// goReadIdentifiers collects the identifier nodes an expression reads,
// skipping callee names and selector tails.
func goReadIdentifiers(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier":
		return []*sitter.Node{n}
	case "call_expression":
		var out []*sitter.Node
		for i := uint(1); i < n.ChildCount(); i++ {
			out = append(out, goReadIdentifiers(n.Child(i))...)
		}
		return out
	case "selector_expression":
		return goReadIdentifiers(n.Child(0))
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		out = append(out, goReadIdentifiers(n.Child(i))...)
	}
	return out
}

func (b *builder) emitCall(n *sitter.Node, fnID, fnFQN string) {
	fnNode := n.Child(0)
	if fnNode == nil {
		return
	}
	callee := b.text(fnNode)
	isBuiltin := builtinFuncs[callee]
	canonical := adapter.CanonicalName(callee, isBuiltin)

	argsNode := firstChildOfKind(n, "argument_list")
	var positional []string
	hasShell := false
	shellValue := ""
	if argsNode != nil {
		for i := uint(0); i < argsNode.ChildCount(); i++ {
			arg := argsNode.Child(i)
			if arg == nil || arg.Kind() == "(" || arg.Kind() == ")" || arg.Kind() == "," {
				continue
			}
			positional = append(positional, b.text(arg))
		}
	}
	if shellExecNames[callee] && len(positional) > 0 {
		hasShell = true
		shellValue = positional[0]
	}

	sp := b.spanOf(n)
	calleeSpan := b.spanOf(fnNode)
	stub := b.externals.Stub(b.repoID, canonical, language, calleeSpan)
	if !b.hasNode(stub.ID) {
		b.doc.Nodes = append(b.doc.Nodes, stub)
	}

	attrs := ir.Attrs{
		"call_args": ir.StringList(positional),
	}
	if hasShell {
		attrs["has_shell_kwarg"] = ir.Bool(true)
		attrs["shell_value"] = ir.String(shellValue)
	}
	b.addEdge(ir.EdgeCalls, fnID, stub.ID, &sp, attrs)

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

func lastChild(n *sitter.Node) *sitter.Node {
	if n == nil || n.ChildCount() == 0 {
		return nil
	}
	return n.Child(n.ChildCount() - 1)
}

// contentHash covers the exact source text. Any change, including
// whitespace, changes the hash.
func contentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
