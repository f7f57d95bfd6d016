package semanticir

import (
	"strconv"

	"github.com/kraklabs/codelayer/internal/ir"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// buildPythonFunction walks a Python function_definition's block, emitting
// CFG blocks (ENTRY/EXIT/BLOCK/LOOP_HEADER/BRANCH), CFG edges, and
// Expression IR (CALL/NAME_LOAD/ASSIGN/LITERAL/BIN_OP/FOR_LOOP).
func (b *Builder) buildPythonFunction(doc *ir.IRDocument, fn ir.Node, fnNode *sitter.Node, source []byte) error {
	c := newCFGBuilder(b, doc, fn)
	body := pyChildByKind(fnNode, "block")
	c.entry = c.addBlock(ir.BlockEntry, fnNode, 0)
	c.exit = c.addBlock(ir.BlockExit, fnNode, 0)

	last := c.entry
	if body != nil {
		last = b.walkPyStatements(c, body, source, last)
	}
	c.addCFGEdge(last, c.exit, ir.CFNormal)
	c.finish()
	return nil
}

// walkPyStatements walks the direct statement children of a Python block,
// chaining sequential BLOCK nodes and branching into LOOP_HEADER/BRANCH
// blocks for for/if statements. Returns the ID of the last block reached.
func (b *Builder) walkPyStatements(c *cfgBuilder, block *sitter.Node, source []byte, pred string) string {
	cur := pred
	for i := uint(0); i < block.ChildCount(); i++ {
		stmt := block.Child(i)
		if stmt == nil {
			continue
		}
		switch stmt.Kind() {
		case "for_statement":
			cur = b.walkPyFor(c, stmt, source, cur)
		case "if_statement":
			cur = b.walkPyIf(c, stmt, source, cur)
		case "expression_statement", "return_statement", "assert_statement":
			blockID := c.addBlock(ir.BlockBasic, stmt, 1)
			c.addCFGEdge(cur, blockID, ir.CFNormal)
			b.emitPyExpressions(c, stmt, source, blockID)
			cur = blockID
		default:
			// Declarations, comments, pass statements, etc: no expression IR.
			blockID := c.addBlock(ir.BlockBasic, stmt, 1)
			c.addCFGEdge(cur, blockID, ir.CFNormal)
			cur = blockID
		}
	}
	return cur
}

func (b *Builder) walkPyFor(c *cfgBuilder, stmt *sitter.Node, source []byte, pred string) string {
	header := c.addBlock(ir.BlockLoopHeader, stmt, 1)
	c.addCFGEdge(pred, header, ir.CFTrueBranch)

	// FOR_LOOP expression: captures the loop header's own span so the cost
	// analyzer's span-scoped search can find the
	// range(...) call emitted below within the same bounds.
	forExprID := b.nextExprID(c.repoID, c.filePath, int(stmt.StartPosition().Row), int(stmt.StartPosition().Column))
	forExpr := ir.Expression{
		ID: forExprID, Kind: ir.ExprForLoop, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(stmt, c.spans), BlockID: header,
	}
	if left := stmt.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
		forExpr.DefinesVar = nodeText(left, source)
	}
	if right := stmt.ChildByFieldName("right"); right != nil && right.Kind() == "identifier" {
		forExpr.ReadsVars = []string{nodeText(right, source)}
	}
	c.doc.Expressions = append(c.doc.Expressions, forExpr)
	if callNode := pyFindCall(stmt, source); callNode != nil {
		b.emitPyCall(c, callNode, source, header)
	}

	body := pyChildByKind(stmt, "block")
	bodyLast := header
	if body != nil {
		bodyBlock := c.addBlock(ir.BlockBasic, body, 0)
		c.addCFGEdge(header, bodyBlock, ir.CFNormal)
		bodyLast = b.walkPyStatements(c, body, source, bodyBlock)
	}
	c.addCFGEdge(bodyLast, header, ir.CFLoopBack)

	next := c.addBlock(ir.BlockBasic, stmt, 0)
	c.addCFGEdge(header, next, ir.CFFalseBranch)
	return next
}

func (b *Builder) walkPyIf(c *cfgBuilder, stmt *sitter.Node, source []byte, pred string) string {
	branch := c.addBlock(ir.BlockBranch, stmt, 1)
	c.addCFGEdge(pred, branch, ir.CFNormal)

	cons := pyChildByKind(stmt, "block")
	consLast := branch
	if cons != nil {
		consBlock := c.addBlock(ir.BlockBasic, cons, 0)
		c.addCFGEdge(branch, consBlock, ir.CFTrueBranch)
		consLast = b.walkPyStatements(c, cons, source, consBlock)
	}

	altLast := branch
	if alt := pyChildByKind(stmt, "else_clause"); alt != nil {
		if altBlock := pyChildByKind(alt, "block"); altBlock != nil {
			ab := c.addBlock(ir.BlockBasic, altBlock, 0)
			c.addCFGEdge(branch, ab, ir.CFFalseBranch)
			altLast = b.walkPyStatements(c, altBlock, source, ab)
		}
	} else {
		altLast = branch
	}

	join := c.addBlock(ir.BlockBasic, stmt, 0)
	c.addCFGEdge(consLast, join, ir.CFNormal)
	if altLast != branch {
		c.addCFGEdge(altLast, join, ir.CFNormal)
	} else {
		c.addCFGEdge(branch, join, ir.CFFalseBranch)
	}
	return join
}

// emitPyExpressions emits one Expression per recognizable top-level
// construct within stmt (assignment, call, binary op, literal, name load).
func (b *Builder) emitPyExpressions(c *cfgBuilder, stmt *sitter.Node, source []byte, blockID string) {
	b.walkPyExprTree(c, stmt, source, blockID)
}

func (b *Builder) walkPyExprTree(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "assignment":
		b.emitPyAssign(c, n, source, blockID)
		return
	case "call":
		b.emitPyCall(c, n, source, blockID)
	case "binary_operator":
		b.emitPyBinOp(c, n, source, blockID)
	case "identifier":
		b.emitPyNameLoad(c, n, source, blockID)
	case "integer", "float", "string", "true", "false", "none":
		b.emitPyLiteral(c, n, source, blockID)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		b.walkPyExprTree(c, n.Child(i), source, blockID)
	}
}

func (b *Builder) emitPyAssign(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	left := n.Child(0)
	if left == nil {
		return
	}
	name := nodeText(left, source)
	id := b.nextExprID(c.repoID, c.filePath, int(n.StartPosition().Row), int(n.StartPosition().Column))
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: id, Kind: ir.ExprAssign, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(n, c.spans), BlockID: blockID, DefinesVar: name,
	})
	if left.Kind() == "identifier" {
		c.defineVar(name, blockID)
	}
	if right := n.Child(n.ChildCount() - 1); right != nil && right != left {
		b.walkPyExprTree(c, right, source, blockID)
	}
}

func (b *Builder) emitPyCall(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	fnNode := n.Child(0)
	callee := nodeText(fnNode, source)
	var args []string
	if argsNode := pyChildByKind(n, "argument_list"); argsNode != nil {
		for i := uint(0); i < argsNode.ChildCount(); i++ {
			a := argsNode.Child(i)
			if a == nil {
				continue
			}
			switch a.Kind() {
			case "(", ")", ",":
				continue
			}
			args = append(args, nodeText(a, source))
		}
	}
	id := b.nextExprID(c.repoID, c.filePath, int(n.StartPosition().Row), int(n.StartPosition().Column))
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: id, Kind: ir.ExprCall, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(n, c.spans), BlockID: blockID,
		CalleeName: callee, CallArgs: args,
	})
}

func (b *Builder) emitPyBinOp(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	id := b.nextExprID(c.repoID, c.filePath, int(n.StartPosition().Row), int(n.StartPosition().Column))
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: id, Kind: ir.ExprBinOp, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(n, c.spans), BlockID: blockID,
	})
}

func (b *Builder) emitPyNameLoad(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	name := nodeText(n, source)
	id := b.nextExprID(c.repoID, c.filePath, int(n.StartPosition().Row), int(n.StartPosition().Column))
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: id, Kind: ir.ExprNameLoad, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(n, c.spans), BlockID: blockID,
		ReadsVars: []string{name},
		Attrs:     ir.Attrs{"var_name": ir.String(name)},
	})
	c.useVar(name)
}

func (b *Builder) emitPyLiteral(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	val := nodeText(n, source)
	if n.Kind() == "integer" {
		if _, err := strconv.Atoi(val); err != nil {
			return
		}
	}
	id := b.nextExprID(c.repoID, c.filePath, int(n.StartPosition().Row), int(n.StartPosition().Column))
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: id, Kind: ir.ExprLiteral, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(n, c.spans), BlockID: blockID,
		Attrs: ir.Attrs{"value": ir.String(val)},
	})
}

func pyChildByKind(n *sitter.Node, kind string) *sitter.Node {
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

// pyFindCall returns the first "call" node found anywhere under stmt
// (typically a for_statement's "in EXPR" clause), used to locate the
// range(...) call regardless of exactly which field holds it across
// tree-sitter-python grammar versions.
func pyFindCall(n *sitter.Node, source []byte) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "call" {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := pyFindCall(n.Child(i), source); c != nil {
			return c
		}
	}
	return nil
}
