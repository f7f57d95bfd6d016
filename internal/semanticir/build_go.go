package semanticir

import (
	"github.com/kraklabs/codelayer/internal/ir"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// buildGoFunction walks a Go function/method declaration's block, emitting
// the same CFG/Expression IR shapes as buildPythonFunction. Go's C-style
// bounded for-loop ("for i := 0; i < n; i++") is the language-equivalent of
// Python's range(n)")
// — its upper-bound comparand is re-expressed as a synthetic CALL
// expression with CalleeName "range" so the cost analyzer's single
// extraction path handles both languages uniformly.
func (b *Builder) buildGoFunction(doc *ir.IRDocument, fn ir.Node, fnNode *sitter.Node, source []byte) error {
	c := newCFGBuilder(b, doc, fn)
	body := goChildByKind(fnNode, "block")
	c.entry = c.addBlock(ir.BlockEntry, fnNode, 0)
	c.exit = c.addBlock(ir.BlockExit, fnNode, 0)

	last := c.entry
	if body != nil {
		last = b.walkGoStatements(c, body, source, last)
	}
	c.addCFGEdge(last, c.exit, ir.CFNormal)
	c.finish()
	return nil
}

func (b *Builder) walkGoStatements(c *cfgBuilder, block *sitter.Node, source []byte, pred string) string {
	cur := pred
	for i := uint(0); i < block.ChildCount(); i++ {
		stmt := block.Child(i)
		if stmt == nil {
			continue
		}
		switch stmt.Kind() {
		case "for_statement":
			cur = b.walkGoFor(c, stmt, source, cur)
		case "if_statement":
			cur = b.walkGoIf(c, stmt, source, cur)
		case "expression_statement", "assignment_statement", "short_var_declaration", "return_statement":
			blockID := c.addBlock(ir.BlockBasic, stmt, 1)
			c.addCFGEdge(cur, blockID, ir.CFNormal)
			b.walkGoExprTree(c, stmt, source, blockID)
			cur = blockID
		default:
			blockID := c.addBlock(ir.BlockBasic, stmt, 1)
			c.addCFGEdge(cur, blockID, ir.CFNormal)
			cur = blockID
		}
	}
	return cur
}

func (b *Builder) walkGoFor(c *cfgBuilder, stmt *sitter.Node, source []byte, pred string) string {
	header := c.addBlock(ir.BlockLoopHeader, stmt, 1)
	c.addCFGEdge(pred, header, ir.CFTrueBranch)

	forExprID := b.nextExprID(c.repoID, c.filePath, int(stmt.StartPosition().Row), int(stmt.StartPosition().Column))
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: forExprID, Kind: ir.ExprForLoop, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(stmt, c.spans), BlockID: header,
	})

	if bound := goLoopBound(stmt, source); bound != "" {
		callID := b.nextExprID(c.repoID, c.filePath, int(stmt.StartPosition().Row), int(stmt.StartPosition().Column))
		c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
			ID: callID, Kind: ir.ExprCall, RepoID: c.repoID, FilePath: c.filePath,
			FunctionFQN: c.fn.FQN, Span: spanOf(stmt, c.spans), BlockID: header,
			CalleeName: "range", CallArgs: []string{bound},
		})
		b.emitGoNameOrLiteral(c, bound, stmt, header)
	}

	body := goChildByKind(stmt, "block")
	bodyLast := header
	if body != nil {
		bodyBlock := c.addBlock(ir.BlockBasic, body, 0)
		c.addCFGEdge(header, bodyBlock, ir.CFNormal)
		bodyLast = b.walkGoStatements(c, body, source, bodyBlock)
	}
	c.addCFGEdge(bodyLast, header, ir.CFLoopBack)

	next := c.addBlock(ir.BlockBasic, stmt, 0)
	c.addCFGEdge(header, next, ir.CFFalseBranch)
	return next
}

// goLoopBound extracts the upper-bound comparand text from a C-style
// for-clause's condition ("i < n" -> "n"), or "" if stmt isn't C-style
// bounded (range-clause loops, infinite loops).
func goLoopBound(stmt *sitter.Node, source []byte) string {
	clause := goChildByKind(stmt, "for_clause")
	if clause == nil {
		return ""
	}
	cond := goChildByKind(clause, "binary_expression")
	if cond == nil {
		return ""
	}
	if cond.ChildCount() < 3 {
		return ""
	}
	right := cond.Child(cond.ChildCount() - 1)
	return nodeText(right, source)
}

func (b *Builder) emitGoNameOrLiteral(c *cfgBuilder, text string, stmt *sitter.Node, blockID string) {
	id := b.nextExprID(c.repoID, c.filePath, int(stmt.StartPosition().Row), int(stmt.StartPosition().Column))
	if isIntLiteral(text) {
		c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
			ID: id, Kind: ir.ExprLiteral, RepoID: c.repoID, FilePath: c.filePath,
			FunctionFQN: c.fn.FQN, Span: spanOf(stmt, c.spans), BlockID: blockID,
			Attrs: ir.Attrs{"value": ir.String(text)},
		})
		return
	}
	c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
		ID: id, Kind: ir.ExprNameLoad, RepoID: c.repoID, FilePath: c.filePath,
		FunctionFQN: c.fn.FQN, Span: spanOf(stmt, c.spans), BlockID: blockID,
		ReadsVars: []string{text},
		Attrs:     ir.Attrs{"var_name": ir.String(text)},
	})
}

func isIntLiteral(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (b *Builder) walkGoIf(c *cfgBuilder, stmt *sitter.Node, source []byte, pred string) string {
	branch := c.addBlock(ir.BlockBranch, stmt, 1)
	c.addCFGEdge(pred, branch, ir.CFNormal)

	cons := goChildByKind(stmt, "block")
	consLast := branch
	if cons != nil {
		consBlock := c.addBlock(ir.BlockBasic, cons, 0)
		c.addCFGEdge(branch, consBlock, ir.CFTrueBranch)
		consLast = b.walkGoStatements(c, cons, source, consBlock)
	}

	join := c.addBlock(ir.BlockBasic, stmt, 0)
	c.addCFGEdge(consLast, join, ir.CFNormal)
	c.addCFGEdge(branch, join, ir.CFFalseBranch)
	return join
}

func (b *Builder) walkGoExprTree(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "call_expression":
		b.emitGoCall(c, n, source, blockID)
	case "binary_expression":
		id := b.nextExprID(c.repoID, c.filePath, int(n.StartPosition().Row), int(n.StartPosition().Column))
		c.doc.Expressions = append(c.doc.Expressions, ir.Expression{
			ID: id, Kind: ir.ExprBinOp, RepoID: c.repoID, FilePath: c.filePath,
			FunctionFQN: c.fn.FQN, Span: spanOf(n, c.spans), BlockID: blockID,
		})
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		b.walkGoExprTree(c, n.Child(i), source, blockID)
	}
}

func (b *Builder) emitGoCall(c *cfgBuilder, n *sitter.Node, source []byte, blockID string) {
	fnNode := n.Child(0)
	callee := nodeText(fnNode, source)
	var args []string
	if argsNode := goChildByKind(n, "argument_list"); argsNode != nil {
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

func goChildByKind(n *sitter.Node, kind string) *sitter.Node {
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
