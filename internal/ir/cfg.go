package ir

import "github.com/kraklabs/codelayer/internal/ir/span"

// ControlFlowBlockKind enumerates CFG block kinds.
type ControlFlowBlockKind string

const (
	BlockEntry      ControlFlowBlockKind = "ENTRY"
	BlockExit       ControlFlowBlockKind = "EXIT"
	BlockBasic      ControlFlowBlockKind = "BLOCK"
	BlockLoopHeader ControlFlowBlockKind = "LOOP_HEADER"
	BlockBranch     ControlFlowBlockKind = "BRANCH"
)

// ControlFlowBlock is one basic block in a function's CFG.
type ControlFlowBlock struct {
	ID              string
	Kind            ControlFlowBlockKind
	FunctionNodeID  string
	Span            span.Handle
	StatementCount  int
}

// ControlFlowEdgeKind enumerates CFG edge labels.
type ControlFlowEdgeKind string

const (
	CFNormal      ControlFlowEdgeKind = "NORMAL"
	CFTrueBranch  ControlFlowEdgeKind = "TRUE_BRANCH"
	CFFalseBranch ControlFlowEdgeKind = "FALSE_BRANCH"
	CFLoopBack    ControlFlowEdgeKind = "LOOP_BACK"
	CFException   ControlFlowEdgeKind = "EXCEPTION"
)

// ControlFlowEdge connects two ControlFlowBlocks.
type ControlFlowEdge struct {
	SourceBlockID string
	TargetBlockID string
	Kind          ControlFlowEdgeKind
}

// BasicFlowGraph is the per-function collection of basic blocks.
type BasicFlowGraph struct {
	ID             string
	FunctionNodeID string
	EntryBlockID   string
	ExitBlockID    string
	Blocks         []string // ControlFlowBlock IDs, member of this BFG
	TotalStatements int
}

// HasBlock reports whether blockID is a member of this graph — callers must
// hold this invariant.
func (g BasicFlowGraph) HasBlock(blockID string) bool {
	for _, id := range g.Blocks {
		if id == blockID {
			return true
		}
	}
	return false
}
