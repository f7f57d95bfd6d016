package ir

import "github.com/kraklabs/codelayer/internal/ir/span"

// ExpressionKind enumerates the statement/expression shapes the Semantic IR
// Builder recognizes.
type ExpressionKind string

const (
	ExprCall     ExpressionKind = "CALL"
	ExprNameLoad ExpressionKind = "NAME_LOAD"
	ExprAssign   ExpressionKind = "ASSIGN"
	ExprLiteral  ExpressionKind = "LITERAL"
	ExprBinOp    ExpressionKind = "BIN_OP"
	ExprForLoop  ExpressionKind = "FOR_LOOP"
)

// Expression is built from the syntax tree per statement; it may later be
// retyped by the type linker (InferredType/InferredTypeID).
type Expression struct {
	ID            string
	Kind          ExpressionKind
	RepoID        string
	FilePath      string
	FunctionFQN   string // optional
	Span          span.Handle
	BlockID       string // optional, owning ControlFlowBlock
	ReadsVars     []string
	DefinesVar    string // optional
	Attrs         Attrs

	// Security-relevant call shortcuts are first-class fields,
	// not buried string lookups in Attrs.
	CalleeName     string
	CallArgs       []string          // positional arg source fragments
	CallKwargs     map[string]string // keyword args
	HasShellKwarg  bool
	ShellValue     string

	InferredType   string // optional
	InferredTypeID string // optional
	SymbolID       string // optional
	SymbolFQN      string // optional
}

// VariableEntity is built from expression defines/reads during Semantic IR
// construction; ShadowIndex disambiguates SSA versions of the same name.
type VariableEntity struct {
	ID          string
	Name        string
	FunctionFQN string
	BlockID     string
	ShadowIndex int
	FilePath    string
}

// InterproceduralDataFlowEdgeKind enumerates the collection/call-boundary
// data-flow edge kinds built by the Collection Data-Flow Builder and
// the Semantic IR Builder's DFG phase.
type InterproceduralDataFlowEdgeKind string

const (
	IDFGCollectionStore InterproceduralDataFlowEdgeKind = "COLLECTION_STORE"
	IDFGCollectionLoad  InterproceduralDataFlowEdgeKind = "COLLECTION_LOAD"
	IDFGCallArg         InterproceduralDataFlowEdgeKind = "CALL_ARG"
	IDFGReturn          InterproceduralDataFlowEdgeKind = "RETURN"
)

// InterproceduralDataFlowEdge connects two VariableEntities across call
// boundaries or through a collection's abstract element.
type InterproceduralDataFlowEdge struct {
	ID             string
	Kind           InterproceduralDataFlowEdgeKind
	FromVarID      string
	ToVarID        string
	CallSiteID     string // optional
	CallerFQN      string
	CalleeFQN      string
	ArgPosition    int  // optional, -1 if unset
	CollectionVarID string // optional
	ElementKey     string // optional
}

// TypeResolutionLevel distinguishes raw syntax-derived type strings from
// resolved targets.
type TypeResolutionLevel string

const (
	TypeRaw      TypeResolutionLevel = "raw"
	TypeResolved TypeResolutionLevel = "resolved"
)

// TypeFlavor classifies the origin of a type.
type TypeFlavor string

const (
	TypeBuiltin  TypeFlavor = "builtin"
	TypeUser     TypeFlavor = "user"
	TypeExternal TypeFlavor = "external"
)

// TypeEntity is built during the Semantic IR Builder's type phase and may be
// linked (ResolvedTarget populated) by the type linker.
type TypeEntity struct {
	ID              string
	Raw             string
	Flavor          TypeFlavor
	IsNullable      bool
	ResolutionLevel TypeResolutionLevel
	ResolvedTarget  string // optional node ID
	GenericParamIDs []string
}
