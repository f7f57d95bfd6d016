// Package collectionflow is the heap-sensitive data-flow layer: it tracks
// taint through container operations conventional SSA can't see
// (list.append, dict.__getitem__, for-loop iteration over a known
// collection, ...). Bare variable names resolve through a
// (function_fqn, name) index with a function-suffix fallback, then a
// global match.
package collectionflow

import (
	"strconv"
	"strings"

	"github.com/kraklabs/codelayer/internal/ir"
)

// storeMethods are callee suffixes whose last call argument flows into the
// receiver collection's abstract element.
var storeMethods = map[string]bool{
	"append": true, "extend": true, "insert": true,
	"add": true, "update": true,
	"__setitem__": true, "setdefault": true,
	"put": true, "appendleft": true,
}

// loadMethods are callee suffixes whose call result carries taint out of
// the receiver collection's abstract element.
var loadMethods = map[string]bool{
	"__getitem__": true, "get": true, "pop": true, "values": true, "items": true,
	"popleft": true,
}

// Builder resolves variable names to VariableEntity IDs for one repo-level
// IRDocument and emits InterproceduralDataFlowEdges for collection
// operations.
type Builder struct {
	// byFunc indexes VariableEntity IDs by (function_fqn, name) for the
	// primary resolution path.
	byFunc map[string]map[string]string
	// byName is the global fallback: name -> every VariableEntity ID
	// sharing it, across all functions.
	byName map[string][]string
	// byExprLine indexes expression IDs by (file_path, line) so <call>
	// placeholders can be resolved positionally.
	byExprLine map[string]map[int][]ir.Expression

	edgeSeq int
}

// NewBuilder indexes doc's VariableEntities and Expressions for resolution.
func NewBuilder(doc *ir.IRDocument) *Builder {
	b := &Builder{
		byFunc:     make(map[string]map[string]string),
		byName:     make(map[string][]string),
		byExprLine: make(map[string]map[int][]ir.Expression),
	}
	for _, g := range doc.DFGGraphs {
		for _, v := range g.Variables {
			if b.byFunc[v.FunctionFQN] == nil {
				b.byFunc[v.FunctionFQN] = make(map[string]string)
			}
			b.byFunc[v.FunctionFQN][v.Name] = v.ID
			b.byName[v.Name] = append(b.byName[v.Name], v.ID)
		}
	}
	for _, e := range doc.Expressions {
		if b.byExprLine[e.FilePath] == nil {
			b.byExprLine[e.FilePath] = make(map[int][]ir.Expression)
		}
		line := e.Span.Span.StartLine
		b.byExprLine[e.FilePath][line] = append(b.byExprLine[e.FilePath][line], e)
	}
	return b
}

// Resolve looks up a variable name within functionFQN's scope first, then
// falls back to matching any function whose fqn ends with the same
// trailing segment (a "function-suffix" match for partially-qualified
// callers), then to a global match across every function.
func (b *Builder) Resolve(functionFQN, name string) (string, bool) {
	if scoped, ok := b.byFunc[functionFQN]; ok {
		if id, ok := scoped[name]; ok {
			return id, true
		}
	}
	for fqn, scoped := range b.byFunc {
		if fqn == functionFQN {
			continue
		}
		if strings.HasSuffix(functionFQN, "."+fqn) || strings.HasSuffix(fqn, "."+functionFQN) {
			if id, ok := scoped[name]; ok {
				return id, true
			}
		}
	}
	if ids := b.byName[name]; len(ids) > 0 {
		return ids[0], true
	}
	return "", false
}

// ResolveCallByLine resolves a "<call>" placeholder argument to the actual
// CALL expression at (filePath, line) via the expression index.
func (b *Builder) ResolveCallByLine(filePath string, line int) (ir.Expression, bool) {
	for _, e := range b.byExprLine[filePath][line] {
		if e.Kind == ir.ExprCall {
			return e, true
		}
	}
	return ir.Expression{}, false
}

func (b *Builder) nextID(kind ir.InterproceduralDataFlowEdgeKind, callSite string) string {
	b.edgeSeq++
	return "idfg:" + string(kind) + ":" + callSite + ":" + strconv.Itoa(b.edgeSeq)
}

// elementKey is the abstract element name for a collection variable,
// "collection[*]".
func elementKey(collectionVarID string) string {
	return collectionVarID + "[*]"
}

// Build scans doc's Expressions for recognized store/load method calls and
// for-loop iteration over a known collection, appending
// InterproceduralDataFlowEdges into doc.IDFGEdges.
func (b *Builder) Build(doc *ir.IRDocument) {
	for i := range doc.Expressions {
		e := &doc.Expressions[i]
		if e.Kind != ir.ExprCall {
			continue
		}
		receiver, method := splitCallee(e.CalleeName)
		if method == "" {
			continue
		}
		collVarID, ok := b.Resolve(e.FunctionFQN, receiver)
		if !ok {
			continue
		}
		switch {
		case storeMethods[method]:
			b.emitStore(doc, e, collVarID)
		case loadMethods[method]:
			b.emitLoad(doc, e, collVarID)
		}
	}
	b.buildIterationEdges(doc)
}

func splitCallee(callee string) (receiver, method string) {
	idx := strings.LastIndex(callee, ".")
	if idx < 0 {
		return "", ""
	}
	return callee[:idx], callee[idx+1:]
}

func (b *Builder) emitStore(doc *ir.IRDocument, e *ir.Expression, collVarID string) {
	if len(e.CallArgs) == 0 {
		return
	}
	argName := e.CallArgs[len(e.CallArgs)-1]
	fromVarID, ok := b.Resolve(e.FunctionFQN, argName)
	if !ok {
		fromVarID = argName
	}
	id := b.nextID(ir.IDFGCollectionStore, e.ID)
	doc.IDFGEdges = append(doc.IDFGEdges, ir.InterproceduralDataFlowEdge{
		ID: id, Kind: ir.IDFGCollectionStore,
		FromVarID: fromVarID, ToVarID: elementKey(collVarID),
		CallSiteID: e.ID, CallerFQN: e.FunctionFQN, ArgPosition: len(e.CallArgs) - 1,
		CollectionVarID: collVarID,
	})
}

func (b *Builder) emitLoad(doc *ir.IRDocument, e *ir.Expression, collVarID string) {
	toVarID := e.DefinesVar
	if toVarID == "" {
		toVarID = e.ID
	} else if resolved, ok := b.Resolve(e.FunctionFQN, toVarID); ok {
		toVarID = resolved
	}
	id := b.nextID(ir.IDFGCollectionLoad, e.ID)
	doc.IDFGEdges = append(doc.IDFGEdges, ir.InterproceduralDataFlowEdge{
		ID: id, Kind: ir.IDFGCollectionLoad,
		FromVarID: elementKey(collVarID), ToVarID: toVarID,
		CallSiteID: e.ID, CallerFQN: e.FunctionFQN, ArgPosition: -1,
		CollectionVarID: collVarID,
	})
}

// buildIterationEdges handles iteration: a for-loop or comprehension over
// a known collection produces a COLLECTION_LOAD from collection[*] to the
// iterator variable. FOR_LOOP expressions carry
// ReadsVars[0] as the iterable name and DefinesVar as the loop variable
// (the Semantic IR Builder sets both for a Python for-loop whose target and
// iterable are plain names); the iterable must resolve to a variable.
func (b *Builder) buildIterationEdges(doc *ir.IRDocument) {
	for i := range doc.Expressions {
		e := &doc.Expressions[i]
		if e.Kind != ir.ExprForLoop || len(e.ReadsVars) == 0 {
			continue
		}
		collVarID, ok := b.Resolve(e.FunctionFQN, e.ReadsVars[0])
		if !ok {
			continue
		}
		iterVar := e.DefinesVar
		if iterVar == "" {
			continue
		}
		id := b.nextID(ir.IDFGCollectionLoad, e.ID)
		doc.IDFGEdges = append(doc.IDFGEdges, ir.InterproceduralDataFlowEdge{
			ID: id, Kind: ir.IDFGCollectionLoad,
			FromVarID: elementKey(collVarID), ToVarID: iterVar,
			CallSiteID: e.ID, CallerFQN: e.FunctionFQN, ArgPosition: -1,
			CollectionVarID: collVarID,
		})
	}
}
