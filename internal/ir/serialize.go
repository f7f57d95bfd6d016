package ir

import (
	"bytes"
	"encoding/json"

	"github.com/kraklabs/codelayer/internal/ir/span"
)

// wireSpan is the span shape on the wire.
type wireSpan struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

type wireNode struct {
	ID          string            `json:"id"`
	Kind        NodeKind          `json:"kind"`
	FQN         string            `json:"fqn"`
	FilePath    string            `json:"file_path"`
	Language    string            `json:"language"`
	Span        wireSpan          `json:"span"`
	Name        string            `json:"name"`
	ParentID    string            `json:"parent_id,omitempty"`
	Docstring   string            `json:"docstring,omitempty"`
	ContentHash string            `json:"content_hash,omitempty"`
	IsExternal  bool              `json:"is_external,omitempty"`
	Attrs       map[string]any    `json:"attrs"`
}

type wireEdge struct {
	ID       string         `json:"id"`
	Kind     EdgeKind       `json:"kind"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Span     *wireSpan      `json:"span"`
	Attrs    map[string]any `json:"attrs"`
}

type wireDocument struct {
	RepoID      string         `json:"repo_id"`
	SnapshotID  string         `json:"snapshot_id"`
	Nodes       []wireNode     `json:"nodes"`
	Edges       []wireEdge     `json:"edges"`
	Occurrences []Occurrence   `json:"occurrences"`
	CFGBlocks   []ControlFlowBlock `json:"cfg_blocks"`
	CFGEdges    []ControlFlowEdge  `json:"cfg_edges"`
	BFGGraphs   []BasicFlowGraph   `json:"bfg_graphs"`
	Expressions []Expression       `json:"expressions"`
	TypeEntities []TypeEntity      `json:"type_entities"`
	Meta        DocumentMeta       `json:"meta"`
}

func attrsToWire(a Attrs) map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		switch v.Kind {
		case ValueString:
			out[k] = v.Str
		case ValueInt:
			out[k] = v.Int
		case ValueFloat:
			out[k] = v.Flt
		case ValueBool:
			out[k] = v.Bool
		case ValueStringList:
			out[k] = v.List
		case ValueStringMap:
			out[k] = v.Map
		}
	}
	return out
}

// MarshalJSON produces the stable wire form. The document is
// sorted by ID first so that repeated marshaling of equivalent documents is
// byte-identical.
func (d *IRDocument) MarshalJSON() ([]byte, error) {
	d.SortByID()

	wd := wireDocument{
		RepoID:       d.RepoID,
		SnapshotID:   d.SnapshotID,
		Occurrences:  d.Occurrences,
		CFGBlocks:    d.CFGBlocks,
		CFGEdges:     d.CFGEdges,
		BFGGraphs:    d.BFGGraphs,
		Expressions:  d.Expressions,
		TypeEntities: d.TypeEntities,
		Meta:         d.Meta,
	}
	for _, n := range d.Nodes {
		wd.Nodes = append(wd.Nodes, wireNode{
			ID: n.ID, Kind: n.Kind, FQN: n.FQN, FilePath: n.FilePath, Language: n.Language,
			Span:        wireSpan{n.Span.Span.StartLine, n.Span.Span.StartCol, n.Span.Span.EndLine, n.Span.Span.EndCol},
			Name:        n.Name,
			ParentID:    n.ParentID,
			Docstring:   n.Docstring,
			ContentHash: n.ContentHash,
			IsExternal:  n.IsExternal,
			Attrs:       attrsToWire(n.Attrs),
		})
	}
	for _, e := range d.Edges {
		we := wireEdge{ID: e.ID, Kind: e.Kind, SourceID: e.SourceID, TargetID: e.TargetID, Attrs: attrsToWire(e.Attrs)}
		if e.Span != nil {
			we.Span = &wireSpan{e.Span.Span.StartLine, e.Span.Span.StartCol, e.Span.Span.EndLine, e.Span.Span.EndCol}
		}
		wd.Edges = append(wd.Edges, we)
	}
	if wd.Nodes == nil {
		wd.Nodes = []wireNode{}
	}
	if wd.Edges == nil {
		wd.Edges = []wireEdge{}
	}
	return json.Marshal(wd)
}

// attrsFromWire reconstructs Attrs from the generic JSON decode of an attrs
// object. Numbers are decoded via json.Number (see UnmarshalJSON's use of
// json.Decoder.UseNumber) rather than the default float64, so an Int
// attribute that round-trips through JSON is not silently reinterpreted as
// a Float: "2" and "2.0" are genuinely different wire values, not just two
// spellings of the same number.
func attrsFromWire(m map[string]any) Attrs {
	if len(m) == 0 {
		return nil
	}
	out := make(Attrs, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = String(val)
		case json.Number:
			if i, err := val.Int64(); err == nil {
				out[k] = Int(i)
			} else if f, err := val.Float64(); err == nil {
				out[k] = Float(f)
			}
		case bool:
			out[k] = Bool(val)
		case []any:
			list := make([]string, 0, len(val))
			for _, item := range val {
				if s, ok := item.(string); ok {
					list = append(list, s)
				}
			}
			out[k] = StringList(list)
		case map[string]any:
			strMap := make(map[string]string, len(val))
			for mk, mv := range val {
				if s, ok := mv.(string); ok {
					strMap[mk] = s
				}
			}
			out[k] = StringMap(strMap)
		}
	}
	return out
}

func wireSpanToSpan(ws wireSpan) span.Span {
	return span.Span{StartLine: ws.StartLine, StartCol: ws.StartCol, EndLine: ws.EndLine, EndCol: ws.EndCol}
}

// UnmarshalJSON reconstructs an IRDocument from the wire form MarshalJSON
// produces. Reconstructed Node/Edge spans carry a fresh, pool-local-only
// span.Handle (its numeric ID is not meaningful outside the Pool that
// originally interned it — callers needing pooled handles should re-intern
// via span.Pool after loading).
func (d *IRDocument) UnmarshalJSON(data []byte) error {
	var wd wireDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&wd); err != nil {
		return err
	}

	d.RepoID = wd.RepoID
	d.SnapshotID = wd.SnapshotID
	d.Occurrences = wd.Occurrences
	d.CFGBlocks = wd.CFGBlocks
	d.CFGEdges = wd.CFGEdges
	d.BFGGraphs = wd.BFGGraphs
	d.Expressions = wd.Expressions
	d.TypeEntities = wd.TypeEntities
	d.Meta = wd.Meta

	d.Nodes = make([]Node, 0, len(wd.Nodes))
	for _, n := range wd.Nodes {
		d.Nodes = append(d.Nodes, Node{
			ID:          n.ID,
			Kind:        n.Kind,
			FQN:         n.FQN,
			Name:        n.Name,
			FilePath:    n.FilePath,
			Span:        span.Handle{Span: wireSpanToSpan(n.Span)},
			Language:    n.Language,
			ParentID:    n.ParentID,
			Docstring:   n.Docstring,
			ContentHash: n.ContentHash,
			IsExternal:  n.IsExternal,
			Attrs:       attrsFromWire(n.Attrs),
		})
	}

	d.Edges = make([]Edge, 0, len(wd.Edges))
	for _, e := range wd.Edges {
		edge := Edge{ID: e.ID, Kind: e.Kind, SourceID: e.SourceID, TargetID: e.TargetID, Attrs: attrsFromWire(e.Attrs)}
		if e.Span != nil {
			sp := span.Handle{Span: wireSpanToSpan(*e.Span)}
			edge.Span = &sp
		}
		d.Edges = append(d.Edges, edge)
	}

	return nil
}
