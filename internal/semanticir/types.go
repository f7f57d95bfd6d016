package semanticir

import (
	"fmt"
	"strings"

	"github.com/kraklabs/codelayer/internal/ir"
)

// builtinTypes are the primitive type spellings each language's literals
// and constructor calls resolve to.
var builtinTypes = map[string]map[string]bool{
	"go": {
		"string": true, "int": true, "int64": true, "float64": true,
		"bool": true, "byte": true, "rune": true, "error": true,
	},
	"python": {
		"int": true, "float": true, "str": true, "bool": true,
		"bytes": true, "list": true, "dict": true, "set": true,
		"tuple": true, "None": true,
	},
}

// BuildTypes is the type phase: it scans doc's class nodes and expressions,
// appends deduplicated TypeEntities, and back-fills
// InferredType/InferredTypeID on literal and constructor-call expressions.
// User types resolve to their defining class node in the same document;
// dotted names with no local definition stay external at raw resolution.
func (b *Builder) BuildTypes(doc *ir.IRDocument, language string) {
	classByName := make(map[string]ir.Node)
	for _, n := range doc.Nodes {
		if n.Kind == ir.NodeClass {
			classByName[n.Name] = n
		}
	}

	index := make(map[string]int) // raw -> position in doc.TypeEntities
	for i, te := range doc.TypeEntities {
		index[te.Raw] = i
	}

	add := func(raw string, flavor ir.TypeFlavor, level ir.TypeResolutionLevel, target string) string {
		if i, ok := index[raw]; ok {
			return doc.TypeEntities[i].ID
		}
		te := ir.TypeEntity{
			ID:              fmt.Sprintf("type:%s:%s", doc.RepoID, raw),
			Raw:             raw,
			Flavor:          flavor,
			IsNullable:      isNullableType(language, raw),
			ResolutionLevel: level,
			ResolvedTarget:  target,
		}
		index[raw] = len(doc.TypeEntities)
		doc.TypeEntities = append(doc.TypeEntities, te)
		return te.ID
	}

	for name, cls := range classByName {
		add(name, ir.TypeUser, ir.TypeResolved, cls.ID)
	}

	builtins := builtinTypes[language]
	for i := range doc.Expressions {
		e := &doc.Expressions[i]
		switch e.Kind {
		case ir.ExprLiteral:
			val, _ := e.Attrs.GetString("value")
			raw := literalTypeName(language, val)
			if raw == "" {
				continue
			}
			e.InferredType = raw
			e.InferredTypeID = add(raw, ir.TypeBuiltin, ir.TypeResolved, "")
		case ir.ExprCall:
			callee := e.CalleeName
			switch {
			case callee == "":
			case builtins[callee]:
				e.InferredType = callee
				e.InferredTypeID = add(callee, ir.TypeBuiltin, ir.TypeResolved, "")
			default:
				cls, ok := classByName[callee]
				if !ok {
					// a constructor-shaped dotted callee with no local
					// definition is an external type
					if strings.Contains(callee, ".") && isConstructorName(callee) {
						e.InferredType = callee
						e.InferredTypeID = add(callee, ir.TypeExternal, ir.TypeRaw, "")
					}
					continue
				}
				e.InferredType = callee
				e.InferredTypeID = add(callee, ir.TypeUser, ir.TypeResolved, cls.ID)
			}
		}
	}
}

// literalTypeName maps a literal's source fragment to the language's
// primitive type spelling, or "" when the shape is unrecognized.
func literalTypeName(language, val string) string {
	if val == "" {
		return ""
	}
	isGo := language == "go"
	switch {
	case val == "true" || val == "false":
		return "bool"
	case val == "True" || val == "False":
		return "bool"
	case val == "None":
		return "None"
	case val == "nil":
		return ""
	case val[0] == '"' || val[0] == '\'' || val[0] == '`':
		if isGo {
			return "string"
		}
		return "str"
	default:
		neg := strings.TrimPrefix(val, "-")
		if neg == "" {
			return ""
		}
		hasDot := false
		for _, r := range neg {
			if r == '.' {
				hasDot = true
				continue
			}
			if r < '0' || r > '9' {
				return ""
			}
		}
		if hasDot {
			if isGo {
				return "float64"
			}
			return "float"
		}
		return "int"
	}
}

// isNullableType reports whether the raw spelling admits null: a Go
// pointer, or a Python Optional[...]/... | None form.
func isNullableType(language, raw string) bool {
	if language == "go" {
		return strings.HasPrefix(raw, "*")
	}
	return strings.HasPrefix(raw, "Optional[") || strings.HasSuffix(raw, "| None") || raw == "None"
}

// isConstructorName reports whether the last dotted segment looks like a
// class constructor (leading upper-case letter).
func isConstructorName(callee string) bool {
	last := callee
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		last = callee[i+1:]
	}
	return last != "" && last[0] >= 'A' && last[0] <= 'Z'
}
