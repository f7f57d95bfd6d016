package semanticir

import (
	"testing"

	"github.com/kraklabs/codelayer/internal/ir"
	"github.com/stretchr/testify/require"
)

func TestBuildTypesLinksUserClassAndLiterals(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	doc.Nodes = append(doc.Nodes, ir.Node{
		ID: "node:repo1:class:abc", Kind: ir.NodeClass, Name: "Calculator",
		FQN: "calc.Calculator", FilePath: "calc.py", Language: "python",
	})
	doc.Expressions = append(doc.Expressions,
		ir.Expression{
			ID: "expr:repo1:calc.py:1:0:1", Kind: ir.ExprLiteral,
			RepoID: "repo1", FilePath: "calc.py",
			Attrs: ir.Attrs{"value": ir.String("42")},
		},
		ir.Expression{
			ID: "expr:repo1:calc.py:2:0:2", Kind: ir.ExprLiteral,
			RepoID: "repo1", FilePath: "calc.py",
			Attrs: ir.Attrs{"value": ir.String(`"hello"`)},
		},
		ir.Expression{
			ID: "expr:repo1:calc.py:3:0:3", Kind: ir.ExprCall,
			RepoID: "repo1", FilePath: "calc.py", CalleeName: "Calculator",
		},
		ir.Expression{
			ID: "expr:repo1:calc.py:4:0:4", Kind: ir.ExprCall,
			RepoID: "repo1", FilePath: "calc.py", CalleeName: "requests.Session",
		},
	)

	b := New(nil)
	b.BuildTypes(doc, "python")

	byRaw := make(map[string]ir.TypeEntity)
	for _, te := range doc.TypeEntities {
		byRaw[te.Raw] = te
	}

	user, ok := byRaw["Calculator"]
	require.True(t, ok)
	require.Equal(t, ir.TypeUser, user.Flavor)
	require.Equal(t, ir.TypeResolved, user.ResolutionLevel)
	require.Equal(t, "node:repo1:class:abc", user.ResolvedTarget)

	intT, ok := byRaw["int"]
	require.True(t, ok)
	require.Equal(t, ir.TypeBuiltin, intT.Flavor)

	strT, ok := byRaw["str"]
	require.True(t, ok)
	require.Equal(t, ir.TypeBuiltin, strT.Flavor)

	ext, ok := byRaw["requests.Session"]
	require.True(t, ok)
	require.Equal(t, ir.TypeExternal, ext.Flavor)
	require.Equal(t, ir.TypeRaw, ext.ResolutionLevel)

	require.Equal(t, "int", doc.Expressions[0].InferredType)
	require.Equal(t, intT.ID, doc.Expressions[0].InferredTypeID)
	require.Equal(t, "Calculator", doc.Expressions[2].InferredType)
	require.Equal(t, user.ID, doc.Expressions[2].InferredTypeID)
}

func TestBuildTypesDeduplicatesAndIsIdempotent(t *testing.T) {
	doc := ir.NewIRDocument("repo1", "snap1")
	for i := 0; i < 3; i++ {
		doc.Expressions = append(doc.Expressions, ir.Expression{
			ID: "expr:repo1:f.go:1:0:1", Kind: ir.ExprLiteral,
			RepoID: "repo1", FilePath: "f.go",
			Attrs: ir.Attrs{"value": ir.String("7")},
		})
	}

	b := New(nil)
	b.BuildTypes(doc, "go")
	require.Len(t, doc.TypeEntities, 1)
	require.Equal(t, "int", doc.TypeEntities[0].Raw)

	b.BuildTypes(doc, "go")
	require.Len(t, doc.TypeEntities, 1)
}

func TestLiteralTypeNames(t *testing.T) {
	cases := []struct {
		language, val, want string
	}{
		{"go", "42", "int"},
		{"go", "-3", "int"},
		{"go", "3.14", "float64"},
		{"go", `"x"`, "string"},
		{"go", "true", "bool"},
		{"go", "nil", ""},
		{"python", "42", "int"},
		{"python", "3.14", "float"},
		{"python", "'x'", "str"},
		{"python", "True", "bool"},
		{"python", "None", "None"},
		{"python", "foo", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, literalTypeName(tc.language, tc.val), "%s %q", tc.language, tc.val)
	}
}

func TestIsNullableType(t *testing.T) {
	require.True(t, isNullableType("go", "*Calculator"))
	require.False(t, isNullableType("go", "Calculator"))
	require.True(t, isNullableType("python", "Optional[int]"))
	require.True(t, isNullableType("python", "int | None"))
	require.False(t, isNullableType("python", "int"))
}
