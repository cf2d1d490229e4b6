package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/builtin"
	"github.com/midbel/remind/internal/value"
)

func newParser() (*Parser, *ast.Arena) {
	arena := ast.NewArena()
	tab := builtin.NewTable()
	tab.Register(&ast.Builtin{Name: "abs", MinArgs: 1, MaxArgs: 1, Pure: true})
	return New(arena, tab), arena
}

func TestParseArithmeticPrecedence(t *testing.T) {
	p, arena := newParser()
	root, err := p.Parse("2 + 3 * 4", nil)
	require.NoError(t, err)
	n := arena.Node(root)
	assert.Equal(t, ast.Operator, n.Tag)
	assert.Equal(t, ast.OpAdd, n.Op)
	kids := arena.Children(root)
	require.Len(t, kids, 2)
	right := arena.Node(kids[1])
	assert.Equal(t, ast.OpMul, right.Op)
}

func TestUnaryConstantFolding(t *testing.T) {
	p, arena := newParser()
	root, err := p.Parse("-5", nil)
	require.NoError(t, err)
	n := arena.Node(root)
	assert.Equal(t, ast.Constant, n.Tag)
	assert.Equal(t, int32(-5), n.Value.Int())
}

func TestTrailingCommaRejected(t *testing.T) {
	p, _ := newParser()
	_, err := p.Parse("abs(1,)", nil)
	require.Error(t, err)
}

func TestArityChecked(t *testing.T) {
	p, _ := newParser()
	_, err := p.Parse("abs(1,2)", nil)
	require.Error(t, err)
}

func TestLocalVarResolution(t *testing.T) {
	p, arena := newParser()
	root, err := p.Parse("x + 1", []string{"x"})
	require.NoError(t, err)
	n := arena.Node(root)
	left := arena.Node(arena.Children(root)[0])
	_ = n
	assert.Equal(t, ast.LocalVar, left.Tag)
	assert.Equal(t, 0, left.LocalIdx)
}

func TestStringEscapes(t *testing.T) {
	p, arena := newParser()
	root, err := p.Parse(`"a\tb"`, nil)
	require.NoError(t, err)
	n := arena.Node(root)
	assert.Equal(t, "a\tb", n.Value.Str())
}

func TestDateLiteral(t *testing.T) {
	p, arena := newParser()
	root, err := p.Parse("'2025-01-15'", nil)
	require.NoError(t, err)
	n := arena.Node(root)
	assert.Equal(t, value.Date, n.Value.Kind())
}

func TestTrailingGarbage(t *testing.T) {
	p, _ := newParser()
	_, err := p.Parse("1 + 2 3", nil)
	require.Error(t, err)
}

func TestDeepNestingOverflow(t *testing.T) {
	p, _ := newParser()
	src := ""
	for i := 0; i < MaxDepth+10; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < MaxDepth+10; i++ {
		src += ")"
	}
	_, err := p.Parse(src, nil)
	require.Error(t, err)
}
