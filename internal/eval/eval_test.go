package eval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/builtin"
	"github.com/midbel/remind/internal/parser"
	"github.com/midbel/remind/internal/symtab"
	"github.com/midbel/remind/internal/value"
)

func newEval() (*Eval, *ast.Arena, *builtin.Table) {
	arena := ast.NewArena()
	tab := builtin.NewTable()
	g := symtab.NewGlobals()
	sys := symtab.NewSysTable()
	fn := symtab.NewFuncs()
	return New(arena, g, sys, fn), arena, tab
}

func parse(t *testing.T, arena *ast.Arena, tab *builtin.Table, src string, locals []string) ast.Ref {
	t.Helper()
	p := parser.New(arena, tab)
	root, err := p.Parse(src, locals)
	require.NoError(t, err)
	return root
}

func TestEvalArithmetic(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, "2 + 3 * 4", nil)
	v, nc, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.False(t, nc)
	assert.Equal(t, int32(14), v.Int())
}

func TestEvalShortCircuitAnd(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, "0 && (1/0)", nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v.Int())
}

func TestEvalShortCircuitOr(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, "5 || (1/0)", nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(5), v.Int())
}

func TestEvalDivZero(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, "1 / 0", nil)
	_, _, err := e.Eval(root, nil)
	require.Error(t, err)
}

func TestEvalCrossKindEquality(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, `1 == "1"`, nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v.Int())
}

func TestEvalCrossKindOrderingFails(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, `1 < "1"`, nil)
	_, _, err := e.Eval(root, nil)
	require.Error(t, err)
}

func TestEvalVariableLookup(t *testing.T) {
	e, arena, tab := newEval()
	e.Globals.Set("x", value.NewInt(41), false)
	root := parse(t, arena, tab, "x + 1", nil)
	v, nc, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.False(t, nc)
	assert.Equal(t, int32(42), v.Int())
}

func TestEvalNonconstantVariableTaints(t *testing.T) {
	e, arena, tab := newEval()
	e.Globals.Set("x", value.NewInt(1), true)
	root := parse(t, arena, tab, "x", nil)
	_, nc, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.True(t, nc)
}

func TestEvalUndefinedVariable(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, "nope", nil)
	_, _, err := e.Eval(root, nil)
	require.Error(t, err)
}

func TestEvalSysVarTaints(t *testing.T) {
	e, arena, tab := newEval()
	e.Sys.Register(&symtab.SysVar{Name: "today", Kind: symtab.SysDate, Get: func() value.Value { return value.NewDate(10) }})
	root := parse(t, arena, tab, "$today", nil)
	v, nc, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.True(t, nc)
	assert.Equal(t, int32(10), v.DSE())
}

func TestEvalUserFunctionCall(t *testing.T) {
	e, arena, tab := newEval()
	body := parse(t, arena, tab, "x + x", []string{"x"})
	e.Funcs.Define(&symtab.UserFunc{Name: "double", Args: []string{"x"}, Arena: arena, Body: body})
	root := parse(t, arena, tab, "double(21)", nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.Int())
}

func TestEvalUserFunctionArity(t *testing.T) {
	e, arena, tab := newEval()
	body := parse(t, arena, tab, "x", []string{"x"})
	e.Funcs.Define(&symtab.UserFunc{Name: "id", Args: []string{"x"}, Arena: arena, Body: body})
	root := parse(t, arena, tab, "id(1,2)", nil)
	_, _, err := e.Eval(root, nil)
	require.Error(t, err)
}

func TestEvalStringConcat(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, `"a" + 1`, nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, "a1", v.Str())
}

func TestEvalStringRepeat(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, `3 * "ab"`, nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, "ababab", v.Str())
}

func TestEvalDateMinusDate(t *testing.T) {
	e, arena, tab := newEval()
	e.Globals.Set("d1", value.NewDate(20), false)
	e.Globals.Set("d2", value.NewDate(5), false)
	root := parse(t, arena, tab, "d1 - d2", nil)
	v, _, err := e.Eval(root, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(15), v.Int())
}

func TestEvalTimeoutExceeded(t *testing.T) {
	e, arena, tab := newEval()
	root := parse(t, arena, tab, "1 + 1", nil)
	e.ArmTimeout(time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, _, err := e.Eval(root, nil)
	require.Error(t, err)
}

func TestEvalOverflowDetected(t *testing.T) {
	e, arena, tab := newEval()
	e.Globals.Set("big", value.NewInt(value.MaxInt32), false)
	root := parse(t, arena, tab, "big + 1", nil)
	_, _, err := e.Eval(root, nil)
	require.Error(t, err)
}
