// Package eval implements a post-order tree-walking evaluator over
// internal/ast's arena, dispatching operators and
// builtins against internal/value and resolving names through
// internal/symtab.
package eval

import (
	"time"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/symtab"
	"github.com/midbel/remind/internal/value"
)

// MaxRecursion bounds FuncRecursionLevel to guard against unbounded
// user-function self-recursion.
const MaxRecursion = 256

// Eval walks an arena rooted at a Ref, resolving Variable/SysVar/UserFunc
// nodes against the attached tables.
type Eval struct {
	Arena     *ast.Arena
	Globals   *symtab.Globals
	Sys       *symtab.SysTable
	Funcs     *symtab.Funcs
	Calls     *symtab.CallStack
	StringCap int

	depth   int
	deadline time.Time
	expired  bool
}

// New builds an evaluator bound to the given tables, with StringCap
// set to value.DefaultStringCap; callers may overwrite the field.
func New(arena *ast.Arena, g *symtab.Globals, sys *symtab.SysTable, fn *symtab.Funcs) *Eval {
	return &Eval{
		Arena:     arena,
		Globals:   g,
		Sys:       sys,
		Funcs:     fn,
		Calls:     &symtab.CallStack{},
		StringCap: value.DefaultStringCap,
	}
}

// ArmTimeout starts a wall-clock budget for one evaluation; Eval checks
// it at node entry rather than via a signal handler, since Go has no
// portable SIGALRM-to-flag idiom as cheap as a monotonic read.
func (e *Eval) ArmTimeout(d time.Duration) {
	if d <= 0 {
		e.deadline = time.Time{}
		return
	}
	e.deadline = time.Now().Add(d)
	e.expired = false
}

func (e *Eval) timedOut() bool {
	if e.deadline.IsZero() {
		return false
	}
	if e.expired {
		return true
	}
	if time.Now().After(e.deadline) {
		e.expired = true
	}
	return e.expired
}

func (e *Eval) cap() int {
	if e.StringCap > 0 {
		return e.StringCap
	}
	return value.DefaultStringCap
}

// Result carries the evaluated Value and the nonconst taint bit.
type Result struct {
	Value    value.Value
	Nonconst bool
}

// Eval evaluates the subtree rooted at node with the given locals array.
func (e *Eval) Eval(node ast.Ref, locals []value.Value) (value.Value, bool, error) {
	if e.timedOut() {
		return value.NewErr(), false, errs.New(errs.TimeExceeded, "evaluation exceeded its time budget")
	}
	if node == ast.Nil {
		return value.NewErr(), false, nil
	}
	n := e.Arena.Node(node)
	switch n.Tag {
	case ast.Constant, ast.ShortStr:
		return n.Value, false, nil
	case ast.LocalVar:
		if n.LocalIdx < 0 || n.LocalIdx >= len(locals) {
			return value.NewErr(), false, errs.New(errs.NoSuchVar, "local slot %d out of range", n.LocalIdx)
		}
		return locals[n.LocalIdx], false, nil
	case ast.Variable, ast.ShortVar:
		v, ok := e.Globals.Lookup(n.Name)
		if !ok {
			return value.NewErr(), false, errs.New(errs.NoSuchVar, "undefined variable %q", n.Name)
		}
		return v.Value, v.Nonconstant, nil
	case ast.SysVar, ast.ShortSysVar:
		sv, ok := e.Sys.Lookup(n.Name)
		if !ok {
			return value.NewErr(), false, errs.New(errs.NoSuchVar, "undefined system variable %q", n.Name)
		}
		return sv.Get(), true, nil
	case ast.BuiltinFunc:
		return e.evalBuiltin(node, n, locals)
	case ast.UserFunc, ast.ShortUserFunc:
		return e.evalUserFunc(node, n, locals)
	case ast.Operator:
		return e.evalOperator(node, n, locals)
	default:
		return value.NewErr(), false, errs.New(errs.Generic, "unhandled node tag %v", n.Tag)
	}
}

// EvalChild implements ast.Evaluator, letting new-style builtins (iif,
// choose) recurse back into evaluation without an import cycle.
func (e *Eval) EvalChild(node ast.Ref, locals []value.Value) (value.Value, bool, error) {
	return e.Eval(node, locals)
}

// Children exposes the arena's child list to new-style builtins (iif,
// choose) that need all argument nodes, not just the ones they end up
// evaluating.
func (e *Eval) Children(node ast.Ref) []ast.Ref {
	return e.Arena.Children(node)
}

func (e *Eval) evalBuiltin(node ast.Ref, n *ast.Node, locals []value.Value) (value.Value, bool, error) {
	b := n.Builtin
	if b == nil {
		return value.NewErr(), false, errs.New(errs.UndefFunc, "unresolved builtin node")
	}
	if b.NewStyle {
		v, nonconst, err := b.NewFunc(e, node, locals)
		if err != nil {
			return value.NewErr(), false, err
		}
		if b.Pure {
			nonconst = false
		}
		return v, nonconst, nil
	}

	kids := e.Arena.Children(node)
	args := make([]value.Value, 0, len(kids))
	nonconst := false
	for _, k := range kids {
		v, nc, err := e.Eval(k, locals)
		if err != nil {
			return value.NewErr(), false, err
		}
		args = append(args, v)
		nonconst = nonconst || nc
	}
	v, err := b.Func(args)
	if err != nil {
		return value.NewErr(), false, err
	}
	if b.Pure {
		nonconst = false
	}
	return v, nonconst, nil
}

func (e *Eval) evalUserFunc(node ast.Ref, n *ast.Node, locals []value.Value) (value.Value, bool, error) {
	uf, ok := e.Funcs.Lookup(n.Name)
	if !ok {
		return value.NewErr(), false, errs.New(errs.UndefFunc, "undefined function %q", n.Name)
	}
	kids := e.Arena.Children(node)
	if len(kids) < len(uf.Args) {
		return value.NewErr(), false, errs.New(errs.TooFewArgs, "%s expects %d arguments, got %d", uf.Name, len(uf.Args), len(kids))
	}
	if len(kids) > len(uf.Args) {
		return value.NewErr(), false, errs.New(errs.TooManyArgs, "%s expects %d arguments, got %d", uf.Name, len(uf.Args), len(kids))
	}

	if e.depth >= MaxRecursion {
		return value.NewErr(), false, errs.New(errs.Recursive, "recursion limit exceeded calling %s", uf.Name)
	}

	newLocals := make([]value.Value, len(kids))
	nonconst := false
	for i, k := range kids {
		v, nc, err := e.Eval(k, locals)
		if err != nil {
			return value.NewErr(), false, err
		}
		newLocals[i] = v
		nonconst = nonconst || nc
	}

	if err := e.Calls.Push(symtab.CallFrame{File: uf.File, Func: uf.Name, LineStart: uf.LineStart, LineEnd: uf.LineEnd}); err != nil {
		return value.NewErr(), false, errs.New(errs.Recursive, "call stack exhausted calling %s", uf.Name)
	}
	e.depth++
	v, bodyNonconst, err := e.Eval(uf.Body, newLocals)
	e.depth--
	e.Calls.Pop()
	if err != nil {
		return value.NewErr(), false, err
	}
	if !uf.IsConstant {
		nonconst = true
	}
	return v, nonconst || bodyNonconst, nil
}
