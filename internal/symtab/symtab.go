// Package symtab implements the interpreter's named storage: the
// global variable table, the system-variable table, and the
// user-defined function table, all keyed case-insensitively.
package symtab

import (
	"strings"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/value"
)

func fold(s string) string { return strings.ToLower(s) }

// Variable is one global-table slot.
type Variable struct {
	Name        string
	Value       value.Value
	Preserved   bool // survives UNSET
	Nonconstant bool // taints any expression that reads it
}

// Globals is the case-insensitive global variable map.
type Globals struct {
	m map[string]*Variable
}

func NewGlobals() *Globals { return &Globals{m: make(map[string]*Variable)} }

func (g *Globals) Set(name string, v value.Value, nonconstant bool) {
	k := fold(name)
	if ex, ok := g.m[k]; ok {
		ex.Value = v
		ex.Nonconstant = nonconstant
		return
	}
	g.m[k] = &Variable{Name: name, Value: v, Nonconstant: nonconstant}
}

func (g *Globals) Preserve(name string) {
	if v, ok := g.m[fold(name)]; ok {
		v.Preserved = true
	}
}

// Unset removes name unless it is preserved; it reports whether the
// variable was removed.
func (g *Globals) Unset(name string) bool {
	k := fold(name)
	v, ok := g.m[k]
	if !ok || v.Preserved {
		return false
	}
	delete(g.m, k)
	return true
}

func (g *Globals) Lookup(name string) (*Variable, bool) {
	v, ok := g.m[fold(name)]
	return v, ok
}

// SysVarKind describes the storage kind of a system variable slot.
type SysVarKind int

const (
	SysInt SysVarKind = iota
	SysStr
	SysDate
	SysTime
	SysDateTime
	SysAccessor // computed on read via a callback
)

// SysVar describes one system-variable table entry.
type SysVar struct {
	Name     string
	Kind     SysVarKind
	Writable bool
	Get      func() value.Value
	Set      func(value.Value) error
}

// SysTable is the fixed system-variable registry.
type SysTable struct {
	m map[string]*SysVar
}

func NewSysTable() *SysTable { return &SysTable{m: make(map[string]*SysVar)} }

func (t *SysTable) Register(sv *SysVar) { t.m[fold(sv.Name)] = sv }

func (t *SysTable) Lookup(name string) (*SysVar, bool) {
	v, ok := t.m[fold(name)]
	return v, ok
}

// UserFunc is one entry in the user-function table.
type UserFunc struct {
	Name       string
	Args       []string
	Arena      *ast.Arena
	Body       ast.Ref
	File       string
	LineStart  int
	LineEnd    int
	IsConstant bool
	recursing  bool // static-analysis recursion guard
}

// Funcs is the case-insensitive user-function table.
type Funcs struct {
	m map[string]*UserFunc
}

func NewFuncs() *Funcs { return &Funcs{m: make(map[string]*UserFunc)} }

func (f *Funcs) Define(uf *UserFunc) { f.m[fold(uf.Name)] = uf }

func (f *Funcs) Lookup(name string) (*UserFunc, bool) {
	uf, ok := f.m[fold(name)]
	return uf, ok
}

// Guard marks uf as "in progress" for the duration of fn, to let
// transitive callers (e.g. the "does this mention trigdate()" walker in
// internal/script) break cycles through mutually recursive
// definitions without infinite recursion.
func (uf *UserFunc) Guard(fn func() bool) bool {
	if uf.recursing {
		return false
	}
	uf.recursing = true
	defer func() { uf.recursing = false }()
	return fn()
}

// CallFrame is one entry in the diagnostic call stack.
type CallFrame struct {
	File      string
	Func      string
	LineStart int
	LineEnd   int
}

// MaxCallDepth bounds the call stack length.
const MaxCallDepth = 512

// CallStack is a capped-length diagnostic stack maintained across
// user-function invocations.
type CallStack struct {
	frames []CallFrame
}

var ErrRecursive = errFn("user function recursion limit exceeded")

type errString string

func (e errString) Error() string { return string(e) }
func errFn(s string) error        { return errString(s) }

func (c *CallStack) Push(f CallFrame) error {
	if len(c.frames) >= MaxCallDepth {
		return ErrRecursive
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *CallStack) Pop() {
	if len(c.frames) > 0 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

func (c *CallStack) Depth() int { return len(c.frames) }

func (c *CallStack) Frames() []CallFrame { return append([]CallFrame(nil), c.frames...) }
