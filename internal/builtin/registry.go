// Package builtin holds the table of builtin function descriptors shared
// by internal/parser (arity checking at parse time) and internal/eval
// (dispatch at evaluation time), avoiding an import cycle between the two.
package builtin

import "github.com/midbel/remind/internal/ast"

// Table is a case-insensitive registry of builtin descriptors.
type Table struct {
	byName map[string]*ast.Builtin
}

func NewTable() *Table {
	return &Table{byName: make(map[string]*ast.Builtin)}
}

func (t *Table) Register(b *ast.Builtin) {
	t.byName[lower(b.Name)] = b
}

func (t *Table) Lookup(name string) (*ast.Builtin, bool) {
	b, ok := t.byName[lower(name)]
	return b, ok
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
