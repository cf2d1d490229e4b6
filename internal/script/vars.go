package script

import (
	"strings"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/parser"
	"github.com/midbel/remind/internal/symtab"
	"github.com/midbel/remind/internal/value"
)

// parseExpr parses src as a standalone expression against the
// interpreter's shared arena and builtin table, the same entry point
// SET/IF/SATISFY/FSET all funnel through.
func (it *Interpreter) parseExpr(src string) (ast.Ref, error) {
	return it.parseExprLocals(src, nil)
}

func (it *Interpreter) parseExprLocals(src string, locals []string) (ast.Ref, error) {
	p := parser.New(it.Arena, it.Builtins)
	root, err := p.Parse(src, locals)
	if err != nil {
		return ast.Nil, err
	}
	return root, nil
}

// handleSet implements the SET directive: `SET name expr`. A value
// derived from a nonconstant expression is tracked as nonconstant via
// the evaluator's nonconst bit rather than any leading-marker syntax.
func (it *Interpreter) handleSet(line Line) error {
	if len(line.Fields) < 2 {
		return errAt(line.File, line.LineNo, errs.Parse, "SET requires a name and an expression")
	}
	name := line.Fields[0]
	exprSrc := strings.Join(line.Fields[1:], " ")
	root, err := it.parseExpr(exprSrc)
	if err != nil {
		return errAt(line.File, line.LineNo, errs.Parse, "SET %s: %v", name, err)
	}
	v, nonconst, err := it.Eval.Eval(root, nil)
	if err != nil {
		return errAt(line.File, line.LineNo, errs.KindOf(err), "SET %s: %v", name, err)
	}
	it.Globals.Set(name, v, nonconst)
	return nil
}

// handleUnset implements UNSET name [name...].
func (it *Interpreter) handleUnset(line Line) error {
	for _, name := range line.Fields {
		it.Globals.Unset(name)
	}
	return nil
}

// handlePreserve implements PRESERVE name [name...].
func (it *Interpreter) handlePreserve(line Line) error {
	for _, name := range line.Fields {
		it.Globals.Preserve(name)
	}
	return nil
}

// handleFset implements `FSET name(arg1, arg2, ...) expr`, defining a
// user function in the shared Funcs table.
func (it *Interpreter) handleFset(line Line) error {
	raw := strings.Join(line.Fields, " ")
	open := strings.IndexByte(raw, '(')
	close := strings.IndexByte(raw, ')')
	if open < 0 || close < 0 || close < open {
		return errAt(line.File, line.LineNo, errs.Parse, "FSET requires name(args) expr")
	}
	name := strings.TrimSpace(raw[:open])
	argSrc := raw[open+1 : close]
	var args []string
	for _, a := range strings.Split(argSrc, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			args = append(args, a)
		}
	}
	bodySrc := strings.TrimSpace(raw[close+1:])
	root, err := it.parseExprLocals(bodySrc, args)
	if err != nil {
		return errAt(line.File, line.LineNo, errs.Parse, "FSET %s: %v", name, err)
	}
	it.Funcs.Define(&symtab.UserFunc{
		Name:      name,
		Args:      args,
		Arena:     it.Arena,
		Body:      root,
		File:      line.File,
		LineStart: line.LineNo,
		LineEnd:   line.LineNo,
	})
	return nil
}

// handleIf implements IF expr, pushing a truth frame onto the IF/ELSE/ENDIF stack.
func (it *Interpreter) handleIf(line Line) error {
	exprSrc := strings.Join(line.Fields, " ")
	root, err := it.parseExpr(exprSrc)
	if err != nil {
		return errAt(line.File, line.LineNo, errs.Parse, "IF: %v", err)
	}
	v, nonconst, err := it.Eval.Eval(root, nil)
	if err != nil {
		return errAt(line.File, line.LineNo, errs.KindOf(err), "IF: %v", err)
	}
	truthy := false
	if !v.IsErr() {
		truthy = value.Truthy(v)
	}
	if err := it.IfStack.PushIf(truthy, !nonconst, line.LineNo); err != nil {
		return errAt(line.File, line.LineNo, errs.Generic, "%v", err)
	}
	return nil
}
