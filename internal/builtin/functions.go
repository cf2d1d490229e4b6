// Builtin function descriptors: name, minargs, maxargs, pure flag.
// iif/choose are "new-style" builtins handed the raw AST node so they
// can skip unneeded branches.
package builtin

import (
	"strconv"
	"strings"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/value"
)

// TrigDateFunc supplies the candidate date bound while a SATISFY
// expression is under evaluation, or false when none is bound.
// Standard captures it in the trigdate() builtin's closure, so the
// Table reads whatever candidate the caller has bound before each
// candidate-date attempt (step 4).
type TrigDateFunc func() (value.Value, bool)

// Standard builds the table every evaluator shares: pure scalar/string
// helpers plus the two "new-style" control-flow builtins.
func Standard(trigdate TrigDateFunc) *Table {
	t := NewTable()
	reg := func(b *ast.Builtin) { t.Register(b) }

	reg(&ast.Builtin{Name: "abs", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinAbs})
	reg(&ast.Builtin{Name: "min", MinArgs: 1, MaxArgs: -1, Pure: true, Func: builtinMin})
	reg(&ast.Builtin{Name: "max", MinArgs: 1, MaxArgs: -1, Pure: true, Func: builtinMax})
	reg(&ast.Builtin{Name: "isblank", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinIsBlank})
	reg(&ast.Builtin{Name: "defined", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinDefinedNoop})

	reg(&ast.Builtin{Name: "upper", MinArgs: 1, MaxArgs: 1, Pure: true, Func: wrapStr(strings.ToUpper)})
	reg(&ast.Builtin{Name: "lower", MinArgs: 1, MaxArgs: 1, Pure: true, Func: wrapStr(strings.ToLower)})
	reg(&ast.Builtin{Name: "trim", MinArgs: 1, MaxArgs: 1, Pure: true, Func: wrapStr(strings.TrimSpace)})
	reg(&ast.Builtin{Name: "strlen", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinStrLen})
	reg(&ast.Builtin{Name: "substr", MinArgs: 2, MaxArgs: 3, Pure: true, Func: builtinSubstr})
	reg(&ast.Builtin{Name: "index", MinArgs: 2, MaxArgs: 2, Pure: true, Func: builtinIndex})

	reg(&ast.Builtin{Name: "date", MinArgs: 3, MaxArgs: 3, Pure: true, Func: builtinDate})
	reg(&ast.Builtin{Name: "year", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinYear})
	reg(&ast.Builtin{Name: "month", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinMonth})
	reg(&ast.Builtin{Name: "day", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinDay})
	reg(&ast.Builtin{Name: "wkday", MinArgs: 1, MaxArgs: 1, Pure: true, Func: builtinWkday})

	reg(&ast.Builtin{Name: "trigdate", MinArgs: 0, MaxArgs: 0, Pure: false, Func: func(args []value.Value) (value.Value, error) {
		if trigdate == nil {
			return value.NewErr(), nil
		}
		v, ok := trigdate()
		if !ok {
			return value.NewErr(), nil
		}
		return v, nil
	}})

	reg(&ast.Builtin{Name: "iif", MinArgs: 3, MaxArgs: -1, Pure: true, NewStyle: true, NewFunc: builtinIif})
	reg(&ast.Builtin{Name: "choose", MinArgs: 2, MaxArgs: -1, Pure: true, NewStyle: true, NewFunc: builtinChoose})

	return t
}

func wrapStr(fn func(string) string) ast.BuiltinFn {
	return func(args []value.Value) (value.Value, error) {
		s, err := value.Coerce(args[0], value.Str, value.DefaultStringCap)
		if err != nil {
			return value.NewErr(), err
		}
		return value.NewStr(fn(s.Str())), nil
	}
}

func builtinAbs(args []value.Value) (value.Value, error) {
	if args[0].Kind() != value.Int {
		return value.NewErr(), &value.CoerceErr{From: args[0].Kind(), To: value.Int}
	}
	n := args[0].Int()
	if n < 0 {
		r, err := value.CheckedNeg(n)
		if err != nil {
			return value.NewErr(), err
		}
		n = r
	}
	return value.NewInt(n), nil
}

func builtinMin(args []value.Value) (value.Value, error) { return extremum(args, true) }
func builtinMax(args []value.Value) (value.Value, error) { return extremum(args, false) }

func extremum(args []value.Value, wantMin bool) (value.Value, error) {
	best := args[0]
	for _, a := range args[1:] {
		if a.Kind() != best.Kind() {
			return value.NewErr(), &value.CoerceErr{From: a.Kind(), To: best.Kind()}
		}
		less := a.Int() < best.Int()
		if best.Kind() == value.Str {
			less = strings.Compare(a.Str(), best.Str()) < 0
		}
		if less == wantMin {
			best = a
		}
	}
	return best, nil
}

func builtinIsBlank(args []value.Value) (value.Value, error) {
	s, err := value.Coerce(args[0], value.Str, value.DefaultStringCap)
	if err != nil {
		return value.NewErr(), err
	}
	if strings.TrimSpace(s.Str()) == "" {
		return value.NewInt(1), nil
	}
	return value.NewInt(0), nil
}

// builtinDefinedNoop is a placeholder the evaluator's caller (internal/script)
// overrides with a closure bound to its own symtab; registering the bare
// descriptor here just reserves arity/name for the parser's arity check.
func builtinDefinedNoop(args []value.Value) (value.Value, error) {
	return value.NewInt(0), nil
}

func builtinStrLen(args []value.Value) (value.Value, error) {
	s, err := value.Coerce(args[0], value.Str, value.DefaultStringCap)
	if err != nil {
		return value.NewErr(), err
	}
	return value.NewInt(int32(len(s.Str()))), nil
}

func builtinSubstr(args []value.Value) (value.Value, error) {
	s, err := value.Coerce(args[0], value.Str, value.DefaultStringCap)
	if err != nil {
		return value.NewErr(), err
	}
	if args[1].Kind() != value.Int {
		return value.NewErr(), &value.CoerceErr{From: args[1].Kind(), To: value.Int}
	}
	start := int(args[1].Int())
	text := s.Str()
	if start < 0 || start > len(text) {
		return value.NewStr(""), nil
	}
	end := len(text)
	if len(args) == 3 {
		if args[2].Kind() != value.Int {
			return value.NewErr(), &value.CoerceErr{From: args[2].Kind(), To: value.Int}
		}
		n := int(args[2].Int())
		if start+n < end {
			end = start + n
		}
	}
	return value.NewStr(text[start:end]), nil
}

func builtinIndex(args []value.Value) (value.Value, error) {
	s, err := value.Coerce(args[0], value.Str, value.DefaultStringCap)
	if err != nil {
		return value.NewErr(), err
	}
	needle, err := value.Coerce(args[1], value.Str, value.DefaultStringCap)
	if err != nil {
		return value.NewErr(), err
	}
	return value.NewInt(int32(strings.Index(s.Str(), needle.Str()))), nil
}

func builtinDate(args []value.Value) (value.Value, error) {
	for _, a := range args {
		if a.Kind() != value.Int {
			return value.NewErr(), &value.CoerceErr{From: a.Kind(), To: value.Int}
		}
	}
	dse, ok := value.YMDToDSE(int(args[0].Int()), int(args[1].Int()), int(args[2].Int()))
	if !ok {
		return value.NewErr(), strconv.ErrRange
	}
	return value.NewDate(dse), nil
}

func builtinYear(args []value.Value) (value.Value, error) {
	dse, err := asDSE(args[0])
	if err != nil {
		return value.NewErr(), err
	}
	y, _, _ := value.DSEToYMD(dse)
	return value.NewInt(int32(y)), nil
}

func builtinMonth(args []value.Value) (value.Value, error) {
	dse, err := asDSE(args[0])
	if err != nil {
		return value.NewErr(), err
	}
	_, m, _ := value.DSEToYMD(dse)
	return value.NewInt(int32(m)), nil
}

func builtinDay(args []value.Value) (value.Value, error) {
	dse, err := asDSE(args[0])
	if err != nil {
		return value.NewErr(), err
	}
	_, _, d := value.DSEToYMD(dse)
	return value.NewInt(int32(d)), nil
}

func builtinWkday(args []value.Value) (value.Value, error) {
	dse, err := asDSE(args[0])
	if err != nil {
		return value.NewErr(), err
	}
	return value.NewInt(int32(value.Weekday(dse))), nil
}

func asDSE(v value.Value) (int32, error) {
	switch v.Kind() {
	case value.Date:
		return v.DSE(), nil
	case value.DateTime:
		dse, _ := v.DateTimeParts()
		return dse, nil
	default:
		return 0, &value.CoerceErr{From: v.Kind(), To: value.Date}
	}
}

// builtinIif implements iif(cond1, val1, cond2, val2, ..., [default]):
// evaluate conditions left to right, short-circuiting on the first
// truthy one and returning its paired value without evaluating the
// rest, "iif/choose suppress evaluation of unneeded
// branches" requirement.
func builtinIif(e ast.Evaluator, node ast.Ref, locals []value.Value) (value.Value, bool, error) {
	kids := arenaChildren(e, node)
	nonconst := false
	i := 0
	for ; i+1 < len(kids); i += 2 {
		cond, nc, err := e.EvalChild(kids[i], locals)
		if err != nil {
			return value.NewErr(), false, err
		}
		nonconst = nonconst || nc
		if value.Truthy(cond) {
			v, nc2, err := e.EvalChild(kids[i+1], locals)
			return v, nonconst || nc2, err
		}
	}
	if i < len(kids) {
		v, nc, err := e.EvalChild(kids[i], locals)
		return v, nonconst || nc, err
	}
	return value.NewErr(), nonconst, nil
}

// builtinChoose implements choose(n, val1, val2, ...): evaluate only the
// selector and the chosen branch.
func builtinChoose(e ast.Evaluator, node ast.Ref, locals []value.Value) (value.Value, bool, error) {
	kids := arenaChildren(e, node)
	if len(kids) < 2 {
		return value.NewErr(), false, nil
	}
	sel, nonconst, err := e.EvalChild(kids[0], locals)
	if err != nil {
		return value.NewErr(), false, err
	}
	if sel.Kind() != value.Int {
		return value.NewErr(), false, &value.CoerceErr{From: sel.Kind(), To: value.Int}
	}
	idx := int(sel.Int())
	if idx < 1 || idx > len(kids)-1 {
		return value.NewErr(), nonconst, nil
	}
	v, nc, err := e.EvalChild(kids[idx], locals)
	return v, nonconst || nc, err
}

// arenaChildren recovers a node's children through the Evaluator
// interface's host arena. NewStyleFunc implementations don't have
// direct arena access (only EvalChild), so the concrete evaluator type
// in internal/eval additionally satisfies this narrower interface.
func arenaChildren(e ast.Evaluator, node ast.Ref) []ast.Ref {
	if ce, ok := e.(interface{ Children(ast.Ref) []ast.Ref }); ok {
		return ce.Children(node)
	}
	return nil
}
