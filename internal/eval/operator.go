package eval

import (
	"strings"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/value"
)

func (e *Eval) evalOperator(node ast.Ref, n *ast.Node, locals []value.Value) (value.Value, bool, error) {
	kids := e.Arena.Children(node)

	switch n.Op {
	case ast.OpAnd, ast.OpOr:
		return e.evalShortCircuit(n.Op, kids, locals)
	case ast.OpNot:
		v, nc, err := e.Eval(kids[0], locals)
		if err != nil {
			return value.NewErr(), false, err
		}
		return boolValue(!value.Truthy(v)), nc, nil
	case ast.OpNeg:
		v, nc, err := e.Eval(kids[0], locals)
		if err != nil {
			return value.NewErr(), false, err
		}
		if v.Kind() != value.Int {
			return value.NewErr(), false, errs.New(errs.BadType, "unary - requires Int, got %s", v.Kind())
		}
		r, err := value.CheckedNeg(v.Int())
		if err != nil {
			return value.NewErr(), false, errs.New(errs.TooLow, "%v", err)
		}
		return value.NewInt(r), nc, nil
	}

	left, lnc, err := e.Eval(kids[0], locals)
	if err != nil {
		return value.NewErr(), false, err
	}
	right, rnc, err := e.Eval(kids[1], locals)
	if err != nil {
		return value.NewErr(), false, err
	}
	nonconst := lnc || rnc

	switch n.Op {
	case ast.OpEQ, ast.OpNE:
		eq, err := equalValues(left, right)
		if err != nil {
			return value.NewErr(), false, err
		}
		if n.Op == ast.OpNE {
			eq = !eq
		}
		return boolValue(eq), nonconst, nil
	case ast.OpLT, ast.OpLE, ast.OpGT, ast.OpGE:
		cmp, err := compareValues(left, right)
		if err != nil {
			return value.NewErr(), false, err
		}
		var b bool
		switch n.Op {
		case ast.OpLT:
			b = cmp < 0
		case ast.OpLE:
			b = cmp <= 0
		case ast.OpGT:
			b = cmp > 0
		case ast.OpGE:
			b = cmp >= 0
		}
		return boolValue(b), nonconst, nil
	case ast.OpAdd:
		v, err := e.addValues(left, right)
		return v, nonconst, err
	case ast.OpSub:
		v, err := e.subValues(left, right)
		return v, nonconst, err
	case ast.OpMul:
		v, err := e.mulValues(left, right)
		return v, nonconst, err
	case ast.OpDiv:
		v, err := divValues(left, right)
		return v, nonconst, err
	case ast.OpMod:
		v, err := modValues(left, right)
		return v, nonconst, err
	}
	return value.NewErr(), false, errs.New(errs.Generic, "unhandled operator %v", n.Op)
}

func (e *Eval) evalShortCircuit(op ast.Op, kids []ast.Ref, locals []value.Value) (value.Value, bool, error) {
	left, lnc, err := e.Eval(kids[0], locals)
	if err != nil {
		return value.NewErr(), false, err
	}
	truthy := value.Truthy(left)
	if (op == ast.OpAnd && !truthy) || (op == ast.OpOr && truthy) {
		return left, lnc, nil
	}
	right, rnc, err := e.Eval(kids[1], locals)
	if err != nil {
		return value.NewErr(), false, err
	}
	return right, lnc || rnc, nil
}

func boolValue(b bool) value.Value {
	if b {
		return value.NewInt(1)
	}
	return value.NewInt(0)
}

// equalValues: cross-kind comparison is simply false for ==, with
// BadType reserved for ordering operators.
func equalValues(a, b value.Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, nil
	}
	return compareSameKind(a, b) == 0, nil
}

func compareValues(a, b value.Value) (int, error) {
	if a.Kind() != b.Kind() {
		return 0, errs.New(errs.BadType, "cannot compare %s to %s", a.Kind(), b.Kind())
	}
	return compareSameKind(a, b), nil
}

func compareSameKind(a, b value.Value) int {
	switch a.Kind() {
	case value.Str, value.Special:
		return strings.Compare(a.Str(), b.Str())
	case value.DateTime:
		ar, br := a.DateTimeRaw(), b.DateTimeRaw()
		switch {
		case ar < br:
			return -1
		case ar > br:
			return 1
		default:
			return 0
		}
	default:
		ai, bi := int64(a.Int()), int64(b.Int())
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
}

func (e *Eval) addValues(a, b value.Value) (value.Value, error) {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak == value.Int && bk == value.Int:
		r, err := value.CheckedAdd(a.Int(), b.Int())
		if err != nil {
			return value.NewErr(), overflowErr(err)
		}
		return value.NewInt(r), nil
	case ak == value.Date && bk == value.Int:
		return addToDate(a.DSE(), b.Int())
	case ak == value.Int && bk == value.Date:
		return addToDate(b.DSE(), a.Int())
	case ak == value.DateTime && (bk == value.Int || bk == value.Time):
		return addToDateTime(a, b)
	case ak == value.Int && bk == value.Time, ak == value.Time && bk == value.Int, ak == value.Time && bk == value.Time:
		return addTime(a, b)
	case ak == value.Str || bk == value.Str:
		return e.concatValues(a, b)
	}
	return value.NewErr(), errs.New(errs.BadType, "+ does not support %s + %s", ak, bk)
}

func addToDate(dse, delta int32) (value.Value, error) {
	r, err := value.CheckedAdd(dse, delta)
	if err != nil {
		return value.NewErr(), overflowErr(err)
	}
	if r < 0 {
		return value.NewErr(), errs.New(errs.DateOver, "date arithmetic underflowed below day zero")
	}
	return value.NewDate(r), nil
}

func addToDateTime(dt, other value.Value) (value.Value, error) {
	dse, minutes := dt.DateTimeParts()
	delta := minutesOf(other)
	total := int64(minutes) + int64(delta)
	dayDelta := int32(total / value.MinutesPerDay)
	rem := int32(total % value.MinutesPerDay)
	if rem < 0 {
		rem += value.MinutesPerDay
		dayDelta--
	}
	newDse, err := value.CheckedAdd(dse, dayDelta)
	if err != nil {
		return value.NewErr(), overflowErr(err)
	}
	if newDse < 0 {
		return value.NewErr(), errs.New(errs.DateOver, "datetime arithmetic underflowed below day zero")
	}
	return value.NewDateTime(newDse, int(rem)), nil
}

func minutesOf(v value.Value) int32 {
	if v.Kind() == value.Time {
		return v.TimeMinutes()
	}
	return v.Int()
}

func addTime(a, b value.Value) (value.Value, error) {
	sum := int64(minutesOf(a)) + int64(minutesOf(b))
	m := int32(((sum % value.MinutesPerDay) + value.MinutesPerDay) % value.MinutesPerDay)
	return value.NewTime(int(m)), nil
}

func (e *Eval) concatValues(a, b value.Value) (value.Value, error) {
	as, err := value.Coerce(a, value.Str, e.cap())
	if err != nil {
		return value.NewErr(), errs.New(errs.CantCoerce, "%v", err)
	}
	bs, err := value.Coerce(b, value.Str, e.cap())
	if err != nil {
		return value.NewErr(), errs.New(errs.CantCoerce, "%v", err)
	}
	out := as.Str() + bs.Str()
	if len(out) > e.cap() {
		return value.NewErr(), errs.New(errs.StringTooLong, "concatenation exceeds string cap %d", e.cap())
	}
	return value.NewStr(out), nil
}

func (e *Eval) subValues(a, b value.Value) (value.Value, error) {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak == value.Int && bk == value.Int:
		r, err := value.CheckedSub(a.Int(), b.Int())
		if err != nil {
			return value.NewErr(), overflowErr(err)
		}
		return value.NewInt(r), nil
	case ak == value.Date && bk == value.Int:
		neg, err := value.CheckedNeg(b.Int())
		if err != nil {
			return value.NewErr(), overflowErr(err)
		}
		return addToDate(a.DSE(), neg)
	case ak == value.DateTime && (bk == value.Int || bk == value.Time):
		neg := -int64(minutesOf(b))
		return addToDateTime(a, value.NewInt(int32(neg)))
	case ak == value.Time && bk == value.Int:
		neg, err := value.CheckedNeg(b.Int())
		if err != nil {
			return value.NewErr(), overflowErr(err)
		}
		return addTime(a, value.NewInt(neg))
	case ak == value.Time && bk == value.Time:
		return value.NewInt(int32(int(a.TimeMinutes()) - int(b.TimeMinutes()))), nil
	case ak == value.Date && bk == value.Date:
		return value.NewInt(a.DSE() - b.DSE()), nil
	case ak == value.DateTime && bk == value.DateTime:
		ar, br := int64(a.DateTimeRaw()), int64(b.DateTimeRaw())
		diff := ar - br
		if diff > value.MaxInt32 || diff < value.MinInt32 {
			return value.NewErr(), errs.New(errs.TooHigh, "datetime difference overflows Int")
		}
		return value.NewInt(int32(diff)), nil
	}
	return value.NewErr(), errs.New(errs.BadType, "- does not support %s - %s", ak, bk)
}

func (e *Eval) mulValues(a, b value.Value) (value.Value, error) {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak == value.Int && bk == value.Int:
		r, err := value.CheckedMul(a.Int(), b.Int())
		if err != nil {
			return value.NewErr(), overflowErr(err)
		}
		return value.NewInt(r), nil
	case ak == value.Int && bk == value.Str:
		return repeatString(b.Str(), a.Int(), e.cap())
	case ak == value.Str && bk == value.Int:
		return repeatString(a.Str(), b.Int(), e.cap())
	}
	return value.NewErr(), errs.New(errs.BadType, "* does not support %s * %s", ak, bk)
}

func repeatString(s string, n int32, cap int) (value.Value, error) {
	if n < 0 {
		return value.NewErr(), errs.New(errs.TooLow, "string repeat factor must not be negative")
	}
	if n == 0 {
		return value.NewStr(""), nil
	}
	total := int64(len(s)) * int64(n)
	if total > int64(cap) {
		return value.NewErr(), errs.New(errs.StringTooLong, "repeated string exceeds string cap %d", cap)
	}
	return value.NewStr(strings.Repeat(s, int(n))), nil
}

func divValues(a, b value.Value) (value.Value, error) {
	if a.Kind() != value.Int || b.Kind() != value.Int {
		return value.NewErr(), errs.New(errs.BadType, "/ requires Int operands")
	}
	r, divzero, err := value.CheckedDiv(a.Int(), b.Int())
	if divzero {
		return value.NewErr(), errs.New(errs.DivZero, "division by zero")
	}
	if err != nil {
		return value.NewErr(), overflowErr(err)
	}
	return value.NewInt(r), nil
}

func modValues(a, b value.Value) (value.Value, error) {
	if a.Kind() != value.Int || b.Kind() != value.Int {
		return value.NewErr(), errs.New(errs.BadType, "%% requires Int operands")
	}
	r, divzero, err := value.CheckedMod(a.Int(), b.Int())
	if divzero {
		return value.NewErr(), errs.New(errs.DivZero, "modulo by zero")
	}
	if err != nil {
		return value.NewErr(), overflowErr(err)
	}
	return value.NewInt(r), nil
}

func overflowErr(err error) error {
	if oe, ok := err.(*value.OverflowError); ok && oe.OverflowLow {
		return errs.New(errs.TooLow, "%v", err)
	}
	return errs.New(errs.TooHigh, "%v", err)
}
