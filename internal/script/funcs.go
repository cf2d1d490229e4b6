package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/midbel/remind/internal/ast"
	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/omit"
	"github.com/midbel/remind/internal/value"
)

// omitFuncFor adapts the OMITFUNC name on a Trigger into the closure
// internal/trigger.Resolver calls, evaluating the user function's body
// directly against one Date-typed local rather than routing back
// through eval.Eval's full UserFunc call-stack bookkeeping, since an
// OMITFUNC call is never itself nested inside a trace the call stack
// needs to report.
func (it *Interpreter) omitFuncFor(name string) omit.OmitFunc {
	uf, ok := it.Funcs.Lookup(name)
	if !ok {
		return nil
	}
	return func(dateArg string) (value.Value, error) {
		dse, ok := parseISODate(dateArg)
		if !ok {
			return value.NewErr(), fmt.Errorf("omitfunc: bad date argument %q", dateArg)
		}
		v, _, err := it.Eval.Eval(uf.Body, []value.Value{value.NewDate(dse)})
		return v, err
	}
}

func parseISODate(s string) (int32, bool) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return 0, false
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	d, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return value.YMDToDSE(y, m, d)
}

// warnHookFor adapts a Trigger.WarnFunc name into a trigger.WarnFunc,
// calling the user function with a single Int local for n.
func (it *Interpreter) warnHookFor(name string) func(int) (int32, error) {
	uf, ok := it.Funcs.Lookup(name)
	if !ok {
		return nil
	}
	return func(n int) (int32, error) {
		v, _, err := it.Eval.Eval(uf.Body, []value.Value{value.NewInt(int32(n))})
		if err != nil {
			return 0, err
		}
		return v.Int(), nil
	}
}

// callUserFunc3 evaluates a 3-argument user function directly against
// its body (the subst_<letter>/subst_<ident> hook shape: altmode, date,
// time), the same direct-locals-eval shortcut omitFuncFor/warnHookFor
// use rather than routing through eval.Eval's arity-checked UserFunc
// node dispatch. found is false if no such function is defined.
func (it *Interpreter) callUserFunc3(name string, a, b, c value.Value) (value.Value, bool, error) {
	uf, ok := it.Funcs.Lookup(name)
	if !ok {
		return value.NewErr(), false, nil
	}
	v, _, err := it.Eval.Eval(uf.Body, []value.Value{a, b, c})
	return v, true, err
}

// callUserFunc1 evaluates a 1-argument user function directly against
// its body (the subst_ampm/subst_ordinal hook shape).
func (it *Interpreter) callUserFunc1(name string, a value.Value) (value.Value, bool, error) {
	uf, ok := it.Funcs.Lookup(name)
	if !ok {
		return value.NewErr(), false, nil
	}
	v, _, err := it.Eval.Eval(uf.Body, []value.Value{a})
	return v, true, err
}

func (it *Interpreter) hasUserFunc(name string) bool {
	_, ok := it.Funcs.Lookup(name)
	return ok
}

// callUserFunc0 evaluates a nullary user function directly against its
// body (the msgsuffix() hook shape).
func (it *Interpreter) callUserFunc0(name string) (value.Value, bool, error) {
	uf, ok := it.Funcs.Lookup(name)
	if !ok {
		return value.NewErr(), false, nil
	}
	v, _, err := it.Eval.Eval(uf.Body, nil)
	return v, true, err
}

// substHooks builds the subst.Context hooks shared by every REM
// substitution pass: the letter-override namespaces, the %{ident} hook,
// and the subst_ampm/subst_ordinal overrides.
func (it *Interpreter) substHooks() (callSubst3 func(string, bool, int32, int) (value.Value, bool, error), hasFn func(string) bool, ampm func(int) (string, bool), ordinal func(int) (string, bool)) {
	callSubst3 = func(name string, altMode bool, dse int32, minute int) (value.Value, bool, error) {
		alt := value.NewInt(0)
		if altMode {
			alt = value.NewInt(1)
		}
		dateVal := value.NewDate(dse)
		var timeVal value.Value
		if minute >= 0 {
			timeVal = value.NewTime(minute)
		} else {
			timeVal = value.NewStr("")
		}
		return it.callUserFunc3(name, alt, dateVal, timeVal)
	}
	hasFn = it.hasUserFunc
	ampm = func(hour int) (string, bool) {
		v, found, err := it.callUserFunc1("subst_ampm", value.NewInt(int32(hour)))
		if err != nil || !found || !value.Truthy(v) {
			return "", false
		}
		sv, err := value.Coerce(v, value.Str, it.StringCap)
		if err != nil || sv.Str() == "" {
			return "", false
		}
		return sv.Str(), true
	}
	ordinal = func(day int) (string, bool) {
		v, found, err := it.callUserFunc1("subst_ordinal", value.NewInt(int32(day)))
		if err != nil || !found || !value.Truthy(v) {
			return "", false
		}
		sv, err := value.Coerce(v, value.Str, it.StringCap)
		if err != nil || sv.Str() == "" {
			return "", false
		}
		return sv.Str(), true
	}
	return
}

// msgsuffix resolves the optional msgsuffix() user hook used by the
// Normal-mode trailing-newline policy.
func (it *Interpreter) msgsuffix() (string, bool) {
	v, found, err := it.callUserFunc0("msgsuffix")
	if err != nil || !found {
		return "", false
	}
	sv, err := value.Coerce(v, value.Str, it.StringCap)
	if err != nil || sv.Str() == "" {
		return "", false
	}
	return sv.Str(), true
}

// evalSatisfy builds a trigger.SatisfyFunc from a SATISFY expression
// source string, arming the trigdate() builtin hook with each
// candidate before evaluating, step 4. Any evaluation that taints
// nonconst ORs true into *nonconst, feeding the JSON nonconst_expr
// field (nonconst may be nil if the caller doesn't track it).
func (it *Interpreter) evalSatisfy(exprSrc string, file string, line int, nonconst *bool) (func(int32) (bool, error), error) {
	if exprSrc == "" {
		return nil, nil
	}
	root, err := it.parseExpr(exprSrc)
	if err != nil {
		return nil, errAt(file, line, errs.Parse, "bad SATISFY expression: %v", err)
	}
	if !it.mentionsTrigDate(root) {
		it.warnf(file, line, errs.Generic, "SATISFY expression never references trigdate() or $T; it cannot depend on the candidate date")
	}
	return func(candidate int32) (bool, error) {
		it.candidateTrig = value.NewDate(candidate)
		it.candidateOK = true
		v, nc, err := it.Eval.Eval(root, nil)
		it.candidateOK = false
		if nonconst != nil && nc {
			*nonconst = true
		}
		if err != nil {
			return false, err
		}
		return value.Truthy(v), nil
	}, nil
}

// mentionsTrigDate reports whether the expression rooted at root can
// observe the candidate date: a trigdate() call or a $t-family system
// variable, followed transitively through user-function bodies. Each
// UserFunc's recursion guard breaks cycles through mutually recursive
// definitions.
func (it *Interpreter) mentionsTrigDate(root ast.Ref) bool {
	if root == ast.Nil {
		return false
	}
	n := it.Arena.Node(root)
	switch n.Tag {
	case ast.BuiltinFunc:
		if strings.EqualFold(n.Name, "trigdate") {
			return true
		}
	case ast.SysVar, ast.ShortSysVar:
		switch strings.ToLower(n.Name) {
		case "t", "today", "tmin", "now":
			return true
		}
	case ast.UserFunc, ast.ShortUserFunc:
		if uf, ok := it.Funcs.Lookup(n.Name); ok {
			if uf.Guard(func() bool { return it.mentionsTrigDate(uf.Body) }) {
				return true
			}
		}
	}
	for _, k := range it.Arena.Children(root) {
		if it.mentionsTrigDate(k) {
			return true
		}
	}
	return false
}
