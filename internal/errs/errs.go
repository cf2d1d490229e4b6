// Package errs generalizes the err.go Error{Cause, Code}
// pattern to a fixed set of abstract error Kinds, so every later
// package (eval, trigger, script, cmd/remind) reports failures
// through one shape instead of ad-hoc error strings.
package errs

import "fmt"

// Kind is one of the abstract error categories a reminder script can fail with.
type Kind int

const (
	Generic Kind = iota
	Parse
	BadType
	BadDate
	BadTime
	BadNumber
	NoSuchVar
	UndefFunc
	TooFewArgs
	TooManyArgs
	DivZero
	TooHigh
	TooLow
	DateOver
	CantCoerce
	StringTooLong
	CantTrig
	Expired
	NoMem
	OpStackOverflow
	Recursive
	TimeExceeded
	TzNoAt
	CompleteWithoutTodo
	MaxOverdueWithoutTodo
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "Parse"
	case BadType:
		return "BadType"
	case BadDate:
		return "BadDate"
	case BadTime:
		return "BadTime"
	case BadNumber:
		return "BadNumber"
	case NoSuchVar:
		return "NoSuchVar"
	case UndefFunc:
		return "UndefFunc"
	case TooFewArgs:
		return "2Few"
	case TooManyArgs:
		return "2ManyArgs"
	case DivZero:
		return "DivZero"
	case TooHigh:
		return "2High"
	case TooLow:
		return "2Low"
	case DateOver:
		return "DateOver"
	case CantCoerce:
		return "CantCoerce"
	case StringTooLong:
		return "StringTooLong"
	case CantTrig:
		return "CantTrig"
	case Expired:
		return "Expired"
	case NoMem:
		return "NoMem"
	case OpStackOverflow:
		return "OpStackOverflow"
	case Recursive:
		return "Recursive"
	case TimeExceeded:
		return "TimeExceeded"
	case TzNoAt:
		return "TzNoAt"
	case CompleteWithoutTodo:
		return "CompleteWithoutTodo"
	case MaxOverdueWithoutTodo:
		return "MaxOverdueWithoutTodo"
	default:
		return "Generic"
	}
}

// Error wraps a Cause with a Kind plus the script location that
// raised it.
type Error struct {
	Kind  Kind
	Cause error
	File  string
	Line  int
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a bare Error with no source position attached.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// At attaches a source file/line to an existing Error, building a copy
// so a shared sentinel Error is never mutated.
func At(err *Error, file string, line int) *Error {
	cp := *err
	cp.File, cp.Line = file, line
	return &cp
}

// KindOf extracts the Kind from err, or Generic if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return Generic
}

// Silent reports whether kind is downgraded to a non-error at REM scope
// (Expired is dropped silently; CantTrig is silenced only by the
// caller's maybe_uncomputable flag, handled separately).
func Silent(kind Kind) bool {
	return kind == Expired
}
