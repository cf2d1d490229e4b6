// Package value implements the seven-variant tagged Value kernel: the
// common currency type shared by the expression evaluator, the variable
// tables and the substitution engine.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags a Value's variant.
type Kind int

const (
	Err Kind = iota
	Int
	Time
	Date
	DateTime
	Str
	Special
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "INT"
	case Time:
		return "TIME"
	case Date:
		return "DATE"
	case DateTime:
		return "DATETIME"
	case Str:
		return "STRING"
	case Special:
		return "SPECIAL"
	default:
		return "ERR"
	}
}

// Integer arithmetic is 32-bit; results outside this range are errors.
const (
	MaxInt32 = math.MaxInt32
	MinInt32 = math.MinInt32

	MinutesPerDay = 1440
)

// DefaultStringCap bounds Str payload length; callers may supply a
// different cap.
const DefaultStringCap = 4096

// Value is a tagged union over the seven value kinds the interpreter
// operates on. Zero value is the Err sentinel.
type Value struct {
	kind Kind
	i    int32  // Int, Time (0..1439), Date (days since epoch, >=0), DateTime packed below
	u    uint64 // DateTime: date*1440+minutes
	s    string // Str
}

// BaseYear anchors the day-serial epoch: Date 0 is January 1 of
// this year.
const BaseYear = 1990

func NewErr() Value { return Value{kind: Err} }

func NewInt(i int32) Value { return Value{kind: Int, i: i} }

// NewTime constructs a Time from minutes past midnight, wrapped into
// [0,1440) per the Time invariant.
func NewTime(minutes int) Value {
	m := int32(((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay)
	return Value{kind: Time, i: m}
}

// NewDate constructs a Date from a day-serial number. Negative values are
// rejected by returning an Err value — callers that need a CantCoerce/
// DateOver signal should check Kind() afterwards.
func NewDate(dse int32) Value {
	if dse < 0 {
		return NewErr()
	}
	return Value{kind: Date, i: dse}
}

// NewDateTime packs a day-serial number and a minute-of-day into one value.
func NewDateTime(dse int32, minutes int) Value {
	if dse < 0 {
		return NewErr()
	}
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return Value{kind: DateTime, u: uint64(dse)*MinutesPerDay + uint64(m)}
}

func NewStr(s string) Value { return Value{kind: Str, s: s} }

func NewSpecial(s string) Value { return Value{kind: Special, s: s} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsErr() bool { return v.kind == Err }

// Int returns the raw Int payload; only meaningful when Kind()==Int.
func (v Value) Int() int32 { return v.i }

// TimeMinutes returns minutes past midnight; only meaningful when Kind()==Time.
func (v Value) TimeMinutes() int32 { return v.i }

// DSE returns the day-serial number; only meaningful when Kind()==Date.
func (v Value) DSE() int32 { return v.i }

// DateTimeRaw returns date*1440+minutes; only meaningful when Kind()==DateTime.
func (v Value) DateTimeRaw() uint64 { return v.u }

// DateTimeParts splits a DateTime value into its date and minute-of-day parts.
func (v Value) DateTimeParts() (dse int32, minutes int32) {
	return int32(v.u / MinutesPerDay), int32(v.u % MinutesPerDay)
}

// Str returns the raw string payload; only meaningful when Kind()==Str or Special.
func (v Value) Str() string { return v.s }

// Copy performs a deep copy; Value has no shared mutable backing, so
// under Go's string immutability this is a plain value copy.
func Copy(v Value) (Value, error) { return v, nil }

// Truthy reports a value's boolean sense: nonzero Int, non-empty Str,
// or any Date/Time/DateTime truthy by its underlying integer value.
func Truthy(v Value) bool {
	switch v.kind {
	case Int:
		return v.i != 0
	case Time, Date:
		return v.i != 0
	case DateTime:
		return v.u != 0
	case Str:
		return v.s != ""
	default:
		return false
	}
}

// CoerceErr is returned by Coerce on an unsupported (source,target) pair.
type CoerceErr struct {
	From, To Kind
}

func (e *CoerceErr) Error() string {
	return fmt.Sprintf("cannot coerce %s to %s", e.From, e.To)
}

// TimeSep is the configurable time-of-day separator used when formatting
// and parsing Time/DateTime strings (tokenizer rules).
var TimeSep = ":"

// Coerce converts v to the target kind, applying the same implicit
// conversion rules the evaluator uses for mixed-kind expressions.
func Coerce(v Value, target Kind, stringCap int) (Value, error) {
	if v.kind == target {
		return v, nil
	}
	switch {
	case v.kind == Int && target == Date:
		return NewDate(v.i), nil
	case v.kind == Int && target == Time:
		return NewTime(int(v.i)), nil
	case v.kind == Int && target == DateTime:
		return NewDateTime(v.i/MinutesPerDay, int(v.i%MinutesPerDay)), nil
	case v.kind == Str && (target == Int || target == Date || target == Time || target == DateTime):
		return parseCanonical(v.s, target)
	case target == Str:
		return NewStr(toCanonicalString(v, stringCap)), nil
	}
	return NewErr(), &CoerceErr{From: v.kind, To: target}
}

func toCanonicalString(v Value, stringCap int) string {
	var out string
	switch v.kind {
	case Int:
		out = strconv.FormatInt(int64(v.i), 10)
	case Time:
		out = fmt.Sprintf("%02d%s%02d", v.i/60, TimeSep, v.i%60)
	case Date:
		y, m, d := DSEToYMD(v.i)
		out = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	case DateTime:
		dse, minutes := v.DateTimeParts()
		y, m, d := DSEToYMD(dse)
		out = fmt.Sprintf("%04d-%02d-%02dT%02d%s%02d", y, m, d, minutes/60, TimeSep, minutes%60)
	case Str:
		out = v.s
	default:
		out = ""
	}
	if stringCap > 0 && len(out) > stringCap {
		out = out[:stringCap]
	}
	return out
}

func parseCanonical(s string, target Kind) (Value, error) {
	switch target {
	case Int:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return NewErr(), &CoerceErr{From: Str, To: Int}
		}
		return NewInt(int32(n)), nil
	case Date:
		var y, m, d int
		if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &y, &m, &d); err != nil {
			return NewErr(), &CoerceErr{From: Str, To: Date}
		}
		dse, ok := YMDToDSE(y, m, d)
		if !ok {
			return NewErr(), &CoerceErr{From: Str, To: Date}
		}
		return NewDate(dse), nil
	case Time:
		var h, m int
		sep := TimeSep
		if sep == "" {
			sep = ":"
		}
		if _, err := fmt.Sscanf(s, "%02d"+sep+"%02d", &h, &m); err != nil {
			return NewErr(), &CoerceErr{From: Str, To: Time}
		}
		return NewTime(h*60 + m), nil
	case DateTime:
		parts := strings.SplitN(s, "T", 2)
		if len(parts) != 2 {
			parts = strings.SplitN(s, " ", 2)
		}
		if len(parts) != 2 {
			return NewErr(), &CoerceErr{From: Str, To: DateTime}
		}
		dv, err := parseCanonical(parts[0], Date)
		if err != nil {
			return NewErr(), err
		}
		tv, err := parseCanonical(parts[1], Time)
		if err != nil {
			return NewErr(), err
		}
		return NewDateTime(dv.i, int(tv.i)), nil
	}
	return NewErr(), &CoerceErr{From: Str, To: target}
}
