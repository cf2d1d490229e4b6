// Package trigger implements the trigger resolver: given
// a reminder's recurrence constraints, it searches forward from a
// floor date for the next date the reminder should fire on, then
// separately decides whether today is the day to actually emit it.
package trigger

import (
	"time"

	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/omit"
	"github.com/midbel/remind/internal/value"
)

// Sentinels for "field not specified".
const (
	NoYear  = -1
	NoMonth = -1
	NoDay   = -1

	NoBack     = 0
	NoDelta    = -1 << 30
	NoDate     = -1
	NoScanFrom = -1 << 30
	NoTime     = -1
	NoRep      = 0
	NoDuration = 0
	NoOverdue  = -1
	NoColor    = -1
)

// SkipMode is the OMIT-day adjustment policy.
type SkipMode int

const (
	SkipNone SkipMode = iota
	SkipAfter
	SkipBefore
	SkipSkip // "SKIP SKIP": advance by whole repetition periods
)

// RemType is the reminder's output-shape tag.
type RemType int

const (
	TypeMsg RemType = iota
	TypeMsf
	TypeRun
	TypeCal
	TypePs
	TypePsf
	TypePassthru
	TypeSat
)

// TimeTrig carries the time-of-day portion of a trigger.
type TimeTrig struct {
	TTime     int // minutes past midnight, or NoTime
	TTimeOrig int // pre-timezone-adjustment value
	Delta     int
	Rep       int
	Duration  int // minutes, or NoDuration
}

// Trigger is one REM directive's resolved constraint record.
type Trigger struct {
	Year, Month, Day int
	OrdinalWeekday   bool // day holds an ordinal (1..5, or -1 for "last")
	WeekdayMask      uint8

	Back int // positive: N calendar days; negative: N non-omitted days

	Delta int // NoDelta if unset; negative means "no skip over omits"

	Until      int32 // DSE, or NoDate
	Repetition int    // days, 0 = none
	PriorDate  int32  // previous trigger date, for repetition modulus; NoDate if none

	LocalOmitMask uint8
	SkipMode      SkipMode

	Once     bool
	AddOmit  bool
	NoQueue  bool
	Type     RemType

	ScanFrom int32 // >=0 absolute DSE; <0 relative offset added to today; NoScanFrom unset
	From     int32 // explicit FROM date, NoDate if unset
	Priority int

	WarnFunc  string
	SchedFunc string
	OmitFunc  string

	Time TimeTrig

	Tags []string
	Info map[string]string

	TimeZone string

	IsTodo          bool
	CompleteThrough int32 // NoDate if unset
	MaxOverdue      int   // NoOverdue if unset

	PassthruPayload string

	// ColorR/ColorG/ColorB hold the PASSTHRU COLOR/COLOUR payload's
	// r/g/b triple (NoColor if unset or out of 0..255 range).
	ColorR, ColorG, ColorB int

	DurationDays      int // derived by ComputeDurationDays
	MaybeUncomputable bool
	AdjForLast        bool
}

// ComputeDurationDays derives how many extra calendar days a timed
// duration spills over: a duration that pushes ttime past midnight
// extends the reminder over the following days.
func ComputeDurationDays(t *TimeTrig) int {
	if t.TTime == NoTime || t.Duration == NoDuration || t.Duration <= 0 {
		return 0
	}
	end := t.TTime + t.Duration
	if end <= value.MinutesPerDay {
		return 0
	}
	return (end - 1) / value.MinutesPerDay
}

// SatisfyFunc evaluates a reminder's SATISFY expression against a
// candidate trigger date, with trigdate() bound to candidate. Returning
// it as a closure (rather than importing internal/eval directly) keeps
// this package decoupled the same way internal/omit's OmitFunc does.
type SatisfyFunc func(candidate int32) (bool, error)

// DefaultMaxIterations is the resolver's configurable search cap
// (step 5's "default 1000 iterations").
const DefaultMaxIterations = 1000

// Resolver carries the shared OMIT calendar and search limits.
type Resolver struct {
	Omit          *omit.Calendar
	MaxIterations int
	HostZone      *time.Location

	// OmitFuncFor resolves a Trigger.OmitFunc name to a callable bypass,
	// mirroring IsOmitted's omitfunc path without this package importing
	// internal/eval or internal/symtab directly (same decoupling
	// internal/omit itself uses for its OmitFunc type).
	OmitFuncFor func(name string) omit.OmitFunc
}

func NewResolver(oc *omit.Calendar) *Resolver {
	return &Resolver{Omit: oc, MaxIterations: DefaultMaxIterations, HostZone: time.Local}
}

func (r *Resolver) maxIter() int {
	if r.MaxIterations > 0 {
		return r.MaxIterations
	}
	return DefaultMaxIterations
}

// Input bundles the "today" context the resolver and should-trigger
// decision both need.
type Input struct {
	Today        int32
	TodayMinutes int32
	CalendarMode bool
}

func (r *Resolver) isOmitted(t *Trigger, dse int32) (bool, error) {
	if r.Omit == nil {
		return false, nil
	}
	var fn omit.OmitFunc
	if t.OmitFunc != "" && r.OmitFuncFor != nil {
		fn = r.OmitFuncFor(t.OmitFunc)
	}
	return r.Omit.IsOmitted(dse, t.LocalOmitMask, fn)
}

// searchFloor derives the search floor: FROM wins, then SCANFROM
// (absolute, or today-relative when negative), then today; TODO
// reminders outside calendar mode clamp to CompleteThrough+1.
func (r *Resolver) searchFloor(t *Trigger, in Input, calmode bool) int32 {
	var start int32
	switch {
	case t.From != NoDate:
		start = t.From
	case t.ScanFrom != NoScanFrom:
		if t.ScanFrom >= 0 {
			start = t.ScanFrom
		} else {
			start = in.Today + t.ScanFrom
		}
	default:
		start = in.Today
	}
	if t.IsTodo && !calmode && t.CompleteThrough != NoDate && t.CompleteThrough+1 > start {
		start = t.CompleteThrough + 1
	}
	return start
}

// matchesConstraints tests a candidate against the year/month/day/
// weekday/repetition constraints, excluding until/through (handled
// separately so callers can distinguish "expired" from "no match
// yet").
func matchesConstraints(t *Trigger, d int32) bool {
	y, m, day := value.DSEToYMD(d)
	if t.Year != NoYear && y != t.Year {
		return false
	}
	if t.Month != NoMonth && m != t.Month {
		return false
	}
	if t.Day != NoDay {
		if t.OrdinalWeekday {
			if !matchesOrdinalWeekday(y, m, day, t.Day, t.WeekdayMask) {
				return false
			}
		} else if day != t.Day {
			return false
		}
	}
	if t.WeekdayMask != 0 && !t.OrdinalWeekday {
		if t.WeekdayMask&(1<<uint(value.Weekday(d))) == 0 {
			return false
		}
	}
	if t.Repetition > 0 && t.PriorDate != NoDate {
		if int(d-t.PriorDate)%t.Repetition != 0 {
			return false
		}
	}
	return true
}

// matchesOrdinalWeekday implements the "2nd Tuesday" / "last Friday"
// day form: ordinal is 1-5 for "Nth" occurrence, or -1 for "last".
func matchesOrdinalWeekday(y, m, day, ordinal int, mask uint8) bool {
	dse, ok := value.YMDToDSE(y, m, day)
	if !ok {
		return false
	}
	if mask != 0 && mask&(1<<uint(value.Weekday(dse))) == 0 {
		return false
	}
	if ordinal == -1 {
		return day+7 > daysInMonthOf(y, m)
	}
	nth := (day-1)/7 + 1
	return nth == ordinal
}

func daysInMonthOf(y, m int) int {
	last := value.LastDayOfMonth(mustDSE(y, m, 1))
	_, _, d := value.DSEToYMD(last)
	return d
}

func mustDSE(y, m, d int) int32 {
	v, _ := value.YMDToDSE(y, m, d)
	return v
}

// applyBack implements the BACK modifier.
func (r *Resolver) applyBack(t *Trigger, d int32) (int32, error) {
	if t.Back == NoBack {
		return d, nil
	}
	if t.Back > 0 {
		return d - int32(t.Back), nil
	}
	n := -t.Back
	cur := d
	for i := 0; i < n; i++ {
		for {
			cur--
			omitted, err := r.isOmitted(t, cur)
			if err != nil {
				return NoDate, err
			}
			if !omitted {
				break
			}
		}
	}
	return cur, nil
}

// applySkip implements the SKIP/SKIP AFTER/SKIP BEFORE modifiers.
func (r *Resolver) applySkip(t *Trigger, d int32) (int32, error) {
	if t.SkipMode == SkipNone {
		return d, nil
	}
	omitted, err := r.isOmitted(t, d)
	if err != nil {
		return NoDate, err
	}
	if !omitted {
		return d, nil
	}
	switch t.SkipMode {
	case SkipAfter:
		for {
			d++
			omitted, err = r.isOmitted(t, d)
			if err != nil {
				return NoDate, err
			}
			if !omitted {
				return d, nil
			}
		}
	case SkipBefore:
		for {
			d--
			omitted, err = r.isOmitted(t, d)
			if err != nil {
				return NoDate, err
			}
			if !omitted {
				return d, nil
			}
		}
	case SkipSkip:
		if t.Repetition > 0 {
			for omitted {
				d += int32(t.Repetition)
				omitted, err = r.isOmitted(t, d)
				if err != nil {
					return NoDate, err
				}
			}
			return d, nil
		}
		for omitted {
			d++
			omitted, err = r.isOmitted(t, d)
			if err != nil {
				return NoDate, err
			}
		}
		return d, nil
	}
	return d, nil
}

// Compute implements the full trigger resolution pipeline: constraint search,
// BACK/SKIP/adj_for_last, SATISFY, the iteration cap, duration
// adjustment and timezone adjustment. Returns NoDate with an Expired
// error once the candidate passes Until/Through.
func (r *Resolver) Compute(t *Trigger, in Input, satisfy SatisfyFunc) (int32, error) {
	start := r.searchFloor(t, in, in.CalendarMode)
	candidate := start
	iterations := 0
	for {
		iterations++
		if iterations > r.maxIter() {
			return NoDate, errs.New(errs.CantTrig, "trigger search exceeded %d iterations", r.maxIter())
		}
		if t.Until != NoDate && candidate > t.Until {
			return NoDate, errs.New(errs.Expired, "reminder expired on %d", t.Until)
		}
		if !matchesConstraints(t, candidate) {
			candidate++
			continue
		}

		adjusted, err := r.applyBack(t, candidate)
		if err != nil {
			return NoDate, err
		}
		adjusted, err = r.applySkip(t, adjusted)
		if err != nil {
			return NoDate, err
		}
		if t.AdjForLast {
			adjusted = value.LastDayOfMonth(adjusted)
		}

		if satisfy != nil {
			ok, err := satisfy(candidate)
			if err != nil {
				return NoDate, err
			}
			if !ok {
				// A failed SATISFY on a candidate already covered by a
				// multi-day event's span needn't be retried one day at
				// a time: jump the search floor past the whole span.
				if t.DurationDays > 0 && adjusted+int32(t.DurationDays) >= candidate {
					candidate = adjusted + int32(t.DurationDays) + 1
				} else {
					candidate++
				}
				continue
			}
		}

		final := r.adjustDuration(t, adjusted)
		final, tim, err := r.adjustTimeZone(t, final)
		if err != nil {
			return NoDate, err
		}
		t.Time.TTime = tim.TTime
		return final, nil
	}
}

// adjustDuration extends the trigger window for a duration crossing
// midnight: a recurring reminder whose previous occurrence's span
// still covers d is reported on the day that span started rather than
// as a fresh occurrence.
func (r *Resolver) adjustDuration(t *Trigger, d int32) int32 {
	if t.DurationDays <= 0 {
		return d
	}
	if t.PriorDate != NoDate && d > t.PriorDate && d <= t.PriorDate+int32(t.DurationDays) {
		return t.PriorDate
	}
	return d
}

// adjustTimeZone converts (date, ttime) from the reminder's override
// zone into the host zone, which may shift the date by one day either
// way.
func (r *Resolver) adjustTimeZone(t *Trigger, d int32) (int32, TimeTrig, error) {
	tim := t.Time
	if t.TimeZone == "" || d < 0 || tim.TTime == NoTime {
		return d, tim, nil
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return d, tim, errs.New(errs.TzNoAt, "unknown time zone %q", t.TimeZone)
	}
	y, m, day := value.DSEToYMD(d)
	hour, minute := tim.TTimeOrig/60, tim.TTimeOrig%60
	src := time.Date(y, time.Month(m), day, hour, minute, 0, 0, loc)
	host := r.hostZone()
	dst := src.In(host)

	newDSE, ok := value.YMDToDSE(dst.Year(), int(dst.Month()), dst.Day())
	if !ok {
		return d, tim, errs.New(errs.DateOver, "time zone adjustment produced an out-of-range date")
	}
	tim.TTime = dst.Hour()*60 + dst.Minute()
	return newDSE, tim, nil
}

func (r *Resolver) hostZone() *time.Location {
	if r.HostZone != nil {
		return r.HostZone
	}
	return time.Local
}
