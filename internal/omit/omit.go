// Package omit implements the global OMIT calendar: full date omits,
// year-independent (month,day) partial omits, a 7-bit weekday mask,
// and a push/pop context stack.
package omit

import (
	"fmt"
	"sort"
	"time"

	"github.com/rickar/cal/v2"

	"github.com/midbel/remind/internal/value"
)

// MaxFullOmits bounds the full-date omit vector.
const MaxFullOmits = 4096

// MaxPartialOmits bounds the (month,day) vector; 366 entries covers
// every day of a leap year.
const MaxPartialOmits = 366

// AllWeekdays is the fully-saturated 7-bit mask; WeekdayOmits may
// never reach it.
const AllWeekdays = 0x7F

// packPartial encodes a (month,day) pair as (month<<5)|day, 1-indexed.
func packPartial(month, day int) int32 { return int32(month<<5) | int32(day) }

func unpackPartial(p int32) (month, day int) {
	return int(p >> 5), int(p & 0x1f)
}

// Calendar holds the three omit sets plus a context stack.
type Calendar struct {
	full    []int32 // sorted, deduped day-serial numbers
	partial []int32 // sorted, deduped (month<<5)|day syndromes
	weekday uint8   // 7-bit mask, bit i = weekday i (0=Sunday)

	stack []snapshot
}

type snapshot struct {
	file    string
	line    int
	full    []int32
	partial []int32
	weekday uint8
}

func New() *Calendar { return &Calendar{} }

// Guards against a saturated calendar: a bounded full-omit vector and
// a weekday mask that may never cover all seven days.
var (
	ErrTooManyFull        = fmt.Errorf("too many full OMIT dates (max %d)", MaxFullOmits)
	ErrAllWeekdaysOmitted = fmt.Errorf("every weekday is OMITted")
)

func insertSorted(arr []int32, key int32) []int32 {
	i := sort.Search(len(arr), func(i int) bool { return arr[i] >= key })
	if i < len(arr) && arr[i] == key {
		return arr
	}
	arr = append(arr, 0)
	copy(arr[i+1:], arr[i:])
	arr[i] = key
	return arr
}

func existsSorted(arr []int32, key int32) bool {
	i := sort.Search(len(arr), func(i int) bool { return arr[i] >= key })
	return i < len(arr) && arr[i] == key
}

// AddFull adds a single absolute date to the full-omit set. Idempotent
// on a date already present.
func (c *Calendar) AddFull(dse int32) error {
	if dse < 0 {
		return nil
	}
	if existsSorted(c.full, dse) {
		return nil
	}
	if len(c.full) >= MaxFullOmits {
		return ErrTooManyFull
	}
	c.full = insertSorted(c.full, dse)
	return nil
}

// AddFullRange adds every date in [start,end] inclusive.
func (c *Calendar) AddFullRange(start, end int32) error {
	for d := start; d <= end; d++ {
		if err := c.AddFull(d); err != nil {
			return err
		}
	}
	return nil
}

// AddPartial adds a year-independent (month,day) pair, 1-indexed.
func (c *Calendar) AddPartial(month, day int) {
	p := packPartial(month, day)
	if existsSorted(c.partial, p) {
		return
	}
	c.partial = insertSorted(c.partial, p)
}

// AddPartialRange adds every (month,day) from (m0,d0) through (m1,d1)
// inclusive, wrapping month-end to the following month.
func (c *Calendar) AddPartialRange(m0, d0, m1, d1 int) {
	mc, dc := m0, d0
	for {
		c.AddPartial(mc, dc)
		if mc == m1 && dc == d1 {
			break
		}
		dc++
		if dc > monthDaysApprox(mc) {
			dc = 1
			mc++
			if mc > 12 {
				mc = 1
			}
		}
	}
}

func monthDaysApprox(month int) int {
	const leapFeb = 29
	days := [13]int{0, 31, leapFeb, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	return days[month]
}

// AddWeekday ORs weekday (0=Sunday..6=Saturday) into the global mask.
func (c *Calendar) AddWeekday(weekday int) error {
	bit := uint8(1) << uint(weekday)
	if (c.weekday | bit) == AllWeekdays {
		return ErrAllWeekdaysOmitted
	}
	c.weekday |= bit
	return nil
}

// Clear empties the global OMIT sets, per DoClear/ClearGlobalOmits.
func (c *Calendar) Clear() {
	c.full = nil
	c.partial = nil
	c.weekday = 0
}

// Push snapshots the current sets onto the context stack.
func (c *Calendar) Push(file string, line int) {
	c.stack = append(c.stack, snapshot{
		file:    file,
		line:    line,
		full:    append([]int32(nil), c.full...),
		partial: append([]int32(nil), c.partial...),
		weekday: c.weekday,
	})
}

// Pop restores the most recently pushed snapshot, returning false if
// the stack was empty (E_POP_NO_PUSH), and the originating file/line of
// the matching push.
func (c *Calendar) Pop() (file string, line int, ok bool) {
	n := len(c.stack)
	if n == 0 {
		return "", 0, false
	}
	s := c.stack[n-1]
	c.stack = c.stack[:n-1]
	c.full, c.partial, c.weekday = s.full, s.partial, s.weekday
	return s.file, s.line, true
}

// Unmatched returns one line/file pair per still-pushed context, for
// the "unmatched PUSH-OMIT-CONTEXT" end-of-run warning.
func (c *Calendar) Unmatched() []struct {
	File string
	Line int
} {
	out := make([]struct {
		File string
		Line int
	}, len(c.stack))
	for i, s := range c.stack {
		out[i] = struct {
			File string
			Line int
		}{s.file, s.line}
	}
	return out
}

// OmitFunc evaluates a user-defined bypass function against a
// 'YYYY-MM-DD' string argument, mirroring IsOmitted's omitfunc path.
type OmitFunc func(dateArg string) (value.Value, error)

// IsOmitted implements the five-step decision, including the
// omitfunc bypass that skips the static sets entirely when present.
func (c *Calendar) IsOmitted(dse int32, localMask uint8, omitfunc OmitFunc) (bool, error) {
	if omitfunc != nil {
		y, m, d := value.DSEToYMD(dse)
		v, err := omitfunc(fmt.Sprintf("%04d-%02d-%02d", y, m, d))
		if err != nil {
			return false, err
		}
		return value.Truthy(v), nil
	}

	wd := uint8(1) << uint(value.Weekday(dse))
	if localMask&wd != 0 || c.weekday&wd != 0 {
		return true, nil
	}
	if existsSorted(c.full, dse) {
		return true, nil
	}
	_, m, d := value.DSEToYMD(dse)
	if existsSorted(c.partial, packPartial(m, d)) {
		return true, nil
	}
	return false, nil
}

// SeedHolidays walks every day in [fromYear,toYear] and adds the ones
// cal reports as an observed holiday to the full-omit set, wiring an
// optional "-omit-holidays" calendar (the TOML-driven
// Rect/Area exclusion zones had no calendar analog, so this adapts the
// same "exclusion set populated from config" shape onto dates instead
// of coordinates).
func (c *Calendar) SeedHolidays(bc *cal.BusinessCalendar, fromYear, toYear int) error {
	if bc == nil {
		return nil
	}
	start := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	for t := start; !t.After(end); t = t.AddDate(0, 0, 1) {
		_, observed, _ := bc.IsHoliday(t)
		if !observed {
			continue
		}
		dse, ok := value.YMDToDSE(t.Year(), int(t.Month()), t.Day())
		if !ok {
			continue
		}
		if err := c.AddFull(dse); err != nil {
			return err
		}
	}
	return nil
}
