// Package tzadjust implements a scoped enter/exit zone override
// bracketing trigger computation for a reminder with a TimeZone
// field. Unlike internal/trigger's own
// per-trigger (date,ttime) conversion (used when a single resolved
// trigger needs its clock value converted zone-to-zone),
// this package re-bases the process's whole notion of "now" — the
// $T/$today/$Tmin system variables an expression evaluation, SATISFY
// predicate or OMITFUNC call might read — for the scope of one REM's
// processing.
package tzadjust

import (
	"fmt"
	"time"

	"github.com/midbel/remind/internal/value"
)

// Clock is the mutable "now" the rest of the interpreter reads through
// system variables; Adjuster overwrites and restores it bit-for-bit.
type Clock struct {
	Today        int32 // DSE
	TodayMinutes int32 // minutes past midnight
}

// Adjuster brackets one reminder's trigger computation with a
// time-zone override.
type Adjuster struct {
	clock    *Clock
	saved    Clock
	active   bool
	hostZone *time.Location
}

// New binds an Adjuster to the shared Clock it will rewrite in place.
// hostZone defaults to time.Local if nil.
func New(clock *Clock, hostZone *time.Location) *Adjuster {
	if hostZone == nil {
		hostZone = time.Local
	}
	return &Adjuster{clock: clock, hostZone: hostZone}
}

// ErrReentrant guards the "enter/exit must pair exactly once"
// invariant, asserted here in development.
var ErrReentrant = fmt.Errorf("tzadjust: Enter called while already active")

// ErrNotActive is returned by Exit without a matching Enter.
var ErrNotActive = fmt.Errorf("tzadjust: Exit called without a matching Enter")

// Enter translates the clock's local values into tz's zone. A failure
// to resolve the zone name does not abort; it falls through to the
// local zone.
func (a *Adjuster) Enter(tz string) error {
	if a.active {
		return ErrReentrant
	}
	a.saved = *a.clock
	a.active = true
	if tz == "" {
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil
	}
	y, m, d := value.DSEToYMD(a.clock.Today)
	hh, mm := int(a.clock.TodayMinutes)/60, int(a.clock.TodayMinutes)%60
	asHost := time.Date(y, time.Month(m), d, hh, mm, 0, 0, a.hostZone)
	inTZ := asHost.In(loc)
	dse, ok := value.YMDToDSE(inTZ.Year(), int(inTZ.Month()), inTZ.Day())
	if !ok {
		return nil
	}
	a.clock.Today = dse
	a.clock.TodayMinutes = int32(inTZ.Hour()*60 + inTZ.Minute())
	return nil
}

// Exit restores the clock to its pre-Enter value bit-for-bit.
func (a *Adjuster) Exit() error {
	if !a.active {
		return ErrNotActive
	}
	*a.clock = a.saved
	a.active = false
	return nil
}

// Scoped runs fn with the clock translated into tz's zone for its
// duration, restoring afterward even if fn panics or errors — the
// scoped-acquisition pattern in place of a bare Enter/Exit pair a
// caller might forget to balance.
func (a *Adjuster) Scoped(tz string, fn func() error) error {
	if err := a.Enter(tz); err != nil {
		return err
	}
	defer a.Exit()
	return fn()
}
