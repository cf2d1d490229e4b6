package trigger

import "github.com/midbel/remind/internal/errs"

// WarnFunc evaluates warn(n) for n = 1, 2, 3, ..., mirroring
// ShouldTriggerBasedOnWarn's repeated EvalExpr calls. It returns the
// value of warn(n) or the error from evaluating it; the caller stops
// once the absolute value no longer decreases.
type WarnFunc func(n int) (int32, error)

// MaxSatIter bounds the omit-skipping inner loops in ShouldTrigger's
// delta/warn handling and the outer warn(n) call loop.
const MaxSatIter = 10000

// Decision bundles the should-trigger inputs that don't belong on the
// Trigger record itself: per-run mode flags rather than per-reminder
// constraints.
type Decision struct {
	IgnoreOnce     bool
	FiredOnceToday bool // GetOnceDate() == today, already checked by caller
	CalendarMode   bool
}

// ShouldTrigger implements the should-trigger decision, mirroring
// ShouldTriggerReminder/ShouldTriggerBasedOnWarn.
func (r *Resolver) ShouldTrigger(t *Trigger, in Input, d Decision, dse int32, warn WarnFunc) (bool, error) {
	if !d.IgnoreOnce && t.Once && d.FiredOnceToday {
		return false, nil
	}

	calmode := d.CalendarMode

	if t.IsTodo && !calmode {
		if t.CompleteThrough != NoDate && t.CompleteThrough >= in.Today && dse <= t.CompleteThrough {
			return false, nil
		}
		if t.CompleteThrough == NoDate || t.CompleteThrough < dse {
			if dse < in.Today {
				if t.MaxOverdue != NoOverdue && dse+int32(t.MaxOverdue) < in.Today {
					return false, nil
				}
				return true, nil
			}
			// future trigger date: fall through to normal delta/warn rules
		} else {
			return false, nil
		}
	} else if dse < in.Today {
		return false, nil
	}

	// Calendar mode lists every resolved occurrence in range rather
	// than applying the advance-notice window.
	if calmode {
		return true, nil
	}

	if t.WarnFunc != "" && warn != nil {
		return r.shouldTriggerByWarn(t, in, dse, warn)
	}

	if t.Delta == NoDelta {
		return dse == in.Today, nil
	}
	if t.Delta < 0 {
		return dse+int32(t.Delta) <= in.Today, nil
	}

	remaining := t.Delta
	cursor := dse
	iter := 0
	maxIter := MaxSatIter
	if maxIter < remaining*2 {
		maxIter = remaining * 2
	}
	for iter < maxIter {
		iter++
		if remaining == 0 || cursor <= in.Today {
			break
		}
		cursor--
		omitted, err := r.isOmitted(t, cursor)
		if err != nil {
			return false, err
		}
		if !omitted {
			remaining--
		}
	}
	if iter >= maxIter && remaining != 0 {
		return false, errs.New(errs.CantTrig, "delta computation exceeded iteration cap (bad OMITFUNC?)")
	}
	return cursor <= in.Today, nil
}

// shouldTriggerByWarn implements ShouldTriggerBasedOnWarn: call
// warn(1), warn(2), ... until the returned absolute value stops
// strictly decreasing. Positive n means "fire n calendar days before";
// negative n means "fire n non-omitted days before".
func (r *Resolver) shouldTriggerByWarn(t *Trigger, in Input, dse int32, warn WarnFunc) (bool, error) {
	lastAbs := int32(0)
	for i := 1; i <= MaxSatIter; i++ {
		v, err := warn(i)
		if err != nil {
			return dse == in.Today, err
		}
		av := v
		if av < 0 {
			av = -av
		}
		if i > 1 && av >= lastAbs {
			return dse == in.Today, nil
		}
		lastAbs = av

		if v >= 0 {
			if in.Today+v == dse {
				return true, nil
			}
			continue
		}

		j := dse
		remaining := -v
		iter := 0
		maxIter := MaxSatIter
		if maxIter < int(remaining)*2 {
			maxIter = int(remaining) * 2
		}
		for iter <= maxIter {
			iter++
			j--
			omitted, err := r.isOmitted(t, j)
			if err != nil {
				return false, err
			}
			if !omitted {
				remaining--
			}
			if remaining == 0 {
				break
			}
		}
		if iter > maxIter {
			return false, errs.New(errs.CantTrig, "warn computation exceeded iteration cap (bad OMITFUNC?)")
		}
		if j == in.Today {
			return true, nil
		}
	}
	return dse == in.Today, nil
}
