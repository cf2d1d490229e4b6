package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/remind/internal/omit"
	"github.com/midbel/remind/internal/value"
)

func mkDSE(t *testing.T, y, m, d int) int32 {
	t.Helper()
	v, ok := value.YMDToDSE(y, m, d)
	require.True(t, ok)
	return v
}

func blankTrigger() *Trigger {
	return &Trigger{
		Year: NoYear, Month: NoMonth, Day: NoDay,
		Until: NoDate, From: NoDate, ScanFrom: NoScanFrom,
		CompleteThrough: NoDate, MaxOverdue: NoOverdue,
		Delta: NoDelta, Back: NoBack, PriorDate: NoDate,
		Time:                   TimeTrig{TTime: NoTime, Duration: NoDuration},
		ColorR:                 NoColor,
		ColorG:                 NoColor,
		ColorB:                 NoColor,
	}
}

func TestComputeFixedDate(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Year, tr.Month, tr.Day = 1990, 6, 15
	want := mkDSE(t, 1990, 6, 15)
	got, err := r.Compute(tr, Input{Today: mkDSE(t, 1990, 1, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestComputeExpiredAfterUntil(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Month = 6
	tr.Until = mkDSE(t, 1990, 1, 31)
	_, err := r.Compute(tr, Input{Today: mkDSE(t, 1990, 1, 1)}, nil)
	require.Error(t, err)
}

func TestComputeWeekdayMask(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	today := mkDSE(t, 1990, 1, 1) // Monday
	tr.WeekdayMask = 1 << uint(value.Weekday(today+2))
	got, err := r.Compute(tr, Input{Today: today}, nil)
	require.NoError(t, err)
	assert.Equal(t, today+2, got)
}

func TestComputeRepetition(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	prior := mkDSE(t, 1990, 1, 1)
	tr.Repetition = 7
	tr.PriorDate = prior
	got, err := r.Compute(tr, Input{Today: prior + 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, prior+7, got)
}

func TestComputeSatisfyFiltersCandidates(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	today := mkDSE(t, 1990, 1, 1)
	target := today + 3
	got, err := r.Compute(tr, Input{Today: today}, func(candidate int32) (bool, error) {
		return candidate == target, nil
	})
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestComputeBackPositive(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Year, tr.Month, tr.Day = 1990, 6, 15
	tr.Back = 5
	got, err := r.Compute(tr, Input{Today: mkDSE(t, 1990, 1, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, mkDSE(t, 1990, 6, 10), got)
}

func TestComputeBackNonOmitted(t *testing.T) {
	oc := omit.New()
	d := mkDSE(t, 1990, 6, 14)
	require.NoError(t, oc.AddFull(d))
	r := NewResolver(oc)
	tr := blankTrigger()
	tr.Year, tr.Month, tr.Day = 1990, 6, 15
	tr.Back = -1
	got, err := r.Compute(tr, Input{Today: mkDSE(t, 1990, 1, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, mkDSE(t, 1990, 6, 13), got)
}

func TestComputeSkipAfter(t *testing.T) {
	oc := omit.New()
	target := mkDSE(t, 1990, 6, 15)
	require.NoError(t, oc.AddFull(target))
	r := NewResolver(oc)
	tr := blankTrigger()
	tr.Year, tr.Month, tr.Day = 1990, 6, 15
	tr.SkipMode = SkipAfter
	got, err := r.Compute(tr, Input{Today: mkDSE(t, 1990, 1, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, target+1, got)
}

func TestShouldTriggerOnceSuppressesRefire(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Once = true
	today := mkDSE(t, 1990, 1, 1)
	ok, err := r.ShouldTrigger(tr, Input{Today: today}, Decision{FiredOnceToday: true}, today, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldTriggerNoDeltaFiresOnlyToday(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	today := mkDSE(t, 1990, 1, 1)
	ok, err := r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today+1, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShouldTriggerPositiveDeltaFiresInWindow(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Delta = 3
	today := mkDSE(t, 1990, 1, 1)
	ok, err := r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today+3, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today+4, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldTriggerOverdueTodoRespectsMaxOverdue(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.IsTodo = true
	tr.MaxOverdue = 2
	today := mkDSE(t, 1990, 1, 10)
	ok, err := r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today-2, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today-3, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShouldTriggerWarnFunction(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.WarnFunc = "mywarn"
	today := mkDSE(t, 1990, 1, 10)
	returns := []int32{3, 2, 1}
	warn := func(n int) (int32, error) { return returns[n-1], nil }
	ok, err := r.ShouldTrigger(tr, Input{Today: today}, Decision{}, today+2, warn)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestComputeDurationDaysCrossesMidnight(t *testing.T) {
	got := ComputeDurationDays(&TimeTrig{TTime: 23 * 60, Duration: 180})
	assert.Equal(t, 1, got)
}

func TestComputeDurationDaysNoOverflow(t *testing.T) {
	got := ComputeDurationDays(&TimeTrig{TTime: 8 * 60, Duration: 60})
	assert.Equal(t, 0, got)
}

func TestAdjustDurationPullsBackToSpanStart(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Repetition = 7
	tr.DurationDays = 2
	start := mkDSE(t, 1990, 1, 1)
	tr.PriorDate = start
	got := r.adjustDuration(tr, start+2)
	assert.Equal(t, start, got, "a date still inside the previous occurrence's span reports the span's first day")
}

func TestAdjustDurationLeavesDateOutsideSpanAlone(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.Repetition = 7
	tr.DurationDays = 2
	start := mkDSE(t, 1990, 1, 1)
	tr.PriorDate = start
	got := r.adjustDuration(tr, start+7)
	assert.Equal(t, start+7, got)
}

func TestComputeSatisfySkipsPastDurationSpan(t *testing.T) {
	r := NewResolver(omit.New())
	tr := blankTrigger()
	tr.DurationDays = 2
	today := mkDSE(t, 1990, 1, 1)
	var seen []int32
	got, err := r.Compute(tr, Input{Today: today}, func(candidate int32) (bool, error) {
		seen = append(seen, candidate)
		return candidate == today+3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, today+3, got)
	// the first failed candidate's span covers [today, today+2], so the
	// next attempt should jump straight past it to today+3 rather than
	// retrying today+1 and today+2 one day at a time.
	assert.Equal(t, []int32{today, today + 3}, seen)
}
