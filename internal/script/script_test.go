package script

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/remind/internal/trigger"
	"github.com/midbel/remind/internal/value"
)

// newTestInterp fixes "today" at 2025-01-06 (a Monday), the reference
// date the end-to-end scenarios are all written against.
func newTestInterp(t *testing.T) *Interpreter {
	t.Helper()
	dse, ok := value.YMDToDSE(2025, 1, 6)
	require.True(t, ok)
	return New(dse, 0, nil, zerolog.Nop())
}

func run(t *testing.T, it *Interpreter, src string) []Occurrence {
	t.Helper()
	err := it.RunReader(strings.NewReader(src), "fixture.rem")
	require.NoError(t, err)
	return it.Occurrences()
}

// resolve parses a single REM line and returns its resolved trigger
// date directly from the resolver, bypassing the separate
// should-trigger-today decision the full buffered pipeline applies —
// for checking *resolution* independent of whether that date happens
// to be today.
func resolve(t *testing.T, it *Interpreter, raw string) int32 {
	t.Helper()
	line := classify(raw, "fixture.rem", 1)
	f, err := it.parseRemLine(line)
	require.NoError(t, err)
	in := trigger.Input{Today: it.Clock.Today, TodayMinutes: it.Clock.TodayMinutes}
	dse, err := it.Resolver.Compute(f.trig, in, nil)
	require.NoError(t, err)
	return dse
}

// Scenario 1: REM 15 Jan MSG test with no OMITs triggers 2025-01-15.
// Calendar mode lists the occurrence on its own date rather than
// applying the advance-notice window.
func TestScenarioFixedDate(t *testing.T) {
	it := newTestInterp(t)
	it.CalMode = true
	occs := run(t, it, "REM 15 Jan MSG test\n")
	require.Len(t, occs, 1)
	y, m, d := value.DSEToYMD(occs[0].Date)
	assert.Equal(t, [3]int{2025, 1, 15}, [3]int{y, m, d})
	assert.Equal(t, "test", occs[0].Body)
}

// Scenario 2: REM Mon MSG weekly fires today (today is a Monday).
func TestScenarioWeekdayFiresToday(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "REM Mon MSG weekly\n")
	require.Len(t, occs, 1)
	assert.Equal(t, it.Clock.Today, occs[0].Date)
}

// Scenario 3: OMIT 2025-01-15 then REM 15 Jan SKIP AFTER MSG x resolves
// to 2025-01-16 instead of the omitted 15th.
func TestScenarioOmitSkipAfter(t *testing.T) {
	it := newTestInterp(t)
	require.NoError(t, it.dispatch(classify("OMIT 2025-01-15", "fixture.rem", 1)))
	dse := resolve(t, it, "REM 15 Jan SKIP AFTER MSG x")
	y, m, d := value.DSEToYMD(dse)
	assert.Equal(t, [3]int{2025, 1, 16}, [3]int{y, m, d})
}

// Scenario 4: FSET f(x) x*2 then REM [f(3) + 4] Jan MSG x resolves the
// day field through the expression evaluator to 10 Jan.
func TestScenarioBracketExprField(t *testing.T) {
	it := newTestInterp(t)
	require.NoError(t, it.dispatch(classify("FSET f(x) x*2", "fixture.rem", 1)))
	dse := resolve(t, it, "REM [f(3) + 4] Jan MSG x")
	y, m, d := value.DSEToYMD(dse)
	assert.Equal(t, [3]int{2025, 1, 10}, [3]int{y, m, d})
}

// Scenario 5: a REM far past due with no delta window covering today
// must not emit anything.
func TestScenarioPastDueWithoutDeltaSuppressed(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "REM 1 Jan MSG note\n")
	assert.Empty(t, occs, "next Jan-1 occurrence is a year away and has no delta window covering today")
}

// Scenario 6: two reminders resolving to the same (date,time,body)
// dedupe down to a single emitted occurrence.
func TestScenarioDedupeIdenticalOccurrences(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "REM 6 Jan MSG hello\nREM 6 Jan MSG hello\n")
	assert.Len(t, occs, 1)
}

// A SATISFY predicate that never reads the candidate date (no
// trigdate(), no $T) draws a warning from the static walker.
func TestSatisfyWithoutTrigdateWarns(t *testing.T) {
	it := newTestInterp(t)
	run(t, it, "REM SATISFY [1] MSG x\n")
	assert.NotEmpty(t, it.Warnings())
}

// IF/ELSE/ENDIF gates REM processing: a false branch's REM never
// reaches the buffer.
func TestIfElseGatesRem(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "IF 0\nREM 6 Jan MSG hidden\nELSE\nREM 6 Jan MSG shown\nENDIF\n")
	require.Len(t, occs, 1)
	assert.Equal(t, "shown", occs[0].Body)
}

// SET defines a global that a later bracket expression field reads.
func TestSetVariableVisibleToLaterExpr(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "SET n 11\nREM [n - 5] Jan MSG x\n")
	require.Len(t, occs, 1)
	_, _, d := value.DSEToYMD(occs[0].Date)
	assert.Equal(t, 6, d)
}

// PUSH/POP-OMIT-CONTEXT must leave the OMIT calendar exactly as found,
// the "invariant under pushing and then popping" property.
func TestOmitContextPushPopRestores(t *testing.T) {
	it := newTestInterp(t)
	dse, _ := value.YMDToDSE(2025, 1, 20)
	require.NoError(t, it.Omit.AddFull(dse))

	omittedBefore, err := it.Omit.IsOmitted(dse, 0, nil)
	require.NoError(t, err)
	require.True(t, omittedBefore)

	it.Omit.Push("fixture.rem", 2)
	require.NoError(t, it.Omit.AddFull(dse+1))
	it.Omit.Pop()

	omittedAfter, err := it.Omit.IsOmitted(dse, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, omittedBefore, omittedAfter)

	extraOmitted, err := it.Omit.IsOmitted(dse+1, 0, nil)
	require.NoError(t, err)
	assert.False(t, extraOmitted, "an OMIT added inside a popped context must not survive the pop")
}

// A REM-embedded OMIT clause builds the reminder's local omit mask,
// distinct from both the bare weekday constraint tokens and the
// global OMIT directive.
func TestRemLocalOmitMaskParsed(t *testing.T) {
	it := newTestInterp(t)
	line := classify("REM Mon OMIT Sat Sun MSG x", "fixture.rem", 1)
	f, err := it.parseRemLine(line)
	require.NoError(t, err)
	assert.Equal(t, weekdayBits["sat"]|weekdayBits["sun"], f.trig.LocalOmitMask)
	assert.Equal(t, weekdayBits["mon"], f.trig.WeekdayMask)
}

// 2025-01-11 is a Saturday; a local OMIT Sat with SKIP AFTER pushes the
// trigger to the 12th without any global OMIT in play.
func TestRemLocalOmitSkipAfter(t *testing.T) {
	it := newTestInterp(t)
	dse := resolve(t, it, "REM 11 Jan OMIT Sat SKIP AFTER MSG x")
	y, m, d := value.DSEToYMD(dse)
	assert.Equal(t, [3]int{2025, 1, 12}, [3]int{y, m, d})
}

// A plain PASSTHRU payload is truncated to 14 bytes and carried through
// to the resolved Occurrence untouched, with the body starting after
// the payload token.
func TestPassthruPayloadCarriesThrough(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "REM 6 Jan PASSTHRU LONGPAYLOADTOOLONG hello world\n")
	require.Len(t, occs, 1)
	assert.Equal(t, "LONGPAYLOADTOO", occs[0].PassthruPayload)
	assert.Equal(t, "hello world", occs[0].Body)
}

// PASSTHRU COLOR consumes its body's first three tokens as an r/g/b
// triple, reverts to a plain MSG reminder and clears the payload.
func TestPassthruColorParsesTriple(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "REM 6 Jan PASSTHRU COLOR 10 20 30 happy birthday\n")
	require.Len(t, occs, 1)
	o := occs[0]
	assert.Equal(t, "", o.PassthruPayload)
	assert.Equal(t, trigger.TypeMsg, o.Type)
	assert.Equal(t, 10, o.ColorR)
	assert.Equal(t, 20, o.ColorG)
	assert.Equal(t, 30, o.ColorB)
	assert.Equal(t, "happy birthday", o.Body)
}

// An out-of-range COLOR triple clears the payload and leaves the
// reminder a plain PASSTHRU with no color set.
func TestPassthruColorInvalidTripleClearsPayload(t *testing.T) {
	it := newTestInterp(t)
	occs := run(t, it, "REM 6 Jan PASSTHRU COLOR 999 20 30 oops\n")
	require.Len(t, occs, 1)
	o := occs[0]
	assert.Equal(t, "", o.PassthruPayload)
	assert.Equal(t, trigger.TypePassthru, o.Type)
	assert.Equal(t, trigger.NoColor, o.ColorR)
}
