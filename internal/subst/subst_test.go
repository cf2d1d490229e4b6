package subst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/remind/internal/value"
)

func dse(t *testing.T, y, m, d int) int32 {
	t.Helper()
	v, ok := value.YMDToDSE(y, m, d)
	require.True(t, ok)
	return v
}

func TestRewriteDayNumber(t *testing.T) {
	ctx := Context{TriggerDSE: dse(t, 1990, 6, 15), Today: dse(t, 1990, 6, 15), TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite("Due on the %D", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Due on the 15", out)
}

func TestRewriteTodayShortcut(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite("%A", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Today", out, "an uppercase escape letter uppercases the replacement's first rune")
}

func TestRewriteTomorrowShortcut(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{TriggerDSE: today + 1, Today: today, TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite("%A", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tomorrow", out)
}

func TestRewriteCapitalizationMirroring(t *testing.T) {
	today := dse(t, 1990, 6, 20)
	ctx := Context{TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite("%M", ctx)
	require.NoError(t, err)
	assert.Equal(t, "June", out)
}

func TestRewriteInfoLookup(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1, Info: map[string]string{"x": "hello"}}
	out, err := Rewrite("%<x>", ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRewriteTranslation(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{
		TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1,
		Translate: func(key string) (string, bool) {
			if key == "Reminder" {
				return "Rappel", true
			}
			return "", false
		},
	}
	out, err := Rewrite("%(Reminder)", ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rappel", out)
}

func TestRewriteQuoteMarkerNormalStripsMarkers(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{Mode: Normal, TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite(`before %"kept%" after`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "before kept after", out)
}

func TestRewriteQuoteMarkerCalKeepsOnlyInside(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{Mode: Cal, TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite(`before %"kept%" after`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", out)
}

func TestRewriteRunTypeDiscardedWithoutMarkers(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{Mode: Cal, RemType: TypeRun, TriggerDSE: today, Today: today, TimeOfDay: -1, CompleteThrough: -1}
	out, err := Rewrite("some output", ctx)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRewriteTimeOfDay24h(t *testing.T) {
	today := dse(t, 1990, 6, 15)
	ctx := Context{TriggerDSE: today, Today: today, TimeOfDay: 13*60 + 30, CompleteThrough: -1}
	out, err := Rewrite("%*3", ctx)
	require.NoError(t, err)
	assert.Equal(t, "13:30", out)
}

func TestRewriteDoneMarkerForCompletedTodo(t *testing.T) {
	today := dse(t, 1990, 6, 20)
	trigger := dse(t, 1990, 6, 15)
	ctx := Context{
		TriggerDSE: trigger, Today: today, TimeOfDay: -1,
		IsTodo: true, CompleteThrough: today,
	}
	out, err := Rewrite("task%:", ctx)
	require.NoError(t, err)
	assert.Equal(t, "task (done)", out)
}
