package script

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midbel/remind/internal/buffer"
	"github.com/midbel/remind/internal/trigger"
	"github.com/midbel/remind/internal/value"
)

func entryFor(date int32, minute int, body, file string, line int) buffer.Entry {
	return buffer.Entry{Date: date, Time: minute, Body: body, File: file, Line: line}
}

// EmitJSON's plain-reminder shape: the keys are filename/lineno (not
// File/Line), passthru is present even when empty, and
// fields the reminder never set (time, duration, if_depth, ...) are
// omitted entirely rather than zero-valued.
func TestEmitJSONPlainReminderOmitsUnsetFields(t *testing.T) {
	dse, ok := value.YMDToDSE(2025, 1, 6)
	require.True(t, ok)
	occ := Occurrence{
		Entry: entryFor(dse, -1, "note", "fixture.rem", 5),
		Type:  trigger.TypeMsg,
	}
	occ.ColorR, occ.ColorG, occ.ColorB = trigger.NoColor, trigger.NoColor, trigger.NoColor

	var buf bytes.Buffer
	require.NoError(t, EmitJSON(&buf, []Occurrence{occ}))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	o := out[0]

	assert.Equal(t, "2025-01-06", o["date"])
	assert.Equal(t, "fixture.rem", o["filename"])
	assert.Equal(t, float64(5), o["lineno"])
	assert.Equal(t, "", o["passthru"])
	assert.Equal(t, "note", o["body"])

	for _, key := range []string{"lineno_start", "duration", "time", "tdelta", "trep", "if_depth", "nonconst_expr", "r", "g", "b"} {
		_, present := o[key]
		assert.Falsef(t, present, "key %q must be omitted when unset", key)
	}
}

// A continuation-joined, multi-day, PASSTHRU-with-color reminder
// surfaces every conditional field EmitJSON supports.
func TestEmitJSONFullySetReminderIncludesEveryField(t *testing.T) {
	dse, ok := value.YMDToDSE(2025, 1, 6)
	require.True(t, ok)
	occ := Occurrence{
		Entry:           entryFor(dse, 9*60, "reboot", "fixture.rem", 12),
		Type:            trigger.TypePassthru,
		LineStart:       10,
		DurationDays:    2,
		PassthruPayload: "SOMEPAYLOAD",
		TDelta:          3,
		TRep:            7,
		IfDepth:         2,
		NonConst:        true,
		ColorR:          10, ColorG: 20, ColorB: 30,
	}

	var buf bytes.Buffer
	require.NoError(t, EmitJSON(&buf, []Occurrence{occ}))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	o := out[0]

	assert.Equal(t, float64(10), o["lineno_start"])
	assert.Equal(t, "SOMEPAYLOAD", o["passthru"])
	assert.Equal(t, float64(2), o["duration"])
	assert.Equal(t, float64(9*60), o["time"])
	assert.Equal(t, float64(3), o["tdelta"])
	assert.Equal(t, float64(7), o["trep"])
	assert.Equal(t, float64(2), o["if_depth"])
	assert.Equal(t, float64(1), o["nonconst_expr"])
	assert.Equal(t, float64(10), o["r"])
	assert.Equal(t, float64(20), o["g"])
	assert.Equal(t, float64(30), o["b"])
}

// lineno_start is omitted when it equals lineno (the common,
// non-continuation case), even when it was explicitly recorded.
func TestEmitJSONOmitsLinenoStartWhenUnchanged(t *testing.T) {
	dse, ok := value.YMDToDSE(2025, 1, 6)
	require.True(t, ok)
	occ := Occurrence{
		Entry:     entryFor(dse, -1, "note", "fixture.rem", 8),
		LineStart: 8,
	}
	occ.ColorR, occ.ColorG, occ.ColorB = trigger.NoColor, trigger.NoColor, trigger.NoColor

	var buf bytes.Buffer
	require.NoError(t, EmitJSON(&buf, []Occurrence{occ}))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	_, present := out[0]["lineno_start"]
	assert.False(t, present)
}
