package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeByContent(t *testing.T) {
	b := New(DefaultOptions)
	e := Entry{Date: 100, Time: 60, Body: "call mom"}
	assert.True(t, b.Add(e))
	assert.False(t, b.Add(e), "identical (date,time,body) must be dropped")
	require.Equal(t, 1, b.Len())
}

func TestDedupeDistinguishesTimeAndBody(t *testing.T) {
	b := New(DefaultOptions)
	b.Add(Entry{Date: 100, Time: 60, Body: "x"})
	b.Add(Entry{Date: 100, Time: 61, Body: "x"})
	b.Add(Entry{Date: 100, Time: 60, Body: "y"})
	assert.Equal(t, 3, b.Len())
}

func TestSortedAscendingDateThenUntimedFirst(t *testing.T) {
	b := New(DefaultOptions)
	b.Add(Entry{Date: 2, Time: 30, Body: "later-timed"})
	b.Add(Entry{Date: 1, Time: -1, Body: "untimed"})
	b.Add(Entry{Date: 1, Time: 60, Body: "timed"})
	out := b.Sorted()
	require.Len(t, out, 3)
	assert.Equal(t, "untimed", out[0].Body)
	assert.Equal(t, "timed", out[1].Body)
	assert.Equal(t, "later-timed", out[2].Body)
}

func TestSortedPriorityBreaksTieDescending(t *testing.T) {
	b := New(DefaultOptions)
	b.Add(Entry{Date: 1, Time: 60, Priority: 1, Body: "low"})
	b.Add(Entry{Date: 1, Time: 60, Priority: 9, Body: "high"})
	out := b.Sorted()
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].Body, "higher priority sorts first on a (date,time) tie")
	assert.Equal(t, "low", out[1].Body)
}

func TestSortedFallsBackToScriptOrder(t *testing.T) {
	b := New(DefaultOptions)
	b.Add(Entry{Date: 1, Time: 60, Priority: 5, Body: "first"})
	b.Add(Entry{Date: 1, Time: 60, Priority: 5, Body: "second"})
	out := b.Sorted()
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Body)
	assert.Equal(t, "second", out[1].Body)
}

func TestSortedIsStableUnderRepeatedCalls(t *testing.T) {
	b := New(DefaultOptions)
	b.Add(Entry{Date: 5, Time: -1, Body: "a"})
	b.Add(Entry{Date: 3, Time: -1, Body: "b"})
	first := b.Sorted()
	second := b.Sorted()
	assert.Equal(t, first, second)
}
