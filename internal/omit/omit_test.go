package omit

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

func TestFullOmitIdempotent(t *testing.T) {
	c := New()
	d := dse(t, 1990, 3, 1)
	require.NoError(t, c.AddFull(d))
	require.NoError(t, c.AddFull(d))
	assert.Len(t, c.full, 1)
}

func TestPartialOmitMatchesAnyYear(t *testing.T) {
	c := New()
	c.AddPartial(12, 25)
	omitted, err := c.IsOmitted(dse(t, 1990, 12, 25), 0, nil)
	require.NoError(t, err)
	assert.True(t, omitted)
	omitted, err = c.IsOmitted(dse(t, 1991, 12, 25), 0, nil)
	require.NoError(t, err)
	assert.True(t, omitted)
}

func TestWeekdayOmitSaturationRejected(t *testing.T) {
	c := New()
	for i := 0; i < 6; i++ {
		require.NoError(t, c.AddWeekday(i))
	}
	err := c.AddWeekday(6)
	require.ErrorIs(t, err, ErrAllWeekdaysOmitted)
}

func TestLocalMaskOmits(t *testing.T) {
	c := New()
	wd := value.Weekday(dse(t, 1990, 1, 1))
	omitted, err := c.IsOmitted(dse(t, 1990, 1, 1), 1<<uint(wd), nil)
	require.NoError(t, err)
	assert.True(t, omitted)
}

func TestOmitFuncBypassesStaticSets(t *testing.T) {
	c := New()
	c.AddPartial(1, 1)
	calls := 0
	fn := func(arg string) (value.Value, error) {
		calls++
		assert.Equal(t, "1990-01-01", arg)
		return value.NewInt(0), nil
	}
	omitted, err := c.IsOmitted(dse(t, 1990, 1, 1), 0, fn)
	require.NoError(t, err)
	assert.False(t, omitted)
	assert.Equal(t, 1, calls)
}

func TestPushPopRestoresSets(t *testing.T) {
	c := New()
	c.AddPartial(6, 1)
	c.Push("test.rem", 10)
	c.AddPartial(7, 4)
	file, line, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, "test.rem", file)
	assert.Equal(t, 10, line)
	assert.Len(t, c.partial, 1)
}

func TestPopWithoutPushFails(t *testing.T) {
	c := New()
	_, _, ok := c.Pop()
	assert.False(t, ok)
}

func TestUnmatchedPushesReported(t *testing.T) {
	c := New()
	c.Push("a.rem", 1)
	c.Push("b.rem", 2)
	assert.Len(t, c.Unmatched(), 2)
}

func TestClearEmptiesAllSets(t *testing.T) {
	c := New()
	require.NoError(t, c.AddFull(dse(t, 1990, 1, 1)))
	c.AddPartial(2, 2)
	require.NoError(t, c.AddWeekday(0))
	c.Clear()
	omitted, err := c.IsOmitted(dse(t, 1990, 1, 1), 0, nil)
	require.NoError(t, err)
	assert.False(t, omitted)
}

func TestAddFullRange(t *testing.T) {
	c := New()
	start := dse(t, 1990, 6, 1)
	end := dse(t, 1990, 6, 3)
	require.NoError(t, c.AddFullRange(start, end))
	assert.Len(t, c.full, 3)
}
