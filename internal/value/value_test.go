package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWraps(t *testing.T) {
	v := NewTime(23*60 + 59 + 2)
	assert.Equal(t, int32(1), v.TimeMinutes())
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(NewInt(1)))
	assert.False(t, Truthy(NewInt(0)))
	assert.True(t, Truthy(NewStr("x")))
	assert.False(t, Truthy(NewStr("")))
	assert.False(t, Truthy(NewErr()))
}

func TestCoerceIntToDate(t *testing.T) {
	v, err := Coerce(NewInt(5), Date, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(5), v.DSE())
}

func TestCoerceRoundTrip(t *testing.T) {
	cases := []Value{
		NewInt(-42),
		NewTime(75),
		NewDate(100),
		NewDateTime(100, 75),
	}
	for _, v := range cases {
		s, err := Coerce(v, Str, 0)
		require.NoError(t, err)
		back, err := Coerce(s, v.Kind(), 0)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestCoerceBadPair(t *testing.T) {
	_, err := Coerce(NewInt(1), Special, 0)
	require.Error(t, err)
	var ce *CoerceErr
	assert.ErrorAs(t, err, &ce)
}

func TestYMDRoundTrip(t *testing.T) {
	dse, ok := YMDToDSE(2025, 1, 15)
	require.True(t, ok)
	y, m, d := DSEToYMD(dse)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 1, m)
	assert.Equal(t, 15, d)
}

func TestFeb29RejectedNonLeap(t *testing.T) {
	_, ok := YMDToDSE(2025, 2, 29)
	assert.False(t, ok)
	_, ok = YMDToDSE(2024, 2, 29)
	assert.True(t, ok)
}

func TestCheckedMulOverflow(t *testing.T) {
	_, err := CheckedMul(MinInt32, -1)
	require.Error(t, err)
	var oe *OverflowError
	require.ErrorAs(t, err, &oe)
	assert.False(t, oe.OverflowLow)
}

func TestCheckedDivByZero(t *testing.T) {
	_, divzero, err := CheckedDiv(10, 0)
	require.NoError(t, err)
	assert.True(t, divzero)
}

func TestCheckedModMinIntNegOne(t *testing.T) {
	_, divzero, err := CheckedMod(MinInt32, -1)
	assert.False(t, divzero)
	require.Error(t, err)
}

func TestCheckedNegMinInt(t *testing.T) {
	_, err := CheckedNeg(MinInt32)
	require.Error(t, err)
}

func TestArithmeticNeverSilentlyWraps(t *testing.T) {
	_, err := CheckedAdd(MaxInt32, 1)
	require.Error(t, err)
}
