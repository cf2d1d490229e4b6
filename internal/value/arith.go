package value

// Overflow-checked i32 arithmetic. These must stay opaque to the
// compiler's optimizer: widen to a wider precision and compare against
// the i32 bounds rather than relying on wrap-then-detect tricks an
// optimizer could fold away. Go's int64 gives us that wider precision
// directly.

// OverflowError is returned by the checked helpers when the
// mathematically correct result does not fit in an int32.
type OverflowError struct {
	Op          string
	A, B        int32
	WouldBe     int64
	OverflowLow bool // result would be below MinInt32 rather than above MaxInt32
}

func (e *OverflowError) Error() string {
	return "arithmetic overflow: " + e.Op
}

func overflows(wide int64) (bool, bool) {
	if wide > MaxInt32 {
		return true, false
	}
	if wide < MinInt32 {
		return true, true
	}
	return false, false
}

// CheckedAdd computes a+b, failing with OverflowError rather than
// wrapping silently.
func CheckedAdd(a, b int32) (int32, error) {
	wide := int64(a) + int64(b)
	if bad, low := overflows(wide); bad {
		return 0, &OverflowError{Op: "+", A: a, B: b, WouldBe: wide, OverflowLow: low}
	}
	return int32(wide), nil
}

// CheckedSub computes a-b, failing with OverflowError rather than
// wrapping silently.
func CheckedSub(a, b int32) (int32, error) {
	wide := int64(a) - int64(b)
	if bad, low := overflows(wide); bad {
		return 0, &OverflowError{Op: "-", A: a, B: b, WouldBe: wide, OverflowLow: low}
	}
	return int32(wide), nil
}

// CheckedMul computes a*b, failing with OverflowError rather than
// wrapping silently. This also catches the INT_MIN * -1 degenerate case,
// since int64 can represent -MinInt32 exactly.
func CheckedMul(a, b int32) (int32, error) {
	wide := int64(a) * int64(b)
	if bad, low := overflows(wide); bad {
		return 0, &OverflowError{Op: "*", A: a, B: b, WouldBe: wide, OverflowLow: low}
	}
	return int32(wide), nil
}

// CheckedNeg computes -a, rejecting MinInt32 (whose negation overflows).
func CheckedNeg(a int32) (int32, error) {
	if a == MinInt32 {
		return 0, &OverflowError{Op: "unary-", A: a, WouldBe: -int64(a)}
	}
	return -a, nil
}

// CheckedDiv computes a/b (truncating toward zero, Go's native int
// division semantics), failing on division by zero and on the
// INT_MIN/-1 degenerate overflow case.
func CheckedDiv(a, b int32) (int32, bool /*divzero*/, error) {
	if b == 0 {
		return 0, true, nil
	}
	if a == MinInt32 && b == -1 {
		return 0, false, &OverflowError{Op: "/", A: a, B: b, WouldBe: -int64(MinInt32)}
	}
	return a / b, false, nil
}

// CheckedMod computes a%b, failing on division by zero and on the
// INT_MIN%-1 degenerate overflow case even though the mathematical
// result is zero.
func CheckedMod(a, b int32) (int32, bool /*divzero*/, error) {
	if b == 0 {
		return 0, true, nil
	}
	if a == MinInt32 && b == -1 {
		return 0, false, &OverflowError{Op: "%", A: a, B: b}
	}
	return a % b, false, nil
}
