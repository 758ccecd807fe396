package combinator

import "math"

// AddChecked returns x+y or a CodeArithmetic error on overflow.
func AddChecked(x, y int64) (int64, error) {
	if y > 0 && x > math.MaxInt64-y {
		return 0, Errorf(CodeArithmetic, "integer overflow: %d + %d", x, y)
	}
	if y < 0 && x < math.MinInt64-y {
		return 0, Errorf(CodeArithmetic, "integer underflow: %d + %d", x, y)
	}
	return x + y, nil
}

// SubChecked returns x-y or a CodeArithmetic error on overflow.
func SubChecked(x, y int64) (int64, error) {
	if y < 0 && x > math.MaxInt64+y {
		return 0, Errorf(CodeArithmetic, "integer overflow: %d - %d", x, y)
	}
	if y > 0 && x < math.MinInt64+y {
		return 0, Errorf(CodeArithmetic, "integer underflow: %d - %d", x, y)
	}
	return x - y, nil
}

// MulChecked returns x*y or a CodeArithmetic error on overflow.
func MulChecked(x, y int64) (int64, error) {
	if x == 0 || y == 0 {
		return 0, nil
	}
	p := x * y
	if p/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, Errorf(CodeArithmetic, "integer overflow: %d * %d", x, y)
	}
	return p, nil
}

// NegChecked returns -x or a CodeArithmetic error for math.MinInt64.
func NegChecked(x int64) (int64, error) {
	if x == math.MinInt64 {
		return 0, Errorf(CodeArithmetic, "integer overflow: -(%d)", x)
	}
	return -x, nil
}
