package ir

import "fmt"

// Unset is the integer sentinel for an absent timestamp on the wire.
const Unset int64 = -1

// OptTime is an optional timestamp. For horizons an unset value means
// unbounded; for acquisition times it means not yet acquired.
type OptTime struct {
	T  int64
	Ok bool
}

// At returns a set OptTime.
func At(t int64) OptTime {
	return OptTime{T: t, Ok: true}
}

// None is the unset OptTime.
var None = OptTime{}

// After reports whether the time is set and t is strictly later than it.
func (o OptTime) After(t int64) bool {
	return o.Ok && t > o.T
}

// Int returns the wire form: the timestamp, or Unset.
func (o OptTime) Int() int64 {
	if !o.Ok {
		return Unset
	}
	return o.T
}

// String renders the time or "none".
func (o OptTime) String() string {
	if !o.Ok {
		return "none"
	}
	return fmt.Sprintf("%d", o.T)
}

// OptTimeFromInt decodes the wire form. Values below Unset are rejected.
func OptTimeFromInt(v int64) (OptTime, error) {
	switch {
	case v == Unset:
		return None, nil
	case v < Unset:
		return None, fmt.Errorf("timestamp out of range: %d", v)
	default:
		return At(v), nil
	}
}

// Latest returns the later of two horizons, where unset is unbounded.
func Latest(a, b OptTime) OptTime {
	if !a.Ok || !b.Ok {
		return None
	}
	if a.T >= b.T {
		return a
	}
	return b
}

// Earliest returns the earlier of two horizons, where unset is unbounded.
func Earliest(a, b OptTime) OptTime {
	if !a.Ok {
		return b
	}
	if !b.Ok {
		return a
	}
	if a.T <= b.T {
		return a
	}
	return b
}
