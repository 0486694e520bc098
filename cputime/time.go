// Package cputime implements exact rational arithmetic for simulated time.
//
// Every timeout, run duration and current-time value in the simulator is a
// Time. Floating point is forbidden here: timer equality and strict
// monotonicity checks rely on exact comparisons, and a rounding error in a
// slice length would silently desynchronize the event stream between runs.
package cputime

import (
	"fmt"
	"math/big"
)

// Time is a non-negative exact rational duration or point in simulated
// time, or the distinguished "no timeout" sentinel. The zero value is 0,
// a perfectly ordinary (and very common) Time.
type Time struct {
	rat  big.Rat
	none bool
}

// None is the sentinel timeout meaning "never elapses". It is distinct from
// Zero: a context with timeout Zero elapses immediately, one with timeout
// None never does.
var None = Time{none: true}

// Zero is the additive identity and also the most common starting current_time.
var Zero = Time{}

// FromInt builds an exact Time from an integer number of time units.
func FromInt(n int64) Time {
	var t Time
	t.rat.SetInt64(n)
	return t
}

// FromFraction builds an exact Time equal to num/den, den != 0.
func FromFraction(num, den int64) Time {
	if den == 0 {
		panic("cputime: zero denominator")
	}
	var t Time
	t.rat.SetFrac64(num, den)
	if t.rat.Sign() < 0 {
		panic("cputime: negative Time")
	}
	return t
}

// IsNone reports whether t is the "no timeout" sentinel.
func (t Time) IsNone() bool { return t.none }

// mustConcrete panics if t is None; arithmetic on None is a programming error.
func (t Time) mustConcrete(op string) {
	if t.none {
		panic(fmt.Sprintf("cputime: %s on None", op))
	}
}

// Add returns t + other. Panics if either operand is None.
func (t Time) Add(other Time) Time {
	t.mustConcrete("Add")
	other.mustConcrete("Add")
	var out Time
	out.rat.Add(&t.rat, &other.rat)
	return out
}

// Sub returns t - other. Panics if either operand is None.
func (t Time) Sub(other Time) Time {
	t.mustConcrete("Sub")
	other.mustConcrete("Sub")
	var out Time
	out.rat.Sub(&t.rat, &other.rat)
	return out
}

// Cmp compares two concrete Time values: -1, 0, +1. Panics if either is None.
func (t Time) Cmp(other Time) int {
	t.mustConcrete("Cmp")
	other.mustConcrete("Cmp")
	return t.rat.Cmp(&other.rat)
}

// Less reports whether t < other.
func (t Time) Less(other Time) bool { return t.Cmp(other) < 0 }

// LessEqual reports whether t <= other.
func (t Time) LessEqual(other Time) bool { return t.Cmp(other) <= 0 }

// IsZero reports whether t is the concrete value 0.
func (t Time) IsZero() bool {
	t.mustConcrete("IsZero")
	return t.rat.Sign() == 0
}

// IsPositive reports whether t > 0.
func (t Time) IsPositive() bool {
	t.mustConcrete("IsPositive")
	return t.rat.Sign() > 0
}

// LessEqualZero reports whether a concrete t has elapsed (t <= 0).
func (t Time) LessEqualZero() bool {
	t.mustConcrete("LessEqualZero")
	return t.rat.Sign() <= 0
}

// MulInt returns t * n, n >= 0. Panics if t is None.
func (t Time) MulInt(n int64) Time {
	t.mustConcrete("MulInt")
	if n < 0 {
		panic("cputime: MulInt with negative factor")
	}
	var out Time
	var factor big.Rat
	factor.SetInt64(n)
	out.rat.Mul(&t.rat, &factor)
	return out
}

// DivInt returns t / n, n > 0. Panics if t is None.
func (t Time) DivInt(n int64) Time {
	t.mustConcrete("DivInt")
	if n <= 0 {
		panic("cputime: DivInt with non-positive divisor")
	}
	var out Time
	var divisor big.Rat
	divisor.SetInt64(n)
	out.rat.Quo(&t.rat, &divisor)
	return out
}

// Min returns the smaller of two concrete Time values.
func Min(a, b Time) Time {
	if a.Less(b) {
		return a
	}
	return b
}

// MinOptional returns the minimum of two possibly-None values, treating
// None as "absent" rather than +Infinity: if either is None, the other
// wins; if both are None, the result is None.
func MinOptional(a, b Time) Time {
	if a.IsNone() {
		return b
	}
	if b.IsNone() {
		return a
	}
	return Min(a, b)
}

// Float64 returns an approximate float64 rendering, for logging/metrics only.
// Never use this for control flow.
func (t Time) Float64() float64 {
	if t.none {
		return 0
	}
	f, _ := t.rat.Float64()
	return f
}

// String renders t as "none" or as a reduced fraction (e.g. "3" or "7/2").
func (t Time) String() string {
	if t.none {
		return "none"
	}
	return t.rat.RatString()
}

// Parse reads a Time from its String representation: "none", an integer
// ("3"), or a reduced fraction ("7/2"). Used by the hierarchy loader to
// read workload durations out of JSON.
func Parse(s string) (Time, error) {
	if s == "" || s == "none" {
		return None, nil
	}
	var t Time
	if _, ok := t.rat.SetString(s); !ok {
		return Time{}, fmt.Errorf("cputime: invalid time %q", s)
	}
	if t.rat.Sign() < 0 {
		return Time{}, fmt.Errorf("cputime: negative time %q", s)
	}
	return t, nil
}

// Equal reports whether two Time values (concrete or None) are equal.
func (t Time) Equal(other Time) bool {
	if t.none != other.none {
		return false
	}
	if t.none {
		return true
	}
	return t.rat.Cmp(&other.rat) == 0
}
