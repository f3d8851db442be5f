// Package ordering implements the numeric rank arithmetic used to order tasks
// within a board column. Ranks are float64 values spaced Step apart after a
// rebalance; inserts take the midpoint between neighbours until the gap can no
// longer be split.
package ordering

import (
	"errors"
	"math"
)

// Step is the spacing between ranks after a rebalance and the distance used
// when inserting at either end of a column.
const Step = 1024.0

// Limit bounds rank magnitude. Columns whose ranks drift past it are
// rebalanced so end inserts keep full float64 precision.
const Limit = 1e12

// ErrExhausted is returned when two neighbouring ranks are too close to split.
var ErrExhausted = errors.New("ordering: rank precision exhausted") //nolint:gochecknoglobals // sentinel error

// Initial returns the rank for the first task in an empty column.
func Initial() float64 { return Step }

// Before returns a rank strictly less than first.
func Before(first float64) (float64, error) {
	r := first - Step
	if !(r < first) || !InBounds(r) {
		return 0, ErrExhausted
	}
	return r, nil
}

// After returns a rank strictly greater than last.
func After(last float64) (float64, error) {
	r := last + Step
	if !(r > last) || !InBounds(r) {
		return 0, ErrExhausted
	}
	return r, nil
}

// Between returns the midpoint of lo and hi. It requires lo < hi and fails
// with ErrExhausted when no representable value lies strictly between them.
func Between(lo, hi float64) (float64, error) {
	if !(lo < hi) {
		return 0, errors.New("ordering.Between: requires lo < hi")
	}
	mid := lo + (hi-lo)/2
	if !(lo < mid && mid < hi) {
		return 0, ErrExhausted
	}
	return mid, nil
}

// Spaced returns n contiguous ranks Step, 2*Step, ..., n*Step.
func Spaced(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = Step * float64(i+1)
	}
	return out
}

// InBounds reports whether r is finite and within Limit.
func InBounds(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && math.Abs(r) <= Limit
}
