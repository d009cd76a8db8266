// Package testutil provides shared test helpers for the sim/ test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal fails the test if got and want differ by more than
// relTol relative to the larger magnitude.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertInUnitInterval fails the test unless 0 <= got <= 1.
func AssertInUnitInterval(t *testing.T, name string, got float64) {
	t.Helper()
	if math.IsNaN(got) || got < 0 || got > 1 {
		t.Errorf("%s = %v, want a value in [0, 1]", name, got)
	}
}
