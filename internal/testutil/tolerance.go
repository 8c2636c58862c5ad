package testutil

import (
	"math"
	"testing"
)

// InDelta fails t unless got lies within delta of want.
func InDelta(t *testing.T, got, want, delta float64) {
	t.Helper()

	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Fatalf("got %v, want %v (delta %v)", got, want, delta)
	}
}

// SlicesInDelta fails t if got and want differ in length or any element
// pair differs by more than delta.
func SlicesInDelta(t *testing.T, got, want []float64, delta float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.IsNaN(got[i]) || math.Abs(got[i]-want[i]) > delta {
			t.Fatalf("index %d: got %v, want %v (delta %v)", i, got[i], want[i], delta)
		}
	}
}
