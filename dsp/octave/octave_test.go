package octave

import (
	"errors"
	"math"
	"testing"
)

func TestNewGridSpacing(t *testing.T) {
	g, err := New(1, 32, 12)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	freqs := g.Freqs()
	if freqs[0] != 1 {
		t.Fatalf("first point = %v, want 1", freqs[0])
	}

	ratio := math.Pow(2, 1.0/12)
	for i := 1; i < len(freqs); i++ {
		if math.Abs(freqs[i]/freqs[i-1]-ratio) > 1e-12 {
			t.Fatalf("ratio at %d = %v, want %v", i, freqs[i]/freqs[i-1], ratio)
		}
	}

	// 5 octaves at 12 per octave: points 0..60 inclusive.
	if g.Len() != 61 {
		t.Fatalf("len = %d, want 61", g.Len())
	}

	if last := freqs[len(freqs)-1]; last > 32 {
		t.Fatalf("last point %v exceeds end", last)
	}
}

func TestNewGridDefaultAnalysisSpan(t *testing.T) {
	g, err := New(0.1, 38, 72)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 72*log2(380) = 617.03..., so points j = 0..617.
	if g.Len() != 618 {
		t.Fatalf("len = %d, want 618", g.Len())
	}

	aligned := g.AlignTo(12)
	if aligned.Len() != 612 {
		t.Fatalf("aligned len = %d, want 612", aligned.Len())
	}

	if aligned.PerOctave() != 72 {
		t.Fatalf("aligned perOctave = %d, want 72", aligned.PerOctave())
	}
}

func TestNewGridInvalid(t *testing.T) {
	cases := []struct {
		name       string
		start, end float64
		perOctave  int
	}{
		{"zero start", 0, 10, 12},
		{"negative start", -1, 10, 12},
		{"end below start", 10, 5, 12},
		{"end equals start", 10, 10, 12},
		{"zero density", 1, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.start, tc.end, tc.perOctave); !errors.Is(err, ErrGrid) {
				t.Fatalf("err = %v, want ErrGrid", err)
			}
		})
	}
}

func TestDecimate(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	got := Decimate(x, 1, 3)
	want := []float64{1, 4, 7}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if Decimate(x, 10, 3) != nil {
		t.Fatal("offset past end should yield nil")
	}

	if Decimate(x, 0, 0) != nil {
		t.Fatal("zero stride should yield nil")
	}
}

func TestDecimatedGrid(t *testing.T) {
	g, err := New(1, 2, 12)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sparse := g.Decimated(0, 12)
	if len(sparse) != 2 || sparse[0] != 1 {
		t.Fatalf("sparse = %v", sparse)
	}

	if math.Abs(sparse[1]-2) > 1e-12 {
		t.Fatalf("sparse[1] = %v, want 2", sparse[1])
	}
}
