package filter

import (
	"errors"
	"math"
	"testing"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}

	return out
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(x)))
}

func TestZeroPhaseConstantInput(t *testing.T) {
	sections := ButterworthLP(30, 4, 1000)

	x := make([]float64, 400)
	for i := range x {
		x[i] = 2.5
	}

	y, err := ZeroPhase(sections, x)
	if err != nil {
		t.Fatalf("ZeroPhase: %v", err)
	}

	if len(y) != len(x) {
		t.Fatalf("len = %d, want %d", len(y), len(x))
	}

	for i, v := range y {
		if math.Abs(v-2.5) > 1e-9 {
			t.Fatalf("sample %d: %v, want 2.5", i, v)
		}
	}
}

func TestZeroPhasePassbandAndStopband(t *testing.T) {
	const sampleRate = 1000.0

	low := sine(1, sampleRate, 4000)

	passed, err := Lowpass(10, 4, sampleRate, low)
	if err != nil {
		t.Fatalf("Lowpass: %v", err)
	}

	if ratio := rms(passed) / rms(low); math.Abs(ratio-1) > 0.01 {
		t.Fatalf("passband ratio = %v, want ~1", ratio)
	}

	high := sine(100, sampleRate, 4000)

	stopped, err := Lowpass(10, 4, sampleRate, high)
	if err != nil {
		t.Fatalf("Lowpass: %v", err)
	}

	// Double-pass 4th order: |H|^2 at 10x cutoff is ~1e-8.
	if ratio := rms(stopped) / rms(high); ratio > 1e-3 {
		t.Fatalf("stopband ratio = %v, want < 1e-3", ratio)
	}
}

func TestZeroPhaseNoLag(t *testing.T) {
	const sampleRate = 1000.0

	x := sine(5, sampleRate, 2000)

	y, err := Lowpass(50, 4, sampleRate, x)
	if err != nil {
		t.Fatalf("Lowpass: %v", err)
	}

	// The dual pass cancels group delay: sliding y against x must align
	// best at lag zero. A causal 4th-order pass would lag several samples.
	dotAtLag := func(lag int) float64 {
		sum := 0.0
		for i := 100; i < 1900; i++ {
			sum += x[i] * y[i+lag]
		}

		return sum
	}

	bestLag, bestDot := 0, math.Inf(-1)
	for lag := -8; lag <= 8; lag++ {
		if d := dotAtLag(lag); d > bestDot {
			bestLag, bestDot = lag, d
		}
	}

	if bestLag != 0 {
		t.Fatalf("best alignment at lag %d, want 0", bestLag)
	}
}

func TestZeroPhaseZeroInput(t *testing.T) {
	x := make([]float64, 256)

	y, err := ZeroPhase(ButterworthLP(30, 4, 1000), x)
	if err != nil {
		t.Fatalf("ZeroPhase: %v", err)
	}

	for i, v := range y {
		if v != 0 {
			t.Fatalf("sample %d: %v, want 0", i, v)
		}
	}
}

func TestZeroPhaseTooShort(t *testing.T) {
	sections := ButterworthLP(30, 4, 1000)

	// Order 4 pads 15 samples per end; 15 samples are not enough.
	_, err := ZeroPhase(sections, make([]float64, 15))
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}

	if _, err := ZeroPhase(sections, make([]float64, 16)); err != nil {
		t.Fatalf("16 samples should pass for order 4: %v", err)
	}
}

func TestZeroPhaseNoSections(t *testing.T) {
	if _, err := ZeroPhase(nil, make([]float64, 64)); !errors.Is(err, ErrNoSections) {
		t.Fatalf("err = %v, want ErrNoSections", err)
	}
}

func TestLowpassParameterFaults(t *testing.T) {
	x := make([]float64, 256)

	if _, err := Lowpass(500, 4, 1000, x); !errors.Is(err, ErrCutoff) {
		t.Fatalf("cutoff at Nyquist: err = %v, want ErrCutoff", err)
	}

	if _, err := Lowpass(800, 4, 1000, x); !errors.Is(err, ErrCutoff) {
		t.Fatalf("cutoff above Nyquist: err = %v, want ErrCutoff", err)
	}

	if _, err := Lowpass(-1, 4, 1000, x); !errors.Is(err, ErrCutoff) {
		t.Fatalf("negative cutoff: err = %v, want ErrCutoff", err)
	}

	if _, err := Lowpass(50, 0, 1000, x); !errors.Is(err, ErrOrder) {
		t.Fatalf("zero order: err = %v, want ErrOrder", err)
	}

	if _, err := Lowpass(50, 4, 0, x); !errors.Is(err, ErrSampleRate) {
		t.Fatalf("zero rate: err = %v, want ErrSampleRate", err)
	}
}

func TestOddExtendContinuity(t *testing.T) {
	x := []float64{1, 2, 4, 8, 16, 11, 6, 1}

	ext := oddExtend(x, 3)
	if len(ext) != len(x)+6 {
		t.Fatalf("len = %d, want %d", len(ext), len(x)+6)
	}

	// Left reflection pivots around x[0]: 2*1 - x[3], 2*1 - x[2], 2*1 - x[1].
	want := []float64{-6, -2, 0}
	for i, w := range want {
		if ext[i] != w {
			t.Fatalf("ext[%d] = %v, want %v", i, ext[i], w)
		}
	}

	// Right reflection pivots around x[len-1].
	if ext[len(ext)-1] != 2*1-16 {
		t.Fatalf("right tail = %v, want %v", ext[len(ext)-1], 2*1-16)
	}
}
