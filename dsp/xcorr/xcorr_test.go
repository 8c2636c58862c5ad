package xcorr

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// directFull is the O(n*m) reference: result[k] = sum over overlapping
// samples of a[j] * b[j-(k-(len(b)-1))].
func directFull(a, b []float64) []float64 {
	n, m := len(a), len(b)
	out := make([]float64, n+m-1)

	for k := range out {
		lag := k - (m - 1)
		for j := 0; j < m; j++ {
			i := j + lag
			if i < 0 || i >= n {
				continue
			}

			out[k] += a[i] * b[j]
		}
	}

	return out
}

func TestFullMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	cases := []struct{ n, m int }{
		{8, 8},
		{16, 5},
		{5, 16},
		{100, 100},
		{257, 61},
	}

	for _, tc := range cases {
		a := make([]float64, tc.n)
		b := make([]float64, tc.m)

		for i := range a {
			a[i] = rng.NormFloat64()
		}
		for i := range b {
			b[i] = rng.NormFloat64()
		}

		got, err := Full(a, b)
		if err != nil {
			t.Fatalf("Full(%d,%d): %v", tc.n, tc.m, err)
		}

		want := directFull(a, b)
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}

		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-9 {
				t.Fatalf("n=%d m=%d index %d: fft %v vs direct %v", tc.n, tc.m, i, got[i], want[i])
			}
		}
	}
}

func TestFullAutoCorrelationPeakAtZeroLag(t *testing.T) {
	a := make([]float64, 512)
	for i := range a {
		a[i] = math.Sin(0.07*float64(i)) + 0.2*math.Sin(0.31*float64(i))
	}

	corr, err := Full(a, a)
	if err != nil {
		t.Fatalf("Full: %v", err)
	}

	idx, _ := PeakAbs(corr)
	if lag := LagFromIndex(idx, len(a)); lag != 0 {
		t.Fatalf("autocorrelation peak at lag %d, want 0", lag)
	}

	// Zero-lag value equals the signal energy.
	energy := 0.0
	for _, v := range a {
		energy += v * v
	}

	if zero := corr[IndexFromLag(0, len(a))]; math.Abs(zero-energy) > 1e-8 {
		t.Fatalf("zero-lag = %v, want energy %v", zero, energy)
	}
}

func TestFullDetectsShift(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	base := make([]float64, 300)
	for i := range base {
		base[i] = rng.NormFloat64()
	}

	// b leads a by 20 samples: b[j] = a[j+20], so the match sits at lag +20.
	const shift = 20

	a := base[:len(base)-shift]
	b := base[shift:]

	corr, err := Full(a, b)
	if err != nil {
		t.Fatalf("Full: %v", err)
	}

	idx, _ := PeakAbs(corr)
	if lag := LagFromIndex(idx, len(b)); lag != shift {
		t.Fatalf("peak lag = %d, want %d", lag, shift)
	}
}

func TestLags(t *testing.T) {
	lags := Lags(4, 3)

	want := []int{-2, -1, 0, 1, 2, 3}
	if len(lags) != len(want) {
		t.Fatalf("len = %d, want %d", len(lags), len(want))
	}

	for i, w := range want {
		if lags[i] != w {
			t.Fatalf("lags[%d] = %d, want %d", i, lags[i], w)
		}
	}
}

func TestFullEmptyInput(t *testing.T) {
	if _, err := Full(nil, []float64{1}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}

	if _, err := Full([]float64{1}, nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestPeakAbsKeepsSign(t *testing.T) {
	idx, val := PeakAbs([]float64{0.1, -0.9, 0.5})
	if idx != 1 || val != -0.9 {
		t.Fatalf("PeakAbs = (%d, %v), want (1, -0.9)", idx, val)
	}

	if idx, _ := PeakAbs(nil); idx != -1 {
		t.Fatalf("empty PeakAbs index = %d, want -1", idx)
	}
}
