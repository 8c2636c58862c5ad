// Package xcorr computes cross-correlation sequences via the FFT.
//
// Correlation length on qualification records runs to tens of thousands of
// samples per channel, so the direct O(n*m) form is avoided throughout.
package xcorr

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

var ErrEmpty = errors.New("xcorr: empty input")

// Full computes the full cross-correlation of a and b:
// result[k] = sum_i a[i+k-(len(b)-1)] * b[i], with length len(a)+len(b)-1.
// Output index k corresponds to lag k - (len(b) - 1).
//
// The sequence is computed as IFFT(FFT(a) * conj(FFT(b))) on a power-of-two
// plan, then rearranged from circular to linear ordering.
func Full(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmpty
	}

	n := len(a)
	m := len(b)
	fftSize := nextPowerOf2(n + m - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("xcorr: failed to create FFT plan: %w", err)
	}

	aPadded := make([]complex128, fftSize)
	bPadded := make([]complex128, fftSize)
	for i := 0; i < n; i++ {
		aPadded[i] = complex(a[i], 0)
	}
	for i := 0; i < m; i++ {
		bPadded[i] = complex(b[i], 0)
	}

	aFreq := make([]complex128, fftSize)
	bFreq := make([]complex128, fftSize)

	if err := plan.Forward(aFreq, aPadded); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	if err := plan.Forward(bFreq, bPadded); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	spectrum := make([]complex128, fftSize)
	for i := range spectrum {
		bConj := complex(real(bFreq[i]), -imag(bFreq[i]))
		spectrum[i] = aFreq[i] * bConj
	}

	lagDomain := make([]complex128, fftSize)
	if err := plan.Inverse(lagDomain, spectrum); err != nil {
		return nil, fmt.Errorf("xcorr: inverse FFT failed: %w", err)
	}

	// Circular to linear: non-negative lags sit at the front of the IFFT,
	// negative lags wrap around at the tail.
	result := make([]float64, n+m-1)
	for i := 0; i < n; i++ {
		result[m-1+i] = real(lagDomain[i])
	}
	for i := 0; i < m-1; i++ {
		result[i] = real(lagDomain[fftSize-m+1+i])
	}

	return result, nil
}

// Lags returns the lag (in samples) for every index of a full correlation
// of sequences with the given lengths: -(lenB-1) .. lenA-1.
func Lags(lenA, lenB int) []int {
	out := make([]int, lenA+lenB-1)
	for i := range out {
		out[i] = i - (lenB - 1)
	}

	return out
}

// LagFromIndex converts a correlation result index to a lag value.
func LagFromIndex(index, lenB int) int {
	return index - (lenB - 1)
}

// IndexFromLag converts a lag value to a correlation result index.
func IndexFromLag(lag, lenB int) int {
	return lag + (lenB - 1)
}

// PeakAbs returns the index and value of the sample with the largest
// magnitude. The value keeps its sign. Empty input yields (-1, 0).
func PeakAbs(corr []float64) (index int, value float64) {
	if len(corr) == 0 {
		return -1, 0
	}

	index = 0
	value = corr[0]
	best := abs(corr[0])

	for i, v := range corr {
		if a := abs(v); a > best {
			index = i
			value = v
			best = a
		}
	}

	return index, value
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}
