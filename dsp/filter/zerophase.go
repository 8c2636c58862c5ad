package filter

import (
	"errors"
	"fmt"
)

var (
	ErrNoSections = errors.New("filter: cascade has no sections")
	ErrTooShort   = errors.New("filter: input shorter than edge padding")
	ErrCutoff     = errors.New("filter: cutoff must lie in (0, Nyquist)")
	ErrOrder      = errors.New("filter: order must be positive")
	ErrSampleRate = errors.New("filter: sample rate must be positive")
)

// Lowpass runs a zero-phase Butterworth lowpass over x and returns the
// filtered copy. The cutoff is given in Hz and normalized against the
// Nyquist frequency; cutoffs at or above Nyquist are configuration faults,
// not silent pass-throughs.
func Lowpass(cutoffHz float64, order int, sampleRate float64, x []float64) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrSampleRate, sampleRate)
	}
	if order <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrOrder, order)
	}
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 {
		return nil, fmt.Errorf("%w: cutoff %g Hz at sample rate %g Hz", ErrCutoff, cutoffHz, sampleRate)
	}

	return ZeroPhase(ButterworthLP(cutoffHz, order, sampleRate), x)
}

// ZeroPhase filters x forward and backward through the cascade, cancelling
// the phase response. The result has the squared magnitude response of the
// cascade and the same length as x.
//
// Edge transients are suppressed by extending x with an odd reflection of
// 3*(order+1) samples at each end and starting every section from its
// steady state for the first padded sample. The input must be longer than
// the padding.
func ZeroPhase(sections []Coefficients, x []float64) ([]float64, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	padLen := 3 * (cascadeOrder(sections) + 1)
	if len(x) <= padLen {
		return nil, fmt.Errorf("%w: %d samples, %d pad", ErrTooShort, len(x), padLen)
	}

	ext := oddExtend(x, padLen)

	runSteadyCascade(sections, ext)
	reverse(ext)
	runSteadyCascade(sections, ext)
	reverse(ext)

	out := make([]float64, len(x))
	copy(out, ext[padLen:len(ext)-padLen])

	return out, nil
}

// runSteadyCascade applies each section over buf in place, seeding the
// delay line with the step-response steady state for buf[0]. The seed
// level for section i is buf[0] scaled by the DC gain of the preceding
// sections, so a constant input passes through the whole cascade without
// a startup transient.
func runSteadyCascade(sections []Coefficients, buf []float64) {
	level := buf[0]
	for _, c := range sections {
		var s Section
		s.Coefficients = c

		d0, d1 := steadyState(c)
		s.SetState([2]float64{d0 * level, d1 * level})
		s.ProcessBlock(buf)

		level *= c.DCGain()
	}
}

// steadyState solves the Direct Form II Transposed delay line for a unit
// constant input: with y = DCGain, d1 = B2 - A2*y and d0 = (B1+B2) - (A1+A2)*y.
func steadyState(c Coefficients) (d0, d1 float64) {
	y := c.DCGain()
	d1 = c.B2 - c.A2*y
	d0 = (c.B1 + c.B2) - (c.A1+c.A2)*y

	return d0, d1
}

// cascadeOrder sums section orders: 2 per full biquad, 1 per first-order tail.
func cascadeOrder(sections []Coefficients) int {
	order := 0
	for _, c := range sections {
		if c.FirstOrder() {
			order++
		} else {
			order += 2
		}
	}

	return order
}

// oddExtend returns x with n samples of odd reflection prepended and
// appended: the extension pivots around the end samples so both value and
// slope continue across the boundary.
func oddExtend(x []float64, n int) []float64 {
	ext := make([]float64, 0, len(x)+2*n)

	first, last := x[0], x[len(x)-1]
	for i := n; i >= 1; i-- {
		ext = append(ext, 2*first-x[i])
	}

	ext = append(ext, x...)

	for i := 1; i <= n; i++ {
		ext = append(ext, 2*last-x[len(x)-1-i])
	}

	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
