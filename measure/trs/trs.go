// Package trs computes test response spectra from shake-table
// acceleration records and reduces them onto sixth-octave reporting
// grids.
//
// The spectrum follows Smallwood's ramp-invariant recursion: each
// oscillator frequency maps onto a single biquad whose peak absolute
// response over the record is the spectrum value at that frequency.
package trs

import (
	"errors"
	"fmt"
	"math"

	"github.com/manwilld/data-processing-go/dsp/filter"
)

var (
	ErrEmpty     = errors.New("trs: empty record")
	ErrTimeStep  = errors.New("trs: time step must be positive")
	ErrDamping   = errors.New("trs: damping ratio must be in (0, 1)")
	ErrFrequency = errors.New("trs: oscillator frequency must be positive")
)

// Compute returns the test response spectrum of accel evaluated at each
// oscillator frequency in freqs. dt is the sample spacing in seconds and
// damping the oscillator damping ratio (0.05 for the usual 5 %).
//
// Each frequency runs one biquad over the whole record, so the cost is
// O(len(freqs) * len(accel)) with no allocation beyond the output.
func Compute(accel []float64, dt float64, freqs []float64, damping float64) ([]float64, error) {
	if len(accel) == 0 {
		return nil, ErrEmpty
	}

	if dt <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrTimeStep, dt)
	}

	if damping <= 0 || damping >= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrDamping, damping)
	}

	out := make([]float64, len(freqs))

	for j, f := range freqs {
		if f <= 0 {
			return nil, fmt.Errorf("%w: got %v at index %d", ErrFrequency, f, j)
		}

		out[j] = peakResponse(accel, oscillatorSection(f, dt, damping))
	}

	return out, nil
}

// oscillatorSection returns the ramp-invariant digital model of a
// single-degree-of-freedom oscillator with the given natural frequency.
// Its DC gain is exactly one, so a slow base motion passes through
// unscaled.
func oscillatorSection(freq, dt, damping float64) filter.Coefficients {
	omega := 2 * math.Pi * freq
	omegaD := omega * math.Sqrt(1-damping*damping)

	e := math.Exp(-damping * omega * dt)
	k := omegaD * dt
	c := e * math.Cos(k)
	s := e * math.Sin(k)
	sp := s / k

	return filter.Coefficients{
		B0: 1 - sp,
		B1: 2 * (sp - c),
		B2: e*e - sp,
		A1: -2 * c,
		A2: e * e,
	}
}

// peakResponse runs the oscillator over the record and returns the
// largest absolute output sample.
func peakResponse(accel []float64, c filter.Coefficients) float64 {
	sec := filter.Section{Coefficients: c}

	peak := 0.0

	for _, x := range accel {
		y := sec.ProcessSample(x)
		if y < 0 {
			y = -y
		}

		if y > peak {
			peak = y
		}
	}

	return peak
}
