// Package testutil provides deterministic signals and tolerance asserts
// shared by package tests.
package testutil

import (
	"math"
	"math/rand"
)

// Sine returns n samples of amplitude*sin(2*pi*freq*t) at the given rate.
func Sine(freqHz, rate, amplitude float64, n int) []float64 {
	out := make([]float64, n)

	step := 2 * math.Pi * freqHz / rate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// Noise returns n samples of seeded unit-variance Gaussian noise.
func Noise(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))

	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}

	return out
}

// Impulse returns n zeros with a one at pos. An out-of-range pos yields
// all zeros.
func Impulse(n, pos int) []float64 {
	out := make([]float64, n)
	if pos >= 0 && pos < n {
		out[pos] = 1
	}

	return out
}

// Constant returns n copies of v.
func Constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}
