// Package filter implements the lowpass conditioning applied to recorded
// accelerometer channels before spectrum computation: Butterworth designs
// realized as cascades of second-order sections, run forward and backward
// for zero phase distortion.
package filter

import "math"

// ButterworthLP designs a lowpass Butterworth cascade at freq (Hz).
//
// The cascade holds order/2 second-order sections with the Butterworth
// pole quality factors; odd orders append a first-order tail section
// (B2=A2=0). Invalid parameters (order <= 0, freq outside (0, Nyquist),
// sampleRate <= 0) yield nil.
func ButterworthLP(freq float64, order int, sampleRate float64) []Coefficients {
	if order <= 0 || !validBand(freq, sampleRate) {
		return nil
	}
	sections := make([]Coefficients, 0, (order+1)/2)

	n2 := order / 2
	for i := n2 - 1; i >= 0; i-- {
		q := butterworthQ(order, i)
		sections = append(sections, lowpassSection(freq, q, sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderLP(freq, sampleRate))
	}
	return sections
}

// butterworthQ returns the quality factor for a Butterworth filter section.
// index ranges from 0 to (order/2 - 1) for the biquad sections.
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))

	s := math.Sin(theta)
	if s == 0 {
		return 1 / math.Sqrt2 // default Q
	}

	return 1 / (2 * s)
}

// lowpassSection designs a single bilinear-transformed lowpass biquad at
// freq (Hz) with quality factor q. The analog prototype cutoff is prewarped
// so the digital -3 dB point lands on freq.
func lowpassSection(freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	b0 := (1 - cw) / 2
	b1 := 1 - cw
	b2 := (1 - cw) / 2
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// firstOrderLP designs a first-order lowpass Butterworth section.
// Used for odd-order cascades.
func firstOrderLP(freq, sampleRate float64) Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return Coefficients{
		B0: k * norm,
		B1: k * norm,
		B2: 0,
		A1: (k - 1) * norm,
		A2: 0,
	}
}

func validBand(freq, sampleRate float64) bool {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return false
	}

	return freq > 0 && freq < sampleRate/2 && !math.IsNaN(freq)
}
