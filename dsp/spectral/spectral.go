// Package spectral estimates power spectra, cross spectra, and coherence
// with Welch's method of averaged modified periodograms.
//
// Estimates follow the density convention: one-sided, scaled by
// 1/(rate * sum(w^2)), with interior bins doubled. Segments are mean
// detrended and Hann tapered by default, matching the settings the
// qualification procedures were validated against.
package spectral

import (
	"errors"
	"fmt"
	"sort"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/manwilld/data-processing-go/dsp/window"
)

var (
	ErrEmpty          = errors.New("spectral: empty input")
	ErrLengthMismatch = errors.New("spectral: input length mismatch")
	ErrSampleRate     = errors.New("spectral: sample rate must be positive")
	ErrOverlap        = errors.New("spectral: overlap fraction out of range")
)

// Config holds Welch estimation parameters. Zero values select the
// defaults: 256-sample segments, 50% overlap, periodic Hann window,
// per-segment mean removal. Rectangular tapering is not offered; the
// zero Window value maps to Hann.
type Config struct {
	SampleRate    float64
	SegmentLength int
	Overlap       float64 // fraction of a segment, in [0, 1)
	Window        window.Type
	KeepMean      bool // skip per-segment mean detrending
}

const (
	defaultSegmentLength = 256
	defaultOverlap       = 0.5
)

func (cfg Config) withDefaults() Config {
	if cfg.SegmentLength <= 0 {
		cfg.SegmentLength = defaultSegmentLength
	}

	if cfg.Overlap == 0 {
		cfg.Overlap = defaultOverlap
	}

	if cfg.Window == window.TypeRectangular {
		cfg.Window = window.TypeHann
	}

	return cfg
}

// PSD estimates the one-sided power spectral density of x.
func PSD(x []float64, cfg Config) (freq, pxx []float64, err error) {
	freq, cross, err := CSD(x, x, cfg)
	if err != nil {
		return nil, nil, err
	}

	pxx = make([]float64, len(cross))
	for i, c := range cross {
		pxx[i] = real(c)
	}

	return freq, pxx, nil
}

// CSD estimates the one-sided cross power spectral density conj(X)*Y of
// x and y, averaged over overlapping segments.
func CSD(x, y []float64, cfg Config) (freq []float64, pxy []complex128, err error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, nil, ErrEmpty
	}

	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d vs %d samples", ErrLengthMismatch, len(x), len(y))
	}

	cfg = cfg.withDefaults()
	if cfg.SampleRate <= 0 {
		return nil, nil, fmt.Errorf("%w: got %g", ErrSampleRate, cfg.SampleRate)
	}

	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return nil, nil, fmt.Errorf("%w: overlap fraction %g", ErrOverlap, cfg.Overlap)
	}

	// Records shorter than one segment degrade to a single segment.
	segLen := cfg.SegmentLength
	if segLen > len(x) {
		segLen = len(x)
	}

	hop := segLen - int(cfg.Overlap*float64(segLen))

	fftSize := nextPowerOf2(segLen)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, nil, fmt.Errorf("spectral: failed to create FFT plan: %w", err)
	}

	win := window.Generate(cfg.Window, segLen, window.WithPeriodic())
	winPower := window.Power(win)

	bins := fftSize/2 + 1
	acc := make([]complex128, bins)

	segX := make([]float64, segLen)
	segY := make([]float64, segLen)
	inX := make([]complex128, fftSize)
	inY := make([]complex128, fftSize)
	outX := make([]complex128, fftSize)
	outY := make([]complex128, fftSize)

	segments := 1 + (len(x)-segLen)/hop
	for s := 0; s < segments; s++ {
		start := s * hop

		prepareSegment(segX, x[start:start+segLen], win, cfg.KeepMean)
		prepareSegment(segY, y[start:start+segLen], win, cfg.KeepMean)

		for i := 0; i < segLen; i++ {
			inX[i] = complex(segX[i], 0)
			inY[i] = complex(segY[i], 0)
		}

		if err := plan.Forward(outX, inX); err != nil {
			return nil, nil, fmt.Errorf("spectral: forward FFT failed: %w", err)
		}

		if err := plan.Forward(outY, inY); err != nil {
			return nil, nil, fmt.Errorf("spectral: forward FFT failed: %w", err)
		}

		for k := 0; k < bins; k++ {
			xc := complex(real(outX[k]), -imag(outX[k]))
			acc[k] += xc * outY[k]
		}
	}

	// Average, density-scale, and fold to one side. DC and Nyquist have no
	// mirror bin and are not doubled.
	scale := 1 / (cfg.SampleRate * winPower * float64(segments))
	for k := range acc {
		factor := scale
		if k != 0 && k != bins-1 {
			factor *= 2
		}

		acc[k] *= complex(factor, 0)
	}

	freq = make([]float64, bins)
	for k := range freq {
		freq[k] = float64(k) * cfg.SampleRate / float64(fftSize)
	}

	return freq, acc, nil
}

// CoherenceMS estimates the magnitude-squared coherence
// |Pxy|^2 / (Pxx * Pyy) of x and y. Bins where either auto spectrum
// vanishes are reported as zero coherence.
func CoherenceMS(x, y []float64, cfg Config) (freq, coh []float64, err error) {
	freq, pxy, err := CSD(x, y, cfg)
	if err != nil {
		return nil, nil, err
	}

	_, pxx, err := PSD(x, cfg)
	if err != nil {
		return nil, nil, err
	}

	_, pyy, err := PSD(y, cfg)
	if err != nil {
		return nil, nil, err
	}

	crossPower := magnitudeSquared(pxy)

	coh = make([]float64, len(crossPower))
	for k := range coh {
		den := pxx[k] * pyy[k]
		if den <= 0 {
			continue
		}

		coh[k] = crossPower[k] / den
	}

	return freq, coh, nil
}

// InterpolateLinear performs piecewise-linear interpolation at queryX.
// Queries outside the x range clamp to the end values.
//
// x must be strictly increasing and have the same length as y.
func InterpolateLinear(x, y, queryX []float64) ([]float64, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, ErrEmpty
	}

	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x values for %d y values", ErrLengthMismatch, len(x), len(y))
	}

	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return nil, fmt.Errorf("spectral: interpolation x must be strictly increasing at index %d", i)
		}
	}

	out := make([]float64, len(queryX))
	for i, q := range queryX {
		if q <= x[0] {
			out[i] = y[0]
			continue
		}

		if q >= x[len(x)-1] {
			out[i] = y[len(y)-1]
			continue
		}

		j := sort.SearchFloat64s(x, q)
		x0, x1 := x[j-1], x[j]
		t := (q - x0) / (x1 - x0)
		out[i] = y[j-1] + t*(y[j]-y[j-1])
	}

	return out, nil
}

// prepareSegment copies src into dst, removes the segment mean unless
// keepMean is set, and applies the window taper.
func prepareSegment(dst, src, win []float64, keepMean bool) {
	copy(dst, src)

	if !keepMean {
		mean := 0.0
		for _, v := range dst {
			mean += v
		}

		mean /= float64(len(dst))
		for i := range dst {
			dst[i] -= mean
		}
	}

	vecmath.MulBlockInPlace(dst, win)
}

// magnitudeSquared returns |c|^2 per bin using the vector kernels.
func magnitudeSquared(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	re := make([]float64, len(in))
	im := make([]float64, len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(in))
	vecmath.Power(out, re, im)

	return out
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}
