// Package independence checks statistical independence of shake-table
// axis pairs.
//
// Multi-axis tests must drive each axis with an independent waveform.
// Two checks quantify that: the peak of the normalized cross-correlation
// (limit 0.3) and the peak magnitude-squared coherence over the
// qualification band (limit 0.5). Each check reports the peak and the
// acceptance factor limit/peak; a factor above one passes.
package independence

import (
	"errors"
	"fmt"
	"math"

	"github.com/manwilld/data-processing-go/dsp/octave"
	"github.com/manwilld/data-processing-go/dsp/spectral"
	"github.com/manwilld/data-processing-go/dsp/xcorr"
	"github.com/manwilld/data-processing-go/stats/series"
)

// Acceptance numerators per AC156 practice.
const (
	correlationLimit = 0.3
	coherenceLimit   = 0.5
)

const (
	defaultWindowSeconds = 1.25
	defaultGuardSeconds  = 5.0

	bandLowHz     = 1.3
	bandHighHz    = 33.3
	bandPerOctave = 72
)

var (
	ErrLengthMismatch = errors.New("independence: paired records must have equal length")
	ErrTimeStep       = errors.New("independence: time step must be positive")
	ErrSampleRate     = errors.New("independence: sample rate must be positive")
	ErrDegenerate     = errors.New("independence: degenerate input")
)

// Correlation is the normalized cross-correlation of one axis pair.
type Correlation struct {
	LagTime []float64 // lag axis in seconds
	Values  []float64 // dimensionless, near [-1, 1] for healthy inputs
	Peak    float64   // largest magnitude over all lags
	PeakLag float64   // lag in seconds where the peak occurs
	Factor  float64   // correlationLimit / Peak
}

// Pass reports whether the pair meets the correlation criterion.
func (c Correlation) Pass() bool { return c.Peak < correlationLimit }

// Correlate cross-correlates an axis pair and derives the acceptance
// factor. The sequence is normalized by n and both population standard
// deviations, so identical records correlate to one at zero lag.
func Correlate(a, b []float64, dt float64) (Correlation, error) {
	if len(a) != len(b) {
		return Correlation{}, fmt.Errorf("%w: %d vs %d samples", ErrLengthMismatch, len(a), len(b))
	}

	if dt <= 0 {
		return Correlation{}, fmt.Errorf("%w: got %v", ErrTimeStep, dt)
	}

	if len(a) == 0 {
		return Correlation{}, fmt.Errorf("%w: empty records", ErrDegenerate)
	}

	stdA := series.StdDev(a)
	stdB := series.StdDev(b)

	if stdA == 0 || stdB == 0 {
		return Correlation{}, fmt.Errorf("%w: constant channel", ErrDegenerate)
	}

	xc, err := xcorr.Full(a, b)
	if err != nil {
		return Correlation{}, err
	}

	norm := float64(len(a)) * stdA * stdB
	for i := range xc {
		xc[i] /= norm
	}

	idx, val := xcorr.PeakAbs(xc)

	peak := math.Abs(val)
	if peak == 0 {
		return Correlation{}, fmt.Errorf("%w: zero correlation peak", ErrDegenerate)
	}

	lags := xcorr.Lags(len(a), len(b))

	lagTime := make([]float64, len(lags))
	for i, l := range lags {
		lagTime[i] = float64(l) * dt
	}

	return Correlation{
		LagTime: lagTime,
		Values:  xc,
		Peak:    peak,
		PeakLag: lagTime[idx],
		Factor:  correlationLimit / peak,
	}, nil
}

// CoherenceConfig adjusts the Welch coherence estimate.
type CoherenceConfig struct {
	SampleRate float64

	// WindowSeconds is the Welch segment length in seconds; zero takes
	// 1.25 s. Overlap is fixed at half a segment.
	WindowSeconds float64

	// GuardSeconds is trimmed from each end of the records before
	// estimation to exclude ramp-up and ramp-down transients; zero takes
	// 5 s, negative disables the guard. The guard is skipped entirely
	// when it would consume half the record or more.
	GuardSeconds float64

	// Band holds the evaluation frequencies; empty takes the 1.3 to
	// 33.3 Hz 1/72-octave ladder.
	Band []float64
}

// Coherence is the magnitude-squared coherence of one axis pair,
// resampled onto the evaluation band.
type Coherence struct {
	Freq     []float64
	Values   []float64
	Peak     float64
	PeakFreq float64
	Factor   float64 // coherenceLimit / Peak
}

// Pass reports whether the pair meets the coherence criterion.
func (c Coherence) Pass() bool { return c.Peak < coherenceLimit }

// Cohere estimates the magnitude-squared coherence of an axis pair over
// the qualification band and derives the acceptance factor.
func Cohere(a, b []float64, cfg CoherenceConfig) (Coherence, error) {
	if len(a) != len(b) {
		return Coherence{}, fmt.Errorf("%w: %d vs %d samples", ErrLengthMismatch, len(a), len(b))
	}

	if cfg.SampleRate <= 0 {
		return Coherence{}, fmt.Errorf("%w: got %v", ErrSampleRate, cfg.SampleRate)
	}

	guard := cfg.GuardSeconds
	if guard == 0 {
		guard = defaultGuardSeconds
	}

	trim := 0
	if guard > 0 {
		trim = int(math.Round(guard * cfg.SampleRate))
	}

	if trim >= len(a)/2 {
		trim = 0
	}

	ta := a[trim : len(a)-trim]
	tb := b[trim : len(b)-trim]

	if len(ta) == 0 {
		return Coherence{}, fmt.Errorf("%w: empty records", ErrDegenerate)
	}

	winSec := cfg.WindowSeconds
	if winSec <= 0 {
		winSec = defaultWindowSeconds
	}

	freq, coh, err := spectral.CoherenceMS(ta, tb, spectral.Config{
		SampleRate:    cfg.SampleRate,
		SegmentLength: int(math.Round(cfg.SampleRate * winSec)),
		Overlap:       0.5,
	})
	if err != nil {
		return Coherence{}, err
	}

	band := cfg.Band
	if len(band) == 0 {
		grid, err := octave.New(bandLowHz, bandHighHz, bandPerOctave)
		if err != nil {
			return Coherence{}, err
		}

		band = grid.Freqs()
	}

	vals, err := spectral.InterpolateLinear(freq, coh, band)
	if err != nil {
		return Coherence{}, err
	}

	peak := 0.0
	peakFreq := band[0]

	for i, v := range vals {
		if v > peak {
			peak = v
			peakFreq = band[i]
		}
	}

	if peak == 0 {
		return Coherence{}, fmt.Errorf("%w: zero coherence peak", ErrDegenerate)
	}

	return Coherence{
		Freq:     band,
		Values:   vals,
		Peak:     peak,
		PeakFreq: peakFreq,
		Factor:   coherenceLimit / peak,
	}, nil
}
