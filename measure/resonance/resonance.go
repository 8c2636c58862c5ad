// Package resonance locates equipment resonances from shake-table data.
//
// A resonance search drives the table with low-level broadband motion and
// compares each response accelerometer against the table reference. The
// transmissibility magnitude |Pxy|/Pxx rises above one near a structural
// resonance; its global peak is the reported natural frequency. Swept-sine
// controllers deliver magnitude spectra directly, covered by FromSpectra.
package resonance

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/manwilld/data-processing-go/dsp/spectral"
)

// defaultHighCutoffHz bounds the reported band just above the 33.3 Hz
// qualification limit so the rigid plateau stays visible.
const defaultHighCutoffHz = 35.1

var (
	ErrLengthMismatch = errors.New("resonance: records must have equal length")
	ErrDegenerate     = errors.New("resonance: degenerate input")
)

// Config adjusts the Welch transmissibility estimate.
type Config struct {
	SampleRate float64

	// SegmentLength is the Welch segment in samples; zero takes 256.
	// Segments overlap by half and carry a Hann window.
	SegmentLength int

	// HighCutoff bounds the reported band to (0, HighCutoff] Hz; zero
	// takes 35.1 Hz.
	HighCutoff float64
}

// Result is a transmissibility curve with its dominant peak.
type Result struct {
	Freq     []float64
	Mag      []float64
	PeakFreq float64
	PeakMag  float64
}

// Estimate computes the transmissibility between a table reference and a
// response channel as |Pxy| / Pxx over averaged Welch spectra, then
// locates the dominant peak within the reported band.
func Estimate(ref, resp []float64, cfg Config) (Result, error) {
	if len(ref) != len(resp) {
		return Result{}, fmt.Errorf("%w: %d vs %d samples", ErrLengthMismatch, len(ref), len(resp))
	}

	scfg := spectral.Config{
		SampleRate:    cfg.SampleRate,
		SegmentLength: cfg.SegmentLength,
		Overlap:       0.5,
	}

	freq, pxy, err := spectral.CSD(ref, resp, scfg)
	if err != nil {
		return Result{}, err
	}

	_, pxx, err := spectral.PSD(ref, scfg)
	if err != nil {
		return Result{}, err
	}

	cutoff := cfg.HighCutoff
	if cutoff <= 0 {
		cutoff = defaultHighCutoffHz
	}

	var outF, outM []float64

	for k, f := range freq {
		if f <= 0 || f > cutoff {
			continue
		}

		if pxx[k] == 0 {
			return Result{}, fmt.Errorf("%w: zero reference power at %g Hz", ErrDegenerate, f)
		}

		outF = append(outF, f)
		outM = append(outM, cmplx.Abs(pxy[k])/pxx[k])
	}

	if len(outF) == 0 {
		return Result{}, fmt.Errorf("%w: no spectral bins below %g Hz", ErrDegenerate, cutoff)
	}

	pf, pm := Peak(outF, outM)

	return Result{Freq: outF, Mag: outM, PeakFreq: pf, PeakMag: pm}, nil
}

// FromSpectra forms transmissibility from already-measured magnitude
// spectra, as delivered by swept-sine controller tables.
func FromSpectra(freq, ref, resp []float64) (Result, error) {
	if len(freq) != len(ref) || len(freq) != len(resp) {
		return Result{}, fmt.Errorf("%w: %d freq, %d ref, %d resp", ErrLengthMismatch, len(freq), len(ref), len(resp))
	}

	if len(freq) == 0 {
		return Result{}, fmt.Errorf("%w: empty spectra", ErrDegenerate)
	}

	mag := make([]float64, len(freq))

	for i := range freq {
		if ref[i] == 0 {
			return Result{}, fmt.Errorf("%w: zero reference at %g Hz", ErrDegenerate, freq[i])
		}

		mag[i] = resp[i] / ref[i]
	}

	outF := append([]float64(nil), freq...)

	pf, pm := Peak(outF, mag)

	return Result{Freq: outF, Mag: mag, PeakFreq: pf, PeakMag: pm}, nil
}

// Peak returns the global maximum of a transmissibility curve. Exact
// magnitude ties resolve to the lowest frequency. Empty input yields
// zeros.
func Peak(freq, mag []float64) (peakFreq, peakMag float64) {
	if len(freq) == 0 || len(freq) != len(mag) {
		return 0, 0
	}

	best := 0
	for i := 1; i < len(mag); i++ {
		if mag[i] > mag[best] || (mag[i] == mag[best] && freq[i] < freq[best]) {
			best = i
		}
	}

	return freq[best], mag[best]
}

// HintAgrees reports whether a configured natural-frequency hint lies
// within a tenth of an octave of the measured peak. Hints are sanity
// checks against stale calibration data; the reported peak stays
// data-driven either way.
func HintAgrees(hint, peakFreq float64) bool {
	if hint <= 0 || peakFreq <= 0 {
		return false
	}

	return math.Abs(math.Log2(peakFreq/hint)) <= 0.1
}
