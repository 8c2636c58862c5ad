package trs

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/manwilld/data-processing-go/dsp/octave"
)

// Stride is the number of dense 1/72-octave points per sixth-octave step.
const Stride = 12

// splitFreqHz divides the evaluation band into its low and high halves
// when counting repeated dips.
const splitFreqHz = 8.3

const (
	defaultLowCutoffHz  = 1.3
	defaultHighCutoffHz = 33.3
)

var (
	ErrLengthMismatch = errors.New("trs: freq, trs and rrs must have equal length")
	ErrGridAlignment  = errors.New("trs: dense grid length must be a positive multiple of the stride")
	ErrBand           = errors.New("trs: cutoff band must satisfy 0 < low < high")
	ErrDemand         = errors.New("trs: required spectrum values must be positive")
)

// Scorer rates one sixth-octave candidate set against the required
// spectrum. Higher is better; the default is Score.
type Scorer func(freq, trs, rrs []float64, low, high float64) float64

// Option adjusts an Optimize call.
type Option func(*config)

type config struct {
	low, high float64
	scan      bool
	scorer    Scorer
}

// WithBand sets the evaluation band in Hz. The defaults cover 1.3 to
// 33.3 Hz.
func WithBand(low, high float64) Option {
	return func(c *config) {
		c.low = low
		c.high = high
	}
}

// WithOffsetScan enables the twelve-offset search used for the table
// control channel. Response channels keep offset zero so their spectra
// stay comparable to the control.
func WithOffsetScan() Option {
	return func(c *config) {
		c.scan = true
	}
}

// WithScorer overrides the candidate rating function.
func WithScorer(s Scorer) Option {
	return func(c *config) {
		c.scorer = s
	}
}

// Result is the sixth-octave reduction chosen for one channel.
type Result struct {
	// Offset is the chosen start index into the dense grid.
	Offset int

	// Freq, TRS and Margin hold the decimated frequency axis, the
	// spectrum values and the per-point TRS/RRS ratios at the chosen
	// offset. A point with margin >= 1 meets the requirement.
	Freq   []float64
	TRS    []float64
	Margin []float64

	// Factor is the score of the chosen offset.
	Factor float64

	// Scores lists the score per start offset. Without the offset scan
	// only entry zero is populated.
	Scores [Stride]float64
}

// Optimize reduces a dense 1/72-octave spectrum to the sixth-octave
// grid. freq must be ascending and all three slices aligned: same
// length, a positive multiple of Stride.
//
// With WithOffsetScan every start offset 0..11 is scored and the
// strictly best one wins, ties going to the lowest offset. Otherwise
// offset zero is used and only scored for reporting.
func Optimize(freq, trs, rrs []float64, opts ...Option) (Result, error) {
	cfg := config{
		low:    defaultLowCutoffHz,
		high:   defaultHighCutoffHz,
		scorer: Score,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(trs) != len(freq) || len(rrs) != len(freq) {
		return Result{}, fmt.Errorf("%w: freq %d, trs %d, rrs %d",
			ErrLengthMismatch, len(freq), len(trs), len(rrs))
	}

	if len(freq) < Stride || len(freq)%Stride != 0 {
		return Result{}, fmt.Errorf("%w: got %d points", ErrGridAlignment, len(freq))
	}

	if cfg.low <= 0 || cfg.high <= cfg.low {
		return Result{}, fmt.Errorf("%w: low %v, high %v", ErrBand, cfg.low, cfg.high)
	}

	for i, r := range rrs {
		if r <= 0 {
			return Result{}, fmt.Errorf("%w: got %v at index %d", ErrDemand, r, i)
		}
	}

	var res Result

	if cfg.scan {
		best := 0.0

		for off := 0; off < Stride; off++ {
			score := cfg.scorer(
				octave.Decimate(freq, off, Stride),
				octave.Decimate(trs, off, Stride),
				octave.Decimate(rrs, off, Stride),
				cfg.low, cfg.high,
			)
			res.Scores[off] = score

			if score > best {
				best = score
				res.Offset = off
			}
		}
	} else {
		res.Scores[0] = cfg.scorer(
			octave.Decimate(freq, 0, Stride),
			octave.Decimate(trs, 0, Stride),
			octave.Decimate(rrs, 0, Stride),
			cfg.low, cfg.high,
		)
	}

	res.Factor = res.Scores[res.Offset]
	res.Freq = octave.Decimate(freq, res.Offset, Stride)
	res.TRS = octave.Decimate(trs, res.Offset, Stride)

	sparseRRS := octave.Decimate(rrs, res.Offset, Stride)
	res.Margin = make([]float64, len(res.TRS))

	for i := range res.Margin {
		res.Margin[i] = res.TRS[i] / sparseRRS[i]
	}

	return res, nil
}

// Score rates one sixth-octave set against the required spectrum. It is
// the default Scorer used by Optimize.
//
// Points inside [low, high] count, plus the nearest grid point on each
// side so the band edges stay covered. Three factors multiply:
//
//  1. the deepest dip, normalized so it lands on 90 % of the requirement,
//  2. the worst consecutive pair still below the raised requirement,
//  3. the third-smallest ratio when either half of the band, split at
//     8.3 Hz, holds three or more remaining dips.
//
// freq must be ascending and rrs positive. An empty set scores zero.
func Score(freq, trs, rrs []float64, low, high float64) float64 {
	start, stop := bandIndices(freq, low, high)
	if start >= stop {
		return 0
	}

	freq = freq[start:stop]
	trs = trs[start:stop]
	rrs = rrs[start:stop]

	// Deepest dip against 90 % of the requirement.
	f1 := math.Inf(1)

	for i := range trs {
		if r := trs[i] / rrs[i]; r < f1 {
			f1 = r
		}
	}

	f1 /= 0.9

	// Worst consecutive pair below the requirement raised by the first
	// factor.
	f2 := 1.0
	prev := trs[0] / (rrs[0] * f1)

	for i := 1; i < len(trs); i++ {
		cur := trs[i] / (rrs[i] * f1)
		if prev < 1 && cur < 1 {
			if worst := math.Max(prev, cur); worst < f2 {
				f2 = worst
			}
		}

		prev = cur
	}

	// Three or more remaining dips within either half of the band.
	scale := f1 * f2

	var lowDips, highDips []float64

	for i := range trs {
		r := trs[i] / (rrs[i] * scale)
		if r < 1 {
			if freq[i] <= splitFreqHz {
				lowDips = append(lowDips, r)
			} else {
				highDips = append(highDips, r)
			}
		}
	}

	f3 := 1.0
	if v, ok := thirdSmallest(lowDips); ok && v < f3 {
		f3 = v
	}

	if v, ok := thirdSmallest(highDips); ok && v < f3 {
		f3 = v
	}

	return f1 * f2 * f3
}

// bandIndices returns the half-open range of grid points to score: every
// point inside [low, high] plus the nearest neighbor on each side.
func bandIndices(freq []float64, low, high float64) (int, int) {
	start := sort.SearchFloat64s(freq, low)
	if start > 0 {
		start--
	}

	stop := sort.Search(len(freq), func(i int) bool { return freq[i] > high })
	if stop < len(freq) {
		stop++
	}

	return start, stop
}

func thirdSmallest(v []float64) (float64, bool) {
	if len(v) < 3 {
		return 0, false
	}

	sort.Float64s(v)

	return v[2], true
}
