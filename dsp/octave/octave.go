// Package octave builds fractional-octave frequency grids.
//
// Qualification spectra are evaluated on logarithmic grids with a fixed
// number of points per octave: the dense analysis grid uses 72, the
// reporting grid 6, so one sparse point covers a stride of 12 dense points.
package octave

import (
	"errors"
	"fmt"
	"math"
)

var ErrGrid = errors.New("octave: invalid grid parameters")

// Grid is an immutable fractional-octave frequency ladder.
type Grid struct {
	freqs     []float64
	perOctave int
}

// New returns the grid start * 2^(j/perOctave) for j = 0, 1, ... while the
// value does not exceed end.
func New(start, end float64, perOctave int) (Grid, error) {
	if perOctave <= 0 {
		return Grid{}, fmt.Errorf("%w: %d points per octave", ErrGrid, perOctave)
	}
	if start <= 0 || end <= start || math.IsNaN(start) || math.IsInf(end, 0) {
		return Grid{}, fmt.Errorf("%w: span [%g, %g]", ErrGrid, start, end)
	}

	n := int(math.Floor(float64(perOctave)*math.Log2(end/start))) + 1
	freqs := make([]float64, 0, n+1)

	for j := 0; ; j++ {
		f := start * math.Pow(2, float64(j)/float64(perOctave))
		if f > end {
			break
		}

		freqs = append(freqs, f)
	}

	return Grid{freqs: freqs, perOctave: perOctave}, nil
}

// Freqs returns the grid frequencies in ascending order. The slice is
// shared; callers must not modify it.
func (g Grid) Freqs() []float64 { return g.freqs }

// Len returns the number of grid points.
func (g Grid) Len() int { return len(g.freqs) }

// PerOctave returns the grid density.
func (g Grid) PerOctave() int { return g.perOctave }

// AlignTo drops trailing points until the length is a multiple of stride.
// Aligning an empty grid or to stride <= 0 returns the grid unchanged.
func (g Grid) AlignTo(stride int) Grid {
	if stride <= 0 || g.Len() == 0 {
		return g
	}

	n := g.Len() - g.Len()%stride

	return Grid{freqs: g.freqs[:n], perOctave: g.perOctave}
}

// Decimated returns the grid frequencies starting at offset with the given
// stride.
func (g Grid) Decimated(offset, stride int) []float64 {
	return Decimate(g.freqs, offset, stride)
}

// Decimate returns every stride-th element of x starting at offset.
func Decimate(x []float64, offset, stride int) []float64 {
	if stride <= 0 || offset < 0 || offset >= len(x) {
		return nil
	}

	out := make([]float64, 0, (len(x)-offset+stride-1)/stride)
	for i := offset; i < len(x); i += stride {
		out = append(out, x[i])
	}

	return out
}
