// Package criteria derives shake-table demand levels and required
// response spectra for seismic qualification runs per ICC-ES AC156
// practice.
//
// The horizontal levels follow the selected ASCE 7 edition; the two
// editions round and clamp differently and are kept as separate formula
// variants. Vertical levels depend only on Sds and are shared. A second
// site demand, when present, envelopes the first.
package criteria

import (
	"errors"
	"fmt"
	"math"

	"github.com/manwilld/data-processing-go/dsp/octave"
)

var (
	ErrEdition     = errors.New("criteria: unknown standard edition")
	ErrDemand      = errors.New("criteria: invalid site demand")
	ErrHeightRatio = errors.New("criteria: height ratio must be within [0, 1]")
)

// Edition selects the ASCE 7 formula variant for the horizontal levels.
type Edition string

const (
	ASCE716 Edition = "ASCE7-16"
	ASCE722 Edition = "ASCE7-22"
)

// Direction selects a demand curve.
type Direction int

const (
	Horizontal Direction = iota
	Vertical
)

// DirectionFor maps a table axis label to its demand direction. Z is
// vertical; X, Y and the diagonal D share the horizontal curve.
func DirectionFor(axis string) Direction {
	if axis == "Z" {
		return Vertical
	}

	return Horizontal
}

// Spectrum break points in Hz: the flexible plateau spans plateauStartHz
// to plateauEndHz, and the rolloff reaches the rigid level at
// rigidStartHz, which is also the evaluation high cutoff.
const (
	plateauStartHz = 1.3
	plateauEndHz   = 8.3
	rigidStartHz   = 33.3
)

// AC156 low-frequency ramp constants, natural-log form.
const (
	k1 = 0.79015395365231482071
	n1 = 0.89771171750262309292
	n2 = 0.71978596791944049081
)

// Dense analysis grid defaults. The grid is trimmed so its length
// divides evenly into sixth-octave reporting sets.
const (
	defaultGridStartHz = 0.1
	defaultGridEndHz   = 38.0
	gridPerOctave      = 72
	reportPerOctave    = 6
)

// Site is one set of mapped spectral parameters: the short-period design
// acceleration Sds (g) and the equipment attachment height ratio z/h.
type Site struct {
	Sds         float64
	HeightRatio float64
}

// Input collects the run parameters the demand derivation needs. The
// component factors Ip, Ap, Rp and Omega0 ride along for reporting;
// AC156 shake-table levels do not consume them.
type Input struct {
	Edition      Edition
	Sites        []Site  // one or two; a second site envelopes the first
	LowResonance float64 // lowest fixture resonance in Hz

	Ip, Ap, Rp, Omega0 float64

	// Grid span overrides; zero values take the 0.1 to 38 Hz defaults.
	GridStart, GridEnd float64
}

// Demand is the derived qualification demand for one run: spectral
// levels per direction, evaluation cutoffs, the dense analysis grid and
// the required spectra evaluated on it.
type Demand struct {
	Edition Edition

	AflxH, ArigH float64
	AflxV, ArigV float64

	// Arig90H and Arig90V are exactly 0.9 times the rigid levels.
	Arig90H, Arig90V float64

	LowCutoff    float64
	HighCutoff   float64
	LowResonance float64

	// Spectrum break points: the flexible plateau spans PlateauStart to
	// PlateauEnd; the rolloff reaches the rigid level at RigidStart.
	PlateauStart, PlateauEnd, RigidStart float64

	Grid octave.Grid
	RRSH []float64
	RRSV []float64

	Ip, Ap, Rp, Omega0 float64
}

// Derive computes the demand for one run.
func Derive(in Input) (*Demand, error) {
	if in.Edition != ASCE716 && in.Edition != ASCE722 {
		return nil, fmt.Errorf("%w: %q", ErrEdition, in.Edition)
	}

	if len(in.Sites) == 0 || len(in.Sites) > 2 {
		return nil, fmt.Errorf("%w: need one or two sites, got %d", ErrDemand, len(in.Sites))
	}

	for i, s := range in.Sites {
		if s.Sds <= 0 {
			return nil, fmt.Errorf("%w: site %d Sds %v", ErrDemand, i+1, s.Sds)
		}

		if s.HeightRatio < 0 || s.HeightRatio > 1 {
			return nil, fmt.Errorf("%w: site %d z/h %v", ErrHeightRatio, i+1, s.HeightRatio)
		}
	}

	var aflxH, arigH float64

	switch in.Edition {
	case ASCE722:
		aflxH, arigH = horizontal22(in.Sites)
	case ASCE716:
		aflxH, arigH = horizontal16(in.Sites)
	}

	aflxV, arigV := vertical(in.Sites)

	if aflxH <= 0 || arigH <= 0 || aflxV <= 0 || arigV <= 0 {
		return nil, fmt.Errorf("%w: derived levels round to zero (Sds too small)", ErrDemand)
	}

	start, end := in.GridStart, in.GridEnd
	if start <= 0 {
		start = defaultGridStartHz
	}

	if end <= 0 {
		end = defaultGridEndHz
	}

	grid, err := octave.New(start, end, gridPerOctave)
	if err != nil {
		return nil, err
	}

	grid = grid.AlignTo(gridPerOctave / reportPerOctave)

	return &Demand{
		Edition: in.Edition,

		AflxH: aflxH, ArigH: arigH,
		AflxV: aflxV, ArigV: arigV,
		Arig90H: 0.9 * arigH,
		Arig90V: 0.9 * arigV,

		LowCutoff:    lowCutoff(in.LowResonance),
		HighCutoff:   rigidStartHz,
		LowResonance: in.LowResonance,

		PlateauStart: plateauStartHz,
		PlateauEnd:   plateauEndHz,
		RigidStart:   rigidStartHz,

		Grid: grid,
		RRSH: RRS(grid.Freqs(), aflxH, arigH),
		RRSV: RRS(grid.Freqs(), aflxV, arigV),

		Ip: in.Ip, Ap: in.Ap, Rp: in.Rp, Omega0: in.Omega0,
	}, nil
}

// RRSFor returns the dense required spectrum for the direction.
func (d *Demand) RRSFor(dir Direction) []float64 {
	if dir == Vertical {
		return d.RRSV
	}

	return d.RRSH
}

// Levels returns (Aflx, Arig) for the direction.
func (d *Demand) Levels(dir Direction) (aflx, arig float64) {
	if dir == Vertical {
		return d.AflxV, d.ArigV
	}

	return d.AflxH, d.ArigH
}

// Arig90For returns the 90 % rigid level for the direction.
func (d *Demand) Arig90For(dir Direction) float64 {
	if dir == Vertical {
		return d.Arig90V
	}

	return d.Arig90H
}

// RRS evaluates the AC156 spectrum shape over freqs for the given
// flexible and rigid levels (both must be positive): a power-law ramp up
// to the plateau start, the flexible plateau, a log-log rolloff reaching
// the rigid level at the ZPA frequency, and flat beyond it.
func RRS(freqs []float64, aflx, arig float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = rrsAt(f, aflx, arig)
	}

	return out
}

func rrsAt(f, aflx, arig float64) float64 {
	switch {
	case f <= plateauStartHz:
		return k1 * aflx * math.Pow(f, n1)
	case f <= plateauEndHz:
		return aflx
	case f <= rigidStartHz:
		slope := n2 * math.Log(aflx/arig)
		return math.Pow(rigidStartHz, slope) * arig * math.Pow(f, -slope)
	default:
		return arig
	}
}

// horizontal22 derives the horizontal levels per ASCE 7-22: the height
// factor Hf replaces the 7-16 (1 + 2 z/h) amplification and a response
// reduction Ru applies above grade. The second site's rigid term
// carries no 1.6 Sds cap.
func horizontal22(sites []Site) (aflx, arig float64) {
	s := sites[0]
	hf := round2(1 + 2.5*s.HeightRatio)
	ru := reduction22(s.HeightRatio)

	aflx = round2(math.Min(1.6*s.Sds, s.Sds*hf/ru))
	arig = round2(math.Min(1.6*s.Sds, 0.4*s.Sds*hf/ru))

	if len(sites) == 2 {
		s = sites[1]
		hf = round2(1 + 2.5*s.HeightRatio)
		ru = reduction22(s.HeightRatio)

		aflx = round2(math.Max(aflx, math.Min(1.6*s.Sds, s.Sds*hf/ru)))
		arig = round2(math.Max(arig, 0.4*s.Sds*hf/ru))
	}

	return aflx, arig
}

func reduction22(heightRatio float64) float64 {
	if heightRatio > 0 {
		return 1.3
	}

	return 1.0
}

// horizontal16 derives the horizontal levels per ASCE 7-16.
func horizontal16(sites []Site) (aflx, arig float64) {
	s := sites[0]
	amp := 1 + 2*s.HeightRatio

	aflx = round2(math.Min(1.6*s.Sds, s.Sds*amp))
	arig = round2(0.4 * s.Sds * amp)

	if len(sites) == 2 {
		s = sites[1]
		amp = 1 + 2*s.HeightRatio

		aflx = round2(math.Max(aflx, math.Min(1.6*s.Sds, s.Sds*amp)))
		arig = round2(math.Max(arig, 0.4*s.Sds*amp))
	}

	return aflx, arig
}

// vertical levels depend only on Sds; both editions share them.
func vertical(sites []Site) (aflx, arig float64) {
	aflx = round2(0.67 * sites[0].Sds)
	arig = round2(0.27 * sites[0].Sds)

	if len(sites) == 2 {
		aflx = round2(math.Max(aflx, 0.67*sites[1].Sds))
		arig = round2(math.Max(arig, 0.27*sites[1].Sds))
	}

	return aflx, arig
}

// lowCutoff clamps three quarters of the lowest resonance into the
// 1.3 to 3.5 Hz window, then rounds up to the next tenth.
func lowCutoff(lowResonance float64) float64 {
	c := math.Max(plateauStartHz, math.Min(3.5, 0.75*lowResonance))

	return math.Ceil(c*10) / 10
}

// round2 rounds to two decimals, the resolution AC156 levels are
// published at.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
