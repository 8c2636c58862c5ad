// Package config loads and validates YAML run configurations.
//
// One document describes one test run. A seismic section drives the
// qualification pipeline (TRS vs RRS, cross-axis independence); a
// resonance section drives the transmissibility search. Relative file
// paths resolve against the directory holding the config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/manwilld/data-processing-go/criteria"
)

// ReferenceLocation is the location label of the shake-table control
// channel. Reference channels get the optimizer offset scan; response
// channels do not.
const ReferenceLocation = "Table"

const (
	defaultDamping       = 0.05
	defaultTimeUnit      = "ms"
	defaultWindowSeconds = 1.25
	defaultHighCutoffHz  = 35.1
	defaultOrientation   = "SS"
)

var (
	ErrMissing   = errors.New("config: missing required field")
	ErrValue     = errors.New("config: invalid value")
	ErrFile      = errors.New("config: referenced file not found")
	ErrDuplicate = errors.New("config: duplicate name")
)

// Run is one test run: a name, an output directory and at least one of
// the two analysis sections.
type Run struct {
	Name      string     `yaml:"run_name"`
	OutputDir string     `yaml:"output_dir"`
	Seismic   *Seismic   `yaml:"seismic"`
	Resonance *Resonance `yaml:"resonance"`
}

// Seismic describes a time-domain qualification run.
type Seismic struct {
	File     string            `yaml:"file"`
	Columns  map[string]string `yaml:"columns"` // logical channel -> raw CSV header
	TimeUnit string            `yaml:"time_unit"`

	TrimStart float64 `yaml:"trim_start"` // seconds discarded from the head
	Duration  float64 `yaml:"duration"`   // seconds kept after the trim; zero keeps all

	Axes   []string `yaml:"axes"`
	Accels []string `yaml:"accels"` // response locations, in report order

	Damping       float64 `yaml:"damping"`
	WindowSeconds float64 `yaml:"window_seconds"` // coherence segment length

	Filters map[string]Lowpass `yaml:"filters"` // per logical channel

	Demand Demand `yaml:"demand"`
}

// Lowpass is one channel's conditioning filter.
type Lowpass struct {
	Order    int     `yaml:"order"`
	CutoffHz float64 `yaml:"cutoff_hz"`
}

// Demand carries the qualification-standard inputs for criteria.Derive.
type Demand struct {
	Edition      string  `yaml:"edition"`
	Sites        []Site  `yaml:"sites"`
	LowResonance float64 `yaml:"low_resonance"`

	Ip     float64 `yaml:"ip"`
	Ap     float64 `yaml:"ap"`
	Rp     float64 `yaml:"rp"`
	Omega0 float64 `yaml:"omega0"`

	GridStart float64 `yaml:"grid_start"`
	GridEnd   float64 `yaml:"grid_end"`
}

// Site is one site demand; a second entry envelopes the first.
type Site struct {
	Sds         float64 `yaml:"sds"`
	HeightRatio float64 `yaml:"z_h"`
}

// Resonance describes a resonance search run.
type Resonance struct {
	Axes  []string          `yaml:"axes"`
	Files map[string]string `yaml:"files"` // axis -> CSV path

	// Columns maps, per axis, logical channel names to raw CSV headers.
	Columns map[string]map[string]string `yaml:"columns"`

	// Spectra marks the files as swept-sine magnitude tables (frequency
	// column plus per-channel magnitudes) instead of time histories.
	Spectra bool `yaml:"spectra"`

	TimeUnit      string  `yaml:"time_unit"`
	HighCutoff    float64 `yaml:"high_cutoff"`
	SegmentLength int     `yaml:"segment_length"` // Welch override, samples

	Accels []Accel `yaml:"accels"`

	// Hints holds calibration natural frequencies:
	// unit -> "<accel>_<axis>" -> Hz.
	Hints map[string]map[string]float64 `yaml:"natural_frequencies"`
}

// Accel is one response accelerometer on a unit under test.
type Accel struct {
	Name string `yaml:"name"`
	UUT  string `yaml:"uut"`

	// MapX is the unit axis facing table X: FB (front-back) or SS
	// (side-side).
	MapX string `yaml:"uut_map_x"`
}

// Load reads, parses, defaults and validates one run configuration.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var run Run
	if err := dec.Decode(&run); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	run.applyDefaults()
	run.resolvePaths(filepath.Dir(path))

	if err := run.validate(); err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *Run) applyDefaults() {
	if s := r.Seismic; s != nil {
		if s.TimeUnit == "" {
			s.TimeUnit = defaultTimeUnit
		}

		if s.Damping == 0 {
			s.Damping = defaultDamping
		}

		if s.WindowSeconds == 0 {
			s.WindowSeconds = defaultWindowSeconds
		}
	}

	if res := r.Resonance; res != nil {
		if res.TimeUnit == "" {
			res.TimeUnit = defaultTimeUnit
		}

		if res.HighCutoff == 0 {
			res.HighCutoff = defaultHighCutoffHz
		}

		for i := range res.Accels {
			if res.Accels[i].MapX == "" {
				res.Accels[i].MapX = defaultOrientation
			}
		}
	}
}

func (r *Run) resolvePaths(base string) {
	if r.OutputDir == "" {
		r.OutputDir = base
	} else if !filepath.IsAbs(r.OutputDir) {
		r.OutputDir = filepath.Join(base, r.OutputDir)
	}

	if s := r.Seismic; s != nil && s.File != "" && !filepath.IsAbs(s.File) {
		s.File = filepath.Join(base, s.File)
	}

	if res := r.Resonance; res != nil {
		for axis, f := range res.Files {
			if f != "" && !filepath.IsAbs(f) {
				res.Files[axis] = filepath.Join(base, f)
			}
		}
	}
}

func (r *Run) validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: run_name", ErrMissing)
	}

	if r.Seismic == nil && r.Resonance == nil {
		return fmt.Errorf("%w: a seismic or resonance section", ErrMissing)
	}

	if r.Seismic != nil {
		if err := r.Seismic.validate(); err != nil {
			return err
		}
	}

	if r.Resonance != nil {
		if err := r.Resonance.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (s *Seismic) validate() error {
	if err := checkFile(s.File); err != nil {
		return err
	}

	if err := checkAxes(s.Axes); err != nil {
		return err
	}

	if s.TimeUnit != "ms" && s.TimeUnit != "s" {
		return fmt.Errorf("%w: time_unit %q", ErrValue, s.TimeUnit)
	}

	if s.Damping <= 0 || s.Damping >= 1 {
		return fmt.Errorf("%w: damping %v", ErrValue, s.Damping)
	}

	if s.TrimStart < 0 {
		return fmt.Errorf("%w: trim_start %v", ErrValue, s.TrimStart)
	}

	if s.Duration < 0 {
		return fmt.Errorf("%w: duration %v", ErrValue, s.Duration)
	}

	if s.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds %v", ErrValue, s.WindowSeconds)
	}

	seen := map[string]bool{ReferenceLocation: true}
	for _, a := range s.Accels {
		if a == "" {
			return fmt.Errorf("%w: accel name", ErrMissing)
		}

		if seen[a] {
			return fmt.Errorf("%w: accel %s", ErrDuplicate, a)
		}

		seen[a] = true
	}

	for ch, lp := range s.Filters {
		if lp.Order < 1 {
			return fmt.Errorf("%w: filter order %d for %s", ErrValue, lp.Order, ch)
		}

		if lp.CutoffHz <= 0 {
			return fmt.Errorf("%w: filter cutoff %v Hz for %s", ErrValue, lp.CutoffHz, ch)
		}
	}

	return s.Demand.validate()
}

func (d Demand) validate() error {
	switch criteria.Edition(d.Edition) {
	case criteria.ASCE716, criteria.ASCE722:
	default:
		return fmt.Errorf("%w: edition %q", ErrValue, d.Edition)
	}

	if n := len(d.Sites); n < 1 || n > 2 {
		return fmt.Errorf("%w: %d site demands, want 1 or 2", ErrValue, n)
	}

	for i, site := range d.Sites {
		if site.Sds <= 0 {
			return fmt.Errorf("%w: site %d sds %v", ErrValue, i+1, site.Sds)
		}

		if site.HeightRatio < 0 || site.HeightRatio > 1 {
			return fmt.Errorf("%w: site %d z_h %v", ErrValue, i+1, site.HeightRatio)
		}
	}

	if d.LowResonance < 0 {
		return fmt.Errorf("%w: low_resonance %v", ErrValue, d.LowResonance)
	}

	return nil
}

func (res *Resonance) validate() error {
	if err := checkAxes(res.Axes); err != nil {
		return err
	}

	for _, axis := range res.Axes {
		if err := checkFile(res.Files[axis]); err != nil {
			return fmt.Errorf("axis %s: %w", axis, err)
		}
	}

	if res.TimeUnit != "ms" && res.TimeUnit != "s" {
		return fmt.Errorf("%w: time_unit %q", ErrValue, res.TimeUnit)
	}

	if res.HighCutoff <= 0 {
		return fmt.Errorf("%w: high_cutoff %v", ErrValue, res.HighCutoff)
	}

	if res.SegmentLength < 0 {
		return fmt.Errorf("%w: segment_length %d", ErrValue, res.SegmentLength)
	}

	if len(res.Accels) == 0 {
		return fmt.Errorf("%w: accels", ErrMissing)
	}

	seen := map[string]bool{}
	for _, a := range res.Accels {
		if a.Name == "" || a.UUT == "" {
			return fmt.Errorf("%w: accel name and uut", ErrMissing)
		}

		key := a.UUT + "/" + a.Name
		if seen[key] {
			return fmt.Errorf("%w: accel %s on %s", ErrDuplicate, a.Name, a.UUT)
		}

		seen[key] = true

		if a.MapX != "FB" && a.MapX != "SS" {
			return fmt.Errorf("%w: uut_map_x %q for %s", ErrValue, a.MapX, a.Name)
		}
	}

	for uut, m := range res.Hints {
		for key, hz := range m {
			if hz <= 0 {
				return fmt.Errorf("%w: natural frequency %v Hz for %s %s", ErrValue, hz, uut, key)
			}
		}
	}

	return nil
}

func checkAxes(axes []string) error {
	if len(axes) == 0 {
		return fmt.Errorf("%w: axes", ErrMissing)
	}

	seen := map[string]bool{}
	for _, a := range axes {
		switch a {
		case "X", "Y", "Z", "D":
		default:
			return fmt.Errorf("%w: axis %q", ErrValue, a)
		}

		if seen[a] {
			return fmt.Errorf("%w: axis %s", ErrDuplicate, a)
		}

		seen[a] = true
	}

	return nil
}

func checkFile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: file", ErrMissing)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrFile, path)
	}

	return nil
}

// ChannelName joins a location label and an axis into the canonical
// logical channel name.
func ChannelName(location, axis string) string {
	return location + "_" + axis
}

// IsReference reports whether a logical channel is the shake-table
// control channel.
func IsReference(channel string) bool {
	return strings.HasPrefix(channel, ReferenceLocation+"_")
}

// Channels returns the logical channel names for one axis: the table
// reference first, then the response accelerometers in configured order.
func (s *Seismic) Channels(axis string) []string {
	out := make([]string, 0, len(s.Accels)+1)
	out = append(out, ChannelName(ReferenceLocation, axis))

	for _, a := range s.Accels {
		out = append(out, ChannelName(a, axis))
	}

	return out
}

// CriteriaInput converts the demand section into the core's input.
func (d Demand) CriteriaInput() criteria.Input {
	sites := make([]criteria.Site, len(d.Sites))
	for i, s := range d.Sites {
		sites[i] = criteria.Site{Sds: s.Sds, HeightRatio: s.HeightRatio}
	}

	return criteria.Input{
		Edition:      criteria.Edition(d.Edition),
		Sites:        sites,
		LowResonance: d.LowResonance,
		Ip:           d.Ip,
		Ap:           d.Ap,
		Rp:           d.Rp,
		Omega0:       d.Omega0,
		GridStart:    d.GridStart,
		GridEnd:      d.GridEnd,
	}
}

// UnitAxis translates a table axis into the unit's axis label under the
// accel's mounting orientation: Z is vertical; X and Y land on
// front-back or side-side depending on which unit face meets table X.
func (a Accel) UnitAxis(axis string) string {
	switch axis {
	case "Z":
		return "V"
	case "X":
		if a.MapX == "FB" {
			return "FB"
		}

		return "SS"
	case "Y":
		if a.MapX == "FB" {
			return "SS"
		}

		return "FB"
	}

	return axis
}

// Hint returns the configured natural frequency for one accel and axis,
// or zero when none is set.
func (res *Resonance) Hint(a Accel, axis string) float64 {
	return res.Hints[a.UUT][a.Name+"_"+axis]
}
