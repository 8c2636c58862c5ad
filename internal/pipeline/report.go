package pipeline

import (
	"fmt"

	"github.com/manwilld/data-processing-go/measure/independence"
)

// ChannelError records one failed unit of work with its cause. Units are
// logical channels, axis pairs, or named output files.
type ChannelError struct {
	Unit string
	Err  error
}

func (e ChannelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Unit, e.Err)
}

func (e ChannelError) Unwrap() error { return e.Err }

// ChannelResult is the chosen sixth-octave spectrum for one channel.
type ChannelResult struct {
	Channel string
	Axis    string

	Offset int
	Factor float64

	Freq   []float64
	TRS    []float64
	Margin []float64
}

// PairResult is the independence check for one pair of table axes.
type PairResult struct {
	A, B string

	Correlation independence.Correlation
	Coherence   independence.Coherence
}

// PeakResult is one response channel's transmissibility peak.
type PeakResult struct {
	Axis     string
	Channel  string
	UUT      string
	UnitAxis string

	PeakFreq float64
	PeakMag  float64

	// Hint is the configured natural frequency, zero when unset.
	// HintAgree is false when the found peak sits more than a tenth
	// of an octave from a configured hint.
	Hint      float64
	HintAgree bool
}

// Report collects everything a run produced. One unit's failure never
// removes another unit's result.
type Report struct {
	Run string

	Channels []ChannelResult
	Pairs    []PairResult
	Peaks    []PeakResult

	Outputs  []string
	Failures []ChannelError
}

// Succeeded reports whether any unit of work completed.
func (r *Report) Succeeded() bool {
	return len(r.Channels)+len(r.Pairs)+len(r.Peaks) > 0
}
