// Package ingest reads shake-table controller CSV exports.
//
// Time-domain exports carry one header row, a time column and one column
// per recorded channel. Swept-sine exports carry a frequency column and
// per-channel magnitudes. Headers are matched exactly first, then by
// substring, since controllers decorate names with units ("Ch1 (G)").
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrHeader   = errors.New("ingest: required column not found")
	ErrCell     = errors.New("ingest: non-numeric cell")
	ErrTooShort = errors.New("ingest: too few samples")
	ErrTimeStep = errors.New("ingest: unusable time spacing")
)

// Mapping binds a logical channel name to a raw CSV header.
type Mapping struct {
	Logical string
	Raw     string
}

// Channel is one recorded acceleration trace.
type Channel struct {
	Name  string
	Accel []float64
}

// Table is a conditioned time-domain record: uniformly re-spaced time,
// channels in mapping order.
type Table struct {
	Rate     float64
	Time     []float64
	Channels []Channel
}

// Spectrum is a frequency-domain record from a swept-sine controller.
type Spectrum struct {
	Freq     []float64
	Channels []Channel
}

// TimeOptions adjusts time-domain parsing.
type TimeOptions struct {
	Mappings []Mapping

	// TimeUnit is ms or s; empty means ms.
	TimeUnit string

	// TrimStart discards samples before this time in seconds.
	TrimStart float64

	// Duration caps the record length in seconds after the trim; zero
	// keeps the full record.
	Duration float64
}

// SpectrumOptions adjusts frequency-domain parsing.
type SpectrumOptions struct {
	Mappings []Mapping

	// HighCutoff drops rows above this frequency; zero keeps all rows.
	HighCutoff float64
}

// ReadTimeTable parses a time-domain controller export. The time column
// is the first header containing "Time". Time converts to seconds,
// rebases to zero after the leading trim, and is regenerated on a
// uniform grid at round(1/median dt) samples per second.
func ReadTimeTable(path string, opts TimeOptions) (*Table, error) {
	headers, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	timeIdx := -1

	for i, h := range headers {
		if strings.Contains(h, "Time") {
			timeIdx = i
			break
		}
	}

	if timeIdx < 0 {
		return nil, fmt.Errorf("%w: time column in %s", ErrHeader, path)
	}

	time, err := parseColumn(rows, timeIdx, headers[timeIdx])
	if err != nil {
		return nil, err
	}

	if opts.TimeUnit == "" || opts.TimeUnit == "ms" {
		for i := range time {
			time[i] /= 1000
		}
	}

	channels := make([]Channel, len(opts.Mappings))

	for i, m := range opts.Mappings {
		idx, ok := findColumn(headers, m.Raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrHeader, m.Raw, path)
		}

		accel, err := parseColumn(rows, idx, headers[idx])
		if err != nil {
			return nil, err
		}

		channels[i] = Channel{Name: m.Logical, Accel: accel}
	}

	// Leading trim on the recorded clock, before rebasing.
	start := 0
	for start < len(time) && time[start] < opts.TrimStart {
		start++
	}

	time = time[start:]
	for i := range channels {
		channels[i].Accel = channels[i].Accel[start:]
	}

	if len(time) < 2 {
		return nil, fmt.Errorf("%w: %d samples after trim", ErrTooShort, len(time))
	}

	diffs := make([]float64, len(time)-1)
	for i := range diffs {
		diffs[i] = time[i+1] - time[i]
	}

	rate := math.Round(1 / median(diffs))
	if math.IsInf(rate, 0) || math.IsNaN(rate) || rate <= 0 {
		return nil, fmt.Errorf("%w: median step %v s", ErrTimeStep, median(diffs))
	}

	dt := 1 / rate

	n := len(time)
	if opts.Duration > 0 {
		if want := int(math.Round(opts.Duration/dt)) + 1; want < n {
			n = want
		}
	}

	out := &Table{Rate: rate, Time: make([]float64, n), Channels: channels}

	for i := range out.Time {
		out.Time[i] = float64(i) * dt
	}

	for i := range out.Channels {
		out.Channels[i].Accel = out.Channels[i].Accel[:n]
	}

	return out, nil
}

// ReadSpectrumTable parses a swept-sine controller export. The frequency
// column is the first header containing "Frequency" or "freq".
func ReadSpectrumTable(path string, opts SpectrumOptions) (*Spectrum, error) {
	headers, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	freqIdx := -1

	for i, h := range headers {
		if strings.Contains(h, "Frequency") || strings.Contains(strings.ToLower(h), "freq") {
			freqIdx = i
			break
		}
	}

	if freqIdx < 0 {
		return nil, fmt.Errorf("%w: frequency column in %s", ErrHeader, path)
	}

	freq, err := parseColumn(rows, freqIdx, headers[freqIdx])
	if err != nil {
		return nil, err
	}

	channels := make([]Channel, len(opts.Mappings))

	for i, m := range opts.Mappings {
		idx, ok := findColumn(headers, m.Raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrHeader, m.Raw, path)
		}

		vals, err := parseColumn(rows, idx, headers[idx])
		if err != nil {
			return nil, err
		}

		channels[i] = Channel{Name: m.Logical, Accel: vals}
	}

	if opts.HighCutoff > 0 {
		keep := 0

		for i, f := range freq {
			if f > opts.HighCutoff {
				continue
			}

			freq[keep] = freq[i]
			for c := range channels {
				channels[c].Accel[keep] = channels[c].Accel[i]
			}

			keep++
		}

		freq = freq[:keep]
		for c := range channels {
			channels[c].Accel = channels[c].Accel[:keep]
		}
	}

	if len(freq) == 0 {
		return nil, fmt.Errorf("%w: no rows below %v Hz", ErrTooShort, opts.HighCutoff)
	}

	return &Spectrum{Freq: freq, Channels: channels}, nil
}

// readCSV loads the whole file, returning cleaned headers and data rows.
// The csv reader enforces rectangular records against the header width.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file %s", ErrTooShort, path)
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	return headers, records[1:], nil
}

// findColumn matches a wanted header exactly first, then by substring.
func findColumn(headers []string, want string) (int, bool) {
	want = strings.TrimSpace(want)

	for i, h := range headers {
		if h == want {
			return i, true
		}
	}

	for i, h := range headers {
		if strings.Contains(h, want) {
			return i, true
		}
	}

	return 0, false
}

func parseColumn(rows [][]string, idx int, name string) ([]float64, error) {
	out := make([]float64, len(rows))

	for i, rec := range rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrCell, name, i+2, rec[idx])
		}

		out[i] = v
	}

	return out, nil
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)

	m := len(s) / 2
	if len(s)%2 == 0 {
		return (s[m-1] + s[m]) / 2
	}

	return s[m]
}
