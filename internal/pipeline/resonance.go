package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/manwilld/data-processing-go/internal/config"
	"github.com/manwilld/data-processing-go/internal/export"
	"github.com/manwilld/data-processing-go/internal/ingest"
	"github.com/manwilld/data-processing-go/measure/resonance"
)

// Resonance runs the transmissibility search per table axis: the table
// channel drives, each unit accelerometer responds, and the spectrum
// peak locates the natural frequency. Configured hints are checked
// against the found peaks but never replace them.
func Resonance(cfg *config.Run, logger *slog.Logger) (*Report, error) {
	res := cfg.Resonance
	if res == nil {
		return nil, fmt.Errorf("%w: resonance", ErrSection)
	}

	log := logger.With("run", cfg.Name)
	report := &Report{Run: cfg.Name}

	fail := func(unit string, err error) {
		report.Failures = append(report.Failures, ChannelError{Unit: unit, Err: err})
		log.Error("unit failed", "unit", unit, "error", err)
	}

	for _, axis := range res.Axes {
		alog := log.With("axis", axis)
		cols := res.Columns[axis]
		refName := config.ChannelName(config.ReferenceLocation, axis)

		refRaw, ok := cols[refName]
		if !ok {
			fail("axis "+axis, fmt.Errorf("%w: reference channel %s", ErrMapping, refName))
			continue
		}

		mappings := []ingest.Mapping{{Logical: refName, Raw: refRaw}}
		accels := make([]config.Accel, 0, len(res.Accels))

		for _, a := range res.Accels {
			name := config.ChannelName(a.Name, axis)

			raw, ok := cols[name]
			if !ok {
				alog.Warn("channel has no column mapping, skipping", "channel", name)
				continue
			}

			mappings = append(mappings, ingest.Mapping{Logical: name, Raw: raw})
			accels = append(accels, a)
		}

		if len(accels) == 0 {
			fail("axis "+axis, fmt.Errorf("%w: no response channels mapped", ErrMapping))
			continue
		}

		var (
			freq    []float64
			columns []export.Column
		)

		record := func(a config.Accel, name string, r resonance.Result) {
			hint := res.Hint(a, axis)

			agree := true
			if hint > 0 {
				agree = resonance.HintAgrees(hint, r.PeakFreq)
				if !agree {
					alog.Warn("natural frequency hint disagrees",
						"channel", name, "hint_hz", hint, "peak_hz", r.PeakFreq)
				}
			}

			alog.Info("resonance peak", "channel", name, "unit", a.UUT,
				"unit_axis", a.UnitAxis(axis), "peak_hz", r.PeakFreq, "magnitude", r.PeakMag)

			report.Peaks = append(report.Peaks, PeakResult{
				Axis:      axis,
				Channel:   name,
				UUT:       a.UUT,
				UnitAxis:  a.UnitAxis(axis),
				PeakFreq:  r.PeakFreq,
				PeakMag:   r.PeakMag,
				Hint:      hint,
				HintAgree: agree,
			})

			if freq == nil {
				freq = r.Freq
			}

			columns = append(columns, export.Column{Name: name, Values: r.Mag})
		}

		if res.Spectra {
			spec, err := ingest.ReadSpectrumTable(res.Files[axis], ingest.SpectrumOptions{
				Mappings:   mappings,
				HighCutoff: res.HighCutoff,
			})
			if err != nil {
				fail("axis "+axis, err)
				continue
			}

			ref := spec.Channels[0].Accel

			for k, a := range accels {
				ch := spec.Channels[k+1]

				r, err := resonance.FromSpectra(spec.Freq, ref, ch.Accel)
				if err != nil {
					fail(ch.Name, err)
					continue
				}

				record(a, ch.Name, r)
			}
		} else {
			table, err := ingest.ReadTimeTable(res.Files[axis], ingest.TimeOptions{
				Mappings: mappings,
				TimeUnit: res.TimeUnit,
			})
			if err != nil {
				fail("axis "+axis, err)
				continue
			}

			ref := table.Channels[0].Accel

			for k, a := range accels {
				ch := table.Channels[k+1]

				r, err := resonance.Estimate(ref, ch.Accel, resonance.Config{
					SampleRate:    table.Rate,
					SegmentLength: res.SegmentLength,
					HighCutoff:    res.HighCutoff,
				})
				if err != nil {
					fail(ch.Name, err)
					continue
				}

				record(a, ch.Name, r)
			}
		}

		if len(columns) > 0 {
			name := fmt.Sprintf("%s_transmissibility_%s", cfg.Name, axis)

			if path, err := export.WriteSpectrumCSV(cfg.OutputDir, name, freq, columns); err != nil {
				fail("axis "+axis+" csv", err)
			} else {
				report.Outputs = append(report.Outputs, path)
			}
		}
	}

	return report, nil
}
