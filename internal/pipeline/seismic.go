// Package pipeline sequences the qualification analyses: it loads run
// configuration and controller data, drives the measurement packages,
// and writes the review outputs. Channels and axis pairs are processed
// in isolation so one bad unit cannot empty the report.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/manwilld/data-processing-go/criteria"
	"github.com/manwilld/data-processing-go/dsp/filter"
	"github.com/manwilld/data-processing-go/internal/config"
	"github.com/manwilld/data-processing-go/internal/export"
	"github.com/manwilld/data-processing-go/internal/ingest"
	"github.com/manwilld/data-processing-go/measure/independence"
	"github.com/manwilld/data-processing-go/measure/trs"
)

var (
	ErrSection = errors.New("pipeline: config section missing")
	ErrMapping = errors.New("pipeline: column mapping missing")
)

// Seismic runs a time-history qualification: derive the required
// spectrum, condition each channel, reduce its test spectrum to the
// sixth-octave grid, and check cross-axis independence of the table
// reference channels. Returns the run report; only configuration or
// ingest faults that leave nothing to process are returned as errors.
func Seismic(cfg *config.Run, logger *slog.Logger) (*Report, error) {
	s := cfg.Seismic
	if s == nil {
		return nil, fmt.Errorf("%w: seismic", ErrSection)
	}

	log := logger.With("run", cfg.Name)
	report := &Report{Run: cfg.Name}

	fail := func(unit string, err error) {
		report.Failures = append(report.Failures, ChannelError{Unit: unit, Err: err})
		log.Error("unit failed", "unit", unit, "error", err)
	}

	demand, err := criteria.Derive(s.Demand.CriteriaInput())
	if err != nil {
		return nil, err
	}

	log.Info("demand derived",
		"aflx_h", demand.AflxH, "arig_h", demand.ArigH,
		"aflx_v", demand.AflxV, "arig_v", demand.ArigV,
		"low_cutoff", demand.LowCutoff, "high_cutoff", demand.HighCutoff)

	locations := append([]string{config.ReferenceLocation}, s.Accels...)

	var mappings []ingest.Mapping

	for _, loc := range locations {
		for _, axis := range s.Axes {
			name := config.ChannelName(loc, axis)

			raw, ok := s.Columns[name]
			if !ok {
				log.Warn("channel has no column mapping, skipping", "channel", name)
				continue
			}

			mappings = append(mappings, ingest.Mapping{Logical: name, Raw: raw})
		}
	}

	table, err := ingest.ReadTimeTable(s.File, ingest.TimeOptions{
		Mappings:  mappings,
		TimeUnit:  s.TimeUnit,
		TrimStart: s.TrimStart,
		Duration:  s.Duration,
	})
	if err != nil {
		return nil, err
	}

	log.Info("record loaded",
		"rate", table.Rate, "samples", len(table.Time), "channels", len(table.Channels))

	if path, err := export.WriteTrimmed(cfg.OutputDir, cfg.Name, table); err != nil {
		fail("trimmed csv", err)
	} else {
		report.Outputs = append(report.Outputs, path)
	}

	dt := 1 / table.Rate

	// Conditioning. A channel whose filter fails is dropped so a bad
	// spectrum never reaches the report.
	signals := make(map[string][]float64, len(table.Channels))

	for _, ch := range table.Channels {
		x := ch.Accel

		if lp, ok := s.Filters[ch.Name]; ok {
			y, err := filter.Lowpass(lp.CutoffHz, lp.Order, table.Rate, x)
			if err != nil {
				fail(ch.Name, err)
				continue
			}

			log.Debug("lowpass applied",
				"channel", ch.Name, "order", lp.Order, "cutoff_hz", lp.CutoffHz)

			x = y
		}

		signals[ch.Name] = x
	}

	denseFreq := demand.Grid.Freqs()

	for _, loc := range locations {
		for _, axis := range s.Axes {
			name := config.ChannelName(loc, axis)

			x, ok := signals[name]
			if !ok {
				continue
			}

			dense, err := trs.Compute(x, dt, denseFreq, s.Damping)
			if err != nil {
				fail(name, err)
				continue
			}

			opts := []trs.Option{trs.WithBand(demand.LowCutoff, demand.HighCutoff)}
			if config.IsReference(name) {
				opts = append(opts, trs.WithOffsetScan())
			}

			res, err := trs.Optimize(denseFreq, dense, demand.RRSFor(criteria.DirectionFor(axis)), opts...)
			if err != nil {
				fail(name, err)
				continue
			}

			log.Info("channel spectrum reduced",
				"channel", name, "offset", res.Offset, "factor", res.Factor)

			report.Channels = append(report.Channels, ChannelResult{
				Channel: name,
				Axis:    axis,
				Offset:  res.Offset,
				Factor:  res.Factor,
				Freq:    res.Freq,
				TRS:     res.TRS,
				Margin:  res.Margin,
			})
		}
	}

	var series []export.AxisSeries

	for _, axis := range s.Axes {
		name := config.ChannelName(config.ReferenceLocation, axis)

		for _, cr := range report.Channels {
			if cr.Channel == name {
				series = append(series, export.AxisSeries{Axis: axis, Freq: cr.Freq, TRS: cr.TRS})
				break
			}
		}
	}

	if len(series) > 0 {
		if path, err := export.WriteWorkbook(cfg.OutputDir, cfg.Name, demand, series); err != nil {
			fail("workbook", err)
		} else {
			report.Outputs = append(report.Outputs, path)
		}
	}

	// Cross-axis independence of the table reference channels.
	for i := 0; i < len(s.Axes); i++ {
		for j := i + 1; j < len(s.Axes); j++ {
			aName := config.ChannelName(config.ReferenceLocation, s.Axes[i])
			bName := config.ChannelName(config.ReferenceLocation, s.Axes[j])
			pair := aName + "/" + bName

			a, okA := signals[aName]
			b, okB := signals[bName]

			if !okA || !okB {
				continue
			}

			corr, err := independence.Correlate(a, b, dt)
			if err != nil {
				fail(pair, err)
				continue
			}

			coh, err := independence.Cohere(a, b, independence.CoherenceConfig{
				SampleRate:    table.Rate,
				WindowSeconds: s.WindowSeconds,
			})
			if err != nil {
				fail(pair, err)
				continue
			}

			log.Info("independence checked", "pair", pair,
				"correlation_peak", corr.Peak, "correlation_factor", corr.Factor,
				"coherence_peak", coh.Peak, "coherence_factor", coh.Factor)

			if !corr.Pass() || !coh.Pass() {
				log.Warn("independence limit exceeded", "pair", pair,
					"correlation_pass", corr.Pass(), "coherence_pass", coh.Pass())
			}

			report.Pairs = append(report.Pairs, PairResult{
				A: aName, B: bName, Correlation: corr, Coherence: coh,
			})
		}
	}

	return report, nil
}
