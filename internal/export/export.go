// Package export writes run outputs: archival CSVs of conditioned data,
// the TRS-vs-RRS review workbook, and transmissibility spectra.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/manwilld/data-processing-go/criteria"
	"github.com/manwilld/data-processing-go/dsp/spectral"
	"github.com/manwilld/data-processing-go/internal/ingest"
)

var (
	ErrLengthMismatch = errors.New("export: length mismatch")
	ErrAxis           = errors.New("export: unknown axis")
)

// Workbook layout: three columns per axis starting at A, D, G and J.
var axisStartCol = map[string]int{"X": 1, "Y": 4, "Z": 7, "D": 10}

// AxisSeries is one table axis on the sparse reporting grid.
type AxisSeries struct {
	Axis string
	Freq []float64
	TRS  []float64
}

// Column is a named value series sharing the frequency axis.
type Column struct {
	Name   string
	Values []float64
}

// WriteTrimmed writes the conditioned run as <run>_trimmed.csv, time
// first and channels in recorded order. Returns the file path.
func WriteTrimmed(dir, run string, table *ingest.Table) (string, error) {
	for _, ch := range table.Channels {
		if len(ch.Accel) != len(table.Time) {
			return "", fmt.Errorf("%w: channel %s has %d samples for %d timestamps",
				ErrLengthMismatch, ch.Name, len(ch.Accel), len(table.Time))
		}
	}

	header := make([]string, 0, len(table.Channels)+1)
	header = append(header, "Time")

	for _, ch := range table.Channels {
		header = append(header, ch.Name)
	}

	rows := make([][]string, len(table.Time))

	for i := range table.Time {
		rec := make([]string, 0, len(header))
		rec = append(rec, formatFloat(table.Time[i]))

		for _, ch := range table.Channels {
			rec = append(rec, formatFloat(ch.Accel[i]))
		}

		rows[i] = rec
	}

	return writeCSV(dir, run+"_trimmed.csv", header, rows)
}

// WriteWorkbook writes <run>_Table_TRSvsRRS.xlsx. Each axis gets a
// Frequency/RRS/TRS triplet on the sparse grid with the required
// spectrum resampled from the dense grid, keeping rows above 1 Hz and
// rounding to two decimals. Side cells carry the lowest resonance and
// the evaluation low cutoff.
func WriteWorkbook(dir, run string, demand *criteria.Demand, series []AxisSeries) (string, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	sw := &sheetWriter{wb: wb, sheet: "Sheet1"}
	dense := demand.Grid.Freqs()

	for _, s := range series {
		start, ok := axisStartCol[s.Axis]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrAxis, s.Axis)
		}

		if len(s.Freq) != len(s.TRS) {
			return "", fmt.Errorf("%w: axis %s has %d frequencies for %d TRS values",
				ErrLengthMismatch, s.Axis, len(s.Freq), len(s.TRS))
		}

		rrsDense := demand.RRSFor(criteria.DirectionFor(s.Axis))

		rrs, err := spectral.InterpolateLinear(dense, rrsDense, s.Freq)
		if err != nil {
			return "", fmt.Errorf("export: resample RRS for axis %s: %w", s.Axis, err)
		}

		sw.set(start, 1, s.Axis+" Direction")
		sw.set(start, 2, "Freq.\n(Hz)")
		sw.set(start+1, 2, "RRS\n(g)")
		sw.set(start+2, 2, "TRS\n(g)")

		row := 3

		for i := range s.Freq {
			if s.Freq[i] <= 1.0 {
				continue
			}

			sw.set(start, row, round2(s.Freq[i]))
			sw.set(start+1, row, round2(rrs[i]))
			sw.set(start+2, row, round2(s.TRS[i]))
			row++
		}
	}

	sw.set(11, 3, demand.LowResonance)
	sw.set(12, 3, "<- Lowest Resonance")
	sw.set(11, 4, demand.LowCutoff)
	sw.set(12, 4, "<- Cutoff Frequency")

	if sw.err != nil {
		return "", fmt.Errorf("export: fill workbook: %w", sw.err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, run+"_Table_TRSvsRRS.xlsx")
	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("export: save %s: %w", path, err)
	}

	return path, nil
}

// WriteSpectrumCSV writes a frequency axis plus named magnitude columns
// as <name>.csv. Returns the file path.
func WriteSpectrumCSV(dir, name string, freq []float64, cols []Column) (string, error) {
	for _, c := range cols {
		if len(c.Values) != len(freq) {
			return "", fmt.Errorf("%w: column %s has %d values for %d frequencies",
				ErrLengthMismatch, c.Name, len(c.Values), len(freq))
		}
	}

	header := make([]string, 0, len(cols)+1)
	header = append(header, "Frequency (Hz)")

	for _, c := range cols {
		header = append(header, c.Name)
	}

	rows := make([][]string, len(freq))

	for i := range freq {
		rec := make([]string, 0, len(header))
		rec = append(rec, formatFloat(freq[i]))

		for _, c := range cols {
			rec = append(rec, formatFloat(c.Values[i]))
		}

		rows[i] = rec
	}

	return writeCSV(dir, name+".csv", header, rows)
}

func writeCSV(dir, name string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}

	// WriteAll flushes and reports any buffered write error.
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("export: close %s: %w", path, err)
	}

	return path, nil
}

// sheetWriter sets cells by coordinate, keeping the first error.
type sheetWriter struct {
	wb    *excelize.File
	sheet string
	err   error
}

func (sw *sheetWriter) set(col, row int, v any) {
	if sw.err != nil {
		return
	}

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		sw.err = err
		return
	}

	sw.err = sw.wb.SetCellValue(sw.sheet, name, v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
