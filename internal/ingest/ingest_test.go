package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manwilld/data-processing-go/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	return path
}

func TestReadTimeTableMapsAndRespaces(t *testing.T) {
	var b strings.Builder

	b.WriteString("Time (ms),\"Ch1 (G)\",Ch4 (G),Extra\n")

	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "%d,%.1f,%.1f,9\n", i*2, float64(i)*0.1, 1+float64(i)*0.1)
	}

	path := writeFile(t, t.TempDir(), "run.csv", b.String())

	got, err := ReadTimeTable(path, TimeOptions{
		Mappings: []Mapping{
			{Logical: "Table_X", Raw: "Ch1"},
			{Logical: "Controller_X", Raw: "Ch4 (G)"},
		},
	})
	if err != nil {
		t.Fatalf("ReadTimeTable() error = %v", err)
	}

	if got.Rate != 500 {
		t.Fatalf("Rate = %v, want 500", got.Rate)
	}

	if len(got.Channels) != 2 || got.Channels[0].Name != "Table_X" || got.Channels[1].Name != "Controller_X" {
		t.Fatalf("channels = %+v, want Table_X then Controller_X", got.Channels)
	}

	testutil.SlicesInDelta(t, got.Channels[0].Accel, []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5}, 1e-12)
	testutil.SlicesInDelta(t, got.Channels[1].Accel, []float64{1.0, 1.1, 1.2, 1.3, 1.4, 1.5}, 1e-12)

	if got.Time[0] != 0 {
		t.Fatalf("Time[0] = %v, want 0", got.Time[0])
	}

	testutil.InDelta(t, got.Time[5], 0.010, 1e-12)
}

func TestReadTimeTableTrimAndDuration(t *testing.T) {
	var b strings.Builder

	b.WriteString("Time (ms),Accel\n")

	for i := 0; i <= 100; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i*10, i)
	}

	path := writeFile(t, t.TempDir(), "run.csv", b.String())

	got, err := ReadTimeTable(path, TimeOptions{
		Mappings:  []Mapping{{Logical: "Table_X", Raw: "Accel"}},
		TrimStart: 0.2,
		Duration:  0.5,
	})
	if err != nil {
		t.Fatalf("ReadTimeTable() error = %v", err)
	}

	if got.Rate != 100 {
		t.Fatalf("Rate = %v, want 100", got.Rate)
	}

	if len(got.Time) != 51 {
		t.Fatalf("len(Time) = %d, want 51", len(got.Time))
	}

	// The trim keeps the sample at exactly 0.2 s, which carried value 20.
	a := got.Channels[0].Accel
	if a[0] != 20 || a[50] != 70 {
		t.Fatalf("Accel[0], Accel[50] = %v, %v, want 20, 70", a[0], a[50])
	}

	if got.Time[0] != 0 {
		t.Fatalf("Time[0] = %v, want 0 after rebase", got.Time[0])
	}

	testutil.InDelta(t, got.Time[50], 0.5, 1e-12)
}

func TestReadTimeTableMedianSurvivesGlitch(t *testing.T) {
	// First interval is a 3 ms dropout; the median step is still 1 ms.
	content := "Time (ms),A\n0,1\n3,2\n4,3\n5,4\n6,5\n7,6\n"
	path := writeFile(t, t.TempDir(), "run.csv", content)

	got, err := ReadTimeTable(path, TimeOptions{Mappings: []Mapping{{Logical: "Table_X", Raw: "A"}}})
	if err != nil {
		t.Fatalf("ReadTimeTable() error = %v", err)
	}

	if got.Rate != 1000 {
		t.Fatalf("Rate = %v, want 1000", got.Rate)
	}

	testutil.InDelta(t, got.Time[5], 0.005, 1e-12)
}

func TestReadTimeTableSecondsUnit(t *testing.T) {
	content := "Time,A\n0,1\n0.5,2\n1.0,3\n"
	path := writeFile(t, t.TempDir(), "run.csv", content)

	got, err := ReadTimeTable(path, TimeOptions{
		Mappings: []Mapping{{Logical: "Table_X", Raw: "A"}},
		TimeUnit: "s",
	})
	if err != nil {
		t.Fatalf("ReadTimeTable() error = %v", err)
	}

	if got.Rate != 2 {
		t.Fatalf("Rate = %v, want 2", got.Rate)
	}

	testutil.SlicesInDelta(t, got.Time, []float64{0, 0.5, 1.0}, 1e-12)
}

func TestReadTimeTableByteOrderMark(t *testing.T) {
	content := "\ufeffTime (ms),A\r\n0,1\r\n1,2\r\n"
	path := writeFile(t, t.TempDir(), "run.csv", content)

	got, err := ReadTimeTable(path, TimeOptions{Mappings: []Mapping{{Logical: "Table_X", Raw: "A"}}})
	if err != nil {
		t.Fatalf("ReadTimeTable() error = %v", err)
	}

	if got.Rate != 1000 {
		t.Fatalf("Rate = %v, want 1000", got.Rate)
	}
}

func TestReadTimeTableFaults(t *testing.T) {
	dir := t.TempDir()
	mapping := []Mapping{{Logical: "Table_X", Raw: "A"}}

	cases := []struct {
		name    string
		content string
		opts    TimeOptions
		want    error
	}{
		{
			name:    "no time column",
			content: "Stamp,A\n0,1\n1,2\n",
			opts:    TimeOptions{Mappings: mapping},
			want:    ErrHeader,
		},
		{
			name:    "unknown channel column",
			content: "Time,B\n0,1\n1,2\n",
			opts:    TimeOptions{Mappings: mapping},
			want:    ErrHeader,
		},
		{
			name:    "non-numeric cell",
			content: "Time,A\n0,1\n1,oops\n",
			opts:    TimeOptions{Mappings: mapping},
			want:    ErrCell,
		},
		{
			name:    "single sample",
			content: "Time,A\n0,1\n",
			opts:    TimeOptions{Mappings: mapping},
			want:    ErrTooShort,
		},
		{
			name:    "trim removes everything",
			content: "Time,A\n0,1\n1,2\n",
			opts:    TimeOptions{Mappings: mapping, TimeUnit: "s", TrimStart: 10},
			want:    ErrTooShort,
		},
		{
			name:    "stalled clock",
			content: "Time,A\n5,1\n5,2\n5,3\n",
			opts:    TimeOptions{Mappings: mapping},
			want:    ErrTimeStep,
		},
		{
			name:    "ragged row",
			content: "Time,A\n0,1\n1\n",
			opts:    TimeOptions{Mappings: mapping},
			want:    csv.ErrFieldCount,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tc.name, " ", "_")+".csv", tc.content)

			_, err := ReadTimeTable(path, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ReadTimeTable() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadTimeTableMissingFile(t *testing.T) {
	_, err := ReadTimeTable(filepath.Join(t.TempDir(), "nope.csv"), TimeOptions{})
	if err == nil {
		t.Fatal("ReadTimeTable() error = nil, want open failure")
	}
}

func TestReadSpectrumTableCutoff(t *testing.T) {
	var b strings.Builder

	b.WriteString("Frequency (Hz),Controller FB,Table Ref\n")

	for _, f := range []float64{1, 10, 20, 30, 33.3, 35, 40} {
		fmt.Fprintf(&b, "%g,%g,%g\n", f, 2*f, f)
	}

	path := writeFile(t, t.TempDir(), "sweep.csv", b.String())

	got, err := ReadSpectrumTable(path, SpectrumOptions{
		Mappings: []Mapping{
			{Logical: "Controller_FB", Raw: "Controller"},
			{Logical: "Table_FB", Raw: "Ref"},
		},
		HighCutoff: 35.1,
	})
	if err != nil {
		t.Fatalf("ReadSpectrumTable() error = %v", err)
	}

	if len(got.Freq) != 6 {
		t.Fatalf("len(Freq) = %d, want 6 rows at or below 35.1 Hz", len(got.Freq))
	}

	if got.Freq[5] != 35 {
		t.Fatalf("Freq[5] = %v, want 35", got.Freq[5])
	}

	if got.Channels[0].Accel[5] != 70 || got.Channels[1].Accel[5] != 35 {
		t.Fatalf("channel rows = %v, %v, want 70, 35",
			got.Channels[0].Accel[5], got.Channels[1].Accel[5])
	}
}

func TestReadSpectrumTableLowercaseHeader(t *testing.T) {
	content := "freq_hz,Mag\n1,0.5\n2,0.7\n"
	path := writeFile(t, t.TempDir(), "sweep.csv", content)

	got, err := ReadSpectrumTable(path, SpectrumOptions{
		Mappings: []Mapping{{Logical: "Controller_FB", Raw: "Mag"}},
	})
	if err != nil {
		t.Fatalf("ReadSpectrumTable() error = %v", err)
	}

	testutil.SlicesInDelta(t, got.Freq, []float64{1, 2}, 0)
}

func TestReadSpectrumTableFaults(t *testing.T) {
	dir := t.TempDir()
	mapping := []Mapping{{Logical: "Controller_FB", Raw: "Mag"}}

	cases := []struct {
		name    string
		content string
		opts    SpectrumOptions
		want    error
	}{
		{
			name:    "no frequency column",
			content: "Bin,Mag\n1,0.5\n",
			opts:    SpectrumOptions{Mappings: mapping},
			want:    ErrHeader,
		},
		{
			name:    "non-numeric cell",
			content: "Frequency,Mag\n1,x\n",
			opts:    SpectrumOptions{Mappings: mapping},
			want:    ErrCell,
		},
		{
			name:    "cutoff drops all rows",
			content: "Frequency,Mag\n30,0.5\n40,0.7\n",
			opts:    SpectrumOptions{Mappings: mapping, HighCutoff: 10},
			want:    ErrTooShort,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tc.name, " ", "_")+".csv", tc.content)

			_, err := ReadSpectrumTable(path, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ReadSpectrumTable() error = %v, want %v", err, tc.want)
			}
		})
	}
}
