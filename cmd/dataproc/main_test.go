package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	return path
}

const validYAML = `run_name: wcc_401
seismic:
  file: data.csv
  axes: [X]
  columns:
    Table_X: T1
  demand:
    edition: ASCE7-16
    sites:
      - {sds: 1.0, z_h: 0.0}
    low_resonance: 5
`

const noRefYAML = `run_name: wcc_404
resonance:
  axes: [X]
  files:
    X: sweep.csv
  spectra: true
  columns:
    X:
      Controller_X: Ch2
  accels:
    - {name: Controller, uut: UUT_1}
`

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "data.csv", "Time (ms),T1\n0,0\n5,0.1\n10,0\n")
	writeFile(t, dir, "sweep.csv", "Frequency (Hz),Ch2\n1,1\n2,2\n")

	valid := writeFile(t, dir, "run.yaml", validYAML)
	noRef := writeFile(t, dir, "noref.yaml", noRefYAML)

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, 2},
		{"unknown command", []string{"explode"}, 2},
		{"help", []string{"help"}, 0},
		{"validate ok", []string{"validate", "-config", valid}, 0},
		{"validate missing flag", []string{"validate"}, 2},
		{"validate bad path", []string{"validate", "-config", filepath.Join(dir, "nope.yaml")}, 2},
		{"criteria ok", []string{"criteria", "-config", valid}, 0},
		{"criteria without seismic", []string{"criteria", "-config", noRef}, 2},
		{"seismic without section", []string{"seismic", "-config", noRef, "-log-level", "error"}, 2},
		{"resonance nothing succeeds", []string{"resonance", "-config", noRef, "-log-level", "error"}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := run(tc.args); got != tc.want {
				t.Fatalf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}
