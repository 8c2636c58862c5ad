// Command dataproc analyzes shake-table qualification runs.
//
// Usage:
//
//	dataproc <command> [flags]
//
// Commands:
//
//	seismic    process a time-history qualification run
//	resonance  process a resonance search run
//	criteria   print the derived demand levels for a run
//	validate   load and validate a run configuration
//
// Examples:
//
//	dataproc seismic -config wcc_401.yaml
//	dataproc resonance -config wcc_402.yaml -out results
//	dataproc criteria -config wcc_401.yaml
//	dataproc validate -config wcc_401.yaml -log-level debug
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/manwilld/data-processing-go/criteria"
	"github.com/manwilld/data-processing-go/internal/config"
	"github.com/manwilld/data-processing-go/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a subcommand. Exit codes: 0 success, 1 run failed,
// 2 unusable invocation or configuration.
func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch cmd := args[0]; cmd {
	case "seismic":
		return runSeismic(args[1:])
	case "resonance":
		return runResonance(args[1:])
	case "criteria":
		return runCriteria(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "help", "-h", "-help", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n\n", cmd)
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: dataproc <command> [flags]

Commands:
  seismic    process a time-history qualification run
  resonance  process a resonance search run
  criteria   print the derived demand levels for a run
  validate   load and validate a run configuration

Flags (all commands):
  -config path   run configuration YAML (required)
  -out dir       override the configured output directory
  -log-level l   debug, info, warn or error (default info)

Examples:
  dataproc seismic -config wcc_401.yaml
  dataproc resonance -config wcc_402.yaml -out results
  dataproc criteria -config wcc_401.yaml
`)
}

// loadRun parses the shared flags and loads the configuration. A nil
// run means the invocation was unusable; the returned code applies.
func loadRun(name string, args []string) (cfg *config.Run, level string, code int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "run configuration YAML (required)")
	out := fs.String("out", "", "override the configured output directory")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, "", 0
		}

		return nil, "", 2
	}

	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "error: -config is required")
		return nil, "", 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, "", 2
	}

	if *out != "" {
		cfg.OutputDir = *out
	}

	return cfg, *logLevel, 0
}

func runSeismic(args []string) int {
	cfg, level, code := loadRun("seismic", args)
	if cfg == nil {
		return code
	}

	rep, err := pipeline.Seismic(cfg, pipeline.NewLogger(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		if errors.Is(err, pipeline.ErrSection) {
			return 2
		}

		return 1
	}

	printReport(rep)

	if !rep.Succeeded() {
		return 1
	}

	return 0
}

func runResonance(args []string) int {
	cfg, level, code := loadRun("resonance", args)
	if cfg == nil {
		return code
	}

	rep, err := pipeline.Resonance(cfg, pipeline.NewLogger(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		if errors.Is(err, pipeline.ErrSection) {
			return 2
		}

		return 1
	}

	printReport(rep)

	if !rep.Succeeded() {
		return 1
	}

	return 0
}

func runCriteria(args []string) int {
	cfg, _, code := loadRun("criteria", args)
	if cfg == nil {
		return code
	}

	if cfg.Seismic == nil {
		fmt.Fprintln(os.Stderr, "error: configuration has no seismic section")
		return 2
	}

	demand, err := criteria.Derive(cfg.Seismic.Demand.CriteriaInput())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	printDemand(cfg.Name, demand)

	return 0
}

func runValidate(args []string) int {
	cfg, _, code := loadRun("validate", args)
	if cfg == nil {
		return code
	}

	sections := make([]string, 0, 2)
	if cfg.Seismic != nil {
		sections = append(sections, "seismic")
	}

	if cfg.Resonance != nil {
		sections = append(sections, "resonance")
	}

	fmt.Printf("configuration ok: run %s (%s)\n", cfg.Name, strings.Join(sections, ", "))

	return 0
}

func printDemand(run string, d *criteria.Demand) {
	freqs := d.Grid.Freqs()

	fmt.Printf("run %s, %s\n", run, d.Edition)
	fmt.Printf("grid %d points, %.2f to %.2f Hz\n", len(freqs), freqs[0], freqs[len(freqs)-1])
	fmt.Printf("evaluation band %.1f to %.1f Hz, lowest resonance %g Hz\n",
		d.LowCutoff, d.HighCutoff, d.LowResonance)
	fmt.Println()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Direction\tAflx (g)\tArig (g)\t0.9 Arig (g)")

	for _, row := range []struct {
		label string
		dir   criteria.Direction
	}{
		{"Horizontal", criteria.Horizontal},
		{"Vertical", criteria.Vertical},
	} {
		aflx, arig := d.Levels(row.dir)
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\n", row.label, aflx, arig, d.Arig90For(row.dir))
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func printReport(rep *pipeline.Report) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	for _, c := range rep.Channels {
		fmt.Fprintf(tw, "channel\t%s\toffset %d\tfactor %.3f\n", c.Channel, c.Offset, c.Factor)
	}

	for _, p := range rep.Pairs {
		fmt.Fprintf(tw, "pair\t%s/%s\tcorrelation factor %.3f\tcoherence factor %.3f\n",
			p.A, p.B, p.Correlation.Factor, p.Coherence.Factor)
	}

	for _, pk := range rep.Peaks {
		fmt.Fprintf(tw, "peak\t%s\t%.2f Hz\tmagnitude %.2f\n", pk.Channel, pk.PeakFreq, pk.PeakMag)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	for _, out := range rep.Outputs {
		fmt.Println("wrote", out)
	}

	if len(rep.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "%d unit(s) failed:\n", len(rep.Failures))

		for _, f := range rep.Failures {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
	}
}
