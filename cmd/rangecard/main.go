// Command rangecard prints a trajectory table for a load, read from a TOML
// scenario or picked from the built-in catalog, and optionally exports it as
// CSV or a PNG chart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"

	"github.com/star/ballistics/internal/analysis"
	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/export"
	"github.com/star/ballistics/internal/solver"
)

var (
	scenarioPath string
	profileName  string
	step         int
	maxRange     int
	csvPath      string
	pngPath      string
	verbose      bool
)

func init() {
	flag.StringVar(&scenarioPath, "scenario", "", "range card scenario TOML file")
	flag.StringVar(&profileName, "profile", "", "built-in catalog profile (instead of -scenario)")
	flag.IntVar(&step, "step", 0, "table spacing in yards (overrides the scenario)")
	flag.IntVar(&maxRange, "max", 0, "last table row in yards (overrides the scenario)")
	flag.StringVar(&csvPath, "csv", "", "write the table as CSV to this file")
	flag.StringVar(&pngPath, "png", "", "write a trajectory chart to this PNG file")
	flag.BoolVar(&verbose, "verbose", false, "dump the resolved request and debug logs")
}

func main() {
	flag.Parse()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sc, err := resolve(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rangecard:", err)
		os.Exit(2)
	}
	if step > 0 {
		sc.Step = step
	}
	if maxRange > 0 {
		sc.Max = maxRange
	}
	if verbose {
		spew.Fdump(os.Stderr, sc.Request)
	}

	slv := solver.NewSolver(solver.Config{Workers: runtime.NumCPU(), MaxRange: sc.Max}, logger)
	res, err := slv.Solve(context.Background(), sc.Request)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rangecard:", err)
		os.Exit(1)
	}

	samples := res.Solution.Every(sc.Step, sc.Max)
	if err := printTable(os.Stdout, res, samples); err != nil {
		fmt.Fprintln(os.Stderr, "rangecard:", err)
		os.Exit(1)
	}

	if csvPath != "" {
		if err := writeFile(csvPath, func(w io.Writer) error { return export.WriteCSV(w, samples) }); err != nil {
			fmt.Fprintln(os.Stderr, "rangecard:", err)
			os.Exit(1)
		}
	}
	if pngPath != "" {
		title := sc.Request.Label
		if title == "" {
			title = fmt.Sprintf("%s %.3f", sc.Request.Load.Drag, sc.Request.Load.Coefficient)
		}
		// The chart shows every yard, not just the table rows.
		all := res.Solution.Every(1, sc.Max)
		if err := writeFile(pngPath, func(w io.Writer) error { return export.WritePNG(w, all, title) }); err != nil {
			fmt.Fprintln(os.Stderr, "rangecard:", err)
			os.Exit(1)
		}
	}
}

// resolve builds the scenario from the flags.
func resolve(logger *slog.Logger) (*scenario, error) {
	switch {
	case scenarioPath != "" && profileName != "":
		return nil, errors.New("use either -scenario or -profile, not both")
	case scenarioPath != "":
		return loadScenario(scenarioPath)
	case profileName != "":
		ds, err := catalog.Default(logger)
		if err != nil {
			return nil, err
		}
		p, ok := ds.Lookup(profileName)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q, have %v", profileName, ds.Names())
		}
		return &scenario{Request: p.Request(), Step: 25, Max: 1000}, nil
	default:
		return nil, errors.New("no scenario provided, set -scenario or -profile")
	}
}

func printTable(w io.Writer, res *solver.Result, samples []ballistics.Sample) error {
	req := res.Request
	fmt.Fprintf(w, "%s  %s bc %.3f (corrected %.3f)  %.0f ft/s  zero %.0f yd  bore %.4f°\n",
		req.Label, req.Load.Drag, req.Load.Coefficient, res.Coefficient,
		req.Load.MuzzleVelocity, req.ZeroRange, res.BoreAngle)

	if ev, err := analysis.Derive(res, analysis.DefaultVitalZone); err == nil {
		fmt.Fprintf(w, "apex %.1f in @ %d yd  point blank %d yd", ev.Apex.Path, ev.Apex.Yard, ev.PointBlank.Range)
		if ev.SupersonicRange != nil {
			fmt.Fprintf(w, "  supersonic to %d yd", *ev.SupersonicRange)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "yd\tpath in\tmoa\ttime s\twind in\twind moa\tft/s\tft·lbf\t")
	for _, s := range samples {
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.3f\t%.2f\t%.2f\t%.0f\t%.0f\t\n",
			s.Yard, s.Path, s.MOA, s.Time, s.Windage, s.WindageMOA, s.Velocity, s.Energy)
	}
	return tw.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
