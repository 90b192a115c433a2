package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/solver"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
[load]
name = "308 168gr"
drag = "g7"
bc = 0.243
velocity = 2650
sight_height = 1.6
weight = 168

[zero]
range = 100

[conditions]
wind_speed = 10
wind_angle = 90

[atmosphere]
altitude = 5000
temperature = 40

[table]
step = 50
`)

	sc, err := loadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	r := sc.Request
	if r.Label != "308 168gr" || r.Load.Drag != ballistics.G7 || r.Load.Coefficient != 0.243 {
		t.Errorf("load = %+v", r.Load)
	}
	if r.ZeroRange != 100 || r.Wind.Speed != 10 || r.Wind.Angle != 90 {
		t.Errorf("request = %+v", r)
	}
	if sc.Step != 50 || sc.Max != 1000 {
		t.Errorf("table = %d/%d, want 50/1000", sc.Step, sc.Max)
	}
	if r.Atmosphere == nil {
		t.Fatal("atmosphere not read")
	}
	if r.Atmosphere.Altitude != 5000 || r.Atmosphere.Pressure != ballistics.StandardPressure {
		t.Errorf("atmosphere = %+v, want altitude 5000 with standard pressure", *r.Atmosphere)
	}
	if r.ZeroAtmosphere != nil {
		t.Error("zero atmosphere should be unset")
	}
}

func TestLoadScenarioInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad drag", "[load]\ndrag = \"G9\"\nbc = 0.4\nvelocity = 2700\n[zero]\nrange = 100\n", "drag"},
		{"missing bc", "[load]\nvelocity = 2700\n[zero]\nrange = 100\n", "coefficient"},
		{"not toml", "[load\n", "card.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadScenario(writeScenario(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestPrintTable(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	slv := solver.NewSolver(solver.Config{Workers: 1, MaxRange: 600}, logger)
	res, err := slv.Solve(context.Background(), solver.Request{
		Label: "test",
		Load: ballistics.Load{
			Drag:           ballistics.G1,
			Coefficient:    0.465,
			MuzzleVelocity: 2650,
			SightHeight:    1.6,
			WeightGrains:   168,
		},
		ZeroRange: 200,
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := printTable(&buf, res, res.Solution.Every(100, 500)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "apex") || !strings.Contains(out, "ft·lbf") {
		t.Errorf("missing summary or header:\n%s", out)
	}
	// Summary, event line, blank, header and six rows.
	if lines := strings.Split(strings.TrimRight(out, "\n"), "\n"); len(lines) != 10 {
		t.Errorf("lines = %d, want 10:\n%s", len(lines), out)
	}
}
