package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/ballistics/internal/analysis"
	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/export"
	"github.com/star/ballistics/internal/solver"
	"github.com/star/ballistics/internal/units"
)

const (
	maxBatchRequests  = 256
	maxAnalysisShots  = 64
	maxTableDistance  = 50000
	defaultFormat     = "json"
	contentTypeCSV    = "text/csv; charset=utf-8"
	contentTypePNG    = "image/png"
	trajectoryCSVName = "trajectory.csv"
)

// tableOptions are the presentation parameters of a trajectory response.
type tableOptions struct {
	step     int
	maxRange int
	units    units.System
	format   string
	title    string
}

// parseFormat validates the format query parameter.
func parseFormat(r *http.Request) (string, error) {
	switch f := r.URL.Query().Get("format"); f {
	case "", defaultFormat:
		return defaultFormat, nil
	case "csv", "png":
		return f, nil
	default:
		return "", fmt.Errorf("%w: invalid format %q, must be json, csv or png", solver.ErrInvalidRequest, f)
	}
}

// writeTrajectory renders res in the requested format.
func writeTrajectory(w http.ResponseWriter, logger *slog.Logger, res *solver.Result, opts tableOptions) {
	samples := selectSamples(res.Solution, opts.step, opts.maxRange, opts.units)
	if res.Truncated {
		w.Header().Set("X-Trajectory-Truncated", "true")
	}

	switch opts.format {
	case "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, samples); err != nil {
			logger.Error("csv export failed", "error", err)
			writeError(w, http.StatusInternalServerError, "csv export failed")
			return
		}
		w.Header().Set("Content-Type", contentTypeCSV)
		w.Header().Set("Content-Disposition", `attachment; filename="`+trajectoryCSVName+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())

	case "png":
		var buf bytes.Buffer
		if err := export.WritePNG(&buf, samples, opts.title); err != nil {
			logger.Error("png export failed", "error", err)
			writeError(w, http.StatusInternalServerError, "png export failed")
			return
		}
		w.Header().Set("Content-Type", contentTypePNG)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())

	default:
		writeJSON(w, http.StatusOK, buildTrajectoryResponse(res, samples, opts.step, opts.units))
	}
}

func chartTitle(r solver.Request) string {
	if r.Label != "" {
		return r.Label
	}
	return fmt.Sprintf("%s %.3f @ %.0f ft/s", r.Load.Drag, r.Load.Coefficient, r.Load.MuzzleVelocity)
}

// trajectoryHandler handles POST /api/v1/trajectory.
// Query parameters step, max_range and format override the body.
func trajectoryHandler(logger *slog.Logger, slv *solver.Solver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p shotParams
		if err := decodeJSON(w, r, &p); err != nil {
			writeSolveError(w, err)
			return
		}

		var err error
		if p.Step, err = queryInt(r, "step", p.Step, 1, maxTableDistance); err != nil {
			writeSolveError(w, err)
			return
		}
		if p.MaxRange, err = queryInt(r, "max_range", p.MaxRange, 1, maxTableDistance); err != nil {
			writeSolveError(w, err)
			return
		}
		format, err := parseFormat(r)
		if err != nil {
			writeSolveError(w, err)
			return
		}
		step, maxRange, err := p.table()
		if err != nil {
			writeSolveError(w, err)
			return
		}
		req, err := p.toRequest()
		if err != nil {
			writeSolveError(w, err)
			return
		}

		res, err := slv.Solve(r.Context(), req)
		if err != nil {
			writeSolveError(w, err)
			return
		}

		writeTrajectory(w, logger, res, tableOptions{
			step:     step,
			maxRange: maxRange,
			units:    p.Units,
			format:   format,
			title:    chartTitle(req),
		})
	}
}

// zeroHandler handles POST /api/v1/zero.
func zeroHandler(slv *solver.Solver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p shotParams
		if err := decodeJSON(w, r, &p); err != nil {
			writeSolveError(w, err)
			return
		}
		req, err := p.toRequest()
		if err != nil {
			writeSolveError(w, err)
			return
		}
		zr, err := slv.Zero(r.Context(), req)
		if err != nil {
			writeSolveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"label":            req.Label,
			"bore_angle":       zr.BoreAngle,
			"bore_angle_moa":   zr.BoreAngleMOA,
			"bore_angle_mils":  units.MOAToMils(zr.BoreAngleMOA),
			"zero_coefficient": zr.ZeroCoefficient,
		})
	}
}

type atmosphereRequest struct {
	Units            units.System      `json:"units,omitempty"`
	BC               float64           `json:"bc"`
	Atmosphere       *atmosphereParams `json:"atmosphere"`
	AbsolutePressure bool              `json:"absolute_pressure,omitempty"`
}

// atmosphereHandler handles POST /api/v1/atmosphere/correct.
func atmosphereHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p atmosphereRequest
		if err := decodeJSON(w, r, &p); err != nil {
			writeSolveError(w, err)
			return
		}
		switch {
		case !p.Units.Valid():
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown units %q", p.Units))
			return
		case !(p.BC > 0):
			writeError(w, http.StatusBadRequest, "ballistic coefficient must be positive")
			return
		case p.Atmosphere == nil:
			writeError(w, http.StatusBadRequest, "atmosphere is required")
			return
		}
		atm := p.Atmosphere.toAtmosphere(p.Units)
		if !(atm.Pressure > 0) || atm.Humidity < 0 || atm.Humidity > 1 {
			writeError(w, http.StatusBadRequest, "pressure must be positive and humidity between 0 and 1")
			return
		}

		corrected := ballistics.CorrectDragCoefficient(p.BC, *atm)
		if p.AbsolutePressure {
			corrected = ballistics.CorrectDragCoefficientPressureOnly(p.BC, atm.Pressure)
		}
		sos := atm.SpeedOfSound()
		if p.Units.IsMetric() {
			sos = units.FPSToMetersPerSecond(sos)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"coefficient":           p.BC,
			"corrected_coefficient": corrected,
			"factors":               atm.Factors(),
			"speed_of_sound":        sos,
			"absolute_pressure":     p.AbsolutePressure,
		})
	}
}

type batchRequest struct {
	Requests []shotParams `json:"requests"`
}

type batchItem struct {
	Index  int                 `json:"index"`
	Label  string              `json:"label,omitempty"`
	Error  string              `json:"error,omitempty"`
	Status int                 `json:"status"`
	Result *trajectoryResponse `json:"result,omitempty"`
}

// batchHandler handles POST /api/v1/batch. Each item is answered
// independently; the response is 200 even when items fail.
func batchHandler(logger *slog.Logger, slv *solver.Solver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var body batchRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeSolveError(w, err)
			return
		}
		if len(body.Requests) == 0 || len(body.Requests) > maxBatchRequests {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":        fmt.Sprintf("batch must contain 1-%d requests", maxBatchRequests),
				"max_requests": maxBatchRequests,
			})
			return
		}

		items := make([]batchItem, len(body.Requests))
		type table struct{ step, maxRange int }
		tables := make([]table, len(body.Requests))
		var reqs []solver.Request
		var positions []int

		for i, p := range body.Requests {
			items[i] = batchItem{Index: i, Label: p.Label}
			step, maxRange, err := p.table()
			if err == nil {
				var req solver.Request
				req, err = p.toRequest()
				if err == nil {
					tables[i] = table{step, maxRange}
					reqs = append(reqs, req)
					positions = append(positions, i)
					continue
				}
			}
			items[i].Error = err.Error()
			items[i].Status = statusFor(err)
		}

		success := 0
		if len(reqs) > 0 {
			results, _, _ := slv.SolveBatch(r.Context(), reqs)
			for j, br := range results {
				i := positions[j]
				if br.Err != nil {
					items[i].Error = br.Err.Error()
					items[i].Status = statusFor(br.Err)
					continue
				}
				p := body.Requests[i]
				samples := selectSamples(br.Result.Solution, tables[i].step, tables[i].maxRange, p.Units)
				resp := buildTrajectoryResponse(br.Result, samples, tables[i].step, p.Units)
				items[i].Result = &resp
				items[i].Status = http.StatusOK
				success++
			}
		}

		logger.Debug("batch request complete",
			"requests", len(items),
			"success", success,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		writeJSON(w, http.StatusOK, map[string]any{
			"results":     items,
			"success":     success,
			"errors":      len(items) - success,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

type analysisRequest struct {
	Shots     []shotParams `json:"shots"`
	VitalZone float64      `json:"vital_zone,omitempty"` // in
}

// analysisHandler handles POST /api/v1/analysis. Events are reported in
// imperial units.
func analysisHandler(s analysis.Solver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body analysisRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeSolveError(w, err)
			return
		}
		if len(body.Shots) == 0 || len(body.Shots) > maxAnalysisShots {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("analysis must contain 1-%d shots", maxAnalysisShots))
			return
		}
		if body.VitalZone < 0 {
			writeError(w, http.StatusBadRequest, "vital_zone must not be negative")
			return
		}

		out := make([]analysis.ProfileEvents, len(body.Shots))
		var shots []solver.Request
		var positions []int
		for i, p := range body.Shots {
			req, err := p.toRequest()
			if err != nil {
				out[i] = analysis.ProfileEvents{Label: p.Label, Error: err.Error()}
				continue
			}
			shots = append(shots, req)
			positions = append(positions, i)
		}

		results := analysis.Analyze(r.Context(), s, analysis.Request{Shots: shots, VitalZone: body.VitalZone})
		for j, pe := range results {
			out[positions[j]] = pe
		}

		writeJSON(w, http.StatusOK, map[string]any{"results": out})
	}
}
