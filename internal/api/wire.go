package api

import (
	"fmt"
	"math"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/solver"
	"github.com/star/ballistics/internal/units"
)

// maxRows caps the rows one trajectory response may return.
const maxRows = 5000

const (
	defaultStep     = 10
	defaultMaxRange = 1000
)

// atmosphereParams is an atmosphere in the caller's unit system.
// Imperial: ft, inHg, °F. Metric: m, hPa, °C. Humidity is a fraction in both.
type atmosphereParams struct {
	Altitude    float64 `json:"altitude"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// windParams is a wind in the caller's unit system (mph or km/h).
type windParams struct {
	Speed float64 `json:"speed"`
	Angle float64 `json:"angle"`
}

// shotParams is the JSON body of a trajectory, zero or batch item request.
//
// Imperial units: velocity ft/s, sight height and y intercept in, zero range
// and distances yd, weight gr. Metric units: velocity m/s, sight height mm,
// y intercept cm, zero range and distances m, weight g.
type shotParams struct {
	Label string       `json:"label,omitempty"`
	Units units.System `json:"units,omitempty"`

	Drag        string  `json:"drag"`
	BC          float64 `json:"bc"`
	Velocity    float64 `json:"velocity"`
	SightHeight float64 `json:"sight_height"`
	Weight      float64 `json:"weight"`

	ZeroRange  float64 `json:"zero_range"`
	YIntercept float64 `json:"y_intercept"`

	HillAngle float64    `json:"hill_angle"`
	Wind      windParams `json:"wind"`

	Atmosphere       *atmosphereParams `json:"atmosphere,omitempty"`
	ZeroAtmosphere   *atmosphereParams `json:"zero_atmosphere,omitempty"`
	AbsolutePressure bool              `json:"absolute_pressure,omitempty"`

	Step     int `json:"step,omitempty"`      // table spacing, yd or m
	MaxRange int `json:"max_range,omitempty"` // last table row, yd or m
}

// toRequest converts p into an imperial solver request.
func (p shotParams) toRequest() (solver.Request, error) {
	if !p.Units.Valid() {
		return solver.Request{}, fmt.Errorf("%w: unknown units %q", solver.ErrInvalidRequest, p.Units)
	}
	drag, err := ballistics.ParseDragFunction(p.Drag)
	if err != nil {
		return solver.Request{}, fmt.Errorf("%w: %v", solver.ErrInvalidRequest, err)
	}

	r := solver.Request{
		Label: p.Label,
		Load: ballistics.Load{
			Drag:           drag,
			Coefficient:    p.BC,
			MuzzleVelocity: p.Velocity,
			SightHeight:    p.SightHeight,
			WeightGrains:   p.Weight,
		},
		ZeroRange:        p.ZeroRange,
		YIntercept:       p.YIntercept,
		HillAngle:        p.HillAngle,
		Wind:             ballistics.Wind{Speed: p.Wind.Speed, Angle: p.Wind.Angle},
		AbsolutePressure: p.AbsolutePressure,
	}
	if p.Units.IsMetric() {
		r.Load.MuzzleVelocity = units.MetersPerSecondToFPS(p.Velocity)
		r.Load.SightHeight = units.MillimetersToInches(p.SightHeight)
		r.Load.WeightGrains = units.GramsToGrains(p.Weight)
		r.ZeroRange = units.MetersToYards(p.ZeroRange)
		r.YIntercept = units.CentimetersToInches(p.YIntercept)
		r.Wind.Speed = units.KMHToMPH(p.Wind.Speed)
	}
	r.Atmosphere = p.Atmosphere.toAtmosphere(p.Units)
	r.ZeroAtmosphere = p.ZeroAtmosphere.toAtmosphere(p.Units)

	return r, r.Validate()
}

func (a *atmosphereParams) toAtmosphere(sys units.System) *ballistics.Atmosphere {
	if a == nil {
		return nil
	}
	atm := ballistics.Atmosphere{
		Altitude:    a.Altitude,
		Pressure:    a.Pressure,
		Temperature: a.Temperature,
		Humidity:    a.Humidity,
	}
	if sys.IsMetric() {
		atm.Altitude = units.MetersToFeet(a.Altitude)
		atm.Pressure = units.HectopascalsToInHg(a.Pressure)
		atm.Temperature = units.CelsiusToFahrenheit(a.Temperature)
	}
	return &atm
}

// table returns the step and last row distance for p, applying defaults,
// and rejects tables over the row budget.
func (p shotParams) table() (step, maxRange int, err error) {
	step, maxRange = p.Step, p.MaxRange
	if step == 0 {
		step = defaultStep
	}
	if maxRange == 0 {
		maxRange = defaultMaxRange
	}
	if step < 1 || maxRange < 1 {
		return 0, 0, fmt.Errorf("%w: step and max_range must be positive", solver.ErrInvalidRequest)
	}
	if maxRange/step+1 > maxRows {
		return 0, 0, errRowBudget
	}
	return step, maxRange, nil
}

// selectSamples picks the table rows at every step up to maxRange, measured
// in yards or meters. Metric rows use the nearest whole-yard sample.
func selectSamples(sol *ballistics.Solution, step, maxRange int, sys units.System) []ballistics.Sample {
	if !sys.IsMetric() {
		return sol.Every(step, maxRange)
	}
	var out []ballistics.Sample
	for d := 0; d <= maxRange; d += step {
		yard := int(math.Round(units.MetersToYards(float64(d))))
		s, ok := sol.At(yard)
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

// row is one line of a trajectory table in the caller's unit system.
type row struct {
	Range       float64 `json:"range"`   // yd or m
	Path        float64 `json:"path"`    // in or cm
	MOA         float64 `json:"moa"`     // elevation correction
	Mils        float64 `json:"mils"`    // elevation correction
	Time        float64 `json:"time"`    // s
	Windage     float64 `json:"windage"` // in or cm
	WindageMOA  float64 `json:"windage_moa"`
	WindageMils float64 `json:"windage_mils"`
	Velocity    float64 `json:"velocity"` // ft/s or m/s
	Energy      float64 `json:"energy"`   // ft·lbf or J
}

func toRow(s ballistics.Sample, sys units.System) row {
	r := row{
		Range:       float64(s.Yard),
		Path:        s.Path,
		MOA:         s.MOA,
		Mils:        units.MOAToMils(s.MOA),
		Time:        s.Time,
		Windage:     s.Windage,
		WindageMOA:  s.WindageMOA,
		WindageMils: units.MOAToMils(s.WindageMOA),
		Velocity:    s.Velocity,
		Energy:      s.Energy,
	}
	if sys.IsMetric() {
		r.Range = math.Round(units.YardsToMeters(float64(s.Yard)))
		r.Path = units.InchesToCentimeters(s.Path)
		r.Windage = units.InchesToCentimeters(s.Windage)
		r.Velocity = units.FPSToMetersPerSecond(s.Velocity)
		r.Energy = units.FootPoundsToJoules(s.Energy)
	}
	return r
}

// trajectoryResponse is the JSON body of a solved trajectory.
type trajectoryResponse struct {
	Label           string                  `json:"label,omitempty"`
	Units           units.System            `json:"units"`
	Drag            ballistics.DragFunction `json:"drag"`
	Coefficient     float64                 `json:"coefficient"`
	ZeroCoefficient float64                 `json:"zero_coefficient"`
	BoreAngle       float64                 `json:"bore_angle"`
	BoreAngleMOA    float64                 `json:"bore_angle_moa"`
	Termination     ballistics.Termination  `json:"termination"`
	Truncated       bool                    `json:"truncated"`
	SamplesTotal    int                     `json:"samples_total"`
	Step            int                     `json:"step"`
	Rows            []row                   `json:"rows"`
	DurationMs      int64                   `json:"duration_ms"`
}

func buildTrajectoryResponse(res *solver.Result, samples []ballistics.Sample, step int, sys units.System) trajectoryResponse {
	if sys == "" {
		sys = units.Imperial
	}
	rows := make([]row, len(samples))
	for i, s := range samples {
		rows[i] = toRow(s, sys)
	}
	return trajectoryResponse{
		Label:           res.Request.Label,
		Units:           sys,
		Drag:            res.Request.Load.Drag,
		Coefficient:     res.Coefficient,
		ZeroCoefficient: res.ZeroCoefficient,
		BoreAngle:       res.BoreAngle,
		BoreAngleMOA:    ballistics.DegreesToMOA(res.BoreAngle),
		Termination:     res.Solution.Termination,
		Truncated:       res.Truncated,
		SamplesTotal:    res.Solution.Len(),
		Step:            step,
		Rows:            rows,
		DurationMs:      res.Duration.Milliseconds(),
	}
}
