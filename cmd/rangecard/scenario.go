package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/solver"
)

// scenario is a range card definition read from a TOML file:
//
//	[load]
//	name = "308 168gr"
//	drag = "G1"
//	bc = 0.465
//	velocity = 2650
//	sight_height = 1.6
//	weight = 168
//
//	[zero]
//	range = 200
//
//	[conditions]
//	hill_angle = 0
//	wind_speed = 10
//	wind_angle = 90
//
//	[atmosphere]
//	altitude = 5000
//	pressure = 24.9
//	temperature = 40
//	humidity = 0.3
//
//	[table]
//	step = 25
//	max = 800
type scenario struct {
	Request solver.Request
	Step    int
	Max     int
}

func loadScenario(path string) (*scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("table.step", 25)
	v.SetDefault("table.max", 1000)
	v.SetDefault("load.drag", "G1")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	drag, err := ballistics.ParseDragFunction(v.GetString("load.drag"))
	if err != nil {
		return nil, fmt.Errorf("%s: load.drag: %w", path, err)
	}

	sc := &scenario{
		Request: solver.Request{
			Label: v.GetString("load.name"),
			Load: ballistics.Load{
				Drag:           drag,
				Coefficient:    v.GetFloat64("load.bc"),
				MuzzleVelocity: v.GetFloat64("load.velocity"),
				SightHeight:    v.GetFloat64("load.sight_height"),
				WeightGrains:   v.GetFloat64("load.weight"),
			},
			ZeroRange:  v.GetFloat64("zero.range"),
			YIntercept: v.GetFloat64("zero.y_intercept"),
			HillAngle:  v.GetFloat64("conditions.hill_angle"),
			Wind: ballistics.Wind{
				Speed: v.GetFloat64("conditions.wind_speed"),
				Angle: v.GetFloat64("conditions.wind_angle"),
			},
			AbsolutePressure: v.GetBool("atmosphere.absolute_pressure"),
		},
		Step: v.GetInt("table.step"),
		Max:  v.GetInt("table.max"),
	}

	if v.IsSet("atmosphere") {
		sc.Request.Atmosphere = readAtmosphere(v, "atmosphere")
	}
	if v.IsSet("zero_atmosphere") {
		sc.Request.ZeroAtmosphere = readAtmosphere(v, "zero_atmosphere")
	}

	if err := sc.Request.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// readAtmosphere reads a table of conditions, filling unset keys from the
// standard atmosphere.
func readAtmosphere(v *viper.Viper, key string) *ballistics.Atmosphere {
	atm := ballistics.StandardAtmosphere()
	if v.IsSet(key + ".altitude") {
		atm.Altitude = v.GetFloat64(key + ".altitude")
	}
	if v.IsSet(key + ".pressure") {
		atm.Pressure = v.GetFloat64(key + ".pressure")
	}
	if v.IsSet(key + ".temperature") {
		atm.Temperature = v.GetFloat64(key + ".temperature")
	}
	if v.IsSet(key + ".humidity") {
		atm.Humidity = v.GetFloat64(key + ".humidity")
	}
	return &atm
}
