// Package config loads the truss sizing problem from a YAML file: physical
// constants, the starting design, the variable box, solver options, and
// logging preferences.
package config

import (
	"fmt"
	"strings"

	"github.com/alexiusacademia/gotruss/internal/solver"
	"github.com/alexiusacademia/gotruss/internal/truss"
	"github.com/spf13/viper"
)

// Problem is one complete optimization setup as read from disk.
type Problem struct {
	Constants ConstantsConfig `mapstructure:"constants"`
	Initial   InitialConfig   `mapstructure:"initial"`
	Bounds    BoundsConfig    `mapstructure:"bounds"`
	Solver    SolverConfig    `mapstructure:"solver"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ConstantsConfig mirrors truss.Constants with YAML field names.
type ConstantsConfig struct {
	BaseWidth     float64 `mapstructure:"baseWidth"`
	Thickness     float64 `mapstructure:"thickness"`
	Elasticity    float64 `mapstructure:"elasticity"`
	Load          float64 `mapstructure:"load"`
	Density       float64 `mapstructure:"density"`
	StressMax     float64 `mapstructure:"stressMax"`
	DeflectionMax float64 `mapstructure:"deflectionMax"`
}

// InitialConfig is the starting design point.
type InitialConfig struct {
	Height   float64 `mapstructure:"height"`
	Diameter float64 `mapstructure:"diameter"`
}

// BoundsConfig is the design-variable box.
type BoundsConfig struct {
	HeightMin   float64 `mapstructure:"heightMin"`
	HeightMax   float64 `mapstructure:"heightMax"`
	DiameterMin float64 `mapstructure:"diameterMin"`
	DiameterMax float64 `mapstructure:"diameterMax"`
}

// SolverConfig is the subset of solver.Options exposed in config files.
type SolverConfig struct {
	Algorithm     string  `mapstructure:"algorithm"` // sqp (default) or interior-point
	MaxIterations int     `mapstructure:"maxIterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
	FeasTolerance float64 `mapstructure:"feasTolerance"`
	UseGradients  *bool   `mapstructure:"useGradients"` // default true
}

// LoggingConfig holds logging preferences.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// Load reads and validates a problem file.
func Load(path string) (*Problem, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var p Problem
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks every field the solver will divide by or bound against.
func (p *Problem) Validate() error {
	c := p.Constants
	positives := []struct {
		name  string
		value float64
	}{
		{"constants.baseWidth", c.BaseWidth},
		{"constants.thickness", c.Thickness},
		{"constants.elasticity", c.Elasticity},
		{"constants.load", c.Load},
		{"constants.density", c.Density},
		{"constants.stressMax", c.StressMax},
		{"constants.deflectionMax", c.DeflectionMax},
		{"initial.height", p.Initial.Height},
		{"initial.diameter", p.Initial.Diameter},
		{"bounds.heightMin", p.Bounds.HeightMin},
		{"bounds.diameterMin", p.Bounds.DiameterMin},
	}
	for _, f := range positives {
		if f.value <= 0 {
			return fmt.Errorf("%s must be > 0, got %g", f.name, f.value)
		}
	}
	if p.Bounds.HeightMax < p.Bounds.HeightMin {
		return fmt.Errorf("bounds.heightMax %g below bounds.heightMin %g", p.Bounds.HeightMax, p.Bounds.HeightMin)
	}
	if p.Bounds.DiameterMax < p.Bounds.DiameterMin {
		return fmt.Errorf("bounds.diameterMax %g below bounds.diameterMin %g", p.Bounds.DiameterMax, p.Bounds.DiameterMin)
	}
	if _, err := p.Algorithm(); err != nil {
		return err
	}
	return nil
}

// TrussConstants converts to the model's constant set.
func (p *Problem) TrussConstants() truss.Constants {
	return truss.Constants{
		BaseWidth:     p.Constants.BaseWidth,
		Thickness:     p.Constants.Thickness,
		Elasticity:    p.Constants.Elasticity,
		Load:          p.Constants.Load,
		Density:       p.Constants.Density,
		StressMax:     p.Constants.StressMax,
		DeflectionMax: p.Constants.DeflectionMax,
	}
}

// InitialDesign converts to the model's design point.
func (p *Problem) InitialDesign() truss.Design {
	return truss.Design{Height: p.Initial.Height, Diameter: p.Initial.Diameter}
}

// SolverBounds converts to the driver's box.
func (p *Problem) SolverBounds() solver.Bounds {
	return solver.Bounds{
		HeightMin:   p.Bounds.HeightMin,
		HeightMax:   p.Bounds.HeightMax,
		DiameterMin: p.Bounds.DiameterMin,
		DiameterMax: p.Bounds.DiameterMax,
	}
}

// Algorithm parses the configured algorithm name.
func (p *Problem) Algorithm() (solver.Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(p.Solver.Algorithm)) {
	case "", "sqp":
		return solver.SequentialQuadraticProgramming, nil
	case "interior-point", "interior_point", "ip":
		return solver.InteriorPoint, nil
	}
	return 0, fmt.Errorf("solver.algorithm %q not recognized (sqp, interior-point)", p.Solver.Algorithm)
}

// SolverOptions converts to driver options, applying defaults for unset
// fields.
func (p *Problem) SolverOptions() solver.Options {
	alg, _ := p.Algorithm()
	useGrad := true
	if p.Solver.UseGradients != nil {
		useGrad = *p.Solver.UseGradients
	}
	return solver.Options{
		Algorithm:     alg,
		MaxIterations: p.Solver.MaxIterations,
		Tolerance:     p.Solver.Tolerance,
		FeasTolerance: p.Solver.FeasTolerance,
		UseGradients:  useGrad,
	}
}

// Default returns the worked steel-truss problem used when no config file is
// given: 1 m base, 10 mm wall, structural steel, 100 kN apex load.
func Default() *Problem {
	return &Problem{
		Constants: ConstantsConfig{
			BaseWidth:     1.0,
			Thickness:     0.01,
			Elasticity:    2.0e11,
			Load:          1.0e5,
			Density:       7850,
			StressMax:     2.0e8,
			DeflectionMax: 0.01,
		},
		Initial: InitialConfig{Height: 1.0, Diameter: 0.1},
		Bounds:  BoundsConfig{HeightMin: 0.25, HeightMax: 10.0, DiameterMin: 0.01, DiameterMax: 0.5},
	}
}
