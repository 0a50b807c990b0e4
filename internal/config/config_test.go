package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexiusacademia/gotruss/internal/solver"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
constants:
  baseWidth: 1.0
  thickness: 0.01
  elasticity: 2.0e11
  load: 1.0e5
  density: 7850
  stressMax: 2.0e8
  deflectionMax: 0.01
initial:
  height: 1.0
  diameter: 0.1
bounds:
  heightMin: 0.25
  heightMax: 10.0
  diameterMin: 0.01
  diameterMax: 0.5
solver:
  algorithm: sqp
  maxIterations: 150
  tolerance: 1.0e-9
logging:
  level: debug
  format: console
`

func TestLoadValidConfig(t *testing.T) {
	p, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	c := p.TrussConstants()
	if c.Elasticity != 2.0e11 || c.Density != 7850 {
		t.Errorf("constants = %+v, want elasticity 2e11, density 7850", c)
	}
	if x := p.InitialDesign(); x.Height != 1.0 || x.Diameter != 0.1 {
		t.Errorf("initial = %+v, want (1.0, 0.1)", x)
	}
	if b := p.SolverBounds(); b.HeightMin != 0.25 || b.DiameterMax != 0.5 {
		t.Errorf("bounds = %+v", b)
	}

	opts := p.SolverOptions()
	if opts.Algorithm != solver.SequentialQuadraticProgramming {
		t.Errorf("algorithm = %v, want SQP", opts.Algorithm)
	}
	if opts.MaxIterations != 150 || opts.Tolerance != 1.0e-9 {
		t.Errorf("options = %+v", opts)
	}
	if !opts.UseGradients {
		t.Error("UseGradients should default to true when unset")
	}
	if p.Logging.Level != "debug" || p.Logging.Format != "console" {
		t.Errorf("logging = %+v", p.Logging)
	}
}

func TestLoadAlgorithmNames(t *testing.T) {
	tests := []struct {
		name string
		want solver.Algorithm
	}{
		{"sqp", solver.SequentialQuadraticProgramming},
		{"", solver.SequentialQuadraticProgramming},
		{"interior-point", solver.InteriorPoint},
		{"IP", solver.InteriorPoint},
	}
	for _, tt := range tests {
		t.Run("name "+tt.name, func(t *testing.T) {
			p := Default()
			p.Solver.Algorithm = tt.name
			got, err := p.Algorithm()
			if err != nil {
				t.Fatalf("Algorithm() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Algorithm(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		replace string
		with    string
		wantSub string
	}{
		{"zero thickness", "thickness: 0.01", "thickness: 0", "thickness"},
		{"negative load", "load: 1.0e5", "load: -5", "load"},
		{"inverted height bounds", "heightMax: 10.0", "heightMax: 0.1", "heightMax"},
		{"zero diameter floor", "diameterMin: 0.01", "diameterMin: 0", "diameterMin"},
		{"unknown algorithm", "algorithm: sqp", "algorithm: simplex", "algorithm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(validConfig, tt.replace, tt.with, 1)
			_, err := Load(writeConfig(t, body))
			if err == nil {
				t.Fatal("Load() = nil error, want rejection")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() on missing file: want error")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
}
