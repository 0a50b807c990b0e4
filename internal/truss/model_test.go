package truss

import (
	"errors"
	"math"
	"testing"
)

// referenceConstants is the worked steel-truss case used throughout the tests:
// 1 m base, 10 mm wall, structural steel, 100 kN load.
func referenceConstants() Constants {
	return Constants{
		BaseWidth:     1.0,
		Thickness:     0.01,
		Elasticity:    2.0e11,
		Load:          1.0e5,
		Density:       7850,
		StressMax:     2.0e8,
		DeflectionMax: 0.01,
	}
}

func relClose(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol*math.Abs(want)
}

func TestEvaluateReferenceCase(t *testing.T) {
	q, err := Evaluate(Design{Height: 1.0, Diameter: 0.1}, referenceConstants())
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"Length", q.Length, 1.118034},
		{"Area", q.Area, 0.0031416},
		{"IOverA", q.IOverA, 0.0012625},
		{"Stress", q.Stress, 1.780e7},
		{"Deflection", q.Deflection, 1.1121e-4},
		{"Buckling", q.Buckling, 1.9944e9},
		{"Cost", q.Cost, 55.140},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !relClose(c.got, c.want, 1e-3) {
				t.Errorf("%s = %.6g, want %.6g within 1e-3 relative", c.name, c.got, c.want)
			}
		})
	}
}

func TestEvaluateClosedForm(t *testing.T) {
	// Evaluate must reproduce the closed-form relations exactly for
	// arbitrary positive inputs.
	c := referenceConstants()
	points := []Design{
		{Height: 0.3, Diameter: 0.02},
		{Height: 1.0, Diameter: 0.1},
		{Height: 4.2, Diameter: 0.37},
		{Height: 12.0, Diameter: 0.005},
	}
	for _, x := range points {
		q, err := Evaluate(x, c)
		if err != nil {
			t.Fatalf("Evaluate(%+v) error: %v", x, err)
		}
		l := math.Sqrt(0.25 + x.Height*x.Height)
		a := math.Pi * x.Diameter * c.Thickness
		if !relClose(q.Length, l, 1e-9) {
			t.Errorf("Length(%+v) = %g, want %g", x, q.Length, l)
		}
		if !relClose(q.Stress, c.Load*l/(2*a*x.Height), 1e-9) {
			t.Errorf("Stress(%+v) = %g, want closed form", x, q.Stress)
		}
		if !relClose(q.Deflection, c.Load*l*l*l/(2*c.Elasticity*a*x.Height*x.Height), 1e-9) {
			t.Errorf("Deflection(%+v) = %g, want closed form", x, q.Deflection)
		}
		if !relClose(q.Buckling, math.Pi*math.Pi*c.Elasticity*(x.Diameter*x.Diameter+c.Thickness*c.Thickness)/8/(l*l), 1e-9) {
			t.Errorf("Buckling(%+v) = %g, want closed form", x, q.Buckling)
		}
		if !relClose(q.Cost, 2*c.Density*a*l, 1e-9) {
			t.Errorf("Cost(%+v) = %g, want closed form", x, q.Cost)
		}
	}
}

func TestEvaluateMonotonicity(t *testing.T) {
	// For fixed H, P, t, B: a larger diameter must strictly increase area
	// and strictly decrease stress and deflection.
	c := referenceConstants()
	base, err := Evaluate(Design{Height: 1.5, Diameter: 0.05}, c)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	for _, d := range []float64{0.06, 0.1, 0.25, 0.8} {
		q, err := Evaluate(Design{Height: 1.5, Diameter: d}, c)
		if err != nil {
			t.Fatalf("Evaluate(d=%g) error: %v", d, err)
		}
		if q.Area <= base.Area {
			t.Errorf("Area(d=%g) = %g, not strictly greater than %g", d, q.Area, base.Area)
		}
		if q.Stress >= base.Stress {
			t.Errorf("Stress(d=%g) = %g, not strictly less than %g", d, q.Stress, base.Stress)
		}
		if q.Deflection >= base.Deflection {
			t.Errorf("Deflection(d=%g) = %g, not strictly less than %g", d, q.Deflection, base.Deflection)
		}
		base = q
	}
}

func TestEvaluateDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		design Design
		mutate func(*Constants)
	}{
		{name: "zero height", design: Design{Height: 0, Diameter: 0.1}},
		{name: "negative height", design: Design{Height: -1, Diameter: 0.1}},
		{name: "zero diameter", design: Design{Height: 1, Diameter: 0}},
		{name: "zero thickness", design: Design{Height: 1, Diameter: 0.1},
			mutate: func(c *Constants) { c.Thickness = 0 }},
		{name: "negative elasticity", design: Design{Height: 1, Diameter: 0.1},
			mutate: func(c *Constants) { c.Elasticity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := referenceConstants()
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			_, err := Evaluate(tt.design, c)
			var derr *DomainError
			if !errors.As(err, &derr) {
				t.Fatalf("Evaluate() error = %v, want *DomainError", err)
			}
		})
	}
}
