// Package truss implements the closed-form structural model of a symmetric
// two-bar truss: a pair of thin-walled tubular members spanning from two
// supports a base width apart up to a single loaded apex.
package truss

import (
	"fmt"
	"math"
)

// Constants holds the problem parameters that stay fixed for the duration of
// one sizing run. All values are SI.
type Constants struct {
	BaseWidth     float64 // B - distance between supports (m)
	Thickness     float64 // t - member wall thickness (m)
	Elasticity    float64 // E - modulus of elasticity (Pa)
	Load          float64 // P - vertical load at the apex (N)
	Density       float64 // rho - material density (kg/m³)
	StressMax     float64 // allowable axial stress (Pa)
	DeflectionMax float64 // allowable apex deflection (m)
}

// Design is the pair of sizing variables the optimizer controls.
type Design struct {
	Height   float64 // H - apex height above the supports (m)
	Diameter float64 // d - member tube diameter (m)
}

// Quantities holds everything derived from a design point. Recomputed at
// every iterate, never cached across design points.
type Quantities struct {
	Length     float64 // L - member length (m)
	Area       float64 // A - tube cross-sectional area (m²)
	IOverA     float64 // I/A - second moment of area over area (m²)
	Stress     float64 // sigma - axial member stress (Pa)
	Deflection float64 // delta - vertical apex deflection (m)
	Buckling   float64 // sigma_b - Euler critical stress (Pa)
	Cost       float64 // total member mass (kg)
}

// DomainError reports a design point or constant set on which the model is
// undefined. It indicates a bounds-configuration bug in the caller, not an
// optimization failure.
type DomainError struct {
	Field string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("truss model undefined for %s = %g (must be > 0)", e.Field, e.Value)
}

// Validate checks the constants the model divides by.
func (c Constants) Validate() error {
	if c.Thickness <= 0 {
		return &DomainError{Field: "thickness", Value: c.Thickness}
	}
	if c.Elasticity <= 0 {
		return &DomainError{Field: "elasticity", Value: c.Elasticity}
	}
	return nil
}

// Evaluate computes the derived quantities at a design point.
//
//	L       = sqrt((B/2)² + H²)
//	A       = π·d·t
//	I/A     = (d² + t²) / 8
//	sigma   = P·L / (2·A·H)
//	delta   = P·L³ / (2·E·A·H²)
//	sigma_b = π²·E·(I/A) / L²
//	cost    = 2·rho·A·L
//
// The model performs no clamping; H ≤ 0, d ≤ 0, t ≤ 0 or E ≤ 0 return a
// *DomainError and must be prevented by the caller's variable bounds.
func Evaluate(x Design, c Constants) (Quantities, error) {
	if err := c.Validate(); err != nil {
		return Quantities{}, err
	}
	if x.Height <= 0 {
		return Quantities{}, &DomainError{Field: "height", Value: x.Height}
	}
	if x.Diameter <= 0 {
		return Quantities{}, &DomainError{Field: "diameter", Value: x.Diameter}
	}

	half := c.BaseWidth / 2
	l := math.Sqrt(half*half + x.Height*x.Height)
	a := math.Pi * x.Diameter * c.Thickness
	ioa := (x.Diameter*x.Diameter + c.Thickness*c.Thickness) / 8

	q := Quantities{
		Length:     l,
		Area:       a,
		IOverA:     ioa,
		Stress:     c.Load * l / (2 * a * x.Height),
		Deflection: c.Load * l * l * l / (2 * c.Elasticity * a * x.Height * x.Height),
		Buckling:   math.Pi * math.Pi * c.Elasticity * ioa / (l * l),
		Cost:       2 * c.Density * a * l,
	}
	return q, nil
}
