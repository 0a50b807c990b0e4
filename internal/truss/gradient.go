package truss

import "math"

// Gradients holds the analytic partial derivatives of the model outputs with
// respect to the two design variables. Each pair is (∂/∂H, ∂/∂d).
type Gradients struct {
	Cost       [2]float64
	Stress     [2]float64
	Deflection [2]float64
	Buckling   [2]float64
}

// Gradient differentiates the Evaluate relations by the chain rule. It must
// stay consistent with Evaluate; the finite-difference test in
// gradient_test.go guards against drift.
func Gradient(x Design, c Constants) (Gradients, error) {
	q, err := Evaluate(x, c)
	if err != nil {
		return Gradients{}, err
	}

	h, d := x.Height, x.Diameter
	l, a := q.Length, q.Area
	half := c.BaseWidth / 2

	var g Gradients

	// cost = 2·rho·A·L with dL/dH = H/L, dA/dd = π·t
	g.Cost[0] = 2 * c.Density * a * h / l
	g.Cost[1] = 2 * c.Density * math.Pi * c.Thickness * l

	// sigma = P·L/(2·A·H); d(L/H)/dH = (H²−L²)/(H²·L) = −(B/2)²/(H²·L)
	g.Stress[0] = -c.Load * half * half / (2 * a * h * h * l)
	g.Stress[1] = -q.Stress / d

	// delta = P·L³/(2·E·A·H²)
	g.Deflection[0] = c.Load * l * (3*h*h - 2*l*l) / (2 * c.Elasticity * a * h * h * h)
	g.Deflection[1] = -q.Deflection / d

	// sigma_b = π²·E·(d²+t²)/(8·L²)
	g.Buckling[0] = -2 * q.Buckling * h / (l * l)
	g.Buckling[1] = math.Pi * math.Pi * c.Elasticity * d / (4 * l * l)

	return g, nil
}
