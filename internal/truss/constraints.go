package truss

// FeasTolerance absorbs floating-point noise when classifying a margin as
// satisfied right on the constraint boundary.
const FeasTolerance = 1e-6

// Margins is the signed constraint vector. A component ≤ 0 means the
// corresponding limit is satisfied.
type Margins struct {
	Stress     float64 // sigma − stress_max
	Buckling   float64 // sigma − sigma_b
	Deflection float64 // delta − deflection_max
}

// EvalMargins maps derived quantities onto the signed constraint vector.
func EvalMargins(q Quantities, c Constants) Margins {
	return Margins{
		Stress:     q.Stress - c.StressMax,
		Buckling:   q.Stress - q.Buckling,
		Deflection: q.Deflection - c.DeflectionMax,
	}
}

// Slice returns the margins in constraint order (stress, buckling, deflection).
func (m Margins) Slice() [3]float64 {
	return [3]float64{m.Stress, m.Buckling, m.Deflection}
}

// Feasible reports whether every margin is within tol of satisfied.
func (m Margins) Feasible(tol float64) bool {
	return m.Stress <= tol && m.Buckling <= tol && m.Deflection <= tol
}

// MaxViolation returns the largest positive margin, or 0 when feasible.
func (m Margins) MaxViolation() float64 {
	v := 0.0
	for _, g := range m.Slice() {
		if g > v {
			v = g
		}
	}
	return v
}
