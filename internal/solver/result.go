package solver

import "github.com/alexiusacademia/gotruss/internal/truss"

// Result is the immutable record of one finished optimization run.
type Result struct {
	Design     truss.Design
	Quantities truss.Quantities
	Margins    truss.Margins
	Status     Status
	Iterations int
	// History carries one record per driver iteration, in order.
	History []Iteration
}

// Iteration is one row of the run history.
type Iteration struct {
	N            int
	Cost         float64
	MaxViolation float64
	StepNorm     float64
}

// newResult packages the driver's final iterate. Packaging only; no
// computation happens here.
func newResult(p point, status Status, iterations int, history []Iteration) *Result {
	return &Result{
		Design:     p.x,
		Quantities: p.q,
		Margins:    p.m,
		Status:     status,
		Iterations: iterations,
		History:    history,
	}
}

// Feasible reports whether every final margin is within tol of satisfied.
func (r *Result) Feasible(tol float64) bool {
	return r.Margins.Feasible(tol)
}

// Flat returns the result as the flat key/value record consumed by file
// output and external tooling.
func (r *Result) Flat() map[string]any {
	return map[string]any{
		"H":            r.Design.Height,
		"d":            r.Design.Diameter,
		"L":            r.Quantities.Length,
		"A":            r.Quantities.Area,
		"IoverA":       r.Quantities.IOverA,
		"sigma":        r.Quantities.Stress,
		"delta":        r.Quantities.Deflection,
		"sigma_b":      r.Quantities.Buckling,
		"cost":         r.Quantities.Cost,
		"g_stress":     r.Margins.Stress,
		"g_buckling":   r.Margins.Buckling,
		"g_deflection": r.Margins.Deflection,
		"status":       r.Status.String(),
		"iterations":   r.Iterations,
	}
}

// CostHistory extracts the cost column of the history, for plotting.
func (r *Result) CostHistory() []float64 {
	out := make([]float64, len(r.History))
	for i, it := range r.History {
		out[i] = it.Cost
	}
	return out
}
