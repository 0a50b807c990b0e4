package solver

import (
	"context"
	"math"
	"testing"

	"github.com/alexiusacademia/gotruss/internal/truss"
)

func referenceConstants() truss.Constants {
	return truss.Constants{
		BaseWidth:     1.0,
		Thickness:     0.01,
		Elasticity:    2.0e11,
		Load:          1.0e5,
		Density:       7850,
		StressMax:     2.0e8,
		DeflectionMax: 0.01,
	}
}

func referenceBounds() Bounds {
	return Bounds{HeightMin: 0.25, HeightMax: 10.0, DiameterMin: 0.01, DiameterMax: 0.5}
}

// The reference problem has a unique constrained minimum; the value below
// is pinned so a solver regression shows up as a cost change.
const referenceOptimalCost = 4.20744

func runReference(t *testing.T, opts Options) *Result {
	t.Helper()
	d, err := New(referenceConstants(), referenceBounds(), opts, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	res, err := d.Run(context.Background(), truss.Design{Height: 1.0, Diameter: 0.1})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return res
}

func TestRunConvergesOnReferenceProblem(t *testing.T) {
	res := runReference(t, Options{UseGradients: true})

	if res.Status != Converged {
		t.Fatalf("status = %v, want Converged", res.Status)
	}
	if math.Abs(res.Quantities.Cost-referenceOptimalCost) > 1e-3*referenceOptimalCost {
		t.Errorf("cost = %g, want %g within 1e-3 relative", res.Quantities.Cost, referenceOptimalCost)
	}
	for name, g := range map[string]float64{
		"g_stress":     res.Margins.Stress,
		"g_buckling":   res.Margins.Buckling,
		"g_deflection": res.Margins.Deflection,
	} {
		if g > 1e-6 {
			t.Errorf("%s = %g, want <= 1e-6", name, g)
		}
	}
	if res.Iterations > 50 {
		t.Errorf("iterations = %d, expected well under 50", res.Iterations)
	}
	if len(res.History) == 0 || len(res.History) > res.Iterations {
		t.Errorf("history length %d inconsistent with %d iterations", len(res.History), res.Iterations)
	}
}

func TestRunFeasibilityRoundTrip(t *testing.T) {
	// Recomputing the margins from the reported design must agree with
	// the margins in the result and stay within tolerance.
	res := runReference(t, Options{UseGradients: true})
	if res.Status != Converged {
		t.Fatalf("status = %v, want Converged", res.Status)
	}
	q, err := truss.Evaluate(res.Design, referenceConstants())
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	m := truss.EvalMargins(q, referenceConstants())
	if !m.Feasible(truss.FeasTolerance) {
		t.Errorf("re-evaluated margins %+v not feasible within %g", m, truss.FeasTolerance)
	}
	if m != res.Margins {
		t.Errorf("re-evaluated margins %+v differ from reported %+v", m, res.Margins)
	}
}

func TestRunIdempotentFromOptimum(t *testing.T) {
	first := runReference(t, Options{UseGradients: true})
	if first.Status != Converged {
		t.Fatalf("status = %v, want Converged", first.Status)
	}

	d, err := New(referenceConstants(), referenceBounds(), Options{UseGradients: true}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	second, err := d.Run(context.Background(), first.Design)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if second.Status != Converged {
		t.Fatalf("rerun status = %v, want Converged", second.Status)
	}
	if second.Iterations > 1 {
		t.Errorf("rerun iterations = %d, want 0 or 1", second.Iterations)
	}
	if math.Abs(second.Quantities.Cost-first.Quantities.Cost) > 1e-6*first.Quantities.Cost {
		t.Errorf("rerun cost = %g, want %g", second.Quantities.Cost, first.Quantities.Cost)
	}
}

func TestRunFiniteDifferenceFallback(t *testing.T) {
	// With analytic gradients disabled the driver must still find the
	// same optimum from central differences.
	res := runReference(t, Options{UseGradients: false})
	if res.Status != Converged {
		t.Fatalf("status = %v, want Converged", res.Status)
	}
	if math.Abs(res.Quantities.Cost-referenceOptimalCost) > 1e-3*referenceOptimalCost {
		t.Errorf("cost = %g, want %g within 1e-3 relative", res.Quantities.Cost, referenceOptimalCost)
	}
}

func TestRunInteriorPoint(t *testing.T) {
	res := runReference(t, Options{
		Algorithm:     InteriorPoint,
		MaxIterations: 800,
		UseGradients:  true,
	})
	if res.Status != Converged {
		t.Fatalf("status = %v, want Converged", res.Status)
	}
	if !res.Feasible(truss.FeasTolerance) {
		t.Errorf("margins %+v not feasible", res.Margins)
	}
	if math.Abs(res.Quantities.Cost-referenceOptimalCost) > 1e-3*referenceOptimalCost {
		t.Errorf("cost = %g, want %g within 1e-3 relative", res.Quantities.Cost, referenceOptimalCost)
	}
}

func TestRunInfeasibleBounds(t *testing.T) {
	// Tall forced geometry with tiny members: buckling and deflection
	// cannot be satisfied anywhere in the box. The driver must terminate
	// with Infeasible and still report its least-violating iterate.
	d, err := New(referenceConstants(), Bounds{
		HeightMin: 50, HeightMax: 60, DiameterMin: 0.01, DiameterMax: 0.02,
	}, Options{UseGradients: true}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	res, err := d.Run(context.Background(), truss.Design{Height: 55, Diameter: 0.015})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != Infeasible {
		t.Fatalf("status = %v, want Infeasible", res.Status)
	}
	if res.Margins.MaxViolation() <= 0 {
		t.Errorf("max violation = %g, expected positive at infeasible termination", res.Margins.MaxViolation())
	}
	if res.Design.Height < 50 || res.Design.Height > 60 {
		t.Errorf("reported height %g outside bounds", res.Design.Height)
	}
}

func TestRunBoundActiveOptimum(t *testing.T) {
	// Raising the diameter floor above the unconstrained optimum pushes
	// the solution into the box corner where both bounds are active.
	d, err := New(referenceConstants(), Bounds{
		HeightMin: 0.25, HeightMax: 10.0, DiameterMin: 0.02, DiameterMax: 0.5,
	}, Options{UseGradients: true}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	res, err := d.Run(context.Background(), truss.Design{Height: 1.0, Diameter: 0.1})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Status != Converged {
		t.Fatalf("status = %v, want Converged", res.Status)
	}
	if math.Abs(res.Design.Height-0.25) > 1e-6 || math.Abs(res.Design.Diameter-0.02) > 1e-6 {
		t.Errorf("design = %+v, want corner (0.25, 0.02)", res.Design)
	}
	if !res.Feasible(truss.FeasTolerance) {
		t.Errorf("margins %+v not feasible", res.Margins)
	}
}

func TestRunTruncatedBudget(t *testing.T) {
	res := runReference(t, Options{MaxIterations: 3, UseGradients: true})
	if res.Status != MaxIterationsReached {
		t.Fatalf("status = %v, want MaxIterationsReached", res.Status)
	}
	if res.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", res.Iterations)
	}
}

func TestRunContextCancellation(t *testing.T) {
	d, err := New(referenceConstants(), referenceBounds(), Options{UseGradients: true}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Run(ctx, truss.Design{Height: 1.0, Diameter: 0.1}); err == nil {
		t.Fatal("Run() with cancelled context: want error, got nil")
	}
}

func TestNewRejectsBadSetup(t *testing.T) {
	tests := []struct {
		name   string
		consts truss.Constants
		bounds Bounds
	}{
		{"zero thickness", truss.Constants{Elasticity: 1}, referenceBounds()},
		{"zero elasticity", truss.Constants{Thickness: 1}, referenceBounds()},
		{"zero lower bounds", referenceConstants(), Bounds{HeightMax: 1, DiameterMax: 1}},
		{"inverted height bounds", referenceConstants(), Bounds{HeightMin: 2, HeightMax: 1, DiameterMin: 0.1, DiameterMax: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.consts, tt.bounds, Options{}, nil); err == nil {
				t.Fatal("New() = nil error, want rejection")
			}
		})
	}
}

func TestResultFlat(t *testing.T) {
	res := runReference(t, Options{UseGradients: true})
	flat := res.Flat()
	for _, key := range []string{
		"H", "d", "L", "A", "IoverA", "sigma", "delta", "sigma_b", "cost",
		"g_stress", "g_buckling", "g_deflection", "status", "iterations",
	} {
		if _, ok := flat[key]; !ok {
			t.Errorf("Flat() missing key %q", key)
		}
	}
	if flat["status"] != "converged" {
		t.Errorf("Flat()[status] = %v, want %q", flat["status"], "converged")
	}
	if flat["cost"] != res.Quantities.Cost {
		t.Errorf("Flat()[cost] = %v, want %v", flat["cost"], res.Quantities.Cost)
	}
}
