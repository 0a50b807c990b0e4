// Package solver sizes a two-bar truss by constrained nonlinear minimization
// of its material cost, driving the stress, buckling, and deflection margins
// of the truss model to feasibility.
package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/alexiusacademia/gotruss/internal/truss"
	"go.uber.org/zap"
)

// Bounds is the design-variable box. All four limits must be strictly
// positive so the physics model is defined at every point the driver visits.
type Bounds struct {
	HeightMin, HeightMax     float64
	DiameterMin, DiameterMax float64
}

// Validate rejects boxes on which the model or the driver is undefined.
func (b Bounds) Validate() error {
	if b.HeightMin <= 0 || b.DiameterMin <= 0 {
		return fmt.Errorf("bounds must be strictly positive: Hmin=%g, dmin=%g", b.HeightMin, b.DiameterMin)
	}
	if b.HeightMax < b.HeightMin {
		return fmt.Errorf("height bounds inverted: [%g, %g]", b.HeightMin, b.HeightMax)
	}
	if b.DiameterMax < b.DiameterMin {
		return fmt.Errorf("diameter bounds inverted: [%g, %g]", b.DiameterMin, b.DiameterMax)
	}
	return nil
}

func (b Bounds) clamp(x truss.Design) truss.Design {
	return truss.Design{
		Height:   math.Min(math.Max(x.Height, b.HeightMin), b.HeightMax),
		Diameter: math.Min(math.Max(x.Diameter, b.DiameterMin), b.DiameterMax),
	}
}

// Options are the solver knobs. Zero values fall back to defaults.
type Options struct {
	// Algorithm selects the step scheme; SQP when unset.
	Algorithm Algorithm
	// MaxIterations caps the number of driver iterations. Default 100.
	MaxIterations int
	// Tolerance governs the relative objective change and the KKT measure
	// at which the run counts as converged. Default 1e-8.
	Tolerance float64
	// FeasTolerance is the largest scaled constraint violation accepted
	// as feasible. Default 1e-8.
	FeasTolerance float64
	// UseGradients enables the analytic gradients. When false the driver
	// falls back to central finite differences of the model.
	UseGradients bool
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 100
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-8
	}
	if o.FeasTolerance <= 0 {
		o.FeasTolerance = 1e-8
	}
	return o
}

// point is one fully evaluated iterate. f and c carry the scaled objective
// and margins the steppers work on; q and m keep the raw physical values.
type point struct {
	x truss.Design
	q truss.Quantities
	m truss.Margins
	f float64
	c [3]float64
}

// grads holds scaled derivatives at a point: objective and one row per
// constraint, each (∂/∂H, ∂/∂d).
type grads struct {
	f [2]float64
	c [3][2]float64
}

// problem bundles the model, scaling, and bounds shared by the driver and
// its stepper.
type problem struct {
	consts   truss.Constants
	bounds   Bounds
	useGrad  bool
	objScale float64
	conScale [3]float64
}

func (pr *problem) eval(x truss.Design) (point, error) {
	q, err := truss.Evaluate(x, pr.consts)
	if err != nil {
		return point{}, err
	}
	m := truss.EvalMargins(q, pr.consts)
	p := point{x: x, q: q, m: m, f: q.Cost / pr.objScale}
	raw := m.Slice()
	for i := range raw {
		p.c[i] = raw[i] / pr.conScale[i]
	}
	return p, nil
}

func (pr *problem) gradient(p point) (grads, error) {
	var tg truss.Gradients
	if pr.useGrad {
		var err error
		tg, err = truss.Gradient(p.x, pr.consts)
		if err != nil {
			return grads{}, err
		}
	} else {
		var err error
		tg, err = pr.fdGradient(p.x)
		if err != nil {
			return grads{}, err
		}
	}
	var g grads
	for axis := 0; axis < 2; axis++ {
		g.f[axis] = tg.Cost[axis] / pr.objScale
		g.c[0][axis] = tg.Stress[axis] / pr.conScale[0]
		g.c[1][axis] = (tg.Stress[axis] - tg.Buckling[axis]) / pr.conScale[1]
		g.c[2][axis] = tg.Deflection[axis] / pr.conScale[2]
	}
	return g, nil
}

// fdGradient is the central-difference fallback used when analytic gradients
// are disabled. Perturbations are kept inside the positive domain.
func (pr *problem) fdGradient(x truss.Design) (truss.Gradients, error) {
	var g truss.Gradients
	for axis := 0; axis < 2; axis++ {
		v := x.Height
		if axis == 1 {
			v = x.Diameter
		}
		h := 1e-7 * math.Max(1, math.Abs(v))
		plus, minus := x, x
		if axis == 0 {
			plus.Height += h
			minus.Height -= h
		} else {
			plus.Diameter += h
			minus.Diameter -= h
		}
		qp, err := truss.Evaluate(plus, pr.consts)
		if err != nil {
			return truss.Gradients{}, err
		}
		qm, err := truss.Evaluate(minus, pr.consts)
		if err != nil {
			return truss.Gradients{}, err
		}
		inv := 1 / (2 * h)
		g.Cost[axis] = (qp.Cost - qm.Cost) * inv
		g.Stress[axis] = (qp.Stress - qm.Stress) * inv
		g.Deflection[axis] = (qp.Deflection - qm.Deflection) * inv
		g.Buckling[axis] = (qp.Buckling - qm.Buckling) * inv
	}
	return g, nil
}

func (p point) violation() float64 {
	v := 0.0
	for _, c := range p.c {
		if c > v {
			v = c
		}
	}
	return v
}

// stepInfo describes what a stepper did with one iterate.
type stepInfo struct {
	// Converged is set when the proposed step at a feasible point is
	// already negligible, so the current iterate is the answer.
	Converged bool
	// Accepted reports whether the line search found an acceptable step.
	Accepted bool
	// Restored marks a pure feasibility-restoration move.
	Restored bool
	// StepNorm is the length of the taken (or rejected) step.
	StepNorm float64
	// Optimality is a scale-free first-order optimality measure.
	Optimality float64
}

// stepper proposes the next iterate given the current point and its scaled
// gradients. Implementations own all per-run internal state (curvature
// estimates, penalties, barrier weight) and are never shared between runs.
type stepper interface {
	Step(p point, g grads) (point, stepInfo, error)
}

// Driver runs one constrained minimization. A Driver instance owns its
// solver state exclusively; concurrent runs need separate instances.
type Driver struct {
	consts truss.Constants
	bounds Bounds
	opts   Options
	logger *zap.Logger
}

// New validates the problem setup and builds a Driver.
func New(consts truss.Constants, bounds Bounds, opts Options, logger *zap.Logger) (*Driver, error) {
	if err := consts.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{consts: consts, bounds: bounds, opts: opts.withDefaults(), logger: logger}, nil
}

// Run minimizes the truss cost from the given initial design. The initial
// point is clamped into the bounds box. The returned Result is complete for
// every terminal status; only a *truss.DomainError (a problem-setup bug) or
// context cancellation aborts without one.
func (d *Driver) Run(ctx context.Context, initial truss.Design) (*Result, error) {
	x0 := d.bounds.clamp(initial)
	q0, err := truss.Evaluate(x0, d.consts)
	if err != nil {
		return nil, err
	}

	pr := &problem{
		consts:   d.consts,
		bounds:   d.bounds,
		useGrad:  d.opts.UseGradients,
		objScale: math.Max(1, math.Abs(q0.Cost)),
		conScale: [3]float64{
			math.Max(1, math.Abs(d.consts.StressMax)),
			math.Max(1, math.Abs(d.consts.StressMax)),
			math.Max(1, math.Abs(d.consts.DeflectionMax)),
		},
	}

	var st stepper
	switch d.opts.Algorithm {
	case InteriorPoint:
		st = newInteriorStepper(pr, d.opts)
	default:
		st = newSQPStepper(pr, d.opts)
	}

	cur, err := pr.eval(x0)
	if err != nil {
		return nil, err
	}

	best := cur
	history := make([]Iteration, 0, d.opts.MaxIterations)
	stall := 0
	status := MaxIterationsReached
	iterations := 0

	for it := 1; it <= d.opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations = it

		g, err := pr.gradient(cur)
		if err != nil {
			return nil, err
		}
		next, info, err := st.Step(cur, g)
		if err != nil {
			return nil, err
		}

		history = append(history, Iteration{
			N:            it,
			Cost:         next.q.Cost,
			MaxViolation: next.violation(),
			StepNorm:     info.StepNorm,
		})
		d.logger.Debug("iteration",
			zap.Int("iter", it),
			zap.Float64("height", next.x.Height),
			zap.Float64("diameter", next.x.Diameter),
			zap.Float64("cost", next.q.Cost),
			zap.Float64("violation", next.violation()),
			zap.Float64("step", info.StepNorm),
			zap.Bool("restored", info.Restored),
		)

		if info.Converged {
			cur = next
			status = Converged
			break
		}

		if info.Accepted {
			stall = 0
		} else {
			stall++
			if stall > 5 && cur.violation() > d.opts.FeasTolerance {
				cur = next
				status = Infeasible
				break
			}
			if stall > 8 {
				cur = next
				break
			}
		}

		// Converged when the step has shrunk away at a feasible point
		// and the cost has stopped moving.
		relDf := math.Abs(next.f-cur.f) / math.Max(1, math.Abs(cur.f))
		stepTol := math.Sqrt(d.opts.Tolerance)
		if next.violation() <= d.opts.FeasTolerance &&
			(info.Optimality <= d.opts.Tolerance ||
				(relDf <= d.opts.Tolerance && info.StepNorm <= stepTol && info.Optimality <= stepTol)) {
			cur = next
			status = Converged
			break
		}

		cur = next
		if cur.violation() < best.violation() ||
			(cur.violation() == best.violation() && cur.f < best.f) {
			best = cur
		}
	}

	if status != Converged {
		if cur.violation() < best.violation() {
			best = cur
		}
		if status == MaxIterationsReached && best.violation() > d.opts.FeasTolerance {
			status = Infeasible
		}
		cur = best
	}

	if status == Converged {
		cur = d.polish(pr, cur)
	}

	switch status {
	case Converged:
		d.logger.Info("optimization converged",
			zap.Int("iterations", iterations),
			zap.Float64("cost", cur.q.Cost),
			zap.Float64("height", cur.x.Height),
			zap.Float64("diameter", cur.x.Diameter))
	case Infeasible:
		d.logger.Warn("no feasible design within bounds",
			zap.Int("iterations", iterations),
			zap.Float64("violation", cur.violation()))
	default:
		d.logger.Warn("iteration budget exhausted",
			zap.Int("iterations", iterations),
			zap.Float64("cost", cur.q.Cost))
	}

	return newResult(cur, status, iterations, history), nil
}

// polish retracts a converged iterate a hair inside any active constraint so
// every raw margin ends strictly satisfied, not just within tolerance. The
// cost change is on the order of the slack and far below Tolerance.
func (d *Driver) polish(pr *problem, p point) point {
	const slack = 1e-7
	for round := 0; round < 8; round++ {
		g, err := pr.gradient(p)
		if err != nil {
			return p
		}
		var jtj sym2
		jtj.XX, jtj.YY = 1e-10, 1e-10
		var jtc [2]float64
		active := false
		for i, c := range p.c {
			if c <= -slack {
				continue
			}
			active = true
			a := g.c[i]
			r := c + slack
			jtj.XX += a[0] * a[0]
			jtj.XY += a[0] * a[1]
			jtj.YY += a[1] * a[1]
			jtc[0] += a[0] * r
			jtc[1] += a[1] * r
		}
		if !active {
			return p
		}
		det := jtj.det()
		if det == 0 {
			return p
		}
		step := [2]float64{
			(-jtc[0]*jtj.YY + jtc[1]*jtj.XY) / det,
			(jtc[0]*jtj.XY - jtc[1]*jtj.XX) / det,
		}
		nxt, err := pr.eval(pr.bounds.clamp(truss.Design{
			Height:   p.x.Height + step[0],
			Diameter: p.x.Diameter + step[1],
		}))
		if err != nil {
			return p
		}
		p = nxt
	}
	return p
}

// restorationStep is the shared fallback when an iterate must move toward
// feasibility first: a damped Gauss-Newton step on the violated margins.
func restorationStep(pr *problem, p point, g grads, shift float64) (truss.Design, [2]float64) {
	var jtj sym2
	jtj.XX, jtj.YY = 1e-10, 1e-10
	var jtc [2]float64
	for i, c := range p.c {
		if c <= -shift {
			continue
		}
		a := g.c[i]
		r := c + shift
		jtj.XX += a[0] * a[0]
		jtj.XY += a[0] * a[1]
		jtj.YY += a[1] * a[1]
		jtc[0] += a[0] * r
		jtc[1] += a[1] * r
	}
	det := jtj.det()
	if det == 0 {
		return p.x, [2]float64{}
	}
	d := [2]float64{
		(-jtc[0]*jtj.YY + jtc[1]*jtj.XY) / det,
		(jtc[0]*jtj.XY - jtc[1]*jtj.XX) / det,
	}
	nx := pr.bounds.clamp(truss.Design{Height: p.x.Height + d[0], Diameter: p.x.Diameter + d[1]})
	return nx, [2]float64{nx.Height - p.x.Height, nx.Diameter - p.x.Diameter}
}
