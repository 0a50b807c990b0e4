package solver

import (
	"math"

	"github.com/alexiusacademia/gotruss/internal/truss"
)

// sqpStepper implements sequential quadratic programming: each iterate
// solves a QP built from the scaled objective gradient, a damped-BFGS
// curvature estimate, and the linearized constraints, then backtracks along
// the resulting direction under an L1 merit function. When the linearized
// constraints are inconsistent the step falls back to pure feasibility
// restoration. Structure follows Kraft's SLSQP.
type sqpStepper struct {
	pr   *problem
	opts Options

	curvature sym2
	penalty   [3]float64
}

func newSQPStepper(pr *problem, opts Options) *sqpStepper {
	return &sqpStepper{
		pr:        pr,
		opts:      opts,
		curvature: identity2(),
		penalty:   [3]float64{1, 1, 1},
	}
}

func (s *sqpStepper) Step(p point, g grads) (point, stepInfo, error) {
	b := s.pr.bounds

	cons := make([]qpConstraint, 0, 7)
	for i := range p.c {
		cons = append(cons, qpConstraint{a: g.c[i], b: -p.c[i]})
	}
	cons = append(cons,
		qpConstraint{a: [2]float64{-1, 0}, b: p.x.Height - b.HeightMin},
		qpConstraint{a: [2]float64{1, 0}, b: b.HeightMax - p.x.Height},
		qpConstraint{a: [2]float64{0, -1}, b: p.x.Diameter - b.DiameterMin},
		qpConstraint{a: [2]float64{0, 1}, b: b.DiameterMax - p.x.Diameter},
	)

	dir, lam, ok := solveQP(g.f, s.curvature, cons)
	restored := false
	if !ok {
		// Linearized constraints inconsistent: move toward
		// feasibility and try again next iterate.
		restored = true
		_, dir = restorationStep(s.pr, p, g, 0)
		lam = nil
	}

	// Clip the full step into the box; backtracking below only shrinks it.
	target := b.clamp(truss.Design{Height: p.x.Height + dir[0], Diameter: p.x.Diameter + dir[1]})
	dir = [2]float64{target.Height - p.x.Height, target.Diameter - p.x.Diameter}
	stepNorm := math.Hypot(dir[0], dir[1])

	var mult [3]float64
	for i := 0; i < 3 && i < len(lam); i++ {
		mult[i] = lam[i]
	}
	for i := range s.penalty {
		s.penalty[i] = math.Max(math.Abs(mult[i]), 0.5*(s.penalty[i]+math.Abs(mult[i])))
	}

	kkt := math.Abs(g.f[0]*dir[0] + g.f[1]*dir[1])
	for i := range mult {
		kkt += math.Abs(mult[i] * p.c[i])
	}

	// The proposed step is already negligible at a feasible point: the
	// current iterate satisfies the first-order conditions.
	if !restored && p.violation() <= s.opts.FeasTolerance &&
		(kkt <= s.opts.Tolerance || stepNorm <= 1e-6) {
		return p, stepInfo{Converged: true, Accepted: true, StepNorm: stepNorm, Optimality: kkt}, nil
	}

	merit := func(pt point) float64 {
		v := pt.f
		for i, c := range pt.c {
			v += s.penalty[i] * math.Max(0, c)
		}
		return v
	}
	phi0 := merit(p)
	descent := g.f[0]*dir[0] + g.f[1]*dir[1]
	for i, c := range p.c {
		descent -= s.penalty[i] * math.Max(0, c)
	}

	next := p
	accepted := false
	alpha := 1.0
	for ls := 0; ls < 25; ls++ {
		cand, err := s.pr.eval(truss.Design{
			Height:   p.x.Height + alpha*dir[0],
			Diameter: p.x.Diameter + alpha*dir[1],
		})
		if err != nil {
			return point{}, stepInfo{}, err
		}
		if merit(cand) <= phi0+0.1*alpha*math.Min(descent, 0)+1e-15 {
			next = cand
			accepted = true
			break
		}
		alpha *= 0.5
	}

	info := stepInfo{
		Accepted:   accepted,
		Restored:   restored,
		StepNorm:   stepNorm,
		Optimality: math.Max(stepNorm, kkt),
	}
	if !accepted {
		return p, info, nil
	}

	if err := s.updateCurvature(p, next, g, mult); err != nil {
		return point{}, stepInfo{}, err
	}
	return next, info, nil
}

// updateCurvature applies the damped BFGS formula of Powell to keep the
// curvature estimate positive definite across nonconvex stretches.
func (s *sqpStepper) updateCurvature(from, to point, g grads, mult [3]float64) error {
	g2, err := s.pr.gradient(to)
	if err != nil {
		return err
	}
	gradL := func(gr grads) [2]float64 {
		out := gr.f
		for i := range mult {
			out[0] += mult[i] * gr.c[i][0]
			out[1] += mult[i] * gr.c[i][1]
		}
		return out
	}
	l0, l1 := gradL(g), gradL(g2)

	sv := [2]float64{to.x.Height - from.x.Height, to.x.Diameter - from.x.Diameter}
	y := [2]float64{l1[0] - l0[0], l1[1] - l0[1]}

	bs := s.curvature.mul(sv)
	sBs := sv[0]*bs[0] + sv[1]*bs[1]
	sy := sv[0]*y[0] + sv[1]*y[1]
	if sv[0]*sv[0]+sv[1]*sv[1] <= 1e-30 || sBs <= 1e-30 {
		return nil
	}
	if sy < 0.2*sBs {
		theta := 0.8 * sBs / (sBs - sy)
		y[0] = theta*y[0] + (1-theta)*bs[0]
		y[1] = theta*y[1] + (1-theta)*bs[1]
		sy = sv[0]*y[0] + sv[1]*y[1]
	}
	if sy <= 1e-30 {
		return nil
	}
	s.curvature = sym2{
		XX: s.curvature.XX - bs[0]*bs[0]/sBs + y[0]*y[0]/sy,
		XY: s.curvature.XY - bs[0]*bs[1]/sBs + y[0]*y[1]/sy,
		YY: s.curvature.YY - bs[1]*bs[1]/sBs + y[1]*y[1]/sy,
	}
	return nil
}
