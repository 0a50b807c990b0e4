package solver

import (
	"errors"
	"math"

	"github.com/alexiusacademia/gotruss/internal/truss"
)

// interiorStepper follows a log-barrier path: once strictly inside the
// feasible region it minimizes f − mu·Σ log(−g) with quasi-Newton descent,
// shrinking mu whenever the inner problem settles. Infeasible starts go
// through a Gauss-Newton restoration phase first.
type interiorStepper struct {
	pr   *problem
	opts Options

	mu      float64
	invCurv sym2
}

const (
	barrierMuInit    = 1e-2
	barrierMuMin     = 1e-10
	interiorMargin   = 1e-9
	restorationShift = 1e-6
)

func newInteriorStepper(pr *problem, opts Options) *interiorStepper {
	return &interiorStepper{pr: pr, opts: opts, mu: barrierMuInit, invCurv: identity2()}
}

func (s *interiorStepper) interior(p point) bool {
	b := s.pr.bounds
	for _, c := range p.c {
		if c >= -interiorMargin {
			return false
		}
	}
	return p.x.Height > b.HeightMin && p.x.Height < b.HeightMax &&
		p.x.Diameter > b.DiameterMin && p.x.Diameter < b.DiameterMax
}

func maxMargin(p point) float64 {
	m := p.c[0]
	for _, c := range p.c[1:] {
		if c > m {
			m = c
		}
	}
	return m
}

func (s *interiorStepper) Step(p point, g grads) (point, stepInfo, error) {
	if !s.interior(p) {
		return s.restore(p, g)
	}
	return s.descend(p, g)
}

// restore pushes an iterate into the strict interior. Lack of progress on
// the worst margin is reported as a rejected step; the driver escalates
// repeated rejections to Infeasible.
func (s *interiorStepper) restore(p point, g grads) (point, stepInfo, error) {
	b := s.pr.bounds
	nx, dir := restorationStep(s.pr, p, g, restorationShift)
	// Stay off the box faces so the barrier stays finite.
	nx.Height = math.Min(math.Max(nx.Height, b.HeightMin+interiorMargin), b.HeightMax-interiorMargin)
	nx.Diameter = math.Min(math.Max(nx.Diameter, b.DiameterMin+interiorMargin), b.DiameterMax-interiorMargin)
	next, err := s.pr.eval(nx)
	if err != nil {
		return point{}, stepInfo{}, err
	}
	info := stepInfo{
		Restored:   true,
		StepNorm:   math.Hypot(dir[0], dir[1]),
		Optimality: 1,
	}
	if maxMargin(next) < maxMargin(p) {
		info.Accepted = true
		return next, info, nil
	}
	return p, info, nil
}

func (s *interiorStepper) barrierValue(p point) (float64, bool) {
	b := s.pr.bounds
	v := p.f
	for _, c := range p.c {
		if c >= 0 {
			return 0, false
		}
		v -= s.mu * math.Log(-c)
	}
	edges := []float64{
		p.x.Height - b.HeightMin, b.HeightMax - p.x.Height,
		p.x.Diameter - b.DiameterMin, b.DiameterMax - p.x.Diameter,
	}
	for _, e := range edges {
		if e <= 0 {
			return 0, false
		}
		v -= s.mu * math.Log(e)
	}
	return v, true
}

func (s *interiorStepper) barrierGrad(p point, g grads) [2]float64 {
	b := s.pr.bounds
	out := g.f
	for i, c := range p.c {
		out[0] += s.mu * g.c[i][0] / -c
		out[1] += s.mu * g.c[i][1] / -c
	}
	out[0] += s.mu * (-1/(p.x.Height-b.HeightMin) + 1/(b.HeightMax-p.x.Height))
	out[1] += s.mu * (-1/(p.x.Diameter-b.DiameterMin) + 1/(b.DiameterMax-p.x.Diameter))
	return out
}

func (s *interiorStepper) shrink() {
	s.mu *= 0.1
	s.invCurv = identity2()
}

func (s *interiorStepper) descend(p point, g grads) (point, stepInfo, error) {
	bg := s.barrierGrad(p, g)
	gn := math.Hypot(bg[0], bg[1])

	if gn <= 10*math.Max(s.mu, 1e-9) {
		if s.mu <= barrierMuMin {
			return p, stepInfo{Converged: true, Accepted: true, Optimality: gn}, nil
		}
		s.shrink()
		return p, stepInfo{Accepted: true, Optimality: math.Max(gn, s.mu)}, nil
	}

	dir := s.invCurv.mul(bg)
	dir[0], dir[1] = -dir[0], -dir[1]
	slope := bg[0]*dir[0] + bg[1]*dir[1]
	if slope >= 0 {
		// Stale curvature; fall back to steepest descent.
		s.invCurv = identity2()
		dir = [2]float64{-bg[0], -bg[1]}
		slope = -gn * gn
	}

	phi0, _ := s.barrierValue(p)
	alpha := 1.0
	var next point
	moved := false
	for ls := 0; ls < 50; ls++ {
		cand, err := s.pr.eval(truss.Design{
			Height:   p.x.Height + alpha*dir[0],
			Diameter: p.x.Diameter + alpha*dir[1],
		})
		if err != nil {
			var derr *truss.DomainError
			if errors.As(err, &derr) {
				alpha *= 0.5
				continue
			}
			return point{}, stepInfo{}, err
		}
		if v, ok := s.barrierValue(cand); ok && v <= phi0+1e-4*alpha*slope {
			next = cand
			moved = true
			break
		}
		alpha *= 0.5
	}

	if !moved {
		if s.mu <= barrierMuMin {
			return p, stepInfo{Converged: true, Accepted: true, Optimality: gn}, nil
		}
		s.shrink()
		return p, stepInfo{Accepted: true, Optimality: math.Max(gn, s.mu)}, nil
	}

	g2, err := s.pr.gradient(next)
	if err != nil {
		return point{}, stepInfo{}, err
	}
	bg2 := s.barrierGrad(next, g2)
	s.updateInverse(p, next, bg, bg2)

	step := [2]float64{alpha * dir[0], alpha * dir[1]}
	norm := math.Hypot(step[0], step[1])
	return next, stepInfo{
		Accepted:   true,
		StepNorm:   norm,
		Optimality: math.Max(norm, math.Max(gn, s.mu)),
	}, nil
}

// updateInverse is the inverse-Hessian BFGS update for the barrier inner
// iteration.
func (s *interiorStepper) updateInverse(from, to point, g0, g1 [2]float64) {
	sv := [2]float64{to.x.Height - from.x.Height, to.x.Diameter - from.x.Diameter}
	y := [2]float64{g1[0] - g0[0], g1[1] - g0[1]}
	sy := sv[0]*y[0] + sv[1]*y[1]
	if sy <= 1e-16 {
		return
	}
	rho := 1 / sy
	hy := s.invCurv.mul(y)
	yhy := y[0]*hy[0] + y[1]*hy[1]
	s.invCurv = sym2{
		XX: s.invCurv.XX - 2*rho*sv[0]*hy[0] + rho*rho*yhy*sv[0]*sv[0] + rho*sv[0]*sv[0],
		XY: s.invCurv.XY - rho*(sv[0]*hy[1]+hy[0]*sv[1]) + rho*rho*yhy*sv[0]*sv[1] + rho*sv[0]*sv[1],
		YY: s.invCurv.YY - 2*rho*sv[1]*hy[1] + rho*rho*yhy*sv[1]*sv[1] + rho*sv[1]*sv[1],
	}
}
