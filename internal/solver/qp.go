package solver

import "math"

// sym2 is a symmetric 2x2 matrix, used for the quadratic term of the QP
// subproblem and the BFGS curvature estimate.
type sym2 struct {
	XX, XY, YY float64
}

func identity2() sym2 { return sym2{XX: 1, YY: 1} }

func (m sym2) mul(v [2]float64) [2]float64 {
	return [2]float64{m.XX*v[0] + m.XY*v[1], m.XY*v[0] + m.YY*v[1]}
}

func (m sym2) quad(v [2]float64) float64 {
	return m.XX*v[0]*v[0] + 2*m.XY*v[0]*v[1] + m.YY*v[1]*v[1]
}

func (m sym2) det() float64 { return m.XX*m.YY - m.XY*m.XY }

// qpConstraint is one linear inequality aᵀd ≤ b.
type qpConstraint struct {
	a [2]float64
	b float64
}

// solveQP minimizes gᵀd + ½ dᵀBd subject to the given inequalities, for a
// positive-definite B. With two variables the optimum has at most two active
// constraints, so every candidate active set is enumerated and its KKT system
// solved directly. Returns the minimizer, one multiplier per constraint, and
// whether a feasible candidate exists at all.
func solveQP(g [2]float64, b sym2, cons []qpConstraint) ([2]float64, []float64, bool) {
	type candidate struct {
		d    [2]float64
		lam  []float64
		cost float64
	}
	var best *candidate

	obj := func(d [2]float64) float64 {
		return g[0]*d[0] + g[1]*d[1] + 0.5*b.quad(d)
	}
	feasible := func(d [2]float64) bool {
		for _, c := range cons {
			if c.a[0]*d[0]+c.a[1]*d[1] > c.b+1e-9*math.Max(1, math.Abs(c.b)) {
				return false
			}
		}
		return true
	}
	consider := func(d [2]float64, lam []float64) {
		if !feasible(d) {
			return
		}
		v := obj(d)
		if best == nil || v < best.cost {
			best = &candidate{d: d, lam: lam, cost: v}
		}
	}

	// Unconstrained minimum.
	if det := b.det(); math.Abs(det) > 0 {
		consider([2]float64{
			(-g[0]*b.YY + g[1]*b.XY) / det,
			(g[0]*b.XY - g[1]*b.XX) / det,
		}, nil)
	}

	// One active constraint: solve [B a; aᵀ 0]·[d λ] = [−g; b].
	for i, c := range cons {
		m := [3][3]float64{
			{b.XX, b.XY, c.a[0]},
			{b.XY, b.YY, c.a[1]},
			{c.a[0], c.a[1], 0},
		}
		sol, ok := solve3(m, [3]float64{-g[0], -g[1], c.b})
		if !ok || sol[2] < -1e-12 {
			continue
		}
		lam := make([]float64, len(cons))
		lam[i] = sol[2]
		consider([2]float64{sol[0], sol[1]}, lam)
	}

	// Two active constraints: d is their intersection, multipliers from
	// stationarity B·d + g = −(λᵢaᵢ + λⱼaⱼ).
	for i := 0; i < len(cons); i++ {
		for j := i + 1; j < len(cons); j++ {
			ai, aj := cons[i].a, cons[j].a
			det := ai[0]*aj[1] - ai[1]*aj[0]
			if math.Abs(det) < 1e-14 {
				continue
			}
			d := [2]float64{
				(cons[i].b*aj[1] - cons[j].b*ai[1]) / det,
				(ai[0]*cons[j].b - aj[0]*cons[i].b) / det,
			}
			bd := b.mul(d)
			r := [2]float64{-(bd[0] + g[0]), -(bd[1] + g[1])}
			li := (r[0]*aj[1] - r[1]*aj[0]) / det
			lj := (ai[0]*r[1] - ai[1]*r[0]) / det
			if li < -1e-12 || lj < -1e-12 {
				continue
			}
			lam := make([]float64, len(cons))
			lam[i], lam[j] = li, lj
			consider(d, lam)
		}
	}

	if best == nil {
		return [2]float64{}, nil, false
	}
	if best.lam == nil {
		best.lam = make([]float64, len(cons))
	}
	return best.d, best.lam, true
}

// solve3 solves a 3x3 linear system by Gaussian elimination with partial
// pivoting. ok is false when the matrix is numerically singular.
func solve3(m [3][3]float64, r [3]float64) ([3]float64, bool) {
	for c := 0; c < 3; c++ {
		p := c
		for k := c + 1; k < 3; k++ {
			if math.Abs(m[k][c]) > math.Abs(m[p][c]) {
				p = k
			}
		}
		if math.Abs(m[p][c]) < 1e-300 {
			return [3]float64{}, false
		}
		m[c], m[p] = m[p], m[c]
		r[c], r[p] = r[p], r[c]
		for k := c + 1; k < 3; k++ {
			f := m[k][c] / m[c][c]
			for cc := c; cc < 3; cc++ {
				m[k][cc] -= f * m[c][cc]
			}
			r[k] -= f * r[c]
		}
	}
	var x [3]float64
	for c := 2; c >= 0; c-- {
		s := r[c]
		for k := c + 1; k < 3; k++ {
			s -= m[c][k] * x[k]
		}
		x[c] = s / m[c][c]
	}
	return x, true
}
