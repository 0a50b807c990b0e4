package solver

// Status is the terminal state of an optimization run.
type Status int

const (
	// Converged means the relative cost change and the maximum constraint
	// violation both fell below tolerance.
	Converged Status = iota
	// MaxIterationsReached means the iteration budget ran out at a
	// feasible but not yet settled iterate.
	MaxIterationsReached
	// Infeasible means no step could reduce the constraint violation
	// below tolerance within bounds; the least-violating iterate is still
	// reported for diagnostics.
	Infeasible
	// DomainError means the physics model rejected an evaluated point.
	// Runs ending this way return an error instead of a Result.
	DomainError
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterationsReached:
		return "max_iterations"
	case Infeasible:
		return "infeasible"
	case DomainError:
		return "domain_error"
	}
	return "unknown"
}

// Algorithm selects the constrained-minimization scheme. The set is closed;
// the variant is fixed at Driver construction time.
type Algorithm int

const (
	// SequentialQuadraticProgramming linearizes the constraints and
	// solves a quadratic subproblem per iterate. Default.
	SequentialQuadraticProgramming Algorithm = iota
	// InteriorPoint follows a shrinking log-barrier path and never leaves
	// the strictly feasible region once inside it.
	InteriorPoint
)

func (a Algorithm) String() string {
	switch a {
	case SequentialQuadraticProgramming:
		return "sqp"
	case InteriorPoint:
		return "interior-point"
	}
	return "unknown"
}
