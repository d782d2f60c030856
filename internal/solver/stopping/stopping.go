// Package stopping provides external stopping criteria for solver runs.
// Criteria are predicates over solver state; the engine consults them only
// for algorithms without a built-in convergence check.
//
// Criteria that compare successive iterates (FValChangeTest, XDistTest)
// carry run-local memory: use a fresh instance per run.
package stopping

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/chandu8542/otkpp/internal/solver"
)

// GradNormTest stops when the Euclidean norm of the gradient at the current
// point falls below Eps. Each check evaluates the gradient and is counted by
// the objective like any other gradient call.
type GradNormTest struct {
	Eps float64
}

func (t GradNormTest) Done(s *solver.Solver) bool {
	return floats.Norm(s.Gradient(), 2) < t.Eps
}

// FValChangeTest stops when the absolute change of the objective value
// between consecutive iterations falls below Eps.
type FValChangeTest struct {
	Eps float64

	prev    float64
	started bool
}

func (t *FValChangeTest) Done(s *solver.Solver) bool {
	f := s.FVal()
	if !t.started {
		t.prev = f
		t.started = true
		return false
	}
	stop := math.Abs(f-t.prev) < t.Eps
	t.prev = f
	return stop
}

// XDistTest stops when the Euclidean distance between consecutive iterates
// falls below Eps.
type XDistTest struct {
	Eps float64

	prev []float64
}

func (t *XDistTest) Done(s *solver.Solver) bool {
	x := s.X()
	if t.prev == nil {
		t.prev = x
		return false
	}
	stop := floats.Distance(t.prev, x, 2) < t.Eps
	t.prev = x
	return stop
}

// MaxNumIterTest stops after N iterations.
type MaxNumIterTest struct {
	N uint
}

func (t MaxNumIterTest) Done(s *solver.Solver) bool {
	return s.NumIter() >= t.N
}

// Any stops as soon as one of its criteria stops.
type Any []solver.StoppingCriterion

func (a Any) Done(s *solver.Solver) bool {
	for _, c := range a {
		if c.Done(s) {
			return true
		}
	}
	return false
}

// All stops only when every one of its criteria stops.
type All []solver.StoppingCriterion

func (a All) Done(s *solver.Solver) bool {
	for _, c := range a {
		if !c.Done(s) {
			return false
		}
	}
	return len(a) > 0
}

// Func adapts a plain function to a StoppingCriterion.
type Func func(s *solver.Solver) bool

func (f Func) Done(s *solver.Solver) bool { return f(s) }
